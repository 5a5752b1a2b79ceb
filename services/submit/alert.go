package submitsvc

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/trezcool/admissions/core/bulkedit"
)

// alert is the flash message rendered by the portal after a bulk update.
type alert struct {
	level bulkedit.Level
	text  string
}

// findAlert returns the first Bootstrap alert (`<div class="alert alert-<level>">`) of the page.
func findAlert(body string) (alert, bool, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return alert{}, false, err
	}
	var (
		found alert
		ok    bool
		walk  func(n *html.Node)
	)
	walk = func(n *html.Node) {
		if ok {
			return
		}
		if n.Type == html.ElementNode {
			if level, isAlert := alertLevel(n); isAlert {
				found, ok = alert{level: level, text: strings.Join(strings.Fields(textOf(n)), " ")}, true
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found, ok, nil
}

func alertLevel(n *html.Node) (bulkedit.Level, bool) {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		classes := strings.Fields(attr.Val)
		isAlert := false
		for _, class := range classes {
			if class == "alert" {
				isAlert = true
			}
		}
		if !isAlert {
			return "", false
		}
		for _, class := range classes {
			switch class {
			case "alert-success":
				return bulkedit.LevelSuccess, true
			case "alert-warning":
				return bulkedit.LevelWarning, true
			case "alert-danger":
				return bulkedit.LevelDanger, true
			case "alert-info":
				return bulkedit.LevelInfo, true
			}
		}
	}
	return "", false
}

// textOf returns the text of n, leaving out buttons (the alert's close "×").
func textOf(n *html.Node) string {
	switch {
	case n.Type == html.TextNode:
		return n.Data
	case n.Type == html.ElementNode && n.Data == "button":
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textOf(c))
		sb.WriteByte(' ')
	}
	return sb.String()
}

// outcome maps the alert onto the change-set that was sent.
// Only a success alert saying "saved successfully" confirms the whole change-set.
func (a alert) outcome(sent bulkedit.Outcome) (bulkedit.Outcome, error) {
	switch {
	case a.level == bulkedit.LevelSuccess && strings.Contains(a.text, "saved successfully"):
		sent.Saved = sent.Total
		return sent, nil
	case a.level == bulkedit.LevelWarning:
		var saved, total int
		if _, err := fmt.Sscanf(a.text, "%d out of %d changes", &saved, &total); err == nil {
			return bulkedit.Outcome{Total: total, Saved: saved}, nil
		}
	}
	return sent, &bulkedit.SubmissionError{Outcome: sent, Err: errors.New(a.text)}
}

package testutil

import (
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/admissions/core/bulkedit"
	"github.com/trezcool/admissions/core/page"
)

// Request is a bulk update received by the Portal.
type Request struct {
	Page    string
	Form    url.Values
	Records []bulkedit.Record
	Header  http.Header
}

type flash struct {
	msgType string
	msg     string
}

// Portal fakes the bulk update endpoints of the admissions portal: each update redirects to the
// listing page, which shows the result as a flash alert.
type Portal struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	flash    *flash

	// Status, when >= 400, is returned instead of the redirect.
	Status int
	// Saved, when >= 0, is how many changes of an update get saved; all of them otherwise.
	Saved int
	// Fail, when set, makes updates fail with this message.
	Fail string
}

// NewPortal starts a fake portal, closed at the end of the test.
func NewPortal(t *testing.T) *Portal {
	p := &Portal{Saved: -1}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	for _, name := range page.Names() {
		pg, _ := page.Lookup(name)
		e.GET(listingPath(pg), p.listing(pg))
		e.POST(pg.Path, p.bulkUpdate(pg))
	}

	p.Server = httptest.NewServer(e)
	t.Cleanup(p.Close)
	return p
}

func listingPath(pg page.Page) string {
	return strings.TrimSuffix(pg.Path, "/bulk-update")
}

func (p *Portal) bulkUpdate(pg page.Page) echo.HandlerFunc {
	return func(c echo.Context) error {
		form, err := c.FormParams()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		records, err := bulkedit.Decode(form, pg.Form)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		p.requests = append(p.requests, Request{
			Page:    pg.Name,
			Form:    form,
			Records: records,
			Header:  c.Request().Header.Clone(),
		})
		if p.Status >= http.StatusBadRequest {
			return c.String(p.Status, "Whitelabel Error Page")
		}

		outcome := bulkedit.Outcome{Total: len(records), Saved: len(records)}
		if p.Saved >= 0 && p.Saved < outcome.Total {
			outcome.Saved = p.Saved
		}
		switch {
		case p.Fail != "":
			p.flash = &flash{msgType: "danger", msg: bulkedit.ErrorPrefix + p.Fail}
		case outcome.Total == 0:
			p.flash = &flash{msgType: "info", msg: bulkedit.NoChangesMessage}
		case outcome.Succeeded():
			p.flash = &flash{msgType: "success", msg: outcome.MessageFor(pg.Form)}
		default:
			p.flash = &flash{msgType: "warning", msg: outcome.Message()}
		}
		return c.Redirect(http.StatusFound, listingPath(pg))
	}
}

// listing renders the page with the pending flash alert, shown once.
func (p *Portal) listing(pg page.Page) echo.HandlerFunc {
	return func(c echo.Context) error {
		p.mu.Lock()
		f := p.flash
		p.flash = nil
		p.mu.Unlock()

		var sb strings.Builder
		sb.WriteString("<html><body><div class=\"container\">")
		if f != nil {
			sb.WriteString(`<div class="alert alert-` + f.msgType + ` alert-dismissible fade show" role="alert">`)
			sb.WriteString(html.EscapeString(f.msg))
			sb.WriteString(`<button type="button" class="close" data-dismiss="alert"><span>&times;</span></button></div>`)
		}
		sb.WriteString("<h2>" + html.EscapeString(pg.Title) + "</h2><table class=\"table\"></table></div></body></html>")
		return c.HTML(http.StatusOK, sb.String())
	}
}

// Requests returns the bulk updates received so far.
func (p *Portal) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests...)
}

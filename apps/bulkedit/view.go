package main

import (
	"fmt"
	"io"

	"github.com/labstack/gommon/color"

	"github.com/trezcool/admissions/core/bulkedit"
)

// terminalView renders the bulk-edit state as lines of output, printing only what changed.
type terminalView struct {
	out     io.Writer
	color   *color.Color
	changed map[string]bool
	visible bool
	count   int
}

var _ bulkedit.View = (*terminalView)(nil)

func newTerminalView(out io.Writer, colored bool) *terminalView {
	c := color.New()
	if colored {
		c.Enable()
	} else {
		c.Disable()
	}
	return &terminalView{out: out, color: c, changed: make(map[string]bool)}
}

func (v *terminalView) SetRowChanged(entityID string, changed bool) {
	if v.changed[entityID] == changed {
		return
	}
	if changed {
		v.changed[entityID] = true
		fmt.Fprintf(v.out, "%s row %s changed\n", v.color.Yellow("*"), entityID)
		return
	}
	delete(v.changed, entityID)
	fmt.Fprintf(v.out, "%s\n", v.color.Grey("  row "+entityID+" unchanged"))
}

func (v *terminalView) SetSaveControls(visible bool, pendingCount int) {
	if v.visible == visible && v.count == pendingCount {
		return
	}
	v.visible, v.count = visible, pendingCount
	if visible {
		fmt.Fprintf(v.out, "%s\n", v.color.Green(fmt.Sprintf("[Save All (%d)]", pendingCount)))
		return
	}
	fmt.Fprintf(v.out, "%s\n", v.color.Grey("(no unsaved changes)"))
}

func (v *terminalView) Notify(level bulkedit.Level, msg string) {
	var tag string
	switch level {
	case bulkedit.LevelSuccess:
		tag = v.color.Green("success")
	case bulkedit.LevelWarning:
		tag = v.color.Yellow("warning")
	case bulkedit.LevelDanger:
		tag = v.color.Red("danger")
	default:
		tag = v.color.Cyan("info")
	}
	fmt.Fprintf(v.out, "[%s] %s\n", tag, msg)
}

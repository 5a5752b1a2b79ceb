package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/bulkedit"
	"github.com/trezcool/admissions/core/page"
	"github.com/trezcool/admissions/services/submit"
	"github.com/trezcool/admissions/storage/sheet"
)

const prompt = "bulkedit> "

var errQuit = errors.New("quit")

type lineReader interface {
	ReadLine() (string, error)
}

type scanLines struct {
	*bufio.Scanner
}

func (s scanLines) ReadLine() (string, error) {
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.Text(), nil
}

// editor runs the commands of one bulk-edit session.
type editor struct {
	page     page.Page
	table    *sheet.Table
	session  *bulkedit.Session
	validate *validator.Validate
	out      io.Writer
	quitting bool
}

func (cli *commandLine) edit(ctx context.Context, pg page.Page, file string, portal core.PortalConfig, dryRun bool) error {
	tbl, err := sheet.Load(file, pg.Form.EntityKey, "id")
	if err != nil {
		return err
	}

	lines, out, restore, err := cli.openTerminal()
	if err != nil {
		return err
	}
	defer restore()

	var sub bulkedit.Submitter
	if dryRun {
		sub = submitsvc.NewConsoleSubmitter(out, pg.Form)
	} else {
		if err := portal.Validate(cli.validate); err != nil {
			return errors.Wrap(err, "portal config")
		}
		sub = cli.newSubmitter(portal, pg)
	}

	_, colored := lines.(*term.Terminal)
	view := newTerminalView(out, colored)
	ed := &editor{
		page:     pg,
		table:    tbl,
		session:  bulkedit.NewSession(pg.Form, tbl.Snapshot(pg.Fields), sub, view, cli.logger),
		validate: cli.validate,
		out:      out,
	}
	cli.logger.Info(fmt.Sprintf("bulkedit[%s]: %s, %d rows loaded from %s", ed.session.ID, pg.Name, len(tbl.Rows), file))
	fmt.Fprintf(out, "%s: %d rows. Type 'help' for the commands.\n", pg.Title, len(tbl.Rows))
	return ed.loop(ctx, lines)
}

// openTerminal returns the line source of the session and where to write to.
// Input from a terminal gets line editing; anything else is read as a script.
func (cli *commandLine) openTerminal() (lineReader, io.Writer, func(), error) {
	if f, ok := cli.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return nil, nil, nil, err
		}
		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{f, cli.out}, prompt)
		return t, t, func() { _ = term.Restore(int(f.Fd()), state) }, nil
	}
	return scanLines{bufio.NewScanner(cli.in)}, cli.out, func() {}, nil
}

func (ed *editor) loop(ctx context.Context, lines lineReader) error {
	for {
		if err := ctx.Err(); err != nil {
			return ed.interrupted()
		}
		line, err := lines.ReadLine()
		if err == io.EOF {
			return ed.interrupted()
		}
		if err != nil {
			return err
		}
		if err := ed.exec(ctx, line); err != nil {
			if err == errQuit {
				return nil
			}
			fmt.Fprintf(ed.out, "error: %s\n", errorText(err))
		}
	}
}

// interrupted ends the session, reporting the changes that were not saved.
func (ed *editor) interrupted() error {
	if n := ed.session.Tracker().PendingCount(); n > 0 {
		return core.NewShutdownError(fmt.Sprintf("session ended with %d unsaved change(s)", n))
	}
	return nil
}

func (ed *editor) exec(ctx context.Context, line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]
	if cmd != "quit" && cmd != "exit" {
		ed.quitting = false
	}

	switch cmd {
	case "help", "?":
		ed.help()
	case "set":
		if len(args) != 3 {
			return errors.New("usage: set ID FIELD VALUE")
		}
		return ed.set(args[0], args[1], args[2])
	case "revert":
		if len(args) != 2 {
			return errors.New("usage: revert ID FIELD")
		}
		return ed.revert(args[0], args[1])
	case "show":
		if len(args) != 1 {
			return errors.New("usage: show ID")
		}
		return ed.show(args[0])
	case "rows":
		ed.rows()
	case "pending", "status":
		ed.pending()
	case "save":
		_, err := ed.session.OnSaveRequested(ctx)
		if err != nil && err != bulkedit.ErrNoPendingChanges && !bulkedit.IsSubmissionError(err) {
			return err
		}
	case "quit", "exit":
		if n := ed.session.Tracker().PendingCount(); n > 0 && !ed.quitting {
			ed.quitting = true
			fmt.Fprintf(ed.out, "%d unsaved change(s); type '%s' again to discard them.\n", n, cmd)
			return nil
		}
		return errQuit
	default:
		return errors.Errorf("unknown command %q (type 'help')", cmd)
	}
	return nil
}

func (ed *editor) help() {
	fmt.Fprintln(ed.out, "Commands:")
	fmt.Fprintln(ed.out, "  set ID FIELD VALUE  enter a value (quote it when it has spaces, \"\" to clear)")
	fmt.Fprintln(ed.out, "  revert ID FIELD     put back the saved value")
	fmt.Fprintln(ed.out, "  show ID             show a row")
	fmt.Fprintln(ed.out, "  rows                list the rows")
	fmt.Fprintln(ed.out, "  pending             list the unsaved changes")
	fmt.Fprintln(ed.out, "  save                save all changes at once")
	fmt.Fprintln(ed.out, "  quit                leave")
	fmt.Fprintf(ed.out, "Editable fields: %s\n", strings.Join(ed.page.Fields, ", "))
}

func (ed *editor) row(id string) (sheet.Row, error) {
	if err := ed.validate.Var(id, "required,entityid"); err != nil {
		return sheet.Row{}, errors.Errorf("invalid id %q", id)
	}
	row, ok := ed.table.Row(id)
	if !ok {
		return sheet.Row{}, errors.Errorf("no row %q", id)
	}
	return row, nil
}

func (ed *editor) set(id, field, value string) error {
	if _, err := ed.row(id); err != nil {
		return err
	}
	if err := ed.page.ValidateEdit(ed.validate, field, value); err != nil {
		return err
	}
	ed.session.OnFieldEdited(id, field, value)
	return nil
}

func (ed *editor) revert(id, field string) error {
	if _, err := ed.row(id); err != nil {
		return err
	}
	if !ed.page.Editable(field) {
		return errors.Wrap(page.ErrUnknownField, field)
	}
	orig, _ := ed.session.Tracker().Baseline(id, field)
	ed.session.OnFieldEdited(id, field, orig)
	return nil
}

// current returns the value of (id, field) as entered in this session.
func (ed *editor) current(row sheet.Row, field string) (string, bool) {
	for _, c := range ed.session.Tracker().Changes() {
		if c.EntityID == row.ID && c.Field == field {
			return c.NewValue, true
		}
	}
	if val, ok := ed.session.Tracker().Baseline(row.ID, field); ok {
		return val, false
	}
	return row.Values[field], false
}

func (ed *editor) show(id string) error {
	row, err := ed.row(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(ed.out, "%s %s\n", ed.page.Form.EntityKey, row.ID)
	for _, col := range ed.table.Columns {
		val, changed := ed.current(row, col)
		mark := " "
		if changed {
			mark = "*"
		}
		fmt.Fprintf(ed.out, " %s %s: %s\n", mark, col, val)
	}
	return nil
}

func (ed *editor) rows() {
	tracker := ed.session.Tracker()
	for _, row := range ed.table.Rows {
		mark := " "
		if tracker.HasPendingChangesFor(row.ID) {
			mark = "*"
		}
		vals := make([]string, 0, len(ed.page.Fields))
		for _, field := range ed.page.Fields {
			val, _ := ed.current(row, field)
			vals = append(vals, field+"="+val)
		}
		fmt.Fprintf(ed.out, "%s %s  %s\n", mark, row.ID, strings.Join(vals, "  "))
	}
}

func (ed *editor) pending() {
	changes := ed.session.Tracker().Changes()
	if len(changes) == 0 {
		fmt.Fprintln(ed.out, bulkedit.NoChangesMessage)
		return
	}
	for _, c := range changes {
		fmt.Fprintf(ed.out, "%s %s: %q -> %q\n", c.EntityID, c.Field, c.OriginalValue, c.NewValue)
	}
}

func errorText(err error) string {
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok && len(vErr.Fields) > 0 {
		msgs := make([]string, 0, len(vErr.Fields))
		for _, fe := range vErr.Fields {
			msgs = append(msgs, fe.Field+": "+fe.Error)
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}

// splitArgs splits a command line on spaces; double-quoted arguments may hold spaces.
func splitArgs(line string) ([]string, error) {
	var args []string
	line = strings.TrimSpace(line)
	for line != "" {
		if line[0] == '"' {
			quoted, err := strconv.QuotedPrefix(line)
			if err != nil {
				return nil, errors.Errorf("unterminated quote in %q", line)
			}
			arg, _ := strconv.Unquote(quoted)
			args = append(args, arg)
			line = strings.TrimSpace(line[len(quoted):])
			continue
		}
		end := strings.IndexAny(line, " \t")
		if end < 0 {
			end = len(line)
		}
		args = append(args, line[:end])
		line = strings.TrimSpace(line[end:])
	}
	return args, nil
}

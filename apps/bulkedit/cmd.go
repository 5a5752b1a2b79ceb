package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/bulkedit"
	"github.com/trezcool/admissions/core/page"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf         *core.Config
	validate     *validator.Validate
	logger       core.Logger
	in           io.Reader
	out          io.Writer
	newSubmitter func(conf core.PortalConfig, pg page.Page) bulkedit.Submitter
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  pages - list the bulk-edit pages and their editable fields")
	fmt.Fprintln(cli.out, "  edit -page PAGE -file EXPORT [-url URL] [-ask-token] [-dry-run] - edit rows of a page export and save them all at once")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	editCmd := flag.NewFlagSet("edit", flag.ContinueOnError)
	editCmd.SetOutput(cli.out)
	editPage := editCmd.String("page", "", "The bulk-edit page: "+strings.Join(page.Names(), "|"))
	editFile := editCmd.String("file", "", "The page export (.csv, .json or .xlsx) holding the rows as currently saved.")
	editURL := editCmd.String("url", "", "The portal base URL (overrides the configured one).")
	editAskToken := editCmd.Bool("ask-token", false, "Prompt for the portal token instead of using the configured one.")
	editDryRun := editCmd.Bool("dry-run", false, "Print the change-sets instead of posting them.")

	switch args[1] {
	case "pages":
		cli.listPages()
		return nil
	case "edit":
		if err := editCmd.Parse(args[2:]); err != nil {
			if err == flag.ErrHelp {
				return errHelp
			}
			return err
		}
		if *editPage == "" || *editFile == "" {
			editCmd.Usage()
			return errHelp
		}
		pg, err := page.Lookup(*editPage)
		if err != nil {
			return err
		}

		portal := cli.conf.Portal
		if *editURL != "" {
			portal.BaseURL = *editURL
		}
		if *editAskToken {
			fmt.Fprint(cli.out, "Enter portal token:")
			tok, err := readPasswordFunc(syscall.Stdin)
			fmt.Fprintln(cli.out)
			if err != nil {
				return err
			}
			if len(tok) == 0 {
				editCmd.Usage()
				return errHelp
			}
			portal.Token = string(tok)
		}
		return cli.edit(ctx, pg, *editFile, portal, *editDryRun)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) listPages() {
	for _, name := range page.Names() {
		pg, _ := page.Lookup(name)
		fmt.Fprintf(cli.out, "%s (%s) - POST %s\n", pg.Name, pg.Title, pg.Path)
		for _, field := range pg.Fields {
			if choices, ok := pg.Choices[field]; ok {
				fmt.Fprintf(cli.out, "  %s: %s\n", field, strings.Join(choices, "|"))
			} else {
				fmt.Fprintf(cli.out, "  %s: text\n", field)
			}
		}
	}
}

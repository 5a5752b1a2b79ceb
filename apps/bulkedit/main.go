package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/bulkedit"
	"github.com/trezcool/admissions/core/page"
	"github.com/trezcool/admissions/services/logger"
	"github.com/trezcool/admissions/services/submit"
)

func main() {
	std := log.New(os.Stderr, "BULKEDIT : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	if err := conf.Validate(validate); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range vErrs {
				std.Printf("config %s: %s\n", fe.Namespace(), fe.Translate(translator))
			}
		}
		std.Fatal(err)
	}

	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(conf.RollbarToken != "" && !conf.TestMode)
	if conf.Operator != "" {
		logger = logger.WithOperator(core.Operator{Username: conf.Operator})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// start CLI
	cli := commandLine{
		conf:     conf,
		validate: validate,
		logger:   logger,
		in:       os.Stdin,
		out:      os.Stdout,
		newSubmitter: func(portal core.PortalConfig, pg page.Page) bulkedit.Submitter {
			return submitsvc.NewRESTSubmitter(portal, pg, logger)
		},
	}
	if err := cli.run(ctx, os.Args); err != nil {
		switch {
		case err == errHelp:
		case core.IsShutdown(err):
			std.Println(err)
		default:
			logger.Error(fmt.Sprintf("bulkedit: %v", err), err)
		}
		stop()
		os.Exit(1)
	}
}

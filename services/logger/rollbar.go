package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/admissions/core"
)

// RollbarLogger prints to the std logger and reports to Rollbar (when enabled).
type RollbarLogger struct {
	std      *log.Logger
	debug    bool
	operator *core.Operator
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Portal.BaseURL)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// WithOperator returns a logger attributing its reports to `op`.
func (l RollbarLogger) WithOperator(op core.Operator) *RollbarLogger {
	l.operator = &op
	return &l
}

// expected fmt: msg | error, map[string]interface{}
func (l RollbarLogger) log(level, msg string, args []interface{}) {
	if l.operator != nil {
		rollbar.SetPerson(l.operator.ID, l.operator.Username, l.operator.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, append([]interface{}{msg}, args...)...)

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

// Debug is only printed and reported in debug mode.
func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.log(rollbar.DEBUG, msg, args)
	}
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(rollbar.INFO, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(rollbar.WARN, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(rollbar.ERR, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}

package core

// Logger is any service that can report messages & errors.
// expected args fmt: error | map[string]interface{}
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Operator identifies the person on whose behalf the logged action ran.
type Operator struct {
	ID       string
	Username string
	Email    string
}

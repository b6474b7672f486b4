package logger

import "log"

// Interface is implemented by every logger components receive
type Interface interface {
	Error(message string, err error)
	Info(message string)
	Debug(message string)
	Fatal(err error)
}

// Logger prints level prefixed lines through the standard library logger. It is used for local
// development and in tests.
type Logger struct {
}

// Error logs message together with the error that caused it
func (l Logger) Error(message string, err error) {
	log.Printf("[ERROR] %s: %v\n", message, err)
}

// Info logs an operational message
func (l Logger) Info(message string) {
	log.Printf("[INFO] %s\n", message)
}

// Debug logs details that only matter when tracing a problem
func (l Logger) Debug(message string) {
	log.Printf("[DEBUG] %s\n", message)
}

// Fatal logs err and exits the process
func (l Logger) Fatal(err error) {
	log.Fatalf("[FATAL] %v\n", err)
}

// Package logger wraps logrus with structured, JSON-formatted fields shared
// across the recall engine and its store adapters.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Entry to give call sites a fluent, typed way to
// attach request/error/payload context without repeating field names.
type Logger struct {
	entry *logrus.Entry
}

// RequestInfo carries the identifying details of a recall request for
// structured logs. It never carries fact text.
type RequestInfo struct {
	BankID    string `json:"bank_id"`
	RequestID string `json:"request_id"`
	Query     string `json:"query,omitempty"`
}

// ErrorInfo carries a structured error for logs, mirroring the kind/message
// split used by RecallError.
type ErrorInfo struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// Init configures the global logrus formatter, output, and level. Call once
// at process startup.
func Init(level logrus.Level) {
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(level)
}

// New creates a Logger with a fixed service name and optional trace/bank
// context pre-attached to every entry.
func New(serviceName, traceID, bankID string) *Logger {
	return &Logger{
		entry: logrus.WithFields(logrus.Fields{
			"service_name": serviceName,
			"trace_id":     traceID,
			"bank_id":      bankID,
		}),
	}
}

// WithRequest attaches request context to the next log entry.
func (l *Logger) WithRequest(req RequestInfo) *Logger {
	return &Logger{entry: l.entry.WithField("request_info", req)}
}

// WithError attaches structured error context to the next log entry.
func (l *Logger) WithError(err ErrorInfo) *Logger {
	return &Logger{entry: l.entry.WithField("error", err)}
}

// WithPayload attaches arbitrary structured payload data, e.g. trace
// summary counts. Never pass fact text through this.
func (l *Logger) WithPayload(payload map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithField("payload", payload)}
}

func (l *Logger) Info(message string)  { l.entry.Info(message) }
func (l *Logger) Warn(message string)  { l.entry.Warn(message) }
func (l *Logger) Error(message string) { l.entry.Error(message) }
func (l *Logger) Debug(message string) { l.entry.Debug(message) }
func (l *Logger) Fatal(message string) { l.entry.Fatal(message) }

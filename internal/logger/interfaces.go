package logger

import "log"

type Logger interface {
	Info(message string, v ...interface{})
	Warn(message string, v ...interface{})
	Error(message string, v ...interface{})
	Debug(message string, v ...interface{})
	Named(prefix string) Logger
	StdLogger() *log.Logger
}

package common

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = log.New(os.Stderr, "[atpdecode] ", log.LstdFlags|log.Lmicroseconds)

// Logf writes a formatted line to the session log. The CLI logs to
// stderr; the daemon redirects this through UseRotatingFile to a rotating file.
func Logf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}

// Fatalf logs and exits the process with status 1.
func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}

// UseRotatingFile redirects the package logger to a lumberjack-managed
// file, rotating at maxMegabytes and keeping maxBackups old files.
func UseRotatingFile(path string, maxMegabytes, maxBackups int) {
	logger.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxMegabytes,
		MaxBackups: maxBackups,
		MaxAge:     28,
		Compress:   true,
	})
}

// SetOutput redirects the package logger to w, bypassing rotation. Tests
// use this to capture -v/-verbose summary lines.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

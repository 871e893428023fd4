// Copyright 2025 The ultrafast-client Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package middleware

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/techgopal/ultrafast-client/request"
)

// A Logger observes request attempts as they are sent and concluded.
// The client calls LogRequest just before handing an attempt to the
// transport, then exactly one of LogResponse (an HTTP response was
// received) or LogError (the attempt ended in an error) after the
// attempt concludes.
type Logger interface {
	Middleware
	LogRequest(*request.Execution)
	LogResponse(*request.Execution)
	LogError(*request.Execution)
}

// Flags selects which lifecycle points a logging middleware reports.
type Flags int

const (
	// LogRequests enables reporting of attempts about to be sent.
	LogRequests Flags = 1 << iota
	// LogResponses enables reporting of received HTTP responses.
	LogResponses
	// LogErrors enables reporting of attempts that ended in error.
	LogErrors

	// LogAll enables all lifecycle reports.
	LogAll = LogRequests | LogResponses | LogErrors
)

// Logging is a middleware reporting request lifecycle points to a zap
// logger.
type Logging struct {
	name   string
	logger *zap.Logger
	flags  Flags
}

// NewLogging returns a logging middleware writing to logger. Only the
// lifecycle points selected by flags are reported. It panics if logger
// is nil.
func NewLogging(name string, logger *zap.Logger, flags Flags) *Logging {
	if logger == nil {
		panic("ultrafast/middleware: nil logger")
	}
	return &Logging{name: name, logger: logger, flags: flags}
}

// Name returns the middleware's name.
func (l *Logging) Name() string { return l.name }

// LogRequest reports an attempt about to be sent.
func (l *Logging) LogRequest(e *request.Execution) {
	if l.flags&LogRequests == 0 || e.Request == nil {
		return
	}
	l.logger.Info("request",
		zap.String("method", e.Request.Method),
		zap.String("url", e.Request.URL.String()),
		zap.String("host", e.Host),
		zap.Int("attempt", e.Attempt))
}

// LogResponse reports a received HTTP response.
func (l *Logging) LogResponse(e *request.Execution) {
	if l.flags&LogResponses == 0 || e.Response == nil {
		return
	}
	l.logger.Info("response",
		zap.String("host", e.Host),
		zap.Int("status", e.StatusCode()),
		zap.String("protocol", e.Protocol),
		zap.Int("attempt", e.Attempt),
		zap.Duration("elapsed", e.AttemptDuration),
		zap.Int("body_bytes", len(e.Body)))
}

// LogError reports an attempt that ended in an error.
func (l *Logging) LogError(e *request.Execution) {
	if l.flags&LogErrors == 0 || e.Err == nil {
		return
	}
	l.logger.Error("request error",
		zap.String("host", e.Host),
		zap.Int("attempt", e.Attempt),
		zap.Duration("elapsed", e.AttemptDuration),
		zap.Error(e.Err))
}

// NewProductionLogger builds a zap logger suitable for the logging
// middleware and for Stack failure reporting: JSON-encoded, written to
// stdout and, when path is non-empty, to a size-rotated file as well
// (100 MB per file, at most 7 backups, kept 7 days, compressed).
func NewProductionLogger(path string, level zapcore.Level) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level),
	}
	if path != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    100, // megabytes
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(enc, w, level))
	}
	return zap.New(zapcore.NewTee(cores...))
}

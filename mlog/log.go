// Package mlog provides logging with log levels and fields, built on top of
// log/slog.
//
// Each log level has a function to log with and without an error. Each such
// function takes a varargs list of slog attributes to log. Variable data
// should be in attributes; logging text itself should be constant, for
// easier log processing.
//
// The log levels can be configured per originating package, e.g. smtpclient,
// imapclient, pop3client. The configuration is application-global, so each
// Log instance uses the same log levels.
//
// Two extra trace levels exist beyond the usual Trace: Traceauth, for
// authentication exchanges that may carry cleartext credentials, and
// Tracedata, for message bodies passed through DATA/APPEND/RETR. Both are
// only logged in full when the configured level includes their own level;
// with the configured level at LevelTrace they are replaced with a
// placeholder ("***") so credential material and message bodies never hit a
// log sink enabled merely for protocol tracing.
package mlog

// todo: allow a caller-supplied slog.Handler instead of always defaulting to stderr text output.

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// Level is an alias for slog.Level so packages can pass mlog levels directly
// wherever a slog.Level is expected, e.g. TraceReader/TraceWriter.SetTrace.
type Level = slog.Level

// Trace levels, below slog.LevelDebug so they are hidden by a handler
// configured at the default Debug/Info/Warn/Error levels.
const (
	LevelTrace     Level = slog.LevelDebug - 4
	LevelTraceauth Level = slog.LevelDebug - 8
	LevelTracedata Level = slog.LevelDebug - 12
)

var levelNames = map[slog.Level]string{
	LevelTrace:     "TRACE",
	LevelTraceauth: "TRACEAUTH",
	LevelTracedata: "TRACEDATA",
}

// Holds a map[string]slog.Level, mapping a package name (the "pkg" attribute
// added by New) to a minimum log level. The empty string is the
// default/fallback level.
var config atomic.Value

func init() {
	config.Store(map[string]slog.Level{"": slog.LevelError})
}

// SetConfig atomically sets the log levels used by all Log instances.
func SetConfig(c map[string]slog.Level) {
	config.Store(c)
}

// Field is a shorthand for slog.Any, for call sites that build up attributes
// without referring to slog directly.
func Field(k string, v any) slog.Attr {
	return slog.Any(k, v)
}

// Log wraps a *slog.Logger with the originating package name, used to look
// up the package's configured minimum level, and an optional function
// returning attributes computed fresh for each log call.
type Log struct {
	Logger     *slog.Logger
	pkg        string
	moreFields func() []slog.Attr
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			if name, ok := levelNames[level]; ok {
				a.Value = slog.StringValue(name)
			}
		}
	}
	return a
}

func defaultLogger() *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       LevelTracedata,
		ReplaceAttr: replaceLevel,
	})
	return slog.New(h)
}

// New returns a new Log for "pkg", each log call adding a "pkg" attribute. If
// elog is nil, a default logger writing logfmt-like text to stderr is used.
func New(pkg string, elog *slog.Logger) Log {
	if elog == nil {
		elog = defaultLogger()
	}
	return Log{Logger: elog.With(slog.String("pkg", pkg)), pkg: pkg}
}

// WithFunc returns a Log that calls fn for additional attributes just before
// each log call, e.g. a current command tag.
func (l Log) WithFunc(fn func() []slog.Attr) Log {
	nl := l
	nl.moreFields = fn
	return nl
}

type cidKey struct{}

// CidKey can be used with context.WithValue to store a "cid" in a context,
// for logging with WithContext.
var CidKey cidKey

// WithCid adds a "cid" attribute.
func (l Log) WithCid(cid int64) Log {
	nl := l
	nl.Logger = nl.Logger.With(slog.Int64("cid", cid))
	return nl
}

// WithContext adds a "cid" attribute taken from the context, if present.
func (l Log) WithContext(ctx context.Context) Log {
	cid, ok := ctx.Value(CidKey).(int64)
	if !ok {
		return l
	}
	return l.WithCid(cid)
}

func (l Log) extra(attrs []slog.Attr) []slog.Attr {
	if l.moreFields == nil {
		return attrs
	}
	return append(l.moreFields(), attrs...)
}

// match reports whether level should be logged for this Log's package, and
// the configured level for that package (for trace redaction decisions).
func (l Log) match(level slog.Level) (bool, slog.Level) {
	cl, _ := config.Load().(map[string]slog.Level)
	if cl == nil {
		return level >= slog.LevelError, slog.LevelError
	}
	if v, ok := cl[l.pkg]; ok {
		return level >= v, v
	}
	v := cl[""]
	return level >= v, v
}

func (l Log) logAttrs(level slog.Level, err error, text string, attrs []slog.Attr) bool {
	if ok, _ := l.match(level); !ok {
		return false
	}
	all := attrs
	if err != nil {
		all = append([]slog.Attr{slog.String("err", err.Error())}, all...)
	}
	all = l.extra(all)
	l.Logger.LogAttrs(context.Background(), level, text, all...)
	return true
}

// Trace logs prefix+buf at traceLevel, one of LevelTrace, LevelTraceauth or
// LevelTracedata. If the configured level for this package is below
// LevelTrace, nothing is logged. If the configured level is LevelTrace but
// traceLevel is Traceauth or Tracedata, a placeholder is logged instead of
// buf, so tracing the wire never leaks credentials or message bodies unless
// explicitly configured to do so.
func (l Log) Trace(traceLevel Level, prefix string, buf []byte) bool {
	ok, configured := l.match(traceLevel)
	if !ok && configured <= LevelTrace {
		// Traceauth/Tracedata below the configured trace level: log the
		// placeholder instead of dropping the line.
		ok = true
	}
	if !ok {
		return false
	}
	text := prefix + string(buf)
	if traceLevel != LevelTrace && configured > traceLevel {
		text = prefix + "***"
	}
	l.Logger.LogAttrs(context.Background(), LevelTrace, text)
	return true
}

func (l Log) Print(text string, attrs ...slog.Attr) bool {
	l.Logger.LogAttrs(context.Background(), slog.LevelInfo, text, l.extra(attrs)...)
	return true
}
func (l Log) Printx(text string, err error, attrs ...slog.Attr) bool {
	if err != nil {
		attrs = append([]slog.Attr{slog.String("err", err.Error())}, attrs...)
	}
	l.Logger.LogAttrs(context.Background(), slog.LevelInfo, text, l.extra(attrs)...)
	return true
}

func (l Log) Fatal(text string, attrs ...slog.Attr) { l.Fatalx(text, nil, attrs...) }
func (l Log) Fatalx(text string, err error, attrs ...slog.Attr) {
	if err != nil {
		attrs = append([]slog.Attr{slog.String("err", err.Error())}, attrs...)
	}
	l.Logger.LogAttrs(context.Background(), slog.LevelError, text, l.extra(attrs)...)
	os.Exit(1)
}

func (l Log) Debug(text string, attrs ...slog.Attr) bool {
	return l.logAttrs(slog.LevelDebug, nil, text, attrs)
}
func (l Log) Debugx(text string, err error, attrs ...slog.Attr) bool {
	return l.logAttrs(slog.LevelDebug, err, text, attrs)
}

func (l Log) Info(text string, attrs ...slog.Attr) bool {
	return l.logAttrs(slog.LevelInfo, nil, text, attrs)
}
func (l Log) Infox(text string, err error, attrs ...slog.Attr) bool {
	return l.logAttrs(slog.LevelInfo, err, text, attrs)
}

func (l Log) Error(text string, attrs ...slog.Attr) bool {
	return l.logAttrs(slog.LevelError, nil, text, attrs)
}
func (l Log) Errorx(text string, err error, attrs ...slog.Attr) bool {
	return l.logAttrs(slog.LevelError, err, text, attrs)
}

type errWriter struct {
	log  Log
	level slog.Level
	msg  string
}

func (w *errWriter) Write(buf []byte) (int, error) {
	w.log.logAttrs(w.level, nil, w.msg, []slog.Attr{slog.String("text", string(buf))})
	return len(buf), nil
}

// ErrWriter returns a writer that turns each write into a log call on "log"
// at the given level and message, with the written content as an attribute.
// Useful for building a standard-library *log.Logger for e.g. an http.Server
// ErrorLog field.
func ErrWriter(log Log, level slog.Level, msg string) *errWriter {
	return &errWriter{log, level, msg}
}

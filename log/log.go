// Package log provides the process-wide structured logger. It wraps zerolog
// with printf style (f suffix) and key/value style (w suffix) helpers, so
// packages can log without carrying a logger around.
package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var (
	log zerolog.Logger

	// logTestWriter and logTestWriterName allow tests and benchmarks to
	// swap the output for an arbitrary writer.
	logTestWriter     io.Writer
	logTestWriterName = "log_test_writer"

	// panicOnInvalidChars makes any log call with invalid UTF-8 panic, it is
	// enabled with LOG_PANIC_ON_INVALIDCHARS=true.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = LogLevelError
	}
	Init(level, "stderr", nil)
}

// errorLevelWriter forwards only warnings and above to the wrapped writer.
type errorLevelWriter struct {
	io.Writer
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.WarnLevel {
		return len(p), nil
	}
	return w.Write(p)
}

// Init initializes the logger. Output can be "stdout", "stderr" or a file
// path. If errorOutput is not nil, warnings and errors are also written to
// it. An unknown level panics.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}
	case "stderr":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339Nano}
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot create log output: %v", err))
		}
		out = f
	}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, &errorLevelWriter{errorOutput})
	}

	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		return fmt.Sprintf("%s/%s:%d", path.Base(path.Dir(file)), path.Base(file), line)
	}
	log = zerolog.New(out).With().Timestamp().Caller().Logger()

	switch level {
	case LogLevelDebug:
		log = log.Level(zerolog.DebugLevel)
	case LogLevelInfo:
		log = log.Level(zerolog.InfoLevel)
	case LogLevelWarn:
		log = log.Level(zerolog.WarnLevel)
	case LogLevelError:
		log = log.Level(zerolog.ErrorLevel)
	default:
		panic(fmt.Sprintf("invalid log level: %q", level))
	}
	log.Info().Msgf("logger construction succeeded at level %s with output %s", level, output)
}

// Logger returns the underlying zerolog logger, e.g. to hand it to gnark.
func Logger() *zerolog.Logger {
	return &log
}

// Level returns the current log level.
func Level() string {
	switch log.GetLevel() {
	case zerolog.DebugLevel:
		return LogLevelDebug
	case zerolog.InfoLevel:
		return LogLevelInfo
	case zerolog.WarnLevel:
		return LogLevelWarn
	case zerolog.ErrorLevel:
		return LogLevelError
	default:
		return "unknown"
	}
}

func checkInvalidChars(msg string, keyvalues ...any) {
	if !panicOnInvalidChars {
		return
	}
	valid := utf8.ValidString(msg)
	for _, kv := range keyvalues {
		if s, ok := kv.(string); ok && !utf8.ValidString(s) {
			valid = false
		}
	}
	if !valid {
		panic(fmt.Sprintf("log line contains invalid chars: %q", msg))
	}
}

// logw logs a message with a list of key/value pairs, dropping a dangling
// key without a value.
func logw(e *zerolog.Event, msg string, keyvalues []any) {
	if e == nil {
		return
	}
	checkInvalidChars(msg, keyvalues...)
	for i := 0; i+1 < len(keyvalues); i += 2 {
		key, ok := keyvalues[i].(string)
		if !ok {
			key = fmt.Sprint(keyvalues[i])
		}
		e = e.Interface(key, keyvalues[i+1])
	}
	e.CallerSkipFrame(2).Msg(msg)
}

func logf(e *zerolog.Event, template string, args []any) {
	if e == nil {
		return
	}
	msg := fmt.Sprintf(template, args...)
	checkInvalidChars(msg)
	e.CallerSkipFrame(2).Msg(msg)
}

// Debug sends a debug level log message.
func Debug(args ...any) {
	if log.GetLevel() > zerolog.DebugLevel {
		return
	}
	msg := fmt.Sprint(args...)
	checkInvalidChars(msg)
	log.Debug().CallerSkipFrame(1).Msg(msg)
}

// Info sends an info level log message.
func Info(args ...any) {
	msg := fmt.Sprint(args...)
	checkInvalidChars(msg)
	log.Info().CallerSkipFrame(1).Msg(msg)
}

// Warn sends a warn level log message.
func Warn(args ...any) {
	msg := fmt.Sprint(args...)
	checkInvalidChars(msg)
	log.Warn().CallerSkipFrame(1).Msg(msg)
}

// Error sends an error level log message.
func Error(args ...any) {
	msg := fmt.Sprint(args...)
	checkInvalidChars(msg)
	log.Error().CallerSkipFrame(1).Msg(msg)
}

// Debugf sends a formatted debug level log message.
func Debugf(template string, args ...any) { logf(log.Debug(), template, args) }

// Infof sends a formatted info level log message.
func Infof(template string, args ...any) { logf(log.Info(), template, args) }

// Warnf sends a formatted warn level log message.
func Warnf(template string, args ...any) { logf(log.Warn(), template, args) }

// Errorf sends a formatted error level log message.
func Errorf(template string, args ...any) { logf(log.Error(), template, args) }

// Fatalf sends a formatted error level log message with the stack trace and
// exits the process.
func Fatalf(template string, args ...any) {
	logf(log.Error(), template, args)
	fmt.Fprintf(os.Stderr, "%s\n", strings.TrimSpace(string(debug.Stack())))
	os.Exit(1)
}

// Debugw sends a debug level log message with key/value pairs.
func Debugw(msg string, keyvalues ...any) { logw(log.Debug(), msg, keyvalues) }

// Infow sends an info level log message with key/value pairs.
func Infow(msg string, keyvalues ...any) { logw(log.Info(), msg, keyvalues) }

// Warnw sends a warn level log message with key/value pairs.
func Warnw(msg string, keyvalues ...any) { logw(log.Warn(), msg, keyvalues) }

// Errorw sends an error level log message with an error and key/value pairs.
func Errorw(err error, msg string, keyvalues ...any) {
	logw(log.Error().Err(err), msg, keyvalues)
}

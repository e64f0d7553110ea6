package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with typed fields and an optional error collector.
type Logger struct {
	zl        zerolog.Logger
	collector *LogCollector
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = file
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	}

	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "fxdesk").
		CallerWithSkipFrameCount(3).
		Logger()

	return &Logger{zl: zl}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying the given fields on every line.
// The child shares the parent's collector.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		key, value := f.GetKeyValue()
		ctx = ctx.Interface(key, value)
	}
	return &Logger{zl: ctx.Logger(), collector: l.collector}
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.write(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.write(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.write(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.write(l.zl.Error(), msg, fields)
	l.collect("error", msg, fields)
}

func (l *Logger) write(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		f.AddTo(event)
	}
	event.Msg(msg)
}

func (l *Logger) collect(level, msg string, fields []Field) {
	if l.collector == nil {
		return
	}

	// this function -> Error -> caller
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		if i := strings.LastIndex(file, "FxDesk"); i >= 0 {
			file = file[i+len("FxDesk"):]
		}
		caller = fmt.Sprintf("%s:%d", file, line)
	}

	fieldMap := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		key, value := f.GetKeyValue()
		fieldMap[key] = value
	}
	l.collector.AddLog(level, msg, fieldMap, caller)
}

// AttachCollector starts shipping error lines through the given collector config.
func (l *Logger) AttachCollector(cfg *CollectionConfig) {
	if l.collector != nil {
		l.collector.Close()
	}
	l.collector = NewLogCollector(cfg)
}

// Close flushes and stops the collector, if any.
func (l *Logger) Close() {
	if l.collector != nil {
		l.collector.Close()
		l.collector = nil
	}
}

// Field is a structured log attribute.
type Field interface {
	AddTo(event *zerolog.Event)
	GetKeyValue() (string, interface{})
}

type stringField struct {
	key   string
	value string
}

func (f stringField) AddTo(e *zerolog.Event)             { e.Str(f.key, f.value) }
func (f stringField) GetKeyValue() (string, interface{}) { return f.key, f.value }

type intField struct {
	key   string
	value int64
}

func (f intField) AddTo(e *zerolog.Event)             { e.Int64(f.key, f.value) }
func (f intField) GetKeyValue() (string, interface{}) { return f.key, f.value }

type floatField struct {
	key   string
	value float64
}

func (f floatField) AddTo(e *zerolog.Event)             { e.Float64(f.key, f.value) }
func (f floatField) GetKeyValue() (string, interface{}) { return f.key, f.value }

type boolField struct {
	key   string
	value bool
}

func (f boolField) AddTo(e *zerolog.Event)             { e.Bool(f.key, f.value) }
func (f boolField) GetKeyValue() (string, interface{}) { return f.key, f.value }

type errorField struct {
	err error
}

func (f errorField) AddTo(e *zerolog.Event) { e.Err(f.err) }
func (f errorField) GetKeyValue() (string, interface{}) {
	if f.err == nil {
		return "error", nil
	}
	return "error", f.err.Error()
}

type anyField struct {
	key   string
	value interface{}
}

func (f anyField) AddTo(e *zerolog.Event)             { e.Interface(f.key, f.value) }
func (f anyField) GetKeyValue() (string, interface{}) { return f.key, f.value }

func String(key, value string) Field { return stringField{key: key, value: value} }

func Int(key string, value int) Field { return intField{key: key, value: int64(value)} }

func Int64(key string, value int64) Field { return intField{key: key, value: value} }

func Float64(key string, value float64) Field { return floatField{key: key, value: value} }

func Bool(key string, value bool) Field { return boolField{key: key, value: value} }

func Error(err error) Field { return errorField{err: err} }

func Any(key string, value interface{}) Field { return anyField{key: key, value: value} }

// Duration logs the value in milliseconds.
func Duration(key string, value time.Duration) Field {
	return intField{key: key, value: value.Milliseconds()}
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}

package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a config value such as "debug" or "WARN" to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	for level, name := range levelNames {
		if strings.EqualFold(name, s) {
			return level
		}
	}
	return LevelInfo
}

type Logger struct {
	mu       *sync.Mutex
	output   io.Writer
	minLevel Level
	fields   map[string]interface{}
	exit     func(int)
}

type LogEntry struct {
	Timestamp string      `json:"timestamp"`
	Level     string      `json:"level"`
	Message   string      `json:"message"`
	File      string      `json:"file,omitempty"`
	Line      int         `json:"line,omitempty"`
	Fields    interface{} `json:"fields,omitempty"`
}

func NewLogger() *Logger {
	return New(os.Stdout, LevelInfo)
}

func New(output io.Writer, minLevel Level) *Logger {
	return &Logger{
		mu:       &sync.Mutex{},
		output:   output,
		minLevel: minLevel,
		exit:     os.Exit,
	}
}

// Nop discards everything. Used by tests that do not assert on logs.
func Nop() *Logger {
	return New(io.Discard, LevelFatal+1)
}

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if level < l.minLevel {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   msg,
		File:      file,
		Line:      line,
	}

	fieldMap := make(map[string]interface{}, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		fieldMap[k] = v
	}
	if len(fields)%2 == 0 {
		for i := 0; i < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			if err, isErr := fields[i+1].(error); isErr {
				fieldMap[key] = err.Error()
				continue
			}
			fieldMap[key] = fields[i+1]
		}
	}
	if len(fieldMap) > 0 {
		entry.Fields = fieldMap
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling log entry: %v\n", err)
		return
	}

	l.mu.Lock()
	fmt.Fprintln(l.output, string(jsonData))
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.log(LevelDebug, msg, fields...)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(LevelInfo, msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.log(LevelWarn, msg, fields...)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(LevelError, msg, fields...)
}

func (l *Logger) Fatal(msg string, fields ...interface{}) {
	l.log(LevelFatal, msg, fields...)
	l.exit(1)
}

func (l *Logger) WithCorrelationID(correlationID string) *Logger {
	return l.WithField("request_id", correlationID)
}

// WithField returns a child logger that attaches key to every entry.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value

	return &Logger{
		mu:       l.mu,
		output:   l.output,
		minLevel: l.minLevel,
		fields:   fields,
		exit:     l.exit,
	}
}

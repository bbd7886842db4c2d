package utils

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel enumerates severity tiers.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if int(l) >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	case FATAL:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel maps a config or flag string to a LogLevel.
// Unknown strings fall back to INFO.
func ParseLevel(s string) (LogLevel, bool) {
	for i, n := range levelNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return LogLevel(i), true
		}
	}
	if strings.EqualFold(strings.TrimSpace(s), "warning") {
		return WARN, true
	}
	return INFO, false
}

// Logger is a concurrency-safe, levelled logger used across the bridge.
type Logger struct {
	mu    sync.Mutex
	inner *logrus.Logger
	file  *os.File
}

var (
	globalLogger *Logger
	logOnce      sync.Once
)

// InitLogger creates the singleton logger. Call once at startup.
func InitLogger(minLevel LogLevel, logFilePath string) *Logger {
	logOnce.Do(func() {
		var writers []io.Writer
		writers = append(writers, os.Stdout)

		inner := logrus.New()
		inner.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
		inner.SetLevel(minLevel.logrus())

		var f *os.File
		if logFilePath != "" {
			var err error
			f, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				writers = append(writers, f)
			} else {
				inner.Warnf("could not open log file %s: %v", logFilePath, err)
			}
		}
		inner.SetOutput(io.MultiWriter(writers...))

		globalLogger = &Logger{inner: inner, file: f}
	})
	return globalLogger
}

// L returns the global logger, initialising a stdout-only DEBUG logger
// if InitLogger has not been called.
func L() *Logger {
	return InitLogger(DEBUG, "")
}

// SetLevel changes the minimum level after initialisation.
func (l *Logger) SetLevel(lvl LogLevel) {
	l.inner.SetLevel(lvl.logrus())
}

// Enabled reports whether lines at lvl are emitted.
func (l *Logger) Enabled(lvl LogLevel) bool {
	return l.inner.IsLevelEnabled(lvl.logrus())
}

// Close closes the log file, if any.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

// WithField returns a logrus entry carrying one structured field.
func (l *Logger) WithField(key string, value any) *logrus.Entry {
	return l.inner.WithField(key, value)
}

func (l *Logger) Debug(f string, a ...any) { l.inner.Debugf(f, a...) }
func (l *Logger) Info(f string, a ...any)  { l.inner.Infof(f, a...) }
func (l *Logger) Warn(f string, a ...any)  { l.inner.Warnf(f, a...) }
func (l *Logger) Error(f string, a ...any) { l.inner.Errorf(f, a...) }
func (l *Logger) Fatal(f string, a ...any) { l.inner.Fatalf(f, a...) }

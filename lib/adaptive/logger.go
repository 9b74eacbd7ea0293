package adaptive

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

// LoggerName is the name of the logger used by all container kinds.
const LoggerName = "adaptive"

// --------------------------------------------------------------------------
// Levels
// --------------------------------------------------------------------------

// levelLabels are the line prefixes of the levels that can be enabled
var levelLabels = map[logger.LogLevel]string{
	logger.CRITICAL: "PANIC",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// levelNames are the accepted spellings of ParseLogLevel
var levelNames = map[string]logger.LogLevel{
	"debug":   logger.DEBUG,
	"info":    logger.INFO,
	"warning": logger.WARNING,
	"warn":    logger.WARNING,
	"error":   logger.ERROR,
}

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	if lvl, ok := levelNames[strings.ToLower(level)]; ok {
		return lvl, nil
	}
	return logger.INFO, NewError(RetCIllegalArgument,
		fmt.Sprintf("invalid log level: %s. must be one of debug, info, warn, error", level))
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// sink is the writer shared by every logger created by CreateLogger, so
// InitLoggers can redirect loggers that already exist.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) redirect(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

// line writes "<date> <time> LEVEL | name | message"
func (s *sink) line(label, name, message string) {
	now := time.Now().Format("2006/01/02 15:04:05")

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s %-5s | %-15s | %s\n", now, label, name, message)
}

var output = &sink{w: os.Stdout}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

type adaptiveLogger struct {
	name  string
	level atomic.Int64
	out   *sink
}

func (l *adaptiveLogger) SetLevel(level logger.LogLevel) { l.level.Store(int64(level)) }

func (l *adaptiveLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args)
}
func (l *adaptiveLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args)
}
func (l *adaptiveLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args)
}
func (l *adaptiveLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args)
}

// Panicf logs the message and panics with it regardless of the level.
func (l *adaptiveLogger) Panicf(format string, args ...interface{}) {
	l.logf(logger.CRITICAL, format, args)
	panic(fmt.Sprintf(format, args...))
}

func (l *adaptiveLogger) enabled(level logger.LogLevel) bool {
	return level <= logger.LogLevel(l.level.Load())
}

func (l *adaptiveLogger) logf(level logger.LogLevel, format string, args []interface{}) {
	if !l.enabled(level) {
		return
	}
	l.out.line(levelLabels[level], l.name, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements the dragonboat logger.Factory. New loggers log at
// INFO level.
func CreateLogger(pkgName string) logger.ILogger {
	l := &adaptiveLogger{name: pkgName, out: output}
	l.SetLevel(logger.INFO)
	return l
}

var factoryOnce sync.Once

// InitLoggers installs the custom format as the global logger factory and
// sets the level of the container logger and every extra named logger. It
// may be called repeatedly; a non-nil w redirects all loggers created by
// CreateLogger.
//
// Loggers that wrote a line before the first call keep the dragonboat
// default format.
func InitLoggers(level string, w io.Writer, extra ...string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}
	if w != nil {
		output.redirect(w)
	}

	factoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for _, name := range append([]string{LoggerName}, extra...) {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}

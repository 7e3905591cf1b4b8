package log

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	origLogger = newOrigLogger()
	// default logger we use
	defaultLogger = &logger{
		Logger: origLogger,
		entry:  logrus.NewEntry(origLogger),
		fmt:    "short",
	}
)

func newOrigLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Level = logrus.WarnLevel
	return l
}

type logger struct {
	*logrus.Logger
	entry *logrus.Entry
	fmt   string
}

// Logger is the subset of logrus used by the rest of the tool
type Logger interface {
	Debug(...interface{})
	Debugf(string, ...interface{})

	Info(...interface{})
	Infof(string, ...interface{})

	Warn(...interface{})
	Warnf(string, ...interface{})

	Error(...interface{})
	Errorf(string, ...interface{})

	Fatal(...interface{})
	Fatalf(string, ...interface{})

	WithFields(map[string]interface{}) Logger
	With(key string, value interface{}) Logger
}

func (l *logger) Debug(args ...interface{}) {
	l.withSource().Debug(args...)
}

func (l *logger) Debugf(msg string, args ...interface{}) {
	l.withSource().Debugf(msg, args...)
}

func (l *logger) Info(args ...interface{}) {
	l.withSource().Info(args...)
}

func (l *logger) Infof(msg string, args ...interface{}) {
	l.withSource().Infof(msg, args...)
}

func (l *logger) Warn(args ...interface{}) {
	l.withSource().Warn(args...)
}

func (l *logger) Warnf(msg string, args ...interface{}) {
	l.withSource().Warnf(msg, args...)
}

func (l *logger) Error(args ...interface{}) {
	l.withSource().Error(args...)
}

func (l *logger) Errorf(msg string, args ...interface{}) {
	l.withSource().Errorf(msg, args...)
}

func (l *logger) Fatal(args ...interface{}) {
	l.withSource().Fatal(args...)
}

func (l *logger) Fatalf(msg string, args ...interface{}) {
	l.withSource().Fatalf(msg, args...)
}

func (l *logger) With(key string, value interface{}) Logger {
	return &logger{origLogger, l.entry.WithField(key, value), l.fmt}
}

func (l *logger) WithFields(fields map[string]interface{}) Logger {
	return &logger{origLogger, l.entry.WithFields(logrus.Fields(fields)), l.fmt}
}

func (l *logger) withSource() *logrus.Entry {
	if l.fmt == "none" {
		return l.entry
	}
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "<???>"
		line = 1
	} else if l.fmt == "short" {
		slash := strings.LastIndex(file, "/")
		file = file[slash+1:]
	}
	return l.entry.WithField("source", fmt.Sprintf("%s:%d", file, line))
}

// SetFormat sets the output format to 'json'|'text'|'nocolor'
func SetFormat(format string) {
	switch format {
	case "json":
		origLogger.Formatter = &logrus.JSONFormatter{}
	case "nocolor":
		origLogger.Formatter = &logrus.TextFormatter{DisableColors: true}
	default:
		origLogger.Formatter = &logrus.TextFormatter{}
	}
}

// GetFormat returns 'json'|'text'|'nocolor'
func GetFormat() (format string) {
	switch v := origLogger.Formatter.(type) {
	case *logrus.JSONFormatter:
		format = "json"
	case *logrus.TextFormatter:
		if !v.ForceColors && v.DisableColors {
			format = "nocolor"
		} else {
			format = "text"
		}
	}
	return format
}

// SetOutput sets log output
func SetOutput(out io.Writer) {
	origLogger.Out = out
}

// SetOutputFile sends log output to a size-rotated file instead of stderr.
// The returned closer flushes and closes the current file.
func SetOutputFile(path string, maxSizeMB, maxBackups int) io.Closer {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	origLogger.Out = lj
	SetFormat("nocolor")
	return lj
}

// DisableColorsUnlessTerminal switches a text formatter to 'nocolor' when
// the output is not an interactive terminal
func DisableColorsUnlessTerminal() {
	f, ok := origLogger.Out.(*os.File)
	if ok && term.IsTerminal(int(f.Fd())) {
		return
	}
	if GetFormat() == "text" {
		SetFormat("nocolor")
	}
}

// SetSourceFormat sets the source field format to 'long'|'short'|'none'
func SetSourceFormat(format string) {
	switch format {
	case "short", "long", "none":
		defaultLogger.fmt = format
	default:
		defaultLogger.fmt = "short"
	}
}

// GetSourceFormat returns the source field format
func GetSourceFormat() string {
	return defaultLogger.fmt
}

// SetLevel sets the logging level, unknown levels fall back to warn
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		origLogger.Level = logrus.WarnLevel
		return
	}
	origLogger.Level = lvl
}

func GetLevel() string {
	return origLogger.Level.String()
}

func IsDebugEnabled() bool {
	return origLogger.IsLevelEnabled(logrus.DebugLevel)
}

func Debug(args ...interface{}) {
	defaultLogger.withSource().Debug(args...)
}

func Debugf(msg string, args ...interface{}) {
	defaultLogger.withSource().Debugf(msg, args...)
}

func Info(args ...interface{}) {
	defaultLogger.withSource().Info(args...)
}

func Infof(msg string, args ...interface{}) {
	defaultLogger.withSource().Infof(msg, args...)
}

func Warn(args ...interface{}) {
	defaultLogger.withSource().Warn(args...)
}

func Warnf(msg string, args ...interface{}) {
	defaultLogger.withSource().Warnf(msg, args...)
}

func Error(args ...interface{}) {
	defaultLogger.withSource().Error(args...)
}

func Errorf(msg string, args ...interface{}) {
	defaultLogger.withSource().Errorf(msg, args...)
}

func Fatal(args ...interface{}) {
	defaultLogger.withSource().Fatal(args...)
}

func Fatalf(msg string, args ...interface{}) {
	defaultLogger.withSource().Fatalf(msg, args...)
}

func With(key string, value interface{}) Logger {
	return defaultLogger.With(key, value)
}

type Fields map[string]interface{}

func WithFields(fields map[string]interface{}) Logger {
	return defaultLogger.WithFields(fields)
}

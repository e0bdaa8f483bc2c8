// Package logging provides the logging service shared by the importer components.
//
// A single Service is constructed at startup, handed out as named child loggers to
// every component, and closed on shutdown. There is no package-level logger; code
// that was given no logger uses NoOp.
package logging

import (
	"fmt"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
)

// Logger is the leveled logging contract consumed by the importer packages.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config captures the options of the go-logger backed service.
type Config struct {
	Level  string
	Format string
}

// Service owns the root go-logger instance and the named loggers derived from it.
type Service struct {
	mu      sync.RWMutex
	root    *glog.BaseLogger
	loggers map[string]*namedLogger
	closed  bool
}

// NewService constructs the logging service. Format is one of "console" (default),
// "json" or "pretty"; Level one of trace, debug, info, warn, error.
func NewService(cfg Config) (*Service, error) {
	options := []glog.Option{}

	if level := normalizeLevel(cfg.Level); level != "" {
		options = append(options, glog.WithLevel(level))
	} else if strings.TrimSpace(cfg.Level) != "" {
		return nil, fmt.Errorf("logging: unsupported level %q", cfg.Level)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "console":
		options = append(options, glog.WithLoggerTypeConsole())
	case "json":
		options = append(options, glog.WithLoggerTypeJSON())
	case "pretty":
		options = append(options, glog.WithLoggerTypePretty())
	default:
		return nil, fmt.Errorf("logging: unsupported format %q", cfg.Format)
	}

	return &Service{
		root:    glog.NewLogger(options...),
		loggers: make(map[string]*namedLogger),
	}, nil
}

// Logger returns the logger registered under name, creating it on first use.
// Loggers handed out before Close stop emitting once the service is closed.
func (s *Service) Logger(name string) Logger {
	if s == nil {
		return NoOp()
	}
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NoOp()
	}
	if l, ok := s.loggers[name]; ok {
		return l
	}

	var inner glog.Logger = s.root
	if name != "" {
		inner = s.root.GetLogger(name)
	}
	l := &namedLogger{service: s, inner: inner}
	s.loggers[name] = l
	return l
}

// Close shuts the service down. It is safe to call more than once.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.loggers = make(map[string]*namedLogger)
	return nil
}

func (s *Service) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

type namedLogger struct {
	service *Service
	inner   glog.Logger
}

func (l *namedLogger) Debug(msg string, args ...any) {
	if !l.service.isClosed() {
		l.inner.Debug(msg, args...)
	}
}

func (l *namedLogger) Info(msg string, args ...any) {
	if !l.service.isClosed() {
		l.inner.Info(msg, args...)
	}
}

func (l *namedLogger) Warn(msg string, args ...any) {
	if !l.service.isClosed() {
		l.inner.Warn(msg, args...)
	}
}

func (l *namedLogger) Error(msg string, args ...any) {
	if !l.service.isClosed() {
		l.inner.Error(msg, args...)
	}
}

func normalizeLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return glog.Trace
	case "debug":
		return glog.Debug
	case "info":
		return glog.Info
	case "warn", "warning":
		return glog.Warn
	case "error":
		return glog.Error
	default:
		return ""
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoOp returns a logger that discards everything.
func NoOp() Logger { return noopLogger{} }

// Ensure returns l, or NoOp when l is nil.
func Ensure(l Logger) Logger {
	if l == nil {
		return NoOp()
	}
	return l
}

package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	configuration = NewConfig(logrus.StandardLogger())

	formats = map[string]logrus.Formatter{
		FormatText: &logrus.TextFormatter{FullTimestamp: true},
		FormatJSON: new(logrus.JSONFormatter),
	}
)

func formatNames() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Config struct {
	logger *logrus.Logger
	level  logrus.Level
	format logrus.Formatter
	output io.Writer
}

func NewConfig(logger *logrus.Logger) *Config {
	return &Config{
		logger: logger,
		level:  logrus.InfoLevel,
		format: formats[FormatText],
		output: os.Stderr,
	}
}

// Configuration returns the configuration of the standard logger.
func Configuration() *Config {
	return configuration
}

func (l *Config) SetLevel(levelString string) error {
	level, err := logrus.ParseLevel(levelString)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	l.level = level

	return nil
}

func (l *Config) SetFormat(format string) error {
	formatter, ok := formats[format]
	if !ok {
		return fmt.Errorf("unknown log format %q, expected one of: %v", format, formatNames())
	}

	l.format = formatter

	return nil
}

func (l *Config) SetOutput(w io.Writer) {
	l.output = w
}

// Apply sets level and format in one go and reloads the logger.
func (l *Config) Apply(level, format string) error {
	if err := l.SetLevel(level); err != nil {
		return err
	}
	if err := l.SetFormat(format); err != nil {
		return err
	}

	l.ReloadConfiguration()

	return nil
}

func (l *Config) ReloadConfiguration() {
	l.logger.SetFormatter(l.format)
	l.logger.SetLevel(l.level)
	l.logger.SetOutput(l.output)
}

// Hold buffers log output while the progress view owns the terminal. The
// returned release function writes everything held to the configured output.
func (l *Config) Hold() (release func()) {
	buf := &lockedBuffer{}
	l.logger.SetOutput(buf)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.logger.SetOutput(l.output)
			_, _ = buf.WriteTo(l.output)
		})
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) WriteTo(w io.Writer) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.WriteTo(w)
}

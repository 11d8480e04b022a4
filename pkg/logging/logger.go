/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging system for FVM. Structured logrus logging to the console and to a
size-rotated file in JSON, text or custom format, plus helpers for command and parse events.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelFatal   LogLevel = "fatal"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
)

// LoggerConfig holds the configuration for the logger.
// An empty OutputDir disables the log file.
type LoggerConfig struct {
	Level     LogLevel  `mapstructure:"level" json:"level"`
	Format    LogFormat `mapstructure:"format" json:"format"`
	OutputDir string    `mapstructure:"dir" json:"output_dir"`
	FileName  string    `mapstructure:"file" json:"file"`
	MaxFiles  int       `mapstructure:"max_files" json:"max_files"`
	MaxSize   int       `mapstructure:"max_size" json:"max_size"` // megabytes
	MaxAge    int       `mapstructure:"max_age" json:"max_age"`   // days, 0 keeps forever
	Timestamp bool      `mapstructure:"timestamp" json:"timestamp"`
	Caller    bool      `mapstructure:"caller" json:"caller"`
	Colors    bool      `mapstructure:"colors" json:"colors"`
	Compress  bool      `mapstructure:"compress" json:"compress"`

	Output io.Writer `mapstructure:"-" json:"-"` // console writer, stdout when nil
}

// DefaultConfig mirrors the rotation policy of the original service: one 2MB backup
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:     LogLevelInfo,
		Format:    LogFormatCustom,
		OutputDir: "./logs",
		FileName:  "fvm.log",
		MaxFiles:  1,
		MaxSize:   2,
		Timestamp: true,
		Caller:    false,
		Colors:    true,
	}
}

// Validate checks the LoggerConfig for invalid values
func (c *LoggerConfig) Validate() error {
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom:
	default:
		return fmt.Errorf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelFatal:
	default:
		return fmt.Errorf("unsupported log level: %s", c.Level)
	}
	if c.OutputDir == "" {
		return nil
	}
	if c.MaxFiles < 0 {
		return fmt.Errorf("max_files must not be negative")
	}
	if c.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max_age must not be negative")
	}
	return nil
}

// Logger wraps a configured logrus logger
type Logger struct {
	config    *LoggerConfig
	logger    *logrus.Logger
	rotator   *lumberjack.Logger
	startTime time.Time
}

// NewLogger creates a new logger instance. A nil config uses DefaultConfig.
func NewLogger(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	l := &Logger{
		config:    config,
		logger:    logrus.New(),
		startTime: time.Now(),
	}

	if err := l.setup(); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return l, nil
}

func (l *Logger) setup() error {
	level, err := logrus.ParseLevel(string(l.config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.logger.SetLevel(level)
	l.logger.SetReportCaller(l.config.Caller)

	if err := l.setFormatter(); err != nil {
		return err
	}
	return l.setupOutput()
}

func (l *Logger) setFormatter() error {
	prettyCaller := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	switch l.config.Format {
	case LogFormatJSON:
		l.logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			DisableTimestamp: !l.config.Timestamp,
			CallerPrettyfier: prettyCaller,
		})
	case LogFormatText:
		l.logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    l.config.Timestamp,
			DisableTimestamp: !l.config.Timestamp,
			TimestampFormat:  time.RFC3339,
			ForceColors:      l.config.Colors,
			DisableColors:    !l.config.Colors,
			CallerPrettyfier: prettyCaller,
		})
	case LogFormatCustom:
		l.logger.SetFormatter(&CustomFormatter{
			Timestamp: l.config.Timestamp,
			Caller:    l.config.Caller,
			Colors:    l.config.Colors,
		})
	default:
		return fmt.Errorf("unsupported log format: %s", l.config.Format)
	}
	return nil
}

// setupOutput writes to the console and, when configured, a rotated file
func (l *Logger) setupOutput() error {
	console := l.config.Output
	if console == nil {
		console = os.Stdout
	}
	if l.config.OutputDir == "" {
		l.logger.SetOutput(console)
		return nil
	}

	if err := os.MkdirAll(l.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	name := l.config.FileName
	if name == "" {
		name = "fvm.log"
	}

	l.rotator = &lumberjack.Logger{
		Filename:   filepath.Join(l.config.OutputDir, name),
		MaxSize:    l.config.MaxSize,
		MaxBackups: l.config.MaxFiles,
		MaxAge:     l.config.MaxAge,
		Compress:   l.config.Compress,
	}
	l.logger.SetOutput(io.MultiWriter(console, l.rotator))

	l.logger.WithFields(logrus.Fields{
		"start_time": l.startTime.Format(time.RFC3339),
		"log_file":   l.rotator.Filename,
		"level":      l.config.Level,
		"format":     l.config.Format,
	}).Debug("Logging system initialized")
	return nil
}

// LogFile returns the rotated file path, empty when file output is off
func (l *Logger) LogFile() string {
	if l.rotator == nil {
		return ""
	}
	return l.rotator.Filename
}

// LogCommand logs a finished external command
func (l *Logger) LogCommand(command string, duration time.Duration, exitCode int, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["command"] = command
	fields["duration"] = duration
	fields["exit_code"] = exitCode

	l.logger.WithFields(fields).Info("Command executed")
}

// LogParse logs the outcome of a parse
func (l *Logger) LogParse(scanID string, entries, findings int, success bool) {
	l.logger.WithFields(logrus.Fields{
		"scan_id":  scanID,
		"entries":  entries,
		"findings": findings,
		"success":  success,
	}).Info("Scan parsed")
}

// LogError logs any error with its taxonomy fields
func (l *Logger) LogError(msg string, err error) {
	if err == nil {
		return
	}
	e := apperr.From(err)
	entry := l.logger.WithFields(e.Fields())
	if e.Status() >= 500 {
		entry.Error(msg)
		return
	}
	entry.Warn(msg)
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.logger
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.logger.WithFields(fields).Info(msg)
}

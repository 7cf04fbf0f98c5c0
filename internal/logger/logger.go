package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimestampFormat is the layout used for the timestamp on user-facing lines.
const TimestampFormat = "2006-01-02 15:04:05"

// Logger defines the common logging interface used throughout the application.
// It separates internal (debug) logs from the user-facing status lines that
// autosave prints for every phase transition.
type Logger interface {
	// Info logs an informational message to the debug log only.
	Info(format string, args ...any)

	// Warning logs a warning to the debug log, and to stdout when verbose.
	Warning(format string, args ...any)

	// Error logs an error to the debug log and always to stderr.
	Error(format string, args ...any)

	// InfoToUser logs a timestamped informational line to stdout.
	InfoToUser(format string, args ...any)

	// WarningToUser logs a timestamped warning line to stdout.
	WarningToUser(format string, args ...any)

	// Success logs a timestamped success line to stdout.
	Success(format string, args ...any)

	// StatusMessage prints a raw line to stdout (no timestamp, no debug log).
	StatusMessage(format string, args ...any)

	// Close flushes and closes the debug log file.
	Close() error
}

// Rotation limits for the debug log file.
const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 28
)

// DefaultLogger provides structured logging capability and implements the Logger interface
type DefaultLogger struct {
	mu        sync.Mutex
	logger    *slog.Logger
	enabled   bool
	logFile   string
	verbose   bool
	stdout    io.Writer
	stderr    io.Writer
	file      *lumberjack.Logger
	sessionID string
	now       func() time.Time

	outStyles styles
	errStyles styles
}

type styles struct {
	renderer  *lipgloss.Renderer
	timestamp lipgloss.Style
	info      lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	err       lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		renderer:  r,
		timestamp: r.NewStyle().Faint(true),
		info:      r.NewStyle().Foreground(lipgloss.Color("6")),
		success:   r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		warning:   r.NewStyle().Foreground(lipgloss.Color("3")),
		err:       r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// New creates a new Logger instance
func New(enabled bool, logFile string, verbose bool) Logger {
	return NewWithOutput(enabled, logFile, verbose, os.Stdout, os.Stderr)
}

// NewWithOutput creates a DefaultLogger with custom output writers
func NewWithOutput(enabled bool, logFile string, verbose bool, stdout, stderr io.Writer) *DefaultLogger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}

	sessionID := uuid.New().String()

	var logger *slog.Logger
	var file *lumberjack.Logger

	if enabled {
		logDir := filepath.Dir(logFile)
		if logDir != "." {
			if err := os.MkdirAll(logDir, 0o755); err != nil {
				_, _ = fmt.Fprintf(stderr, "⚠️ Failed to create log directory: %v\n", err)
			}
		}

		lj := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
		}
		// lumberjack opens lazily; an empty write surfaces open errors now.
		if _, err := lj.Write(nil); err == nil {
			file = lj
			logger = slog.New(slog.NewTextHandler(lj, opts)).With("session", sessionID)
			_, _ = fmt.Fprintf(stdout, "🔍 Debug logging enabled. Logs will be written to: %s\n", logFile)

			logger.Info("autosave debug logging started")
		} else {
			logger = slog.New(slog.NewTextHandler(stderr, opts)).With("session", sessionID)
			_, _ = fmt.Fprintf(stderr, "⚠️ Failed to open log file: %v, using stderr instead\n", err)
		}
	} else {
		logger = slog.New(slog.NewTextHandler(stderr, opts)).With("session", sessionID)
	}

	return &DefaultLogger{
		logger:    logger,
		enabled:   enabled,
		logFile:   logFile,
		verbose:   verbose,
		stdout:    stdout,
		stderr:    stderr,
		file:      file,
		sessionID: sessionID,
		now:       time.Now,
		outStyles: newStyles(stdout),
		errStyles: newStyles(stderr),
	}
}

// SessionID returns the identifier attached to every debug log record of this run.
func (l *DefaultLogger) SessionID() string {
	return l.sessionID
}

// SetColor forces colour output on or off, overriding terminal detection.
func (l *DefaultLogger) SetColor(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	profile := termenv.Ascii
	if enabled {
		profile = termenv.ANSI
	}
	l.outStyles.renderer.SetColorProfile(profile)
	l.errStyles.renderer.SetColorProfile(profile)
}

// userLine renders "[timestamp] marker message" with the given style.
func (l *DefaultLogger) userLine(s styles, style lipgloss.Style, marker, msg string) string {
	ts := s.timestamp.Render("[" + l.now().Format(TimestampFormat) + "]")
	return fmt.Sprintf("%s %s %s\n", ts, marker, style.Render(msg))
}

// Info logs an informational message (file only)
func (l *DefaultLogger) Info(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return
	}

	l.logger.Info(fmt.Sprintf(format, args...))
}

// InfoToUser logs an informational message to both file and stdout
func (l *DefaultLogger) InfoToUser(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.enabled {
		l.logger.Info(msg)
	}

	_, _ = io.WriteString(l.stdout, l.userLine(l.outStyles, l.outStyles.info, "ℹ️ ", msg))
}

// Success logs a success message to both file and stdout
func (l *DefaultLogger) Success(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.enabled {
		l.logger.Info(msg)
	}

	_, _ = io.WriteString(l.stdout, l.userLine(l.outStyles, l.outStyles.success, "✅", msg))
}

// Warning logs a warning message
func (l *DefaultLogger) Warning(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.enabled {
		l.logger.Warn(msg)
	}

	if l.verbose {
		_, _ = io.WriteString(l.stdout, l.userLine(l.outStyles, l.outStyles.warning, "⚠️ ", msg))
	}
}

// WarningToUser logs a warning message to both file and stdout
func (l *DefaultLogger) WarningToUser(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.enabled {
		l.logger.Warn(msg)
	}

	_, _ = io.WriteString(l.stdout, l.userLine(l.outStyles, l.outStyles.warning, "⚠️ ", msg))
}

// Error logs an error message
func (l *DefaultLogger) Error(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.enabled {
		l.logger.Error(msg)
	}

	// Errors always reach the user, debug or not
	_, _ = io.WriteString(l.stderr, l.userLine(l.errStyles, l.errStyles.err, "❌", msg))
}

// StatusMessage prints a status message to stdout only (no logging)
func (l *DefaultLogger) StatusMessage(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, _ = fmt.Fprintln(l.stdout, fmt.Sprintf(format, args...))
}

// Close closes the rotating log file, if one is open
func (l *DefaultLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetStdout sets a custom writer for user-facing stdout messages only.
// NOTE: This does not affect where structured log messages from slog are directed.
func (l *DefaultLogger) SetStdout(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stdout = w
	l.outStyles = newStyles(w)
}

// SetStderr sets a custom writer for user-facing stderr messages only.
// NOTE: This does not affect where structured log messages from slog are directed.
func (l *DefaultLogger) SetStderr(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stderr = w
	l.errStyles = newStyles(w)
}

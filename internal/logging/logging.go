package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "outbreak-mcp.log"

// Options control where log output goes.
type Options struct {
	Verbose bool
	// Dir overrides LOGS_FOLDER. Empty means LOGS_FOLDER, then <exe dir>/logs.
	Dir string
	// ConsoleOnly skips the rotating file sink (one-shot CLI runs).
	ConsoleOnly bool
	// Console defaults to os.Stderr. Stdout is never used: the MCP stdio transport owns it.
	Console io.Writer
}

// Init configures the global zerolog logger with a console sink and, unless disabled,
// a rotating file sink.
func Init(opts Options) error {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleWriter := zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal(console),
	}

	if opts.ConsoleOnly {
		log.Logger = zerolog.New(consoleWriter).With().Timestamp().Logger()
		return nil
	}

	fileWriter, err := newFileWriter(resolveDir(opts.Dir))
	if err != nil {
		return err
	}

	multi := zerolog.MultiLevelWriter(consoleWriter, fileWriter)
	log.Logger = zerolog.New(multi).With().Timestamp().Logger()
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// resolveDir picks the log directory. Init runs before config.Load, so the .env next to
// the binary is read here to make LOGS_FOLDER visible.
func resolveDir(dir string) string {
	if dir != "" {
		return dir
	}

	exePath, err := os.Executable()
	if err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exePath), ".env"))
	}

	if env := os.Getenv("LOGS_FOLDER"); env != "" {
		return env
	}
	if err == nil {
		return filepath.Join(filepath.Dir(exePath), "logs")
	}
	return "logs"
}

func newFileWriter(dir string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", dir, err)
	}

	probe := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(probe, []byte("test"), 0644); err != nil {
		return nil, fmt.Errorf("log directory %q is not writable: %w", dir, err)
	}
	_ = os.Remove(probe)

	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    16, // megabytes
		MaxBackups: 8,
		MaxAge:     90, // days
		Compress:   true,
	}, nil
}

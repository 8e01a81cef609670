package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config level name to a zerolog level. Unknown names are
// info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds a console-format logger at the given level with RFC 3339 UTC
// timestamps. When file is non-nil the same records are written to it
// without colors.
func New(level string, console, file io.Writer) zerolog.Logger {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	var w io.Writer = zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
	}
	if file != nil {
		w = zerolog.MultiLevelWriter(
			w,
			zerolog.ConsoleWriter{
				Out:        file,
				TimeFormat: time.RFC3339,
				NoColor:    true,
			},
		)
	}

	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// LogFilePath builds a session log file path.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

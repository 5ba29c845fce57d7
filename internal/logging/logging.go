// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel names the environment variable that sets the default log level.
const EnvLevel = "WEBAGENT_LOG_LEVEL"

// InitLogging configures the default slog logger from WEBAGENT_LOG_LEVEL and
// an optional -log-level / --log-level argument (the argument wins). It
// returns args with the flag removed so the CLI parser never sees it.
func InitLogging(args []string) []string {
	levelStr, remaining := splitLevelFlag(os.Getenv(EnvLevel), args)
	setDefault(os.Stderr, ParseLevel(levelStr))
	return remaining
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitLevelFlag(level string, args []string) (string, []string) {
	if level == "" {
		level = "info"
	}

	var remaining []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if v, ok := strings.CutPrefix(arg, "--log-level="); ok {
			level = v
			continue
		}
		if v, ok := strings.CutPrefix(arg, "-log-level="); ok {
			level = v
			continue
		}
		if arg == "-log-level" || arg == "--log-level" {
			if i+1 < len(args) {
				level = args[i+1]
				i++
			}
			continue
		}

		remaining = append(remaining, arg)
	}
	return level, remaining
}

func setDefault(w io.Writer, level slog.Level) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

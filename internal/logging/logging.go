package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "NOWPLAYING_LOG_LEVEL"
	EnvLogNoColor = "NOWPLAYING_LOG_NOCOLOR"
)

// New builds the console logger used by the daemon and installs it as the
// global zerolog logger. Environment variables override the configured level.
func New(app, level string) zerolog.Logger {
	return NewWithWriter(os.Stderr, app, level)
}

func NewWithWriter(out io.Writer, app, level string) zerolog.Logger {
	lvl, ok := ParseLevel(level)
	if !ok {
		lvl = zerolog.InfoLevel
	}
	if envLvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		lvl = envLvl
	}
	noColor, _ := parseBool(os.Getenv(EnvLogNoColor))

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
	logger := zerolog.New(output).Level(lvl).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug", "verbose":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

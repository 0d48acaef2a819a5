package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// levelFor maps the deployment environment onto a log level: local and dev
// runs log debug, everything else info. MINECHAIN_LOG_LEVEL overrides both
// when it parses as a slog level name.
func levelFor(env string) slog.Level {
	if raw := strings.TrimSpace(os.Getenv("MINECHAIN_LOG_LEVEL")); raw != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(raw)); err == nil {
			return level
		}
	}
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "local", "dev", "development":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Setup installs a JSON slog handler as the process default and returns a
// logger tagged with the service name and environment. The standard library
// logger is bridged through the same handler so stray log.Printf output from
// dependencies lands in the structured stream.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFor(env),
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	base := slog.New(handler).With(args...)
	slog.SetDefault(base)

	bridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

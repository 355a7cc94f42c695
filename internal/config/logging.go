package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogConfig 选择所有可执行程序共用的 slog handler。
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return level, fmt.Errorf("invalid log level %q", l.Level)
	}
	return level, nil
}

// NewLogger 按配置构造 slog.Logger；format 为 json 时输出 JSON，其余情况输出文本。
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

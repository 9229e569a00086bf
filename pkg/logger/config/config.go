package config

import (
	"fmt"
	"time"
)

// zap levels
const (
	DEBUG_LEVEL = -1
	INFO_LEVEL  = 0
	WARN_LEVEL  = 1
	ERROR_LEVEL = 2
)

type Configuration struct {
	Level      int
	TimeFormat string
}

func (c Configuration) Validate() error {
	if c.Level < DEBUG_LEVEL || c.Level > ERROR_LEVEL {
		return fmt.Errorf("log level must be between %d and %d, got %d", DEBUG_LEVEL, ERROR_LEVEL, c.Level)
	}
	if c.TimeFormat == "" {
		return fmt.Errorf("log time format must not be empty")
	}
	if _, err := time.Parse(c.TimeFormat, time.Now().Format(c.TimeFormat)); err != nil {
		return fmt.Errorf("invalid log time format %q: %w", c.TimeFormat, err)
	}
	return nil
}

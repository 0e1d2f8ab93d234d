package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithPretty selects the colorized console handler.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON selects the JSON handler. It wins over WithPretty.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter sets the output. A nil writer discards everything.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writer = w
		if w == nil {
			c.writer = io.Discard
		}
	}
}

// WithComponent tags every record with the component that emitted it. The
// console handler shows it as a prefix, the others as a "component" attribute.
func WithComponent(name string) Option {
	return func(c *config) {
		c.component = name
	}
}

// WithTimestamps toggles timestamps on the console handler.
func WithTimestamps(on bool) Option {
	return func(c *config) {
		c.timestamps = on
	}
}

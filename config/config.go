// Package config loads and validates the scraper configuration. All
// validation, including selector syntax, happens eagerly at load time so
// a bad configuration is rejected before any network activity.
package config

import (
	"fmt"
	"net/url"

	"github.com/andybalholm/cascadia"
	"github.com/webgather/harvester/collect"
	"github.com/webgather/harvester/spider"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel string
	LogFile  string // 额外的日志文件，空则仅输出到stdout
	Fetcher  Fetcher
	Storage  Storage
	Tasks    []spider.TaskConfig
}

type Fetcher struct {
	Timeout   int // 毫秒
	UserAgent string
}

type Storage struct {
	Type       string // csv | mysql | empty
	Path       string // csv输出目录
	SQLURL     string
	BatchCount int
}

// Error is a configuration error. The run never starts when Load returns
// one.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func errf(field string, format string, args ...interface{}) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}

	if c.Fetcher.Timeout == 0 {
		c.Fetcher.Timeout = 3000
	}

	if c.Fetcher.UserAgent == "" {
		c.Fetcher.UserAgent = collect.DefaultUserAgent
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "csv"
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "."
	}

	if c.Storage.BatchCount == 0 {
		c.Storage.BatchCount = 50
	}

	for i := range c.Tasks {
		t := &c.Tasks[i]
		if t.WaitTime == nil {
			defaultWait := int64(1)
			t.WaitTime = &defaultWait
		}
		if t.MaxDepth == 0 {
			t.MaxDepth = 5
		}
	}
}

func (c *Config) validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errf("logLevel", "unknown level %q", c.LogLevel)
	}

	switch c.Storage.Type {
	case "csv", "empty":
	case "mysql":
		if c.Storage.SQLURL == "" {
			return errf("storage.sqlURL", "required for mysql storage")
		}
		if c.Storage.BatchCount < 1 {
			return errf("storage.batchCount", "must be positive, got %d", c.Storage.BatchCount)
		}
	default:
		return errf("storage.type", "unknown storage type %q", c.Storage.Type)
	}

	if len(c.Tasks) == 0 {
		return errf("Tasks", "at least one task is required")
	}

	names := make(map[string]bool)
	for i := range c.Tasks {
		if err := validateTask(&c.Tasks[i], names); err != nil {
			return err
		}
	}

	return nil
}

func validateTask(t *spider.TaskConfig, names map[string]bool) error {
	if t.Name == "" {
		return errf("Tasks.Name", "task name must not be empty")
	}

	field := func(sub string) string {
		return fmt.Sprintf("Tasks[%s].%s", t.Name, sub)
	}

	if names[t.Name] {
		return errf("Tasks.Name", "duplicate task name %q", t.Name)
	}
	names[t.Name] = true

	if len(t.StartURLs) == 0 {
		return errf(field("StartURLs"), "at least one start URL is required")
	}

	for _, raw := range t.StartURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return errf(field("StartURLs"), "unparseable URL %q", raw)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errf(field("StartURLs"), "URL %q must be absolute http(s)", raw)
		}
	}

	if t.ListSelector == "" {
		return errf(field("ListSelector"), "list selector must not be empty")
	}
	if _, err := cascadia.Compile(t.ListSelector); err != nil {
		return errf(field("ListSelector"), "invalid selector %q: %v", t.ListSelector, err)
	}

	if len(t.Fields) == 0 {
		return errf(field("Fields"), "at least one field is required")
	}

	fieldNames := make(map[string]bool)
	for _, f := range t.Fields {
		if f.Name == "" {
			return errf(field("Fields"), "field name must not be empty")
		}
		if fieldNames[f.Name] {
			return errf(field("Fields"), "duplicate field name %q", f.Name)
		}
		fieldNames[f.Name] = true

		if f.Selector == "" {
			return errf(field("Fields"), "field %q: selector must not be empty", f.Name)
		}
		if _, err := cascadia.Compile(f.Selector); err != nil {
			return errf(field("Fields"), "field %q: invalid selector %q: %v", f.Name, f.Selector, err)
		}
	}

	if t.NextPageSelector != "" {
		if _, err := cascadia.Compile(t.NextPageSelector); err != nil {
			return errf(field("NextPageSelector"), "invalid selector %q: %v", t.NextPageSelector, err)
		}
	}

	if *t.WaitTime < 0 {
		return errf(field("WaitTime"), "must not be negative, got %d", *t.WaitTime)
	}

	if t.MaxDepth < 0 {
		return errf(field("MaxDepth"), "must not be negative, got %d", t.MaxDepth)
	}

	return nil
}

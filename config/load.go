package config

import (
	"fmt"

	"github.com/go-micro/plugins/v4/config/encoder/toml"
	"github.com/webgather/harvester/collect"
	microconfig "go-micro.dev/v4/config"
	"go-micro.dev/v4/config/reader"
	"go-micro.dev/v4/config/reader/json"
	"go-micro.dev/v4/config/source"
	"go-micro.dev/v4/config/source/file"
)

// Load reads the TOML configuration at path, applies defaults and
// validates it.
func Load(path string) (*Config, error) {
	enc := toml.NewEncoder()

	cfg, err := microconfig.NewConfig(
		microconfig.WithReader(json.NewReader(reader.WithEncoder(enc))),
	)
	if err != nil {
		return nil, fmt.Errorf("init config reader: %w", err)
	}

	if err := cfg.Load(file.NewSource(
		file.WithPath(path),
		source.WithEncoder(enc),
	)); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	c := &Config{}
	c.LogLevel = cfg.Get("logLevel").String("INFO")
	c.LogFile = cfg.Get("logFile").String("")
	c.Fetcher.Timeout = cfg.Get("fetcher", "timeout").Int(3000)
	c.Fetcher.UserAgent = cfg.Get("fetcher", "userAgent").String(collect.DefaultUserAgent)
	c.Storage.Type = cfg.Get("storage", "type").String("csv")
	c.Storage.Path = cfg.Get("storage", "path").String(".")
	c.Storage.SQLURL = cfg.Get("storage", "sqlURL").String("")
	c.Storage.BatchCount = cfg.Get("storage", "batchCount").Int(50)

	if err := cfg.Get("Tasks").Scan(&c.Tasks); err != nil {
		return nil, errf("Tasks", "malformed task list: %v", err)
	}

	c.applyDefaults()

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Package config loads the contact-graph configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	// DataDir holds the catalog database and one database per dataset.
	DataDir string       `yaml:"data_dir"`
	Log     LogConfig    `yaml:"log"`
	Server  ServerConfig `yaml:"server"`
	Query   QueryConfig  `yaml:"query"`
	Neo4j   Neo4jConfig  `yaml:"neo4j"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format"`
}

// ServerConfig configures the MCP transport.
type ServerConfig struct {
	// Transport is "stdio" or "http".
	Transport string `yaml:"transport"`
	// Addr is the HTTP listen address (http transport only).
	Addr string `yaml:"addr"`
	// BearerToken, when set, is required on every HTTP request except /healthz.
	BearerToken string `yaml:"bearer_token"`
}

// QueryConfig tunes the query engine.
type QueryConfig struct {
	// MinOverlap is how long a sick and a healthy person must share a place
	// before the healthy person has to be informed.
	MinOverlap time.Duration `yaml:"min_overlap"`
}

// Neo4jConfig locates a Neo4j database to import from.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		DataDir: "./data",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Transport: "stdio",
			Addr:      ":8081",
		},
		Query: QueryConfig{
			MinOverlap: 2 * time.Hour,
		},
		Neo4j: Neo4jConfig{
			URI:      "neo4j://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := cfg.decode(f); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("server.transport must be stdio or http, got %q", c.Server.Transport)
	}
	if c.Server.Transport == "http" && c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required for the http transport")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.Query.MinOverlap <= 0 {
		return fmt.Errorf("query.min_overlap must be positive")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pingcap/tidb/parser/mysql"
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sql-lineage/lineage"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel       string        `yaml:"log_level"`
	Platform       string        `yaml:"platform"`
	SQLMode        string        `yaml:"sql_mode"`
	FullTableNames bool          `yaml:"full_table_names"`
	Profile        ProfileConfig `yaml:"profile"`
}

type ProfileConfig struct {
	Database string `yaml:"database"`
	Schema   string `yaml:"schema"`
}

func Default() *Config {
	return &Config{LogLevel: "info"}
}

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if _, err := lineage.PlatformByType(c.Platform); err != nil {
		return fmt.Errorf("invalid platform: %w", err)
	}
	if c.SQLMode != "" {
		if _, err := mysql.GetSQLMode(c.SQLMode); err != nil {
			return fmt.Errorf("invalid sql_mode: %w", err)
		}
	}
	return nil
}

// 按配置设置logrus日志级别
func (c *Config) ApplyLogLevel() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	log.SetLevel(level)
	return nil
}

package commands

import (
	"errors"
	"fmt"
	"os"
	"surveylogic/internal/db"
	"surveylogic/internal/report"
	"surveylogic/internal/scrapers/portal"
	"surveylogic/pkg/configutil"
	"time"
)

const (
	envPortalUsername = "PORTAL_USERNAME"
	envPortalPassword = "PORTAL_PASSWORD"
)

type PortalConfig struct {
	BaseUrl   string `json:"base_url"`
	LoginPath string `json:"login_path"`
	QueryPath string `json:"query_path"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	// EnvFile is a dotenv file holding PORTAL_USERNAME and PORTAL_PASSWORD,
	// it is only read when the credentials above are empty.
	EnvFile           string  `json:"env_file"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
	Workers           int     `json:"workers"`
	// DumpDir receives a file per HTTP exchange when set, it is cleared on
	// every fetch.
	DumpDir string `json:"dump_dir"`
}

func (c PortalConfig) Options() portal.Options {
	return portal.Options{
		BaseUrl:           c.BaseUrl,
		LoginPath:         c.LoginPath,
		QueryPath:         c.QueryPath,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		CloudflareBypass:  c.CloudflareBypass,
	}
}

// Credentials returns the configured credentials, falling back to the
// dotenv file.
func (c PortalConfig) Credentials() (portal.Credentials, error) {
	creds := portal.Credentials{
		Username: c.Username,
		Password: c.Password,
	}
	if (creds.Username == "" || creds.Password == "") && c.EnvFile != "" {
		values, err := configutil.ReadDotenv(c.EnvFile)
		if err != nil {
			return portal.Credentials{}, err
		}
		if creds.Username == "" {
			creds.Username = values[envPortalUsername]
		}
		if creds.Password == "" {
			creds.Password = values[envPortalPassword]
		}
	}
	if creds.Username == "" || creds.Password == "" {
		return portal.Credentials{}, fmt.Errorf("portal credentials are not configured")
	}
	return creds, nil
}

type ServerConfig struct {
	Port              int `json:"port"`
	MaxSessions       int `json:"max_sessions"`
	SessionTtlMinutes int `json:"session_ttl_minutes"`
}

type Config struct {
	Portal   PortalConfig      `json:"portal"`
	Database db.Config         `json:"database"`
	Mail     report.MailConfig `json:"mail"`
	Server   ServerConfig      `json:"server"`
}

func (c Config) withDefaults() Config {
	if c.Portal.Workers <= 0 {
		c.Portal.Workers = 4
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxSessions <= 0 {
		c.Server.MaxSessions = 2048
	}
	if c.Server.SessionTtlMinutes <= 0 {
		c.Server.SessionTtlMinutes = 120
	}
	return c
}

// loadConfig reads the config file, a missing file is only an error when
// `required` is set.
func loadConfig(path string, required bool) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return Config{}.withDefaults(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return config.withDefaults(), nil
}

package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	env "github.com/jhunt/go-envirotron"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSalt          = "MySuperSecretKey_OnlyIKnow"
	DefaultDirectoryName = "hashedAccounts.json"

	placeholderKey = "CHANGE_ME_IN_PRODUCTION"
)

type Config struct {
	AppName    string `json:"app_name" yaml:"app_name"`
	ListenIP   string `json:"listen_ip" yaml:"listen_ip"`
	ListenPort int    `json:"listen_port" yaml:"listen_port"`
	SessionKey string `json:"session_key" yaml:"session_key" env:"SITEGATE_SESSION_KEY"`

	// SiteDir is the root of the static site served behind the page guard.
	SiteDir string `json:"site_dir" yaml:"site_dir" env:"SITEGATE_SITE_DIR"`
	// DirectoryURL, when set, is the base URL the account directory is fetched
	// from. Otherwise the directory is read from SiteDir.
	DirectoryURL  string `json:"directory_url" yaml:"directory_url" env:"SITEGATE_DIRECTORY_URL"`
	DirectoryName string `json:"directory_name" yaml:"directory_name"`
	// FetchTimeoutSeconds bounds a single directory fetch. Zero disables it.
	FetchTimeoutSeconds int    `json:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds"`
	Salt                string `json:"salt" yaml:"salt" env:"SITEGATE_SALT"`

	LoginPage   string   `json:"login_page" yaml:"login_page"`
	HomePage    string   `json:"home_page" yaml:"home_page"`
	PublicPages []string `json:"public_pages" yaml:"public_pages"`

	LogLevel  string `json:"log_level" yaml:"log_level" env:"SITEGATE_LOG_LEVEL"`
	LogFormat string `json:"log_format" yaml:"log_format"`

	// SessionKeyGenerated reports that SessionKey was generated at load time,
	// so sessions will not survive a restart.
	SessionKeyGenerated bool `json:"-" yaml:"-"`
}

var AppConfig Config

// Defaults returns the configuration used when a field is left empty.
func Defaults() Config {
	return Config{
		AppName:             "sitegate",
		ListenIP:            "127.0.0.1",
		ListenPort:          8080,
		SiteDir:             "site",
		DirectoryName:       DefaultDirectoryName,
		FetchTimeoutSeconds: 10,
		Salt:                DefaultSalt,
		LoginPage:           "login.html",
		HomePage:            "index.html",
		PublicPages:         []string{"hashgen.html"},
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// LoadConfig fills AppConfig from defaults, the file at path (JSON, or YAML
// for .yml/.yaml), an optional .env next to the working directory, and
// SITEGATE_* environment variables, in that order.
func LoadConfig(path string) error {
	cfg := Defaults()

	if err := decodeFile(path, &cfg); err != nil {
		return err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	env.Override(&cfg)

	cfg.applyDefaults()

	// If no key is provided or it's the placeholder, generate a secure random one
	if cfg.SessionKey == "" || cfg.SessionKey == placeholderKey {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err != nil {
			return err
		}
		cfg.SessionKey = hex.EncodeToString(randomKey)
		cfg.SessionKeyGenerated = true
	}

	AppConfig = cfg
	return nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return yaml.NewDecoder(file).Decode(cfg)
	default:
		return json.NewDecoder(file).Decode(cfg)
	}
}

// applyDefaults restores defaults for fields a file explicitly emptied.
func (c *Config) applyDefaults() {
	d := Defaults()
	if c.AppName == "" {
		c.AppName = d.AppName
	}
	if c.ListenPort == 0 {
		c.ListenPort = d.ListenPort
	}
	if c.SiteDir == "" {
		c.SiteDir = d.SiteDir
	}
	if c.DirectoryName == "" {
		c.DirectoryName = d.DirectoryName
	}
	if c.Salt == "" {
		c.Salt = d.Salt
	}
	if c.LoginPage == "" {
		c.LoginPage = d.LoginPage
	}
	if c.HomePage == "" {
		c.HomePage = d.HomePage
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "sketchpad.cfg.json"

// API holds the sketch store and asset catalog connection settings.
type API struct {
	BaseURL string        `json:"baseUrl" mapstructure:"baseUrl"`
	Token   string        `json:"token" mapstructure:"token"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DB holds Postgres connection settings for the draft store.
type DB struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// Drafts selects the local draft store backend. Driver is "sqlite" or
// "postgres"; Path is the SQLite file (empty for in-memory).
type Drafts struct {
	Driver string
	Path   string
	DB     DB
}

// Editor holds the editor window and timing settings.
type Editor struct {
	Width            int
	Height           int
	AutosaveInterval time.Duration
	DraftDebounce    time.Duration
	ProbeInterval    time.Duration
	HistoryCapacity  int
	GridSize         int
	AssetCacheTTL    time.Duration
	Quality          string
	ExportDir        string
	ScreenshotDir    string
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "")

	viper.SetDefault("api.baseUrl", "http://localhost:8000/api")
	viper.SetDefault("api.token", "")
	viper.SetDefault("api.timeout", 30*time.Second)

	viper.SetDefault("drafts.driver", "sqlite")
	viper.SetDefault("drafts.path", "./sketchpad-drafts.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "sketchpad")

	viper.SetDefault("editor.autosaveInterval", 30*time.Second)
	viper.SetDefault("editor.draftDebounce", 2*time.Second)
	viper.SetDefault("editor.probeInterval", 15*time.Second)
	viper.SetDefault("editor.historyCapacity", 50)
	viper.SetDefault("editor.gridSize", 20)

	viper.SetDefault("assets.cacheTtl", 5*time.Minute)

	viper.SetDefault("export.dir", "./exports")
	viper.SetDefault("export.quality", "high")
	viper.SetDefault("screenshot.dir", "./screenshots")

	viper.SetDefault("window.width", 1024)
	viper.SetDefault("window.height", 800)
}

// Load sets default values and reads the JSON config file from configDir.
// A missing file is not an error; defaults and flags apply.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// flagBindings maps command-line flags to config keys.
var flagBindings = []struct {
	flag, key string
}{
	{"log-level", "logLevel"},
	{"logs-dir", "logsDir"},
	{"api-url", "api.baseUrl"},
	{"api-token", "api.token"},
	{"drafts-driver", "drafts.driver"},
	{"drafts-path", "drafts.path"},
	{"export-dir", "export.dir"},
	{"width", "window.width"},
	{"height", "window.height"},
}

// RegisterFlags defines the config flags on fs and binds them to their keys.
// A flag set on the command line overrides the config file.
func RegisterFlags(fs *pflag.FlagSet) error {
	fs.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	fs.String("logs-dir", "", "directory for session log files, empty to log to stdout only")
	fs.String("api-url", "http://localhost:8000/api", "sketch store and asset catalog base URL")
	fs.String("api-token", "", "bearer token for the API")
	fs.String("drafts-driver", "sqlite", "draft store driver (sqlite or postgres)")
	fs.String("drafts-path", "./sketchpad-drafts.db", "SQLite draft file, empty for in-memory")
	fs.String("export-dir", "./exports", "directory for PNG exports and metadata")
	fs.Int("width", 1024, "window width")
	fs.Int("height", 800, "window height")

	for _, b := range flagBindings {
		if err := viper.BindPFlag(b.key, fs.Lookup(b.flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", b.flag, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value. Strings such as "30s" are
// parsed.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetAPI returns the API settings.
func GetAPI() API {
	return API{
		BaseURL: viper.GetString("api.baseUrl"),
		Token:   viper.GetString("api.token"),
		Timeout: viper.GetDuration("api.timeout"),
	}
}

// GetDrafts returns the draft store settings.
func GetDrafts() Drafts {
	return Drafts{
		Driver: viper.GetString("drafts.driver"),
		Path:   viper.GetString("drafts.path"),
		DB: DB{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetEditor returns the editor settings.
func GetEditor() Editor {
	return Editor{
		Width:            viper.GetInt("window.width"),
		Height:           viper.GetInt("window.height"),
		AutosaveInterval: viper.GetDuration("editor.autosaveInterval"),
		DraftDebounce:    viper.GetDuration("editor.draftDebounce"),
		ProbeInterval:    viper.GetDuration("editor.probeInterval"),
		HistoryCapacity:  viper.GetInt("editor.historyCapacity"),
		GridSize:         viper.GetInt("editor.gridSize"),
		AssetCacheTTL:    viper.GetDuration("assets.cacheTtl"),
		Quality:          viper.GetString("export.quality"),
		ExportDir:        viper.GetString("export.dir"),
		ScreenshotDir:    viper.GetString("screenshot.dir"),
	}
}

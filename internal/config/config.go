// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and
// an optional .env file.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// ServerURL is the base URL of the PadiPay API.
	ServerURL string `json:"server_url"`

	// DataDir is the directory holding the local session database and key.
	DataDir string `json:"data_dir"`

	// LogLevel sets the zap log level (debug, info, warn, error).
	LogLevel string `json:"log_level"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.ServerURL, "url", "https://api.padipay.app", "base URL of the PadiPay API")
	flag.StringVar(&options.DataDir, "data", ".padipay", "directory for local session data")
	flag.StringVar(&options.LogLevel, "log", "info", "log level: debug, info, warn, error")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags, the optional .env file, and
// environment variables to set configuration values. It returns a pointer
// to the Options struct containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// A missing .env file is not an error.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	// Environment variables take precedence over flags and file values.
	if serverURL := os.Getenv("PADIPAY_SERVER_URL"); serverURL != "" {
		options.ServerURL = serverURL
	}
	if dataDir := os.Getenv("PADIPAY_DATA_DIR"); dataDir != "" {
		options.DataDir = dataDir
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		options.LogLevel = logLevel
	}

	return options
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultNoteStoreURL    = "http://localhost:41184"
	DefaultRequestTimeout  = 30 * time.Second
	DefaultProgressTimeout = 5 * time.Second
)

type (
	Config struct {
		NoteStore
		Import
		Journal
		Logging
	}

	NoteStore struct {
		URL            string
		Token          string
		RequestTimeout time.Duration
	}
	Import struct {
		ArchivePath     string
		InsertionPoint  string        // title of the existing folder everything is nested under
		ProgressTimeout time.Duration // how long a progress callback may block
	}
	Journal struct {
		Path string // empty disables the journal
	}
	Logging struct {
		Level  string
		Format string
	}
)

// firstString returns the first non-empty value among keys, so the keys of the
// legacy Config.json ("token", "insertion-point", "archive") are honoured after
// the current environment variable names.
func firstString(v *viper.Viper, keys ...string) string {
	for _, key := range keys {
		if s := v.GetString(key); s != "" {
			return s
		}
	}
	return ""
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("request_timeout", DefaultRequestTimeout.String())
	v.SetDefault("progress_timeout", DefaultProgressTimeout.String())
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	return v
}

// NewConfig reads the configuration from the environment.
func NewConfig() *Config {
	return fromViper(newViper())
}

// Load reads the environment and, when path is not empty, a JSON configuration
// file. Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	url := firstString(v, "NOTESTORE_URL")
	if url == "" {
		url = DefaultNoteStoreURL
	}
	return &Config{
		NoteStore: NoteStore{
			URL:            url,
			Token:          firstString(v, "NOTESTORE_TOKEN", "token"),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		},
		Import: Import{
			ArchivePath:     firstString(v, "ARCHIVE_PATH", "archive"),
			InsertionPoint:  firstString(v, "INSERTION_POINT", "insertion-point"),
			ProgressTimeout: v.GetDuration("PROGRESS_TIMEOUT"),
		},
		Journal: Journal{
			Path: v.GetString("JOURNAL_PATH"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

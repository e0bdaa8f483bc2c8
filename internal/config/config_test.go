package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"NOTESTORE_URL", "NOTESTORE_TOKEN", "INSERTION_POINT", "ARCHIVE_PATH",
	"JOURNAL_PATH", "LOG_LEVEL", "LOG_FORMAT", "REQUEST_TIMEOUT", "PROGRESS_TIMEOUT",
}

func clearEnv(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestNewConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := NewConfig()

	assert.Equal(t, DefaultNoteStoreURL, cfg.NoteStore.URL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.ProgressTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Empty(t, cfg.Journal.Path)
}

func TestNewConfig_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTESTORE_URL", "http://127.0.0.1:9999")
	t.Setenv("NOTESTORE_TOKEN", "abc")
	t.Setenv("INSERTION_POINT", "Imports")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("JOURNAL_PATH", "/tmp/journal.db")

	cfg := NewConfig()

	assert.Equal(t, "http://127.0.0.1:9999", cfg.NoteStore.URL)
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, "Imports", cfg.InsertionPoint)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
}

func TestLoad_LegacyConfigFile(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, "Config.json", `{"joplin":"C:/Joplin/Joplin.exe","token":"legacy","insertion-point":"QNAP","archive":"/data/export.ns3"}`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "legacy", cfg.Token)
	assert.Equal(t, "QNAP", cfg.InsertionPoint)
	assert.Equal(t, "/data/export.ns3", cfg.ArchivePath)
	assert.Equal(t, DefaultNoteStoreURL, cfg.NoteStore.URL)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTESTORE_TOKEN", "from-env")
	p := writeFile(t, "config.json", `{"token":"from-file","log_level":"debug"}`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestValidateForImport(t *testing.T) {
	archive := writeFile(t, "export.ns3", "zip")

	valid := func() *Config {
		return &Config{
			NoteStore: NoteStore{URL: DefaultNoteStoreURL, Token: "t", RequestTimeout: time.Second},
			Import:    Import{ArchivePath: archive, InsertionPoint: "Imports", ProgressTimeout: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Token = "" }, wantKey: "token"},
		{name: "bad url", mutate: func(c *Config) { c.NoteStore.URL = "localhost:41184" }, wantKey: "url"},
		{name: "missing insertion point", mutate: func(c *Config) { c.InsertionPoint = "" }, wantKey: "insertion-point"},
		{name: "archive does not exist", mutate: func(c *Config) { c.ArchivePath = archive + ".missing" }, wantKey: "archive"},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, wantKey: "request_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.ValidateForImport()
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}
			var errs validation.Errors
			require.ErrorAs(t, err, &errs)
			assert.Contains(t, errs, tt.wantKey)
			assert.Len(t, errs, 1)
		})
	}
}

func TestValidateForArchive_OnlyNeedsArchive(t *testing.T) {
	cfg := &Config{Import: Import{ArchivePath: writeFile(t, "a.ns3", "x")}}
	assert.NoError(t, cfg.ValidateForArchive())

	cfg.ArchivePath = ""
	assert.Error(t, cfg.ValidateForArchive())
}

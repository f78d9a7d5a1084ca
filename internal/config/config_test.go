package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anstrom/scanparser/internal/errors"
	"github.com/anstrom/scanparser/internal/logging"
	"github.com/anstrom/scanparser/internal/store"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
	}{
		{
			name: "valid yaml config",
			file: "config.yaml",
			content: `
logging:
  level: debug
  format: json
store:
  extension: .db
render:
  formats: [html, table]
  output_dir: out
`,
		},
		{
			name: "valid json config",
			file: "config.json",
			content: `{
				"logging": {"level": "warn"},
				"render": {"formats": ["table"]}
			}`,
		},
		{
			name:    "invalid yaml syntax",
			file:    "config.yaml",
			content: "logging: [unclosed",
			wantErr: true,
		},
		{
			name:    "invalid log level",
			file:    "config.yaml",
			content: "logging:\n  level: loud\n",
			wantErr: true,
		},
		{
			name:    "postgres without dsn",
			file:    "config.yaml",
			content: "store:\n  driver: postgres\n",
			wantErr: true,
		},
		{
			name:    "unknown render format",
			file:    "config.yaml",
			content: "render:\n  formats: [pdf]\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.content)
			cfg, err := Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg == nil {
				t.Fatal("Load() returned nil config")
			}
		})
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
store:
  extension: .db
render:
  formats: [table]
metrics:
  textfile: /tmp/scanparser.prom
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default format to survive, got %s", cfg.Logging.Format)
	}
	if cfg.Store.Driver != store.DriverSQLite || cfg.Store.Extension != ".db" {
		t.Errorf("unexpected store config %+v", cfg.Store)
	}
	if cfg.HasFormat(FormatHTML) || !cfg.HasFormat(FormatTable) {
		t.Errorf("expected only the table format, got %v", cfg.Render.Formats)
	}
	if cfg.Metrics.Textfile != "/tmp/scanparser.prom" {
		t.Errorf("unexpected textfile %q", cfg.Metrics.Textfile)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Extension != store.DefaultExtension {
		t.Errorf("expected default extension, got %s", cfg.Store.Extension)
	}
	if !cfg.HasFormat(FormatHTML) {
		t.Error("expected html charts by default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{name: "defaults", modify: func(*Config) {}},
		{
			name:      "bad format",
			modify:    func(c *Config) { c.Logging.Format = "xml" },
			wantField: "logging.format",
		},
		{
			name:      "empty output",
			modify:    func(c *Config) { c.Logging.Output = "" },
			wantField: "logging.output",
		},
		{
			name:      "missing services file",
			modify:    func(c *Config) { c.Services.File = "/nonexistent/nmap-services" },
			wantField: "services.file",
		},
		{
			name:      "unknown driver",
			modify:    func(c *Config) { c.Store.Driver = "mysql" },
			wantField: "store.driver",
		},
		{
			name:      "extension without dot",
			modify:    func(c *Config) { c.Render.Extension = "html" },
			wantField: "render.extension",
		},
		{
			name: "postgres with dsn",
			modify: func(c *Config) {
				c.Store.Driver = store.DriverPostgres
				c.Store.DSN = "postgres://localhost/scans"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.IsCode(err, errors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var cfgErr *errors.ConfigError
			if !asConfigError(err, &cfgErr) || cfgErr.Field != tt.wantField {
				t.Errorf("expected field %s, got %v", tt.wantField, err)
			}
		})
	}
}

func asConfigError(err error, target **errors.ConfigError) bool {
	e, ok := err.(*errors.ConfigError)
	if ok {
		*target = e
	}
	return ok
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Logging.Level = "error"
	cfg.Render.OutputDir = "charts"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Logging.Level != "error" || loaded.Render.OutputDir != "charts" {
		t.Errorf("saved values not restored: %+v", loaded)
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "debug"

	lc := cfg.LoggerConfig()
	if lc.Level != logging.LevelDebug {
		t.Errorf("expected debug level, got %s", lc.Level)
	}
	if lc.Output != "stderr" {
		t.Errorf("expected stderr output, got %s", lc.Output)
	}
}

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := defaultConfig()

	if config.Bind != "0.0.0.0:3001" {
		t.Errorf("Expected Bind to be '0.0.0.0:3001', got '%s'", config.Bind)
	}
	if config.DatabasePath != "./kb.db" {
		t.Errorf("Expected DatabasePath to be './kb.db', got '%s'", config.DatabasePath)
	}
	if config.UploadsDir != "./uploads" {
		t.Errorf("Expected UploadsDir to be './uploads', got '%s'", config.UploadsDir)
	}
	if config.MaxUploadSize != 10<<20 {
		t.Errorf("Expected MaxUploadSize to be 10 MB, got %d", config.MaxUploadSize)
	}
	if config.MaxDocumentSize != 20<<20 {
		t.Errorf("Expected MaxDocumentSize to be 20 MB, got %d", config.MaxDocumentSize)
	}
	if config.AnonSearchLimit != 3 {
		t.Errorf("Expected AnonSearchLimit to be 3, got %d", config.AnonSearchLimit)
	}
	if config.Debug {
		t.Error("Expected Debug to be false")
	}
	if config.Production {
		t.Error("Expected Production to be false")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, c Config)
	}{
		{
			name: "All environment variables set",
			envVars: map[string]string{
				"KB_BIND":           "127.0.0.1:8080",
				"KB_DATABASE_PATH":  "/tmp/test.db",
				"KB_UPLOADS_DIR":    "/tmp/uploads",
				"KB_DEBUG":          "true",
				"KB_PRODUCTION":     "1",
				"KB_SESSION_SECRET": "s3cret",
				"KB_ADMIN_EMAILS":   "a@example.com, b@example.com",
			},
			check: func(t *testing.T, c Config) {
				if c.Bind != "127.0.0.1:8080" {
					t.Errorf("Bind = %s", c.Bind)
				}
				if c.DatabasePath != "/tmp/test.db" {
					t.Errorf("DatabasePath = %s", c.DatabasePath)
				}
				if c.UploadsDir != "/tmp/uploads" {
					t.Errorf("UploadsDir = %s", c.UploadsDir)
				}
				if !c.Debug || !c.Production {
					t.Errorf("Debug = %v, Production = %v", c.Debug, c.Production)
				}
				if c.SessionSecret != "s3cret" {
					t.Errorf("SessionSecret = %s", c.SessionSecret)
				}
				if len(c.AdminEmails) != 2 || c.AdminEmails[0] != "a@example.com" || c.AdminEmails[1] != "b@example.com" {
					t.Errorf("AdminEmails = %v", c.AdminEmails)
				}
			},
		},
		{
			name: "Partial environment variables - only bind",
			envVars: map[string]string{
				"KB_BIND": "0.0.0.0:9000",
			},
			check: func(t *testing.T, c Config) {
				if c.Bind != "0.0.0.0:9000" {
					t.Errorf("Bind = %s", c.Bind)
				}
				if c.DatabasePath != "./kb.db" {
					t.Errorf("DatabasePath = %s", c.DatabasePath)
				}
			},
		},
		{
			name: "Debug not truthy",
			envVars: map[string]string{
				"KB_DEBUG": "yes",
			},
			check: func(t *testing.T, c Config) {
				if c.Debug {
					t.Error("Expected Debug to stay false")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			defer func() {
				for k := range tt.envVars {
					os.Unsetenv(k)
				}
			}()

			config := defaultConfig()
			applyEnvOverrides(&config)
			tt.check(t, config)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	content := `
bind = "10.0.0.1:4000"
debug = true
database_path = "/data/kb.db"
uploads_dir = "/data/uploads"
session_secret = "from-file"
admin_emails = ["admin@example.com"]
max_upload_size = 1048576
scan_fail_closed = true
`
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config := loadConfig(path)

	if config.Bind != "10.0.0.1:4000" {
		t.Errorf("Bind = %s", config.Bind)
	}
	if !config.Debug {
		t.Error("Expected Debug to be true")
	}
	if config.SessionSecret != "from-file" {
		t.Errorf("SessionSecret = %s", config.SessionSecret)
	}
	if config.MaxUploadSize != 1<<20 {
		t.Errorf("MaxUploadSize = %d", config.MaxUploadSize)
	}
	if !config.ScanFailClosed {
		t.Error("Expected ScanFailClosed to be true")
	}
	// Values the file doesn't set keep their defaults
	if config.MaxDocumentSize != 20<<20 {
		t.Errorf("MaxDocumentSize = %d", config.MaxDocumentSize)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns default when env not set",
			key:          "TEST_KEY_1",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
		{
			name:         "returns env value when set",
			key:          "TEST_KEY_2",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := GetEnvOrDefault(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("GetEnvOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJWTSecretManagement(t *testing.T) {
	originalSecret := GetJWTSecret()
	newSecret := []byte("test-secret")

	t.Run("set and restore JWT secret", func(t *testing.T) {
		restore := SetJWTSecret(newSecret)

		if string(GetJWTSecret()) != string(newSecret) {
			t.Errorf("JWT secret not updated, got %s, want %s",
				string(GetJWTSecret()), string(newSecret))
		}

		restore()

		if string(GetJWTSecret()) != string(originalSecret) {
			t.Errorf("JWT secret not restored, got %s, want %s",
				string(GetJWTSecret()), string(originalSecret))
		}
	})

	t.Run("concurrent access to JWT secret", func(t *testing.T) {
		done := make(chan bool)
		for i := 0; i < 10; i++ {
			go func() {
				GetJWTSecret()
				done <- true
			}()
		}

		for i := 0; i < 10; i++ {
			<-done
		}
	})
}

func TestGetUploadAllowedExtensions(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     []string
	}{
		{
			name:     "defaults cover resume formats",
			envValue: "",
			want:     []string{".pdf", ".txt", ".doc", ".docx"},
		},
		{
			name:     "normalises case and missing dots",
			envValue: "PDF, .Txt ,md",
			want:     []string{".pdf", ".txt", ".md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("UPLOAD_ALLOWED_EXTENSIONS", tt.envValue)
				defer os.Unsetenv("UPLOAD_ALLOWED_EXTENSIONS")
			}

			got := GetUploadAllowedExtensions()
			if len(got) != len(tt.want) {
				t.Fatalf("GetUploadAllowedExtensions() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("extension[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadToolsConfig(t *testing.T) {
	t.Run("merges file entries over defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tools.json")
		body := `{"tools":[
			{"name":"match_jobs","label":"Hunting for roles","running_label":"Hunting"},
			{"name":"translate_posting","label":"Translating posting","running_label":"Translating"}
		]}`
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadToolsConfig(path)
		if err != nil {
			t.Fatalf("LoadToolsConfig() error = %v", err)
		}

		if got := cfg.Lookup("match_jobs").Label; got != "Hunting for roles" {
			t.Errorf("overridden label = %q, want %q", got, "Hunting for roles")
		}
		if got := cfg.Lookup("analyze_resume").Label; got != "Reading your resume" {
			t.Errorf("default label = %q, want %q", got, "Reading your resume")
		}
		if got := cfg.Lookup("translate_posting").RunningLabel; got != "Translating" {
			t.Errorf("added tool running label = %q, want %q", got, "Translating")
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := LoadToolsConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
			t.Error("expected error for missing tools config")
		}
	})

	t.Run("unknown tool gets fallback label", func(t *testing.T) {
		def := DefaultToolsConfig().Lookup("mystery_tool")
		if def.Label == "" || def.Name != "mystery_tool" {
			t.Errorf("fallback definition = %+v", def)
		}
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("missing file is optional", func(t *testing.T) {
		fc, err := LoadFile(filepath.Join(t.TempDir(), "console.yaml"))
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if fc != nil {
			t.Errorf("expected nil config for missing file, got %+v", fc)
		}
	})

	t.Run("environment wins over file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "console.yaml")
		body := "server:\n  port: \"9999\"\nbackend:\n  url: http://file-backend:8000\n"
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}

		os.Setenv("PORT", "7777")
		defer os.Unsetenv("PORT")
		defer os.Unsetenv("BACKEND_URL")

		fc, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		fc.Apply()

		if got := GetPort(); got != "7777" {
			t.Errorf("GetPort() = %q, want env value %q", got, "7777")
		}
		if got := GetBackendURL(); got != "http://file-backend:8000" {
			t.Errorf("GetBackendURL() = %q, want file value %q", got, "http://file-backend:8000")
		}
	})
}

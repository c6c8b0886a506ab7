package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.ScanInterval != DefaultScanInterval {
		t.Errorf("ScanInterval = %d, want %d", cfg.ScanInterval, DefaultScanInterval)
	}
	if cfg.DarkHoursStart != DefaultDarkHoursStart {
		t.Errorf("DarkHoursStart = %d, want %d", cfg.DarkHoursStart, DefaultDarkHoursStart)
	}
	if cfg.DarkHoursEnd != DefaultDarkHoursEnd {
		t.Errorf("DarkHoursEnd = %d, want %d", cfg.DarkHoursEnd, DefaultDarkHoursEnd)
	}
	if cfg.Experimental {
		t.Error("Experimental should default to false")
	}
}

func TestLoadConfig_ClampsOptions(t *testing.T) {
	tests := []struct {
		name         string
		yaml         string
		wantInterval int
		wantStart    int
		wantEnd      int
	}{
		{
			name:         "interval below minimum is clamped up",
			yaml:         "scan-interval: 10\n",
			wantInterval: MinScanInterval,
			wantStart:    DefaultDarkHoursStart,
			wantEnd:      DefaultDarkHoursEnd,
		},
		{
			name:         "interval above maximum is clamped down",
			yaml:         "scan-interval: 99999\n",
			wantInterval: MaxScanInterval,
			wantStart:    DefaultDarkHoursStart,
			wantEnd:      DefaultDarkHoursEnd,
		},
		{
			name:         "dark hours outside 0-23 are clamped",
			yaml:         "scan-interval: 120\ndark-hours-start: -3\ndark-hours-end: 42\n",
			wantInterval: 120,
			wantStart:    0,
			wantEnd:      23,
		},
		{
			name:         "in-range values are kept",
			yaml:         "scan-interval: 240\ndark-hours-start: 22\ndark-hours-end: 6\n",
			wantInterval: 240,
			wantStart:    22,
			wantEnd:      6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}

			if cfg.ScanInterval != tt.wantInterval {
				t.Errorf("ScanInterval = %d, want %d", cfg.ScanInterval, tt.wantInterval)
			}
			if cfg.DarkHoursStart != tt.wantStart {
				t.Errorf("DarkHoursStart = %d, want %d", cfg.DarkHoursStart, tt.wantStart)
			}
			if cfg.DarkHoursEnd != tt.wantEnd {
				t.Errorf("DarkHoursEnd = %d, want %d", cfg.DarkHoursEnd, tt.wantEnd)
			}
		})
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scan-interval: [not a number\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() expected error for invalid YAML")
	}
}

func TestResolveAuthDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	dir, err := ResolveAuthDir("~/.lynkcloud")
	if err != nil {
		t.Fatalf("ResolveAuthDir() error = %v", err)
	}
	if dir != filepath.Join(home, ".lynkcloud") {
		t.Errorf("ResolveAuthDir() = %q, want %q", dir, filepath.Join(home, ".lynkcloud"))
	}

	dir, err = ResolveAuthDir("")
	if err != nil {
		t.Fatalf("ResolveAuthDir(\"\") error = %v", err)
	}
	if dir != filepath.Join(home, ".lynkcloud") {
		t.Errorf("ResolveAuthDir(\"\") = %q, want default under home", dir)
	}
}

package config

import (
	"strings"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	c := New()
	if c.Output.ConsoleFormat != "text" {
		t.Errorf("ConsoleFormat = %q, want text", c.Output.ConsoleFormat)
	}
	if c.Runtime.Workers != 4 {
		t.Errorf("Workers = %d, want 4", c.Runtime.Workers)
	}
	if c.Runtime.Pause != time.Second {
		t.Errorf("Pause = %s, want 1s", c.Runtime.Pause)
	}
	if c.Runtime.Timeout != 2*time.Hour {
		t.Errorf("Timeout = %s, want 2h", c.Runtime.Timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid"},
		{
			name:   "explicit date",
			mutate: func(c *Config) { c.Run.Date = "20250718" },
		},
		{
			name:    "bad date",
			mutate:  func(c *Config) { c.Run.Date = "2025-07-18" },
			wantErr: "invalid --date",
		},
		{
			name:    "short date",
			mutate:  func(c *Config) { c.Run.Date = "202507" },
			wantErr: "invalid --date",
		},
		{
			name:   "console format is case-insensitive",
			mutate: func(c *Config) { c.Output.ConsoleFormat = " NDJSON " },
		},
		{
			name:    "bad console format",
			mutate:  func(c *Config) { c.Output.ConsoleFormat = "yaml" },
			wantErr: "unsupported --console-format",
		},
		{
			name:   "out format checked only with --out",
			mutate: func(c *Config) { c.Output.OutFormat = "yaml" },
		},
		{
			name: "bad out format",
			mutate: func(c *Config) {
				c.Output.Out = "run.out"
				c.Output.OutFormat = "yaml"
			},
			wantErr: "unsupported --out-format",
		},
		{
			name:    "negative limit",
			mutate:  func(c *Config) { c.Run.Limit = -1 },
			wantErr: "--limit",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Runtime.Workers = 0 },
			wantErr: "--workers",
		},
		{
			name:    "negative pause",
			mutate:  func(c *Config) { c.Runtime.Pause = -time.Second },
			wantErr: "--pause",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Runtime.Timeout = 0 },
			wantErr: "--timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			if tt.mutate != nil {
				tt.mutate(c)
			}
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_DateDefaultsToToday(t *testing.T) {
	c := New()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.Run.Date != time.Now().Format("20060102") {
		t.Errorf("Date = %q, want today", c.Run.Date)
	}
}

func TestValidate_NormalizesEnums(t *testing.T) {
	c := New()
	c.Output.ConsoleFormat = "  JSON "
	c.Output.Out = "run.ndjson"
	c.Output.OutFormat = "NDJSON"
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.Output.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want json", c.Output.ConsoleFormat)
	}
	if c.Output.OutFormat != "ndjson" {
		t.Errorf("OutFormat = %q, want ndjson", c.Output.OutFormat)
	}
}

func TestValidate_ProviderEnvOverlay(t *testing.T) {
	t.Setenv("FACTORPIPE_PROVIDER_TOKEN", "env-token")
	t.Setenv("FACTORPIPE_PROVIDER_BASE_URL", "https://env.example.com")

	c := New()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.Provider.Token != "env-token" {
		t.Errorf("Token = %q, want env value", c.Provider.Token)
	}
	if c.Provider.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q, want env value", c.Provider.BaseURL)
	}

	// Flags win over the environment.
	c = New()
	c.Provider.Token = "flag-token"
	c.Provider.BaseURL = "https://flag.example.com"
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.Provider.Token != "flag-token" || c.Provider.BaseURL != "https://flag.example.com" {
		t.Errorf("flag values overridden: %+v", c.Provider)
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.BaseURL != "https://huly.app" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.CallTimeout != 30*time.Second || cfg.LookupTimeout != 10*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.CallTimeout, cfg.LookupTimeout)
	}
	if cfg.AccountsURL() != "https://huly.app/_accounts" {
		t.Errorf("AccountsURL = %q", cfg.AccountsURL())
	}
	if cfg.FallbackPersonID == "" {
		t.Error("FallbackPersonID must have a default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HULY_URL", "https://huly.example.com/")
	t.Setenv("HULY_EMAIL", "dev@example.com")
	t.Setenv("HULY_CALL_TIMEOUT_SECONDS", "5")
	t.Setenv("HULY_LOOKUP_TIMEOUT_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.BaseURL != "https://huly.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.Email != "dev@example.com" {
		t.Errorf("Email = %q", cfg.Email)
	}
	if cfg.CallTimeout != 5*time.Second {
		t.Errorf("CallTimeout = %v", cfg.CallTimeout)
	}
	if cfg.LookupTimeout != 10*time.Second {
		t.Errorf("LookupTimeout = %v, want fallback on junk input", cfg.LookupTimeout)
	}
}

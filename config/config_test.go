package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SERVER_HOST", "SERVER_PORT", "DATA_DIR", "AUTH_USERNAME", "AUTH_PASSWORD", "AUTH_PASSWORD_HASH", "HTTP_TIMEOUT_SECS"} {
		t.Setenv(k, "")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != "8080" || cfg.DataDir != "./data" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.AuthEnabled() {
		t.Error("expected auth disabled by default")
	}
}

func TestLoadRejectsAuthUsernameWithoutPassword(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_USERNAME", "admin")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when AUTH_USERNAME set without a password field")
	}
}

func TestLoadRejectsBothPasswordFields(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_USERNAME", "admin")
	t.Setenv("AUTH_PASSWORD", "x")
	t.Setenv("AUTH_PASSWORD_HASH", "y")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when both AUTH_PASSWORD and AUTH_PASSWORD_HASH are set")
	}
}

func TestLoadRejectsInvalidTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_TIMEOUT_SECS", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric HTTP_TIMEOUT_SECS")
	}
}

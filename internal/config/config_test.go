package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Auth.Strategy != StrategyDatabase {
		t.Errorf("Strategy: got %q, want %q", cfg.Auth.Strategy, StrategyDatabase)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"SessionTTL", cfg.Auth.SessionTTL, 24 * time.Hour},
		{"AccessTokenExpiry", cfg.Auth.AccessTokenExpiry, 24 * time.Hour},
		{"RefreshTokenExpiry", cfg.Auth.RefreshTokenExpiry, 7 * 24 * time.Hour},
		{"VerifyTokenTTL", cfg.Auth.VerifyTokenTTL, 24 * time.Hour},
		{"ResetTokenTTL", cfg.Auth.ResetTokenTTL, 30 * time.Minute},
		{"EmailChangeTokenTTL", cfg.Auth.EmailChangeTokenTTL, 1 * time.Hour},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}
}

func TestLoad_RequiresDBPassword(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() without DB_PASSWORD = nil, want error")
	}
}

func TestLoad_DatabaseStrategyNeedsNoJWTSecret(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("AUTH_STRATEGY", "database")
	defer os.Clearenv()

	if _, err := Load(); err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
}

func TestLoad_StatelessStrategyRequiresJWTSecret(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("AUTH_STRATEGY", "stateless")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() stateless without JWT_SECRET = nil, want error")
	}

	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if cfg.Auth.Strategy != StrategyStateless {
		t.Errorf("Strategy: got %q, want %q", cfg.Auth.Strategy, StrategyStateless)
	}
}

func TestLoad_RejectsUnknownStrategy(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("AUTH_STRATEGY", "hybrid")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() with unknown AUTH_STRATEGY = nil, want error")
	}
}

func TestLoad_CustomTokenTTLs(t *testing.T) {
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("VERIFY_TOKEN_TTL", "48h")
	os.Setenv("RESET_TOKEN_TTL", "15m")
	os.Setenv("EMAIL_CHANGE_TOKEN_TTL", "2h")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Auth.VerifyTokenTTL != 48*time.Hour {
		t.Errorf("VerifyTokenTTL: got %v, want 48h", cfg.Auth.VerifyTokenTTL)
	}
	if cfg.Auth.ResetTokenTTL != 15*time.Minute {
		t.Errorf("ResetTokenTTL: got %v, want 15m", cfg.Auth.ResetTokenTTL)
	}
	if cfg.Auth.EmailChangeTokenTTL != 2*time.Hour {
		t.Errorf("EmailChangeTokenTTL: got %v, want 2h", cfg.Auth.EmailChangeTokenTTL)
	}
}

func TestValidateJWTSecret(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		env        string
		shouldFail bool
	}{
		{"long secret in production", "this-is-a-very-long-secret-key-32ch", "production", false},
		{"short secret in production", "short-secret-16c", "production", true},
		{"short secret in development", "short-secret-16c", "development", false},
		{"weak value", "changeme", "development", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateJWTSecret(tt.secret, tt.env)
			if tt.shouldFail && err == nil {
				t.Error("validateJWTSecret() = nil, want error")
			}
			if !tt.shouldFail && err != nil {
				t.Errorf("validateJWTSecret() = %v, want nil", err)
			}
		})
	}
}

package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/notekeep/internal/storage"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if cfg.Storage.Driver != storage.DriverFS {
		t.Errorf("driver = %q, want fs", cfg.Storage.Driver)
	}
}

func TestStorageConfig_UnknownDriver(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Driver = "etcd"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail validation")
	}
}

func TestStorageConfig_OnlySelectedDriverChecked(t *testing.T) {
	cfg := StorageConfig{Driver: storage.DriverMemory}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("memory driver needs no settings: %v", err)
	}

	cfg = StorageConfig{Driver: storage.DriverSQLite}
	if err := cfg.Validate(); err == nil {
		t.Error("sqlite driver without path should fail")
	}

	cfg = StorageConfig{Driver: storage.DriverRedis, Redis: RedisConfig{Addr: "no-port"}}
	if err := cfg.Validate(); err == nil {
		t.Error("redis addr without port should fail")
	}
}

func TestStorageConfig_Options(t *testing.T) {
	cfg := NewDefaultConfig().Storage
	cfg.Driver = storage.DriverRedis
	cfg.Redis.DB = 3

	opts := cfg.Options()
	if opts.Driver != storage.DriverRedis || opts.Redis.Addr != "localhost:6379" || opts.Redis.DB != 3 {
		t.Errorf("options = %+v", opts)
	}
	if opts.Dir != "./data" {
		t.Errorf("dir = %q", opts.Dir)
	}
}

func TestEventsConfig_NegativeThrottle(t *testing.T) {
	cfg := EventsConfig{RefreshThrottle: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative throttle should fail")
	}
}

package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/parlor?sslmode=disable")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.DailyClaimBase != 100 {
		t.Fatalf("DailyClaimBase = %d, want 100", cfg.DailyClaimBase)
	}
	if cfg.TurnTimeoutSecs != 30 {
		t.Fatalf("TurnTimeoutSecs = %d, want 30", cfg.TurnTimeoutSecs)
	}
}

func TestLoadServerRequiresPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/parlor?sslmode=disable")
	t.Setenv("INITIAL_GRANT", "5000")
	t.Setenv("AFK_WARN_TURNS", "3")
	t.Setenv("TRANSFER_MAX", "2500")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.InitialGrant != 5000 {
		t.Fatalf("InitialGrant = %d, want 5000", cfg.InitialGrant)
	}
	if cfg.AFKWarnTurns != 3 {
		t.Fatalf("AFKWarnTurns = %d, want 3", cfg.AFKWarnTurns)
	}
	if cfg.TransferMax != 2500 {
		t.Fatalf("TransferMax = %d, want 2500", cfg.TransferMax)
	}
}

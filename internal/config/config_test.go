package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  driver: memory
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Errorf("workers default = %d, want 4", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.MaxAttempts != 3 {
		t.Errorf("maxAttempts default = %d, want 3", cfg.Pipeline.MaxAttempts)
	}
	if cfg.JobTimeout() != 120*time.Second {
		t.Errorf("job timeout default = %v, want 120s", cfg.JobTimeout())
	}
	if cfg.Pipeline.AccuracyFloor != 0.80 {
		t.Errorf("accuracy floor default = %v, want 0.80", cfg.Pipeline.AccuracyFloor)
	}
	if cfg.Audio.MaxSizeBytes != 50<<20 {
		t.Errorf("max size default = %d, want 50MB", cfg.Audio.MaxSizeBytes)
	}
	if len(cfg.Audio.Species) == 0 {
		t.Error("species default list empty")
	}
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: mysql
  password: from-file
encryption:
  key: from-file
`)
	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("AES_KEY", "from-env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Password != "from-env" {
		t.Errorf("db password = %q, want env override", cfg.Database.Password)
	}
	if cfg.Encryption.Key != "from-env-key" {
		t.Errorf("aes key = %q, want env override", cfg.Encryption.Key)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing config file should error")
	}
}

func TestDSNBuilders(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  host: db.internal
  port: 5432
  user: wildvox
  password: s3cret
  name: wildvox
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	pg := cfg.PostgresDSN()
	if pg != "host=db.internal port=5432 user=wildvox password=s3cret dbname=wildvox sslmode=disable" {
		t.Errorf("postgres dsn = %q", pg)
	}

	my := cfg.MySQLDSN()
	if my != "wildvox:s3cret@tcp(db.internal:5432)/wildvox?parseTime=true&charset=utf8mb4&loc=UTC" {
		t.Errorf("mysql dsn = %q", my)
	}
}

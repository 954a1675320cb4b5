package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "certledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendMemory, cfg.Ledger.Backend)
	assert.Equal(t, 50, cfg.Issuance.MaxBatchSize)
}

func TestLoadLayersFileThenEnvironment(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9000"
index:
  backend: postgres
  dsn: postgres://localhost/certledger
reconcile:
  backend: kafka
  brokers: ["localhost:9092"]
issuance:
  maxBatchSize: 20
`)
	t.Setenv("CERTLEDGER_ISSUANCE_MAX_BATCH_SIZE", "10")
	t.Setenv("CERTLEDGER_AUDIT_COOLDOWN", "1m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, BackendPostgres, cfg.Index.Backend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Reconcile.Brokers)
	assert.Equal(t, 10, cfg.Issuance.MaxBatchSize)
	assert.Equal(t, time.Minute, cfg.Audit.Cooldown)
	// untouched sections keep their defaults
	assert.Equal(t, 5*time.Second, cfg.Audit.WriteTimeout)
}

func TestLoadRejectsIncompleteBackends(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"evm without rpc", "ledger:\n  backend: evm\n"},
		{"gcs without bucket", "content:\n  backend: gcs\n"},
		{"postgres without dsn", "index:\n  backend: postgres\n"},
		{"kafka without brokers", "reconcile:\n  backend: kafka\n"},
		{"unknown ledger", "ledger:\n  backend: sqlite\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestIsEncrypted(t *testing.T) {
	assert.False(t, isEncrypted([]byte("server:\n  addr: \":1\"\n")))
	assert.True(t, isEncrypted([]byte("server: ENC[AES256_GCM,data:abc]\nsops:\n  version: 3.9.0\n")))
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := Default()
	ctx := WithContext(context.Background(), &cfg)
	assert.Same(t, &cfg, FromContext(ctx))
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "certledger.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendBadger, cfg.Ledger.Backend)
	assert.Equal(t, cfg.Ledger.DataDir, cfg.Content.DataDir)
	assert.Equal(t, BackendSQLite, cfg.Index.Backend)
	assert.True(t, cfg.Auth.AllowWalletHeader)
}

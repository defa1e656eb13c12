package infrastructure_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Reflex-Gravity/BarqAdl/internal/config"
	"github.com/Reflex-Gravity/BarqAdl/internal/infrastructure"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Store: persistence.Config{
			Backend: persistence.BackendFile,
			DataDir: t.TempDir(),
		},
	}
	cfg.Model.Provider = "genai"
	cfg.Model.GenAI.APIKey = "test-key"
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return cfg
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Model == nil {
		t.Error("Model is nil")
	}
	if infra.Sink == nil {
		t.Error("Sink is nil")
	}
	if _, ok := infra.Store.(*persistence.File); !ok {
		t.Errorf("Store: got %T, want *persistence.File", infra.Store)
	}
	if infra.Database != nil {
		t.Error("Database should be nil for the file backend")
	}
	if infra.Archive != nil {
		t.Error("Archive should be nil without storage credentials")
	}
}

func TestNewMemoryStore(t *testing.T) {
	cfg := validConfig(t)
	cfg.Store.Backend = persistence.BackendMemory

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := infra.Store.(*persistence.Memory); !ok {
		t.Errorf("Store: got %T, want *persistence.Memory", infra.Store)
	}
}

func TestNewDatabaseStore(t *testing.T) {
	cfg := validConfig(t)
	cfg.Store.Backend = persistence.BackendDatabase
	cfg.Database.Path = filepath.Join(t.TempDir(), "barqadl.db")

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if infra.Database == nil {
		t.Fatal("Database is nil")
	}
	if err := infra.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		t.Fatalf("startup: %v", err)
	}
	t.Cleanup(func() { infra.Lifecycle.Shutdown(5 * time.Second) })

	ctx := context.Background()
	if err := persistence.Save(ctx, infra.Store, "registry", map[string]int{"labor": 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, found, err := persistence.Load[map[string]int](ctx, infra.Store, "registry")
	if err != nil || !found || got["labor"] != 1 {
		t.Errorf("Load: got %v found=%v err=%v", got, found, err)
	}
}

func TestNewArchive(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.ConnectionString = azuriteConnString

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if infra.Archive == nil {
		t.Error("Archive is nil")
	}
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.ConnectionString = "not-a-connection-string"

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()
	if !infrastructure.NewLogger("debug").Enabled(ctx, slog.LevelDebug) {
		t.Error("debug level not enabled")
	}
	if infrastructure.NewLogger("warn").Enabled(ctx, slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	if !infrastructure.NewLogger("bogus").Enabled(ctx, slog.LevelInfo) {
		t.Error("invalid level should fall back to info")
	}
}

package backend

import (
	"context"
	"path/filepath"
	"testing"

	"budgetbuddy/internal/config"
	"budgetbuddy/internal/events"
	"budgetbuddy/internal/log"
	memjournal "budgetbuddy/internal/sheets/memory"
	"budgetbuddy/internal/storage/memory"
)

func TestBackendType(t *testing.T) {
	tests := []struct {
		in    BackendType
		valid bool
	}{
		{SQLiteBackend, true},
		{PostgresBackend, true},
		{MemoryBackend, true},
		{"sheets", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.in.IsValid(); got != tt.valid {
			t.Errorf("BackendType(%q).IsValid() = %v, want %v", tt.in, got, tt.valid)
		}
	}
	if got := GetBackendTypeStrings(); len(got) != 3 || got[1] != "postgres" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}

	app := &config.Config{
		DataBackend:   config.BackendPostgres,
		PostgresURL:   "postgres://localhost/budget",
		EventsBackend: config.EventsKafka,
		KafkaBrokers:  []string{"k:9092"},
		KafkaTopic:    "ledger",
		KafkaGroupID:  "journal",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.Events != KafkaEvents || cfg.KafkaTopic != "ledger" {
		t.Errorf("unexpected backend config: %+v", cfg)
	}
	if cfg.ConnectTimeout != defaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want %v", cfg.ConnectTimeout, defaultConnectTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	app.EventsBackend = "nats"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("FromAppConfig() should reject an unknown events backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown type", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, Events: AMQPEvents, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
		{"kafka without brokers", Config{Type: MemoryBackend, Events: KafkaEvents, KafkaTopic: "t"}, true},
		{"unknown events", Config{Type: MemoryBackend, Events: "nats"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard())

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateStore(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatalf("CreateStore() error = %v", err)
		}
		if _, ok := res.Store.(*memory.Store); !ok {
			t.Errorf("expected a memory store, got %T", res.Store)
		}
		if err := res.Cleanup(); err != nil {
			t.Errorf("Cleanup() error = %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data", "test.db")
		res, err := f.CreateStore(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatalf("CreateStore() error = %v", err)
		}
		defer res.Cleanup()
		accounts, err := res.Store.ListAccounts(ctx)
		if err != nil || len(accounts) != 0 {
			t.Errorf("fresh store should list no accounts, got %v (%v)", accounts, err)
		}
	})

	t.Run("invalid type", func(t *testing.T) {
		if _, err := f.CreateStore(ctx, Config{Type: "sheets"}); err == nil {
			t.Error("CreateStore() should fail for an unknown backend")
		}
	})
}

func TestCreatePublisherAndSubscriber(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	pub, err := f.CreatePublisher(ctx, Config{Type: MemoryBackend, Events: NoEvents})
	if err != nil {
		t.Fatalf("CreatePublisher() error = %v", err)
	}
	if _, ok := pub.(events.Nop); !ok {
		t.Errorf("expected events.Nop, got %T", pub)
	}

	if _, err := f.CreateSubscriber(ctx, Config{Events: NoEvents}); err == nil {
		t.Error("CreateSubscriber() should fail without an events backend")
	}
	if _, err := f.CreatePublisher(ctx, Config{Events: "nats"}); err == nil {
		t.Error("CreatePublisher() should fail for an unknown events backend")
	}

	sub, err := f.CreateSubscriber(ctx, Config{Events: KafkaEvents, KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t", KafkaGroupID: "g"})
	if err != nil {
		t.Fatalf("CreateSubscriber() error = %v", err)
	}
	sub.Close()
}

func TestCreateJournalWithoutSpreadsheet(t *testing.T) {
	j, err := NewFactory(nil).CreateJournal(context.Background(), Config{})
	if err != nil {
		t.Fatalf("CreateJournal() error = %v", err)
	}
	if _, ok := j.(*memjournal.Journal); !ok {
		t.Errorf("expected the in-memory journal, got %T", j)
	}
}

// Package backend builds the storage, event and journal implementations
// selected by configuration.
package backend

import (
	"context"
	"time"

	"budgetbuddy/internal/events"
	"budgetbuddy/internal/sheets"
	"budgetbuddy/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult contains the store and its cleanup function
type StoreResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// Journal is both ends of the spreadsheet journal.
type Journal interface {
	sheets.JournalWriter
	sheets.JournalReader
}

// Factory creates backends based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	// CreatePublisher returns events.Nop when no event backend is configured.
	CreatePublisher(ctx context.Context, config Config) (events.Publisher, error)
	CreateSubscriber(ctx context.Context, config Config) (events.Subscriber, error)
	CreateJournal(ctx context.Context, config Config) (Journal, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type   BackendType
	Events EventsType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresURL    string
	ConnectTimeout time.Duration

	// AMQP specific
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Kafka specific
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Google Sheets journal; an empty spreadsheet id selects the in-memory journal
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string
}

// BackendType represents the type of data backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// EventsType selects the event transport.
type EventsType string

const (
	NoEvents    EventsType = "none"
	AMQPEvents  EventsType = "amqp"
	KafkaEvents EventsType = "kafka"
)

func (et EventsType) String() string {
	return string(et)
}

func (et EventsType) IsValid() bool {
	switch et {
	case NoEvents, AMQPEvents, KafkaEvents:
		return true
	default:
		return false
	}
}

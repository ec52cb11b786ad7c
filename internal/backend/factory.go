package backend

import (
	"context"
	"errors"
	"fmt"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/events"
	"budgetbuddy/internal/events/kafka"
	"budgetbuddy/internal/log"
	gsheet "budgetbuddy/internal/sheets/google"
	memjournal "budgetbuddy/internal/sheets/memory"
	"budgetbuddy/internal/storage"
	"budgetbuddy/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

var _ Factory = (*DefaultFactory)(nil)

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &StoreResult{Store: repo, Cleanup: repo.Close}, nil

	case PostgresBackend:
		if config.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
			defer cancel()
		}
		repo, err := storage.NewPostgresRepository(ctx, config.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Postgres backend")
		return &StoreResult{Store: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		store := memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
		return &StoreResult{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreatePublisher implements Factory.CreatePublisher
func (f *DefaultFactory) CreatePublisher(ctx context.Context, config Config) (events.Publisher, error) {
	switch config.Events {
	case "", NoEvents:
		f.logger.InfoContext(ctx, "Event publishing disabled")
		return events.Nop{}, nil
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized AMQP publisher",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return client, nil
	case KafkaEvents:
		f.logger.InfoContext(ctx, "Initialized Kafka publisher", "topic", config.KafkaTopic)
		return kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported events backend: %s", config.Events)
	}
}

// CreateSubscriber implements Factory.CreateSubscriber
func (f *DefaultFactory) CreateSubscriber(ctx context.Context, config Config) (events.Subscriber, error) {
	switch config.Events {
	case "", NoEvents:
		return nil, errors.New("no events backend configured")
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		return client, nil
	case KafkaEvents:
		f.logger.InfoContext(ctx, "Initialized Kafka subscriber",
			"topic", config.KafkaTopic,
			"group_id", config.KafkaGroupID)
		return kafka.NewSubscriber(config.KafkaBrokers, config.KafkaTopic, config.KafkaGroupID, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported events backend: %s", config.Events)
	}
}

// CreateJournal implements Factory.CreateJournal. Without a spreadsheet id the
// journal is kept in memory.
func (f *DefaultFactory) CreateJournal(ctx context.Context, config Config) (Journal, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.WarnContext(ctx, "No spreadsheet configured, journal is kept in memory")
		return memjournal.New(), nil
	}
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		OAuthClientJSON:    config.GoogleOAuthClientJSON,
		OAuthClientFile:    config.GoogleOAuthClientFile,
		OAuthTokenJSON:     config.GoogleOAuthTokenJSON,
		OAuthTokenFile:     config.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets journal")
	return cli, nil
}

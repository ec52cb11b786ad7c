package backend

import (
	"fmt"
	"time"

	"budgetbuddy/internal/config"
)

const defaultConnectTimeout = 10 * time.Second

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	eventsType := EventsType(appConfig.EventsBackend)
	if !eventsType.IsValid() {
		return Config{}, fmt.Errorf("invalid events backend in config: %s", appConfig.EventsBackend)
	}

	return Config{
		Type:   backendType,
		Events: eventsType,

		SQLiteDBPath:   appConfig.SQLiteDBPath,
		PostgresURL:    appConfig.PostgresURL,
		ConnectTimeout: defaultConnectTimeout,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		KafkaBrokers: appConfig.KafkaBrokers,
		KafkaTopic:   appConfig.KafkaTopic,
		KafkaGroupID: appConfig.KafkaGroupID,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleOAuthClientFile:    appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:     appConfig.GoogleOAuthTokenFile,
		GoogleOAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		GoogleOAuthTokenJSON:     appConfig.GoogleOAuthTokenJSON,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Events != "" && !c.Events.IsValid() {
		return fmt.Errorf("invalid events backend: %s", c.Events)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresURL == "" {
			return fmt.Errorf("Postgres URL is required for postgres backend")
		}
	case MemoryBackend:
		// nothing to check
	}

	switch c.Events {
	case AMQPEvents:
		if c.AMQPURL == "" || c.AMQPExchange == "" || c.AMQPQueue == "" {
			return fmt.Errorf("AMQP URL, exchange and queue are required for amqp events")
		}
	case KafkaEvents:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			return fmt.Errorf("Kafka brokers and topic are required for kafka events")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, PostgresBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strs := make([]string, len(types))
	for i, t := range types {
		strs[i] = t.String()
	}
	return strs
}

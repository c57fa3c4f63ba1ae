package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type DB struct {
	URL             string        `env:"DATABASE_URL,required"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"8"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"15m"`
}

type Queue struct {
	ProductQueue      string        `env:"AUDIT_PRODUCT_QUEUE" envDefault:"product-events"`
	FailureQueue      string        `env:"AUDIT_FAILURE_QUEUE" envDefault:"product-failure-events"`
	BatchSize         int           `env:"AUDIT_POLL_BATCH_SIZE" envDefault:"5"`
	PollInterval      time.Duration `env:"AUDIT_POLL_INTERVAL" envDefault:"1s"`
	VisibilityTimeout time.Duration `env:"AUDIT_VISIBILITY_TIMEOUT" envDefault:"30s"`
	MaxReceiveCount   int           `env:"AUDIT_MAX_RECEIVE_COUNT" envDefault:"3"`
}

type Store struct {
	Retention    time.Duration `env:"AUDIT_EVENT_RETENTION" envDefault:"5m"`
	ReapInterval time.Duration `env:"AUDIT_REAP_INTERVAL" envDefault:"1m"`
}

type Export struct {
	// BootstrapServers left empty disables the Kafka export of
	// persisted audit records.
	BootstrapServers string `env:"KAFKA_BOOTSTRAP_SERVERS"`
	Topic            string `env:"AUDIT_EXPORT_TOPIC" envDefault:"audit-events"`
}

type Config struct {
	DB     DB
	Queue  Queue
	Store  Store
	Export Export
	Port   string `env:"PORT" envDefault:"8080"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

package mongodb

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	MinPoolSize uint64
	MaxRetries  int
	TLSCAFile   string // Path to CA certificate file for TLS
}

type Client struct {
	Client *mongo.Client
	DB     *mongo.Database
	config Config
}

// NewClient creates a MongoDB client with connection pooling and retry logic.
// Connection attempts back off exponentially: 1s, 2s, 4s, 8s, 16s (max).
func NewClient(config Config, log *logrus.Logger) (*Client, error) {
	if config.MaxPoolSize == 0 {
		config.MaxPoolSize = 100
	}
	if config.MinPoolSize == 0 {
		config.MinPoolSize = 10
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 5
	}

	if config.URI == "" {
		return nil, fmt.Errorf("MongoDB URI cannot be empty")
	}
	if config.Database == "" {
		return nil, fmt.Errorf("MongoDB database name cannot be empty")
	}
	if config.MinPoolSize > config.MaxPoolSize {
		return nil, fmt.Errorf("MinPoolSize (%d) cannot be greater than MaxPoolSize (%d)", config.MinPoolSize, config.MaxPoolSize)
	}

	clientOpts := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetMaxConnIdleTime(60 * time.Second).
		SetServerSelectionTimeout(10 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	if config.TLSCAFile != "" {
		tlsConfig, err := loadTLSConfig(config.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS CA file: %w", err)
		}
		clientOpts.SetTLSConfig(tlsConfig)
		log.WithField("ca_file", config.TLSCAFile).Info("mongodb TLS configured")
	}

	var client *mongo.Client
	var err error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			if backoff > 16*time.Second {
				backoff = 16 * time.Second
			}
			log.WithFields(logrus.Fields{
				"attempt": attempt,
				"max":     config.MaxRetries,
				"backoff": backoff,
			}).WithError(err).Warn("mongodb connection failed, retrying")
			time.Sleep(backoff)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		client, err = mongo.Connect(ctx, clientOpts)
		if err != nil {
			cancel()
			continue
		}

		err = client.Ping(ctx, readpref.Primary())
		cancel()
		if err == nil {
			break
		}

		if attempt == config.MaxRetries {
			if client != nil {
				_ = client.Disconnect(context.Background())
			}
			return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", config.MaxRetries, err)
		}
	}

	database := client.Database(config.Database)
	log.WithField("database", config.Database).Info("connected to MongoDB")

	return &Client{
		Client: client,
		DB:     database,
		config: config,
	}, nil
}

// Ping performs a simple ping to check if the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("MongoDB client is nil")
	}
	return c.Client.Ping(ctx, readpref.Primary())
}

// Collection returns a collection handle.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.DB.Collection(name)
}

// Disconnect closes the underlying client.
func (c *Client) Disconnect(ctx context.Context) error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Disconnect(ctx)
}

// loadTLSConfig loads a TLS configuration with a custom CA certificate.
func loadTLSConfig(caFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate from %s", caFile)
	}

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

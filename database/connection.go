package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const defaultDatabaseName = "lifeline"

var (
	client   *mongo.Client
	database *mongo.Database
)

// Health is the database part of the health endpoint
type Health struct {
	Status  string        `json:"status"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// Connect opens the contact, facility and report store. Migrations always run;
// demo facilities are seeded only when asked.
func Connect(databaseURL string, seed bool) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Emergency traffic is small and bursty; a modest pool is plenty
	clientOptions := options.Client().
		ApplyURI(databaseURL).
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(time.Minute).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetReadPreference(readpref.PrimaryPreferred())

	c, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		c.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := databaseName(databaseURL)
	client = c
	database = c.Database(dbName)

	logrus.WithField("database", dbName).Info("✅ Connected to MongoDB")

	if err := RunMigrations(database); err != nil {
		logrus.Warnf("Migration warning: %v", err)
	}
	if seed {
		if err := RunSeeders(database); err != nil {
			logrus.Warnf("Seeder warning: %v", err)
		}
	}

	return database, nil
}

// Disconnect closes the MongoDB connection
func Disconnect() error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		logrus.Errorf("Error disconnecting from MongoDB: %v", err)
		return err
	}

	logrus.Info("🔌 Disconnected from MongoDB")
	return nil
}

// databaseName takes the database from the URI path, falling back to "lifeline"
func databaseName(uri string) string {
	cs, err := connstring.Parse(uri)
	if err != nil || cs.Database == "" || cs.Database == "admin" {
		return defaultDatabaseName
	}
	return cs.Database
}

// HealthCheck pings the primary
func HealthCheck(ctx context.Context) Health {
	if client == nil {
		return Health{Status: "disabled"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return Health{Status: "unhealthy", Error: err.Error()}
	}
	return Health{Status: "healthy", Latency: time.Since(start)}
}

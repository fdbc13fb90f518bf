package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/app/config"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
	indexTimeout   = 10 * time.Second
)

// NewClient connects to MongoDB and verifies the primary is reachable.
// Settlement relies on multi-document transactions, so the URI must point
// at a replica set.
func NewClient(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)

	if cfg.User != "" && cfg.Password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: cfg.User,
			Password: cfg.Password,
		})
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, connectTimeout)
	defer cancelConnect()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, pingTimeout)
	defer cancelPing()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}

func ensureIndexes(coll *mongo.Collection, log logger.Logger, indexes []mongo.IndexModel) {
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Warnf("failed to create indexes for %s collection (may already exist): %v", coll.Name(), err)
		return
	}
	log.Debugf("ensured indexes for %s collection", coll.Name())
}

package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

// NewMongo connects and pings; the caller owns Disconnect.
func NewMongo(uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty MONGO_URI")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetServerSelectionTimeout(3 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, domain.ErrDBUnavailable(err)
	}
	return client, nil
}

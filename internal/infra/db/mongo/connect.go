package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect opens a client and pings the deployment once. The returned database
// handle is constructed at process start and injected into each repository,
// never re-derived per request.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx2, readpref.Primary()); err != nil {
		return nil, err
	}

	return cli.Database(dbName), nil
}

// Package mongo implements a MongoDB sink: each cleaned row becomes one
// document in the target collection.
package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds MongoDB repository configuration. Table is "database.collection".
type Config struct {
	DSN     string
	Table   string
	Columns []string
}

// Repository is a MongoDB-backed storage.Repository.
type Repository struct {
	client *mongo.Client
	db     *mongo.Database
	coll   *mongo.Collection
	cfg    Config
}

// NewRepository connects, pings and returns the repository with a Close
// function that disconnects the client.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dbName, collName, err := splitNamespace(cfg.Table)
	if err != nil {
		return nil, nil, err
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo: ping: %w", err)
	}
	db := client.Database(dbName)
	closeFn := func() { _ = client.Disconnect(context.Background()) }
	return &Repository{client: client, db: db, coll: db.Collection(collName), cfg: cfg}, closeFn, nil
}

// CopyFrom inserts one document per row with an ordered InsertMany.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mongo: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	docs, err := toDocuments(columns, rows)
	if err != nil {
		return 0, err
	}
	res, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	var n int64
	if res != nil {
		n = int64(len(res.InsertedIDs))
	}
	if err != nil {
		return n, fmt.Errorf("mongo: insert: %w", err)
	}
	return n, nil
}

// Exec runs a database command given as extended JSON, for example
// {"drop": "ev_adoption"}.
func (r *Repository) Exec(ctx context.Context, command string) error {
	if strings.TrimSpace(command) == "" {
		return nil
	}
	var cmd bson.D
	if err := bson.UnmarshalExtJSON([]byte(command), false, &cmd); err != nil {
		return fmt.Errorf("mongo: parse command: %w", err)
	}
	if err := r.db.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("mongo: command: %w", err)
	}
	return nil
}

// toDocuments keeps column order; absent values are stored as null.
func toDocuments(columns []string, rows [][]any) ([]any, error) {
	docs := make([]any, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("mongo: CopyFrom: row length %d != columns length %d", len(row), len(columns))
		}
		d := make(bson.D, len(columns))
		for j, c := range columns {
			d[j] = bson.E{Key: c, Value: row[j]}
		}
		docs[i] = d
	}
	return docs, nil
}

// splitNamespace splits "db.collection"; the collection may contain dots.
func splitNamespace(ns string) (string, string, error) {
	db, coll, ok := strings.Cut(ns, ".")
	if !ok || db == "" || coll == "" {
		return "", "", fmt.Errorf("mongo: table %q must be database.collection", ns)
	}
	return db, coll, nil
}

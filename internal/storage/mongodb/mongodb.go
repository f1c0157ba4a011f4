// Package mongodb stores submissions with the official MongoDB driver. Each
// client is one driver connection pool; databases and collections are opened
// per call.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"postpipe-connector/internal/models"
	"postpipe-connector/internal/storage"
)

// Client wraps a connected *mongo.Client.
type Client struct {
	client *mongo.Client
}

// clientOptions decodes nested documents as maps so submission data keeps
// its JSON shape on the way back out.
func clientOptions(uri string) *options.ClientOptions {
	return options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
}

// Connect dials uri and waits for the primary to answer.
func Connect(ctx context.Context, uri string) (*Client, error) {
	opts := clientOptions(uri)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{client: client}, nil
}

func (c *Client) Insert(ctx context.Context, db, collection string, doc *models.StoredSubmission) error {
	if _, err := c.client.Database(db).Collection(collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func findOptions(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: models.ReceivedAtField, Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

func (c *Client) Find(ctx context.Context, db, collection string, limit int) ([]models.StoredSubmission, error) {
	cursor, err := c.client.Database(db).Collection(collection).Find(ctx, bson.D{}, findOptions(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}

	results := []models.StoredSubmission{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}
	return results, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type Factory struct{}

func (f *Factory) Create(ctx context.Context, uri string) (storage.Client, error) {
	return Connect(ctx, uri)
}

func (f *Factory) GetType() string {
	return "mongodb"
}

func init() {
	storage.Register("mongodb", &Factory{})
	storage.Register("mongodb+srv", &Factory{})
}

package engine

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the subset of collection operations scripts can call.
type Collection interface {
	Find(ctx context.Context, filter bson.D) ([]bson.D, error)
	// FindOne returns nil when no document matches.
	FindOne(ctx context.Context, filter bson.D) (bson.D, error)
	InsertOne(ctx context.Context, doc bson.D) (any, error)
	InsertMany(ctx context.Context, docs []bson.D) ([]any, error)
}

// Session is one open database connection.
type Session interface {
	DatabaseNames(ctx context.Context) ([]string, error)
	CollectionNames(ctx context.Context, db string) ([]string, error)
	Collection(db, name string) Collection
	Close(ctx context.Context) error
}

// Dialer opens sessions from connection strings.
type Dialer interface {
	Dial(ctx context.Context, uri string) (Session, error)
}

// MongoDialer dials real servers with the mongo driver.
type MongoDialer struct {
	ConnectTimeout time.Duration
}

// Dial implements Dialer.
func (d MongoDialer) Dial(ctx context.Context, uri string) (Session, error) {
	opts := options.Client().ApplyURI(uri)
	if d.ConnectTimeout > 0 {
		opts.SetConnectTimeout(d.ConnectTimeout)
		opts.SetServerSelectionTimeout(d.ConnectTimeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &mongoSession{client: client}, nil
}

type mongoSession struct {
	client *mongo.Client
}

func (s *mongoSession) DatabaseNames(ctx context.Context) ([]string, error) {
	return s.client.ListDatabaseNames(ctx, bson.D{})
}

func (s *mongoSession) CollectionNames(ctx context.Context, db string) ([]string, error) {
	return s.client.Database(db).ListCollectionNames(ctx, bson.D{})
}

func (s *mongoSession) Collection(db, name string) Collection {
	return mongoCollection{coll: s.client.Database(db).Collection(name)}
}

func (s *mongoSession) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c mongoCollection) Find(ctx context.Context, filter bson.D) ([]bson.D, error) {
	cursor, err := c.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := []bson.D{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c mongoCollection) FindOne(ctx context.Context, filter bson.D) (bson.D, error) {
	var doc bson.D
	err := c.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c mongoCollection) InsertOne(ctx context.Context, doc bson.D) (any, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

func (c mongoCollection) InsertMany(ctx context.Context, docs []bson.D) ([]any, error) {
	items := make([]any, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc)
	}
	res, err := c.coll.InsertMany(ctx, items)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}

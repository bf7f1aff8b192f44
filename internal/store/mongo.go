package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/i474232898/weather-records/internal/weather"
)

const (
	weatherCollection  = "weather"
	countersCollection = "counters"
)

// weatherDocument is the stored shape of a record. Nil pointers are stored
// as BSON null.
type weatherDocument struct {
	ID           int64    `bson:"_id"`
	Date         *string  `bson:"date"`
	Lat          *float64 `bson:"lat"`
	Lon          *float64 `bson:"lon"`
	City         *string  `bson:"city"`
	State        *string  `bson:"state"`
	Temperatures string   `bson:"temperatures"`
}

// MongoStore is a weather.Store backed by a MongoDB collection. Ids come from
// a sequence document in the counters collection.
type MongoStore struct {
	client   *mongo.Client
	coll     *mongo.Collection
	counters *mongo.Collection
}

// OpenMongo connects to uri, pings the primary and ensures indexes exist.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)
	clientOptions.SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		coll:     db.Collection(weatherCollection),
		counters: db.Collection(countersCollection),
	}

	_, err = s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "city", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create weather indexes: %w", err)
	}
	return s, nil
}

// Insert stores rec under the next sequence value.
func (s *MongoStore) Insert(ctx context.Context, rec weather.Record) (weather.Record, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return weather.Record{}, err
	}

	doc := toDocument(rec)
	doc.ID = id
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return weather.Record{}, fmt.Errorf("insert weather: %w", err)
	}
	return doc.record()
}

func (s *MongoStore) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	next := func() error {
		return s.counters.FindOneAndUpdate(ctx,
			bson.M{"_id": weatherCollection},
			bson.M{"$inc": bson.M{"seq": int64(1)}},
			opts,
		).Decode(&counter)
	}

	err := next()
	// Concurrent upserts on a missing counter race to create it; the loser
	// gets E11000 and finds the document on retry.
	if mongo.IsDuplicateKeyError(err) {
		err = next()
	}
	if err != nil {
		return 0, fmt.Errorf("allocate weather id: %w", err)
	}
	return counter.Seq, nil
}

// GetByID returns the record with the given id.
func (s *MongoStore) GetByID(ctx context.Context, id int64) (weather.Record, bool, error) {
	var doc weatherDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return weather.Record{}, false, nil
	}
	if err != nil {
		return weather.Record{}, false, fmt.Errorf("get weather %d: %w", id, err)
	}
	rec, err := doc.record()
	if err != nil {
		return weather.Record{}, false, err
	}
	return rec, true, nil
}

// Query translates filter into a find document and order into a sort.
func (s *MongoStore) Query(ctx context.Context, filter weather.Filter, order weather.Order) ([]weather.Record, error) {
	opts := options.Find().SetSort(mongoSort(order))

	cur, err := s.coll.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("query weather: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]weather.Record, 0)
	for cur.Next(ctx) {
		var doc weatherDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode weather: %w", err)
		}
		rec, err := doc.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, cur.Err()
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func mongoFilter(f weather.Filter) bson.M {
	lowerCity := bson.M{"$toLower": "$city"}

	switch f := f.(type) {
	case weather.MatchAll:
		return bson.M{}
	case weather.DateEquals:
		return bson.M{"date": f.Date.String()}
	case weather.CityEquals:
		return bson.M{"$expr": bson.M{"$eq": bson.A{lowerCity, f.City}}}
	case weather.CityIn:
		cities := bson.A{}
		for _, c := range f.Cities {
			cities = append(cities, c)
		}
		return bson.M{"$expr": bson.M{"$in": bson.A{lowerCity, cities}}}
	case weather.And:
		parts := bson.A{}
		for _, sub := range f.Filters {
			parts = append(parts, mongoFilter(sub))
		}
		return bson.M{"$and": parts}
	default:
		return bson.M{"_id": bson.M{"$exists": false}}
	}
}

func mongoSort(order weather.Order) bson.D {
	var sort bson.D
	for _, k := range order.Keys() {
		field := string(k.Field)
		if k.Field == weather.FieldID {
			field = "_id"
		}
		dir := 1
		if k.Descending {
			dir = -1
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	return sort
}

func toDocument(rec weather.Record) weatherDocument {
	doc := weatherDocument{
		Lat:          rec.Lat,
		Lon:          rec.Lon,
		City:         rec.City,
		State:        rec.State,
		Temperatures: weather.EncodeTemperatures(rec.Temperatures),
	}
	if rec.Date != nil {
		d := rec.Date.String()
		doc.Date = &d
	}
	return doc
}

func (d weatherDocument) record() (weather.Record, error) {
	rec := weather.Record{
		ID:           d.ID,
		Lat:          d.Lat,
		Lon:          d.Lon,
		City:         d.City,
		State:        d.State,
		Temperatures: weather.DecodeTemperatures(d.Temperatures),
	}
	if d.Date != nil {
		date, err := weather.ParseDate(*d.Date)
		if err != nil {
			return weather.Record{}, fmt.Errorf("parse stored date %q of record %d: %w", *d.Date, d.ID, err)
		}
		rec.Date = &date
	}
	return rec, nil
}

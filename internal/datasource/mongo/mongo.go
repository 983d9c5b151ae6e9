// Package mongo implements the mongodb connector. Documents become records
// with ObjectIDs rendered as hex strings and embedded documents as maps.
package mongo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"datascout/internal/config"
	"datascout/internal/datasource"
	"datascout/internal/sampling"
	"datascout/pkg/records"
)

func init() {
	datasource.Register("mongodb", datasource.Descriptor{
		Title: "MongoDB collection",
		Fields: []datasource.Field{
			{Key: "uri", Name: "URI", Type: "string", Required: true, Help: "mongodb:// or mongodb+srv:// connection string."},
			{Key: "database", Name: "Database", Type: "string", Required: true},
			{Key: "collection", Name: "Collection", Type: "string", Required: true},
			{Key: "filter", Name: "Filter", Type: "string", Help: "Extended JSON query document."},
			{Key: "sort", Name: "Sort", Type: "string", Help: "Extended JSON sort document."},
		},
		New: New,
	})
}

// Connector reads the documents of one collection matching a filter.
type Connector struct {
	uri, database, collection string
	filter, sort              bson.D
}

// New builds a connector from parameters; filter and sort may be given as
// Extended JSON text or as already decoded objects.
func New(p config.Options) (datasource.Connector, error) {
	filter, err := Document(p.Any("filter"))
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	sort, err := Document(p.Any("sort"))
	if err != nil {
		return nil, fmt.Errorf("sort: %w", err)
	}
	return &Connector{
		uri:        p.String("uri", ""),
		database:   p.String("database", ""),
		collection: p.String("collection", ""),
		filter:     filter,
		sort:       sort,
	}, nil
}

// Document parses an Extended JSON document. nil and "" yield an empty one.
func Document(v any) (bson.D, error) {
	var raw []byte
	switch x := v.(type) {
	case nil:
		return bson.D{}, nil
	case string:
		if x == "" {
			return bson.D{}, nil
		}
		raw = []byte(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Load implements datasource.Connector. Top samples are pushed down as a
// limit; random and stratified ones count the matches and walk the cursor.
func (c *Connector) Load(ctx context.Context, req datasource.Request) ([]records.Record, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(c.uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Printf("mongo: disconnect: %v", err)
		}
	}()
	coll := client.Database(c.database).Collection(c.collection)

	total := 0
	opts := options.Find()
	if len(c.sort) > 0 {
		opts.SetSort(c.sort)
	}
	if req.UseSample {
		n, err := coll.CountDocuments(ctx, c.filter)
		if err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
		total = int(n)
		if req.Technique.OrDefault() == sampling.Top {
			opts.SetLimit(int64(max(req.Budget.Size(total, nil), 1)))
		}
	}

	cur, err := coll.Find(ctx, c.filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cur.Close(context.Background())

	out, err := datasource.Collect(ctx, req, total, func() (records.Record, bool, error) {
		if !cur.Next(ctx) {
			return nil, false, cur.Err()
		}
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, false, fmt.Errorf("decode: %w", err)
		}
		return Record(doc), true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, cur.Err()
}

// Record converts a document.
func Record(doc bson.D) records.Record {
	rec := make(records.Record, len(doc))
	for _, e := range doc {
		rec[e.Key] = Value(e.Value)
	}
	return rec
}

// Value converts one BSON value to a plain Go value.
func Value(v any) any {
	switch x := v.(type) {
	case bson.ObjectID:
		return x.Hex()
	case bson.DateTime:
		return x.Time().UTC()
	case bson.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case bson.Decimal128:
		if f, err := strconv.ParseFloat(x.String(), 64); err == nil {
			return f
		}
		return x.String()
	case bson.Binary:
		return x.Data
	case bson.Regex:
		return x.Pattern
	case int32:
		return int64(x)
	case bson.D:
		return map[string]any(Record(x))
	case bson.M:
		m := make(map[string]any, len(x))
		for k, vv := range x {
			m[k] = Value(vv)
		}
		return m
	case bson.A:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = Value(vv)
		}
		return out
	case bson.Null, bson.Undefined:
		return nil
	}
	return v
}

package datasource

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cubtera/cubtera/pkg/logging"
)

// defaultDocName is the reserved document name holding a dimension type's
// default record.
const defaultDocName = "_default"

// orgsExclusionList are pseudo-databases never surfaced as real orgs by the
// "orgs" query operation (SPEC_FULL.md §C.3).
var orgsExclusionList = map[string]bool{
	"admin":  true,
	"local":  true,
	"config": true,
	"test":   true,
}

// dbDataSource implements DataSource over a MongoDB collection, per
// spec.md §4.1's DB layout: database per org, collection per dim type.
//
// Grounded on the mongodb.rs retrieval: context-then-mainline filter
// fallback, the `_default` sentinel, and the legacy "{data: ...}"
// double-wrap unwrap on defaults reads (SPEC_FULL.md §D.7).
type dbDataSource struct {
	collection *mongo.Collection
	dimType    string
	context    string
	logger     logging.Interface
}

// NewDB constructs a DB-backed DataSource for dimType within database org.
func NewDB(client *mongo.Client, org, dimType string, logger logging.Interface) DataSource {
	return &dbDataSource{
		collection: client.Database(org).Collection(dimType),
		dimType:    dimType,
		logger:     logger,
	}
}

func (d *dbDataSource) DimType() string { return d.dimType }

func (d *dbDataSource) SetContext(value string) { d.context = value }
func (d *dbDataSource) GetContext() string      { return d.context }

// GetByName tries the context-stamped filter first (if a context is set),
// falling back to the mainline (no-context) record on a miss — per
// spec.md §4.1 "Read rules".
func (d *dbDataSource) GetByName(ctx context.Context, name string) (map[string]interface{}, error) {
	if d.context != "" {
		doc, err := d.findOne(ctx, bson.M{"name": name, "context": d.context})
		if err != nil {
			return nil, err
		}
		if doc != nil {
			return doc, nil
		}
	}

	doc, err := d.findOne(ctx, bson.M{"name": name, "context": bson.M{"$exists": false}})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return map[string]interface{}{"name": name}, nil
	}
	return doc, nil
}

func (d *dbDataSource) findOne(ctx context.Context, filter bson.M) (map[string]interface{}, error) {
	var raw bson.M
	err := d.collection.FindOne(ctx, filter).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	delete(raw, "_id")
	return bsonMToMap(raw), nil
}

// GetDefaults reads the "_default" sentinel document, unwrapping a legacy
// top-level "data" key when present (SPEC_FULL.md §D.7).
func (d *dbDataSource) GetDefaults(ctx context.Context) (map[string]interface{}, error) {
	doc, err := d.findOne(ctx, bson.M{"name": defaultDocName})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return map[string]interface{}{}, nil
	}

	if inner, ok := doc["data"].(map[string]interface{}); ok {
		return inner, nil
	}

	delete(doc, "name")
	return doc, nil
}

// GetAll returns every mainline record, per spec.md §4.1's
// `{context:{$exists:false}, name:{$not:{$regex:"^_default","$options":"i"}}}`
// filter.
func (d *dbDataSource) GetAll(ctx context.Context) ([]map[string]interface{}, error) {
	filter := bson.M{
		"context": bson.M{"$exists": false},
		"name":    bson.M{"$not": bson.M{"$regex": "^_default", "$options": "i"}},
	}

	cursor, err := d.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []map[string]interface{}
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		delete(raw, "_id")
		records = append(records, bsonMToMap(raw))
	}

	return records, cursor.Err()
}

func (d *dbDataSource) GetAllNames(ctx context.Context) ([]string, error) {
	records, err := d.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(records))
	for _, r := range records {
		if name, ok := r["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// GetAllTypes lists sibling collection names in the same database, minus
// the reserved "defaults"/"log"/"dlog" collections.
func (d *dbDataSource) GetAllTypes(ctx context.Context) ([]string, error) {
	names, err := d.collection.Database().ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var types []string
	for _, n := range names {
		switch n {
		case "defaults", "log", "dlog":
			continue
		}
		types = append(types, n)
	}
	return types, nil
}

// UpsertAll batch replace-or-inserts by name + context filter.
func (d *dbDataSource) UpsertAll(ctx context.Context, records []map[string]interface{}) error {
	for _, r := range records {
		name, _ := r["name"].(string)
		if err := d.UpsertByName(ctx, name, r); err != nil {
			return err
		}
	}
	return nil
}

// UpsertByName replaces on filter {name, context?}, stamping name and
// (when set) context into the document.
func (d *dbDataSource) UpsertByName(ctx context.Context, name string, data map[string]interface{}) error {
	doc := bson.M{}
	for k, v := range data {
		doc[k] = v
	}
	doc["name"] = name

	filter := bson.M{"name": name}
	if d.context != "" {
		doc["context"] = d.context
		filter["context"] = d.context
	} else {
		filter["context"] = bson.M{"$exists": false}
	}

	opts := options.Replace().SetUpsert(true)
	_, err := d.collection.ReplaceOne(ctx, filter, doc, opts)
	return err
}

func (d *dbDataSource) DeleteByName(ctx context.Context, name string) error {
	filter := bson.M{"name": name}
	if d.context != "" {
		filter["context"] = d.context
	}
	_, err := d.collection.DeleteOne(ctx, filter)
	return err
}

func (d *dbDataSource) DeleteAllByContext(ctx context.Context, contextValue string) error {
	_, err := d.collection.DeleteMany(ctx, bson.M{"context": contextValue})
	return err
}

// Orgs lists every database on client excluding system/reserved names.
func Orgs(ctx context.Context, client *mongo.Client) ([]string, error) {
	names, err := client.ListDatabaseNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}

	var orgs []string
	for _, n := range names {
		if orgsExclusionList[strings.ToLower(n)] {
			continue
		}
		orgs = append(orgs, n)
	}
	return orgs, nil
}

// bsonMToMap converts a bson.M (and any nested bson.M/bson.A) into plain
// map[string]interface{}/[]interface{} so downstream code (canonical
// hashing, JSON marshalling) never has to special-case BSON types.
func bsonMToMap(v interface{}) map[string]interface{} {
	out, _ := normalizeBSON(v).(map[string]interface{})
	return out
}

func normalizeBSON(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(val))
		for k, sub := range val {
			out[k] = normalizeBSON(sub)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(val))
		for i, sub := range val {
			out[i] = normalizeBSON(sub)
		}
		return out
	default:
		return val
	}
}

// Package invapi implements the inventory query API (C3): a stable
// {status, id, ...} JSON envelope over dimension records, independent of
// the caller being the CLI's "im" subcommand or the REST facade.
//
// Grounded on the im/mod.rs retrieval: operation ids, envelope shape, the
// orgs/dimTypes exclusion lists, and the dot-notation dlog filter
// conversion are all ported from it rather than invented.
package invapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cubtera/cubtera/pkg/config"
	"github.com/cubtera/cubtera/pkg/datasource"
	"github.com/cubtera/cubtera/pkg/dim"
)

// DataSourceFactory builds a DataSource for dimType within org, deferring
// the storage-kind/connection decision to the caller that wires up a
// Service (cmd/cubtera, cmd/cubtera-api).
type DataSourceFactory func(org, dimType string) (datasource.DataSource, error)

// Service answers inventory queries. It holds no per-request state — every
// method builds its own DataSource/Builder, so a Service is safe to share
// across concurrent REST handlers (spec.md §5's "each request constructs
// its own DimBuilder/DataSource").
type Service struct {
	cfg           *config.Config
	newDataSource DataSourceFactory
	dlogClient    *mongo.Client
}

// New constructs a Service. dlogClient may be nil when no dlog database is
// configured; Dlog queries then return a soft error envelope.
func New(cfg *config.Config, newDataSource DataSourceFactory, dlogClient *mongo.Client) *Service {
	return &Service{cfg: cfg, newDataSource: newDataSource, dlogClient: dlogClient}
}

func ok(id string, fields map[string]interface{}) map[string]interface{} {
	env := map[string]interface{}{"status": "ok", "id": id}
	for k, v := range fields {
		env[k] = v
	}
	return env
}

func errEnvelope(id, message string) map[string]interface{} {
	return map[string]interface{}{"status": "error", "id": id, "message": message, "data": nil}
}

// DimTypes lists the dimension types known within org.
func (s *Service) DimTypes(ctx context.Context, org string) (map[string]interface{}, error) {
	ds, err := s.newDataSource(org, s.rootDimType())
	if err != nil {
		return nil, err
	}
	types, err := ds.GetAllTypes(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(types)
	return ok("dimTypes", map[string]interface{}{"org": org, "data": types}), nil
}

// DimsByType lists the names of every dim of dimType.
func (s *Service) DimsByType(ctx context.Context, org, dimType string) (map[string]interface{}, error) {
	ds, err := s.newDataSource(org, dimType)
	if err != nil {
		return nil, err
	}
	names, err := ds.GetAllNames(ctx)
	if err != nil {
		return nil, err
	}
	return ok("dimsByType", map[string]interface{}{"type": dimType, "data": names}), nil
}

// DimsDataByType returns the merged (data + defaults) record of every dim
// of dimType.
func (s *Service) DimsDataByType(ctx context.Context, org, dimType string) (map[string]interface{}, error) {
	ds, err := s.newDataSource(org, dimType)
	if err != nil {
		return nil, err
	}
	names, err := ds.GetAllNames(ctx)
	if err != nil {
		return nil, err
	}

	data := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		b := dim.NewBuilder(org, dimType, s.cfg.DimRelations, s.factoryFor(org))
		b.WithName(name)
		if _, err := b.ReadData(ctx); err != nil {
			return nil, err
		}
		if _, err := b.ReadDefaultData(ctx); err != nil {
			return nil, err
		}
		b.MergeDefaults()
		d, err := b.Build(ctx)
		if err != nil {
			return nil, err
		}
		data = append(data, d.Data)
	}

	return ok("dimsDataByType", map[string]interface{}{"type": dimType, "data": data}), nil
}

// DimsDefaultsByType returns dimType's defaults record.
func (s *Service) DimsDefaultsByType(ctx context.Context, org, dimType string) (map[string]interface{}, error) {
	ds, err := s.newDataSource(org, dimType)
	if err != nil {
		return nil, err
	}
	defaults, err := ds.GetDefaults(ctx)
	if err != nil {
		return nil, err
	}
	return ok("dimsDefaultsByType", map[string]interface{}{"type": dimType, "data": defaults}), nil
}

// DimByName returns one dim's record merged with its type's defaults,
// optionally under a context overlay. The parent chain is resolved while
// building, but parent data is not merged into the returned record.
func (s *Service) DimByName(ctx context.Context, org, dimType, name, dimContext string) (map[string]interface{}, error) {
	b := dim.NewBuilder(org, dimType, s.cfg.DimRelations, s.factoryFor(org))
	b.WithName(name)
	if dimContext != "" {
		b.WithContext(dimContext)
	}

	d, err := b.FullBuild(ctx)
	if err != nil {
		return nil, err
	}

	return ok("dimByName", map[string]interface{}{"type": d.Type, "name": d.Name, "data": d.Data}), nil
}

// DimsByParent returns the kids of one dim: the next dimension type in the
// relation chain and the names of every dim whose parent is this one.
func (s *Service) DimsByParent(ctx context.Context, org, dimType, name string) (map[string]interface{}, error) {
	b := dim.NewBuilder(org, dimType, s.cfg.DimRelations, s.factoryFor(org))
	b.WithName(name)

	d, err := b.FullBuild(ctx)
	if err != nil {
		return nil, err
	}

	childType := s.nextDimType(dimType)
	names := make([]string, 0, len(d.Kids))
	for _, kid := range d.Kids {
		parts := strings.SplitN(kid, ":", 2)
		if len(parts) == 2 {
			names = append(names, parts[1])
		}
	}

	return ok("dimsByParent", map[string]interface{}{
		"parent_type": dimType,
		"parent_name": name,
		"data": map[string]interface{}{
			"dim_type":  childType,
			"dim_names": names,
		},
	}), nil
}

// DimParent returns the full parent record, or an error envelope if this
// dim has no parent.
func (s *Service) DimParent(ctx context.Context, org, dimType, name string) (map[string]interface{}, error) {
	b := dim.NewBuilder(org, dimType, s.cfg.DimRelations, s.factoryFor(org))
	b.WithName(name)

	d, err := b.FullBuild(ctx)
	if err != nil {
		return nil, err
	}

	if d.Parent == nil {
		return errEnvelope("dimParent", "No parent dim found"), nil
	}

	return ok("dimParent", map[string]interface{}{
		"type": d.Parent.Type,
		"name": d.Parent.Name,
		"data": d.Parent.Data,
	}), nil
}

// Orgs lists configured organisations, excluding the reserved pseudo-org
// names (SPEC_FULL.md §C.3). When dlogClient is non-nil, the list is read
// live from the database server instead of static config, matching the
// DB-backend branch of the original query.
func (s *Service) Orgs(ctx context.Context) (map[string]interface{}, error) {
	if s.dlogClient != nil {
		orgs, err := datasource.Orgs(ctx, s.dlogClient)
		if err != nil {
			return nil, err
		}
		return ok("orgs", map[string]interface{}{"data": orgs}), nil
	}

	var orgs []string
	for _, o := range s.cfg.Orgs {
		if orgsExclusionList[strings.ToLower(o)] {
			continue
		}
		orgs = append(orgs, o)
	}
	return ok("orgs", map[string]interface{}{"data": orgs}), nil
}

var orgsExclusionList = map[string]bool{
	"admin":  true,
	"local":  true,
	"config": true,
	"test":   true,
}

// KeyValue is one dlog search filter pair, e.g. {Key: "env", Value: "prod"}.
type KeyValue struct {
	Key   string
	Value string
}

// Dlog searches the audit log of org, filtering on the given key/value
// pairs (converted to dot notation, per spec.md §4.3), sorted by timestamp
// descending, limited to limit (default 10 when limit <= 0).
func (s *Service) Dlog(ctx context.Context, org string, filters []KeyValue, limit int) (map[string]interface{}, error) {
	if s.dlogClient == nil {
		return errEnvelope("dlog", fmt.Sprintf("Can't connect to dlog DB for org %s", org)), nil
	}
	if limit <= 0 {
		limit = 10
	}

	filter := bson.M{}
	for _, kv := range filters {
		filter[toDotNotationKey(kv.Key)] = kv.Value
	}

	collection := s.dlogClient.Database(org).Collection("dlog")
	findOpts := options.Find().SetSort(bson.M{"timestamp": -1}).SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	results := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		delete(doc, "_id")
		results = append(results, doc)
	}

	return ok("dlog", map[string]interface{}{
		"data":   results,
		"limit":  limit,
		"filter": filter,
	}), nil
}

// toDotNotationKey mirrors the im/mod.rs "to_dot_notation" helper for the
// simple case of a single already-dotted key coming from the "key:value"
// CLI flag form; nested-object flattening is unnecessary here because the
// caller supplies already-flat keys.
func toDotNotationKey(key string) string {
	return key
}

func (s *Service) factoryFor(org string) func(dimType string) (datasource.DataSource, error) {
	return func(dimType string) (datasource.DataSource, error) {
		return s.newDataSource(org, dimType)
	}
}

func (s *Service) rootDimType() string {
	if len(s.cfg.DimRelations) == 0 {
		return ""
	}
	return s.cfg.DimRelations[0]
}

func (s *Service) nextDimType(dimType string) string {
	for i, t := range s.cfg.DimRelations {
		if t == dimType && i+1 < len(s.cfg.DimRelations) {
			return s.cfg.DimRelations[i+1]
		}
	}
	return ""
}

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/studysync/studysync/pkg/logger"
)

// Mongo implements Store on a MongoDB database. Standing subscriptions use
// change streams when the deployment supports them (replica set) and fall
// back to polling otherwise. Compound queries carry an index hint so a
// missing index surfaces as a PreconditionError instead of a collection scan.
type Mongo struct {
	db           *mongo.Database
	pollInterval time.Duration
}

// NewMongo wraps the given database. pollInterval bounds snapshot staleness
// on deployments without change streams; zero selects a 2s default.
func NewMongo(db *mongo.Database, pollInterval time.Duration) *Mongo {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Mongo{db: db, pollInterval: pollInterval}
}

// IndexSpec declares an index a collection's queries rely on.
type IndexSpec struct {
	Collection string
	Keys       []IndexKey
	Unique     bool
}

type IndexKey struct {
	Field string
	Desc  bool
}

// EnsureIndexes creates the declared indexes (idempotent).
func (m *Mongo) EnsureIndexes(ctx context.Context, specs []IndexSpec) error {
	for _, spec := range specs {
		keys := bson.D{}
		for _, k := range spec.Keys {
			dir := 1
			if k.Desc {
				dir = -1
			}
			keys = append(keys, bson.E{Key: k.Field, Value: dir})
		}
		model := mongo.IndexModel{Keys: keys}
		if spec.Unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := m.db.Collection(spec.Collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("ensure index on %s: %w", spec.Collection, err)
		}
	}
	return nil
}

func (m *Mongo) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := m.Put(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Mongo) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	doc := bson.M{"_id": id}
	for k, v := range fields {
		doc[k] = v
	}
	if _, err := m.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": id}, doc, options.Replace().SetUpsert(true)); err != nil {
		return &WriteError{Collection: collection, Op: "put", Cause: err}
	}
	return nil
}

func (m *Mongo) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	res, err := m.db.Collection(collection).UpdateByID(ctx, id, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return &WriteError{Collection: collection, Op: "update", Cause: err}
	}
	if res.MatchedCount == 0 {
		return &WriteError{Collection: collection, Op: "update", Cause: ErrNotFound}
	}
	return nil
}

func (m *Mongo) Query(ctx context.Context, q Query) ([]Document, error) {
	filter := bson.D{}
	for _, f := range q.Filters {
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}
	opts := options.Find()
	if q.Order != nil {
		dir := 1
		if q.Order.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.Order.Field, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	// Compound filtered+ordered reads must be index-backed; hint by name so
	// a missing index fails fast with an actionable classification.
	hint := compoundIndexName(q)
	if hint != "" {
		opts.SetHint(hint)
	}

	cur, err := m.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, classifyQueryErr(q, hint, err)
	}
	defer cur.Close(ctx)

	out := []Document{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, &QueryError{Collection: q.Collection, Cause: err}
		}
		doc := Document{Fields: make(map[string]any, len(raw))}
		for k, v := range raw {
			if k == "_id" {
				if s, ok := v.(string); ok {
					doc.ID = s
				} else {
					doc.ID = fmt.Sprintf("%v", v)
				}
				continue
			}
			doc.Fields[k] = v
		}
		out = append(out, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, classifyQueryErr(q, hint, err)
	}
	return out, nil
}

func (m *Mongo) Subscribe(ctx context.Context, q Query, deliver func(Snapshot)) (CancelFunc, error) {
	subCtx, cancelCtx := context.WithCancel(context.Background())
	s := &mongoSub{
		store:   m,
		query:   q,
		deliver: deliver,
		ctx:     subCtx,
	}
	go s.run()

	var once sync.Once
	return func() { once.Do(cancelCtx) }, nil
}

type mongoSub struct {
	store   *Mongo
	query   Query
	deliver func(Snapshot)
	ctx     context.Context
}

func (s *mongoSub) run() {
	// initial snapshot; a failing query terminates the subscription with a
	// sticky error the consumer must surface
	if !s.redeliver() {
		return
	}

	stream, err := s.store.db.Collection(s.query.Collection).Watch(s.ctx, mongo.Pipeline{})
	if err != nil {
		logger.Warnf("change stream unavailable for %s, falling back to polling: %v", s.query.Collection, err)
		s.poll()
		return
	}
	defer stream.Close(context.Background())

	for stream.Next(s.ctx) {
		if !s.redeliver() {
			return
		}
	}
	if err := stream.Err(); err != nil && s.ctx.Err() == nil {
		s.deliver(Snapshot{Err: &QueryError{Collection: s.query.Collection, Cause: err}})
	}
}

// poll re-runs the query on an interval and delivers only when the result
// set changed, preserving the one-snapshot-per-observed-mutation contract.
func (s *mongoSub) poll() {
	var last []Document
	first := true
	t := time.NewTicker(s.store.pollInterval)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			docs, err := s.store.Query(s.ctx, s.query)
			if err != nil {
				if s.ctx.Err() == nil {
					s.deliver(Snapshot{Err: err})
				}
				return
			}
			if first || !sameDocs(last, docs) {
				first = false
				last = docs
				s.deliver(Snapshot{Docs: docs})
			}
		}
	}
}

// redeliver runs the query and pushes a snapshot; false means the
// subscription is over (canceled or failed).
func (s *mongoSub) redeliver() bool {
	docs, err := s.store.Query(s.ctx, s.query)
	if err != nil {
		if s.ctx.Err() == nil {
			s.deliver(Snapshot{Err: err})
		}
		return false
	}
	s.deliver(Snapshot{Docs: docs})
	return true
}

func sameDocs(a, b []Document) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || len(a[i].Fields) != len(b[i].Fields) {
			return false
		}
		for k, v := range a[i].Fields {
			if fmt.Sprintf("%v", b[i].Fields[k]) != fmt.Sprintf("%v", v) {
				return false
			}
		}
	}
	return true
}

// compoundIndexName derives the driver-default index name for a
// filtered+ordered query. Single-field reads return "" (no hint needed).
func compoundIndexName(q Query) string {
	if len(q.Filters) == 0 || q.Order == nil {
		return ""
	}
	parts := make([]string, 0, len(q.Filters)+1)
	for _, f := range q.Filters {
		if f.Field == "_id" {
			return ""
		}
		parts = append(parts, f.Field+"_1")
	}
	dir := "_1"
	if q.Order.Desc {
		dir = "_-1"
	}
	parts = append(parts, q.Order.Field+dir)
	return strings.Join(parts, "_")
}

func classifyQueryErr(q Query, hint string, err error) error {
	if hint != "" && strings.Contains(err.Error(), "hint provided does not correspond to an existing index") {
		return &PreconditionError{Collection: q.Collection, Index: hint, Cause: err}
	}
	var cmdErr mongo.CommandError
	if hint != "" && errors.As(err, &cmdErr) && cmdErr.Name == "BadValue" {
		return &PreconditionError{Collection: q.Collection, Index: hint, Cause: err}
	}
	return &QueryError{Collection: q.Collection, Cause: err}
}

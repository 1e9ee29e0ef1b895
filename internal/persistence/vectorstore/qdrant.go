package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"typologyrag/internal/obs"
	"typologyrag/internal/rag/errs"
)

// payloadIDField stores the caller-supplied point id under its original
// string form, since Qdrant point ids must be a UUID or an unsigned
// integer.
const payloadIDField = "_original_id"

const (
	upsertMaxRetries = 3
	upsertBaseBackoff = 150 * time.Millisecond
)

// QdrantStore is a VectorStore backed by Qdrant over gRPC.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dim        int
	log        obs.Logger
	metrics    obs.Metrics
}

// QdrantOption configures a QdrantStore.
type QdrantOption func(*QdrantStore)

func WithLogger(l obs.Logger) QdrantOption   { return func(s *QdrantStore) { s.log = l } }
func WithMetrics(m obs.Metrics) QdrantOption { return func(s *QdrantStore) { s.metrics = m } }

// NewQdrant connects to dsn ("host:port"), ensures the collection
// exists with the given dimension/distance, and returns a QdrantStore.
func NewQdrant(ctx context.Context, dsn, apiKey, collection string, dim int, opts ...QdrantOption) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid vector store dsn %q: %v", errs.ErrConfig, dsn, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid vector store port %q: %v", errs.ErrConfig, portStr, err)
	}

	cfg := &qdrant.Config{Host: host, Port: port}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to qdrant at %q: %v", errs.ErrConfig, dsn, err)
	}

	s := &QdrantStore{
		client:     client,
		collection: collection,
		dim:        dim,
		log:        obs.NoopLogger{},
		metrics:    obs.NoopMetrics{},
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: check collection %q: %v", errs.ErrConfig, s.collection, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %q: %v", errs.ErrConfig, s.collection, err)
	}
	return nil
}

func (s *QdrantStore) Dimension() int        { return s.dim }
func (s *QdrantStore) ArrayCapability() bool { return true }
func (s *QdrantStore) Close() error          { return s.client.Close() }

// Upsert writes points in batches of at most 100, retrying each failed
// batch up to 3 times with exponential backoff, whatever the error
// (§4.7's batching policy).
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	const batchSize = 100
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		if err := s.upsertBatchWithRetry(ctx, points[start:end]); err != nil {
			return fmt.Errorf("%w: upsert batch [%d:%d): %v", errs.ErrPartialIndex, start, end, err)
		}
	}
	return nil
}

func (s *QdrantStore) upsertBatchWithRetry(ctx context.Context, batch []Point) error {
	qpoints := make([]*qdrant.PointStruct, len(batch))
	for i, p := range batch {
		qpoints[i] = toQdrantPoint(p)
	}

	var lastErr error
	for attempt := 0; attempt <= upsertMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(upsertBaseBackoff * time.Duration(1<<uint(attempt-1))):
			}
		}
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         qpoints,
		})
		if err == nil {
			return nil
		}
		lastErr = err
		s.metrics.IncCounter("vectorstore_upsert_retry_total", map[string]string{"backend": "qdrant"})
	}
	return lastErr
}

func toQdrantPoint(p Point) *qdrant.PointStruct {
	uuidStr := p.ID
	if _, err := uuid.Parse(p.ID); err != nil {
		uuidStr = uuid.NewSHA1(uuid.NameSpaceOID, []byte(p.ID)).String()
	}

	payload := make(map[string]any, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		payload[k] = v
	}
	if uuidStr != p.ID {
		payload[payloadIDField] = p.ID
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(uuidStr),
		Vectors: qdrant.NewVectorsDense(p.Vector),
		Payload: qdrant.NewValueMap(payload),
	}
}

// DeleteByDocID deletes every point whose doc_id metadata equals docID.
func (s *QdrantStore) DeleteByDocID(ctx context.Context, docID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docID)},
		}),
	})
	if err != nil {
		s.log.Error("vectorstore_delete_error", map[string]any{"doc_id": docID, "err": err.Error()})
	}
	return err
}

// Query runs a top-k similarity search constrained by filter.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Result, error) {
	if k <= 0 {
		k = 10
	}
	limit := uint64(k)
	qf := compileFilter(filter)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		Filter:         qf,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(points))
	for i, p := range points {
		out[i] = Result{
			ID:       originalID(p),
			Score:    p.Score,
			Metadata: fromQdrantPayload(p.Payload),
		}
	}
	return out, nil
}

func originalID(p *qdrant.ScoredPoint) string {
	if p.Payload != nil {
		if v, ok := p.Payload[payloadIDField]; ok {
			return v.GetStringValue()
		}
	}
	uuidStr := p.Id.GetUuid()
	if uuidStr == "" {
		uuidStr = p.Id.String()
	}
	return uuidStr
}

func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == payloadIDField {
			continue
		}
		out[k] = qdrantValueToAny(v)
	}
	return out
}

func qdrantValueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return int(kind.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.GetStringValue()
		}
		return out
	default:
		return v.GetStringValue()
	}
}

// compileFilter translates our Filter algebra into a qdrant.Filter tree.
// $contains is compiled as a MatchAny condition against an array-valued
// payload field, which Qdrant supports natively — this backend's
// ArrayCapability() is therefore true and never needs the joined-string
// emulation in memory.go (NewInMemoryNoArraySupport).
func compileFilter(f Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}
	var must []*qdrant.Condition

	for k, v := range f.Eq {
		must = append(must, qdrant.NewMatch(k, v))
	}
	for k, vals := range f.In {
		must = append(must, qdrant.NewMatchKeywords(k, vals...))
	}
	for k, vals := range f.Contains {
		must = append(must, qdrant.NewMatchKeywords(k, vals))
	}
	for k, v := range f.Ne {
		must = append(must, qdrant.NewMatchExcept(k, v))
	}
	for _, sub := range f.And {
		if c := compileFilter(sub); c != nil {
			must = append(must, qdrant.NewFilterAsCondition(c))
		}
	}

	var should []*qdrant.Condition
	for _, sub := range f.Or {
		if c := compileFilter(sub); c != nil {
			should = append(should, qdrant.NewFilterAsCondition(c))
		}
	}

	return &qdrant.Filter{Must: must, Should: should}
}

package vectorstore

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// InMemory is a VectorStore backed by a plain map, used in tests and
// local development in place of Qdrant. It supports native array
// containment (arrayCapable true by construction) unless constructed
// via NewInMemoryNoArraySupport, which exercises the joined-string
// emulation path a capability-less backend would need.
type InMemory struct {
	mu           sync.RWMutex
	dim          int
	arrayCapable bool
	points       map[string]Point
}

// NewInMemory constructs an in-memory store that supports native array
// containment for Filter.Contains.
func NewInMemory(dim int) *InMemory {
	return &InMemory{dim: dim, arrayCapable: true, points: make(map[string]Point)}
}

// NewInMemoryNoArraySupport constructs an in-memory store whose
// ArrayCapability() reports false, so callers exercise the
// joined-string emulation path for Filter.Contains: metadata values
// that are string slices get joined with joinSep at write time, and
// Contains splits the stored string on joinSep at query time and
// requires an exact match against one part (§6.5's fallback for
// backends without native array containment).
func NewInMemoryNoArraySupport(dim int) *InMemory {
	return &InMemory{dim: dim, arrayCapable: false, points: make(map[string]Point)}
}

const joinSep = "\x1f"

func (s *InMemory) Dimension() int        { return s.dim }
func (s *InMemory) ArrayCapability() bool { return s.arrayCapable }
func (s *InMemory) Close() error          { return nil }

func (s *InMemory) Upsert(_ context.Context, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		stored := p
		if !s.arrayCapable {
			stored.Metadata = joinArrayFields(p.Metadata)
		}
		s.points[p.ID] = stored
	}
	return nil
}

func joinArrayFields(md map[string]any) map[string]any {
	if md == nil {
		return nil
	}
	out := make(map[string]any, len(md))
	for k, v := range md {
		if arr, ok := v.([]string); ok {
			out[k] = strings.Join(arr, joinSep)
			continue
		}
		out[k] = v
	}
	return out
}

func (s *InMemory) DeleteByDocID(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.points {
		if p.Metadata["doc_id"] == docID {
			delete(s.points, id)
		}
	}
	return nil
}

func (s *InMemory) Query(_ context.Context, vector []float32, k int, filter Filter) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []Result
	for _, p := range s.points {
		if !matches(p.Metadata, filter, s.arrayCapable) {
			continue
		}
		candidates = append(candidates, Result{
			ID:       p.ID,
			Score:    cosineSimilarity(vector, p.Vector),
			Metadata: p.Metadata,
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func matches(md map[string]any, f Filter, arrayCapable bool) bool {
	if f.IsEmpty() {
		return true
	}
	for k, v := range f.Eq {
		if toString(md[k]) != v {
			return false
		}
	}
	for k, v := range f.Ne {
		if toString(md[k]) == v {
			return false
		}
	}
	for k, vals := range f.In {
		if !containsStr(vals, toString(md[k])) {
			return false
		}
	}
	for k, v := range f.Contains {
		if !fieldContains(md[k], v, arrayCapable) {
			return false
		}
	}
	for _, sub := range f.And {
		if !matches(md, sub, arrayCapable) {
			return false
		}
	}
	if len(f.Or) > 0 {
		any := false
		for _, sub := range f.Or {
			if matches(md, sub, arrayCapable) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

// fieldContains implements Filter.Contains against a stored field that
// may be a native []string (arrayCapable backends, or when the caller
// stored one directly) or a joinSep-joined string (the emulation path
// used by NewInMemoryNoArraySupport).
func fieldContains(field any, want string, arrayCapable bool) bool {
	switch v := field.(type) {
	case []string:
		return containsStr(v, want)
	case string:
		if arrayCapable {
			return v == want
		}
		for _, part := range strings.Split(v, joinSep) {
			if part == want {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func containsStr(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

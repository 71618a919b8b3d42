package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Store for tests. It honors the same contract as
// the PostgreSQL implementation, including unique fields, version
// preconditions and access mode, and can inject forced failures by backend
// code.
type Memory struct {
	mu          sync.Mutex
	mode        AccessMode
	collections map[string]*memCollection
	failNext    map[string]string // op -> code
}

type memCollection struct {
	docs         map[string]Document
	uniqueFields []string
}

// NewMemory creates an empty in-memory store.
func NewMemory(mode AccessMode) *Memory {
	return &Memory{
		mode:        mode,
		collections: make(map[string]*memCollection),
		failNext:    make(map[string]string),
	}
}

// FailNext makes the next call of the given operation ("insert", "get",
// "update", "remove", "query", "count") fail with the given backend code.
func (s *Memory) FailNext(op, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = code
}

func (s *Memory) takeFailure(op, collection, id string) error {
	if code, ok := s.failNext[op]; ok {
		delete(s.failNext, op)
		return &Error{Code: code, Collection: collection, Op: op, ItemID: id}
	}
	return nil
}

func (s *Memory) EnsureCollection(ctx context.Context, name string, opts ...CollectionOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == AccessReadOnly {
		return &Error{Code: CodePermissionDenied, Collection: name, Op: "ensureCollection"}
	}
	var cfg CollectionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	col, ok := s.collections[name]
	if !ok {
		col = &memCollection{docs: make(map[string]Document)}
		s.collections[name] = col
	}
	col.uniqueFields = append(col.uniqueFields, cfg.UniqueFields...)
	return nil
}

func (s *Memory) collection(name, op string) (*memCollection, error) {
	col, ok := s.collections[name]
	if !ok {
		return nil, &Error{Code: CodeCollectionNotFound, Collection: name, Op: op}
	}
	return col, nil
}

func (s *Memory) Insert(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("insert", collection, ""); err != nil {
		return nil, err
	}
	if s.mode == AccessReadOnly {
		return nil, &Error{Code: CodePermissionDenied, Collection: collection, Op: "insert"}
	}
	col, err := s.collection(collection, "insert")
	if err != nil {
		return nil, err
	}

	doc := normalizeDoc(fields)
	for _, field := range col.uniqueFields {
		if dupID := col.duplicateOf(field, doc[field], ""); dupID != "" {
			return nil, &Error{Code: CodeItemAlreadyExists, Collection: collection, Op: "insert"}
		}
	}

	now := time.Now().UTC()
	doc[FieldID] = uuid.NewString()
	doc[FieldCreatedAt] = now
	doc[FieldUpdatedAt] = now
	col.docs[doc.ID()] = doc
	return copyDoc(doc), nil
}

func (s *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("get", collection, id); err != nil {
		return nil, err
	}
	col, err := s.collection(collection, "get")
	if err != nil {
		return nil, err
	}
	doc, ok := col.docs[id]
	if !ok {
		return nil, &Error{Code: CodeItemNotFound, Collection: collection, Op: "get", ItemID: id}
	}
	return copyDoc(doc), nil
}

func (s *Memory) Update(ctx context.Context, collection, id string, fields map[string]any, opts ...UpdateOption) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("update", collection, id); err != nil {
		return nil, err
	}
	if s.mode == AccessReadOnly {
		return nil, &Error{Code: CodePermissionDenied, Collection: collection, Op: "update", ItemID: id}
	}
	col, err := s.collection(collection, "update")
	if err != nil {
		return nil, err
	}
	doc, ok := col.docs[id]
	if !ok {
		return nil, &Error{Code: CodeItemNotFound, Collection: collection, Op: "update", ItemID: id}
	}

	var cfg UpdateConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ExpectVersion != nil && !numEq(doc["version"], *cfg.ExpectVersion) {
		return nil, &Error{Code: CodeVersionMismatch, Collection: collection, Op: "update", ItemID: id}
	}

	patch := normalizeDoc(fields)
	for _, field := range col.uniqueFields {
		v, changed := patch[field]
		if !changed {
			continue
		}
		if dupID := col.duplicateOf(field, v, id); dupID != "" {
			return nil, &Error{Code: CodeItemAlreadyExists, Collection: collection, Op: "update", ItemID: id}
		}
	}

	for k, v := range patch {
		doc[k] = v
	}
	doc[FieldUpdatedAt] = time.Now().UTC()
	return copyDoc(doc), nil
}

func (s *Memory) Remove(ctx context.Context, collection, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("remove", collection, id); err != nil {
		return nil, err
	}
	if s.mode == AccessReadOnly {
		return nil, &Error{Code: CodePermissionDenied, Collection: collection, Op: "remove", ItemID: id}
	}
	col, err := s.collection(collection, "remove")
	if err != nil {
		return nil, err
	}
	doc, ok := col.docs[id]
	if !ok {
		return nil, &Error{Code: CodeItemNotFound, Collection: collection, Op: "remove", ItemID: id}
	}
	delete(col.docs, id)
	return doc, nil
}

func (s *Memory) Query(ctx context.Context, collection string, q *Query) (QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("query", collection, ""); err != nil {
		return QueryResult{}, err
	}
	col, err := s.collection(collection, "query")
	if err != nil {
		return QueryResult{}, err
	}
	if q == nil {
		q = NewQuery()
	}
	if q.limit < 0 || q.skip < 0 {
		return QueryResult{}, &Error{Code: CodeInvalidPagination, Collection: collection, Op: "query"}
	}

	var matched []Document
	for _, doc := range col.docs {
		if matches(q, doc) {
			matched = append(matched, doc)
		}
	}
	sortDocs(matched, q.sorts)

	total := int64(len(matched))
	if q.skip > 0 {
		if q.skip >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.skip:]
		}
	}
	if q.limit > 0 && len(matched) > q.limit {
		matched = matched[:q.limit]
	}

	result := QueryResult{}
	for _, doc := range matched {
		result.Items = append(result.Items, copyDoc(doc))
	}
	if q.withTotal {
		result.Total = total
		result.HasTotal = true
	}
	return result, nil
}

func (s *Memory) Count(ctx context.Context, collection string, q *Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("count", collection, ""); err != nil {
		return 0, err
	}
	col, err := s.collection(collection, "count")
	if err != nil {
		return 0, err
	}
	if q == nil {
		q = NewQuery()
	}
	var total int64
	for _, doc := range col.docs {
		if matches(q, doc) {
			total++
		}
	}
	return total, nil
}

func (c *memCollection) duplicateOf(field string, value any, exceptID string) string {
	if value == nil {
		return ""
	}
	for id, doc := range c.docs {
		if id == exceptID {
			continue
		}
		if valueEq(doc[field], value) {
			return id
		}
	}
	return ""
}

func matches(q *Query, doc Document) bool {
	if matchFilters(q.filters, doc) {
		return true
	}
	for _, sub := range q.ors {
		if matchFilters(sub.filters, doc) {
			return true
		}
	}
	return false
}

func matchFilters(filters []filter, doc Document) bool {
	for _, f := range filters {
		v := doc[f.field]
		switch f.op {
		case opEq:
			if !valueEq(v, f.value) {
				return false
			}
		case opContains:
			s, _ := v.(string)
			sub, _ := f.value.(string)
			if !strings.Contains(strings.ToLower(s), strings.ToLower(sub)) {
				return false
			}
		case opGe:
			if compareValues(v, f.value) < 0 {
				return false
			}
		case opLe:
			if compareValues(v, f.value) > 0 {
				return false
			}
		case opBetween:
			if compareValues(v, f.value) < 0 || compareValues(v, f.upper) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sortDocs(docs []Document, sorts []sortSpec) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range sorts {
			c := compareValues(docs[i][s.field], docs[j][s.field])
			if c == 0 {
				continue
			}
			if s.descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// normalizeDoc round-trips fields through JSON so in-memory documents have
// the same shapes (float64 numbers, map[string]any) as JSONB-backed ones.
func normalizeDoc(fields map[string]any) Document {
	raw, err := json.Marshal(fields)
	if err != nil {
		doc := Document{}
		for k, v := range fields {
			doc[k] = v
		}
		return doc
	}
	doc := Document{}
	_ = json.Unmarshal(raw, &doc)
	return doc
}

func copyDoc(doc Document) Document {
	out := Document{}
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func valueEq(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b) && (a == nil) == (b == nil)
}

func numEq(a any, n int) bool {
	f, ok := toFloat(a)
	return ok && f == float64(n)
}

func compareValues(a, b any) int {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

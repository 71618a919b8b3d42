package datastore

// Filter operators supported by the store's minimal relational-filter DSL.
const (
	opEq       = "eq"
	opContains = "contains"
	opGe       = "ge"
	opLe       = "le"
	opBetween  = "between"
)

type filter struct {
	op    string
	field string
	value any
	upper any // only for between
}

type sortSpec struct {
	field      string
	descending bool
}

// Query is a composable predicate over one collection. The zero value via
// NewQuery matches everything. Builder methods return the receiver.
type Query struct {
	filters    []filter
	ors        []*Query
	sorts      []sortSpec
	limit      int
	skip       int
	withTotal  bool
	consistent bool
}

// NewQuery returns an empty query matching all documents.
func NewQuery() *Query {
	return &Query{}
}

// Eq matches documents whose field equals value.
func (q *Query) Eq(field string, value any) *Query {
	q.filters = append(q.filters, filter{op: opEq, field: field, value: value})
	return q
}

// Contains matches documents whose string field contains substr
// (case-insensitive).
func (q *Query) Contains(field, substr string) *Query {
	q.filters = append(q.filters, filter{op: opContains, field: field, value: substr})
	return q
}

// Ge matches documents whose field is >= value.
func (q *Query) Ge(field string, value any) *Query {
	q.filters = append(q.filters, filter{op: opGe, field: field, value: value})
	return q
}

// Le matches documents whose field is <= value.
func (q *Query) Le(field string, value any) *Query {
	q.filters = append(q.filters, filter{op: opLe, field: field, value: value})
	return q
}

// Between matches documents whose field is within [low, high].
func (q *Query) Between(field string, low, high any) *Query {
	q.filters = append(q.filters, filter{op: opBetween, field: field, value: low, upper: high})
	return q
}

// Or widens the query: a document matches if it satisfies either the
// receiver's own filters or the sub-query's.
func (q *Query) Or(sub *Query) *Query {
	q.ors = append(q.ors, sub)
	return q
}

// Ascending sorts results by field, ascending. May be chained for
// multi-field ordering.
func (q *Query) Ascending(field string) *Query {
	q.sorts = append(q.sorts, sortSpec{field: field})
	return q
}

// Descending sorts results by field, descending.
func (q *Query) Descending(field string) *Query {
	q.sorts = append(q.sorts, sortSpec{field: field, descending: true})
	return q
}

// Limit caps the number of returned documents.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Skip offsets into the result set for pagination.
func (q *Query) Skip(n int) *Query {
	q.skip = n
	return q
}

// WithTotalCount asks the store to also compute the total match count.
func (q *Query) WithTotalCount() *Query {
	q.withTotal = true
	return q
}

// Consistent requests read-your-writes consistency where the backend
// distinguishes consistency levels. The SQL backend is always consistent.
func (q *Query) Consistent() *Query {
	q.consistent = true
	return q
}

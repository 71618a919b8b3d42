package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxDocBytes caps the serialized size of a single document.
const maxDocBytes = 512 * 1024

// Postgres implements Store on top of PostgreSQL, one JSONB table per
// collection. Each table is ds_<collection> with (id, data, created_at,
// updated_at) columns; unique fields become unique expression indexes.
type Postgres struct {
	pool *pgxpool.Pool
	mode AccessMode
}

// NewPostgres wraps an existing connection pool. The access mode is an
// explicit capability; see AccessMode.
func NewPostgres(pool *pgxpool.Pool, mode AccessMode) *Postgres {
	return &Postgres{pool: pool, mode: mode}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, connString string, mode AccessMode) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Postgres{pool: pool, mode: mode}, nil
}

// Close releases the underlying pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

var collectionNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func tableName(collection string) (string, bool) {
	if !collectionNameRe.MatchString(collection) {
		return "", false
	}
	return "ds_" + collection, true
}

// EnsureCollection creates the collection table and its unique-field
// indexes if absent.
func (s *Postgres) EnsureCollection(ctx context.Context, name string, opts ...CollectionOption) error {
	if s.mode == AccessReadOnly {
		return &Error{Code: CodePermissionDenied, Collection: name, Op: "ensureCollection"}
	}
	table, ok := tableName(name)
	if !ok {
		return &Error{Code: CodeInvalidQuery, Collection: name, Op: "ensureCollection", Err: errors.New("bad collection name")}
	}

	var cfg CollectionConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         text PRIMARY KEY,
			data       jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now()
		)`, table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return s.wrap(err, name, "ensureCollection", "")
	}

	for _, field := range cfg.UniqueFields {
		if !fieldNameRe.MatchString(field) {
			return &Error{Code: CodeInvalidQuery, Collection: name, Op: "ensureCollection", Err: fmt.Errorf("bad field name %q", field)}
		}
		idx := fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s_%s_key ON %s ((data->>'%s'))",
			table, strings.ToLower(field), table, field,
		)
		if _, err := s.pool.Exec(ctx, idx); err != nil {
			return s.wrap(err, name, "ensureCollection", "")
		}
	}
	return nil
}

func (s *Postgres) Insert(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	if s.mode == AccessReadOnly {
		return nil, &Error{Code: CodePermissionDenied, Collection: collection, Op: "insert"}
	}
	table, ok := tableName(collection)
	if !ok {
		return nil, &Error{Code: CodeInvalidQuery, Collection: collection, Op: "insert"}
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, &Error{Code: CodeInvalidItem, Collection: collection, Op: "insert", Err: err}
	}
	if len(raw) > maxDocBytes {
		return nil, &Error{Code: CodeItemTooLarge, Collection: collection, Op: "insert"}
	}

	id := uuid.NewString()
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("INSERT INTO %s (id, data) VALUES ($1, $2) RETURNING data, created_at, updated_at", table),
		id, raw,
	)
	doc, err := scanDocument(row, id)
	if err != nil {
		return nil, s.wrap(err, collection, "insert", id)
	}
	return doc, nil
}

func (s *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	table, ok := tableName(collection)
	if !ok {
		return nil, &Error{Code: CodeInvalidQuery, Collection: collection, Op: "get"}
	}
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT data, created_at, updated_at FROM %s WHERE id = $1", table), id)
	doc, err := scanDocument(row, id)
	if err != nil {
		return nil, s.wrap(err, collection, "get", id)
	}
	return doc, nil
}

func (s *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any, opts ...UpdateOption) (Document, error) {
	if s.mode == AccessReadOnly {
		return nil, &Error{Code: CodePermissionDenied, Collection: collection, Op: "update", ItemID: id}
	}
	table, ok := tableName(collection)
	if !ok {
		return nil, &Error{Code: CodeInvalidQuery, Collection: collection, Op: "update"}
	}

	var cfg UpdateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, &Error{Code: CodeInvalidItem, Collection: collection, Op: "update", ItemID: id, Err: err}
	}
	if len(raw) > maxDocBytes {
		return nil, &Error{Code: CodeItemTooLarge, Collection: collection, Op: "update", ItemID: id}
	}

	sql := fmt.Sprintf("UPDATE %s SET data = data || $2, updated_at = now() WHERE id = $1", table)
	args := []any{id, raw}
	if cfg.ExpectVersion != nil {
		sql += " AND (data->>'version')::int = $3"
		args = append(args, *cfg.ExpectVersion)
	}
	sql += " RETURNING data, created_at, updated_at"

	doc, err := scanDocument(s.pool.QueryRow(ctx, sql, args...), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) && cfg.ExpectVersion != nil {
			// Distinguish a stale version from a missing document.
			var exists bool
			checkErr := s.pool.QueryRow(ctx,
				fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table), id).Scan(&exists)
			if checkErr == nil && exists {
				return nil, &Error{Code: CodeVersionMismatch, Collection: collection, Op: "update", ItemID: id}
			}
		}
		return nil, s.wrap(err, collection, "update", id)
	}
	return doc, nil
}

func (s *Postgres) Remove(ctx context.Context, collection, id string) (Document, error) {
	if s.mode == AccessReadOnly {
		return nil, &Error{Code: CodePermissionDenied, Collection: collection, Op: "remove", ItemID: id}
	}
	table, ok := tableName(collection)
	if !ok {
		return nil, &Error{Code: CodeInvalidQuery, Collection: collection, Op: "remove"}
	}
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = $1 RETURNING data, created_at, updated_at", table), id)
	doc, err := scanDocument(row, id)
	if err != nil {
		return nil, s.wrap(err, collection, "remove", id)
	}
	return doc, nil
}

func (s *Postgres) Query(ctx context.Context, collection string, q *Query) (QueryResult, error) {
	table, ok := tableName(collection)
	if !ok {
		return QueryResult{}, &Error{Code: CodeInvalidQuery, Collection: collection, Op: "query"}
	}
	if q == nil {
		q = NewQuery()
	}
	if q.limit < 0 || q.skip < 0 {
		return QueryResult{}, &Error{Code: CodeInvalidPagination, Collection: collection, Op: "query"}
	}

	where, args, err := compileWhere(q)
	if err != nil {
		return QueryResult{}, &Error{Code: CodeInvalidQuery, Collection: collection, Op: "query", Err: err}
	}

	sql := fmt.Sprintf("SELECT id, data, created_at, updated_at FROM %s WHERE %s", table, where)
	orderBy, err := compileOrder(q)
	if err != nil {
		return QueryResult{}, &Error{Code: CodeInvalidQuery, Collection: collection, Op: "query", Err: err}
	}
	sql += orderBy
	if q.limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", q.limit)
	}
	if q.skip > 0 {
		sql += fmt.Sprintf(" OFFSET %d", q.skip)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return QueryResult{}, s.wrap(err, collection, "query", "")
	}
	defer rows.Close()

	var result QueryResult
	for rows.Next() {
		var (
			id        string
			raw       []byte
			createdAt, updatedAt any
		)
		if err := rows.Scan(&id, &raw, &createdAt, &updatedAt); err != nil {
			return QueryResult{}, s.wrap(err, collection, "query", "")
		}
		doc, err := decodeDocument(raw, id, createdAt, updatedAt)
		if err != nil {
			return QueryResult{}, s.wrap(err, collection, "query", "")
		}
		result.Items = append(result.Items, doc)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, s.wrap(err, collection, "query", "")
	}

	if q.withTotal {
		total, err := s.Count(ctx, collection, q)
		if err != nil {
			return QueryResult{}, err
		}
		result.Total = total
		result.HasTotal = true
	}
	return result, nil
}

func (s *Postgres) Count(ctx context.Context, collection string, q *Query) (int64, error) {
	table, ok := tableName(collection)
	if !ok {
		return 0, &Error{Code: CodeInvalidQuery, Collection: collection, Op: "count"}
	}
	if q == nil {
		q = NewQuery()
	}
	where, args, err := compileWhere(q)
	if err != nil {
		return 0, &Error{Code: CodeInvalidQuery, Collection: collection, Op: "count", Err: err}
	}
	var total int64
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", table, where), args...).Scan(&total)
	if err != nil {
		return 0, s.wrap(err, collection, "count", "")
	}
	return total, nil
}

// scannable is satisfied by both pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable, id string) (Document, error) {
	var (
		raw                  []byte
		createdAt, updatedAt any
	)
	if err := row.Scan(&raw, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return decodeDocument(raw, id, createdAt, updatedAt)
}

func decodeDocument(raw []byte, id string, createdAt, updatedAt any) (Document, error) {
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc[FieldID] = id
	doc[FieldCreatedAt] = createdAt
	doc[FieldUpdatedAt] = updatedAt
	return doc, nil
}

// compileWhere renders the query filters as a WHERE clause. OR sub-queries
// widen the match: (own filters) OR (sub filters).
func compileWhere(q *Query) (string, []any, error) {
	var args []any

	own, err := compileFilters(q.filters, &args)
	if err != nil {
		return "", nil, err
	}
	if len(q.ors) == 0 {
		return own, args, nil
	}

	branches := []string{"(" + own + ")"}
	for _, sub := range q.ors {
		clause, err := compileFilters(sub.filters, &args)
		if err != nil {
			return "", nil, err
		}
		branches = append(branches, "("+clause+")")
	}
	return strings.Join(branches, " OR "), args, nil
}

func compileFilters(filters []filter, args *[]any) (string, error) {
	if len(filters) == 0 {
		return "TRUE", nil
	}
	var clauses []string
	for _, f := range filters {
		expr, err := fieldExpr(f.field)
		if err != nil {
			return "", err
		}
		switch f.op {
		case opEq:
			raw, err := json.Marshal(f.value)
			if err != nil {
				return "", err
			}
			if sysColumn(f.field) != "" {
				*args = append(*args, f.value)
				clauses = append(clauses, fmt.Sprintf("%s = $%d", expr, len(*args)))
			} else {
				*args = append(*args, raw)
				clauses = append(clauses, fmt.Sprintf("%s = $%d::jsonb", jsonExpr(f.field), len(*args)))
			}
		case opContains:
			sub, _ := f.value.(string)
			*args = append(*args, "%"+escapeLike(sub)+"%")
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", expr, len(*args)))
		case opGe:
			*args = append(*args, f.value)
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", rangeExpr(f.field, f.value), len(*args)))
		case opLe:
			*args = append(*args, f.value)
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", rangeExpr(f.field, f.value), len(*args)))
		case opBetween:
			*args = append(*args, f.value)
			lo := len(*args)
			*args = append(*args, f.upper)
			clauses = append(clauses, fmt.Sprintf("%s BETWEEN $%d AND $%d", rangeExpr(f.field, f.value), lo, lo+1))
		default:
			return "", fmt.Errorf("unsupported operator %q", f.op)
		}
	}
	return strings.Join(clauses, " AND "), nil
}

func compileOrder(q *Query) (string, error) {
	if len(q.sorts) == 0 {
		return "", nil
	}
	var parts []string
	for _, s := range q.sorts {
		expr, err := fieldExpr(s.field)
		if err != nil {
			return "", err
		}
		dir := " ASC"
		if s.descending {
			dir = " DESC"
		}
		parts = append(parts, expr+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// sysColumn maps system fields onto real columns.
func sysColumn(field string) string {
	switch field {
	case FieldID:
		return "id"
	case FieldCreatedAt:
		return "created_at"
	case FieldUpdatedAt:
		return "updated_at"
	}
	return ""
}

// fieldExpr renders a field as a text-valued SQL expression. Field names
// are interpolated, so they are strictly validated.
func fieldExpr(field string) (string, error) {
	if col := sysColumn(field); col != "" {
		return col, nil
	}
	if !fieldNameRe.MatchString(field) {
		return "", fmt.Errorf("bad field name %q", field)
	}
	return fmt.Sprintf("data->>'%s'", field), nil
}

func jsonExpr(field string) string {
	return fmt.Sprintf("data->'%s'", field)
}

// rangeExpr picks a numeric cast for numeric operands so range comparisons
// are not lexicographic.
func rangeExpr(field string, value any) string {
	col := sysColumn(field)
	if col != "" {
		return col
	}
	switch value.(type) {
	case int, int32, int64, float32, float64:
		return fmt.Sprintf("(data->>'%s')::numeric", field)
	}
	return fmt.Sprintf("data->>'%s'", field)
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// wrap translates pgx errors into store errors with backend codes.
func (s *Postgres) wrap(err error, collection, op, itemID string) error {
	if err == nil {
		return nil
	}
	e := &Error{Code: CodeUnknown, Collection: collection, Op: op, ItemID: itemID, Err: err}

	if errors.Is(err, pgx.ErrNoRows) {
		e.Code = CodeItemNotFound
		e.Err = nil
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e.Code = CodeQueryTimeout
		return e
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			e.Code = CodeItemAlreadyExists
		case pgErr.Code == "23503":
			e.Code = CodeReferenceBroken
		case pgErr.Code == "42P01":
			e.Code = CodeCollectionNotFound
		case pgErr.Code == "57014":
			e.Code = CodeQueryTimeout
		case pgErr.Code == "53100", pgErr.Code == "53400", pgErr.Code == "54000":
			e.Code = CodeQuotaExceeded
		case strings.HasPrefix(pgErr.Code, "22"):
			e.Code = CodeFieldInvalid
		case strings.HasPrefix(pgErr.Code, "42"):
			e.Code = CodeInvalidQuery
		case strings.HasPrefix(pgErr.Code, "08"):
			e.Code = CodeExternalConnection
		}
		return e
	}
	return e
}

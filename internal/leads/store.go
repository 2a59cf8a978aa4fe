package leads

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const DefaultLimit = 50

// ListQuery selects a page of leads, newest first.
type ListQuery struct {
	Kind   string
	Status string
	Cursor string
	Limit  int
}

type ListResult struct {
	Items      []Lead `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	Cached     bool   `json:"cached"`
}

// Update carries the back-office fields a PATCH may change.
type Update struct {
	Status  *string `json:"status,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

type cacheItem struct {
	Result  ListResult
	Expires time.Time
}

// Store persists leads in Postgres, or in memory when db is nil.
type Store struct {
	db        *sql.DB
	cacheTTL  time.Duration
	cacheMu   sync.RWMutex
	listCache map[string]cacheItem
	memMu     sync.RWMutex
	memByID   map[string]Lead
	now       func() time.Time
}

func NewStore(db *sql.DB, cacheTTL time.Duration) *Store {
	return &Store{
		db:        db,
		cacheTTL:  cacheTTL,
		listCache: make(map[string]cacheItem),
		memByID:   make(map[string]Lead),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Mode() string {
	if s.db == nil {
		return "memory"
	}
	return "postgres"
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS horeca_leads (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL CHECK (kind IN ('checkout','quiz','consultation')),
			status TEXT NOT NULL CHECK (status IN ('new','contacted','converted','rejected')) DEFAULT 'new',
			name TEXT NOT NULL,
			phone TEXT NOT NULL,
			email TEXT,
			company TEXT,
			comment TEXT,
			items_json TEXT,
			answers_json TEXT,
			total NUMERIC(18,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_created ON horeca_leads (created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_kind_status ON horeca_leads (kind, status)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "ensure leads schema")
		}
	}
	return nil
}

const leadColumns = `id, kind, status, name, phone, email, company, comment, items_json, answers_json, total, created_at, updated_at`

func (s *Store) Create(ctx context.Context, l Lead) error {
	if s.db == nil {
		s.memMu.Lock()
		s.memByID[l.ID] = l
		s.memMu.Unlock()
		s.invalidateCache()
		return nil
	}
	itemsJSON, answersJSON, err := encodeDetails(l)
	if err != nil {
		return err
	}
	q := `INSERT INTO horeca_leads (` + leadColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	if _, err := s.db.ExecContext(ctx, q,
		l.ID, l.Kind, l.Status, l.Name, l.Phone, nilIfEmpty(l.Email), nilIfEmpty(l.Company),
		nilIfEmpty(l.Comment), nilIfEmpty(itemsJSON), nilIfEmpty(answersJSON), l.Total,
		l.CreatedAt, l.UpdatedAt,
	); err != nil {
		return errors.Wrap(err, "insert lead")
	}
	s.invalidateCache()
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Lead, error) {
	if s.db == nil {
		s.memMu.RLock()
		l, ok := s.memByID[id]
		s.memMu.RUnlock()
		if !ok {
			return Lead{}, ErrNotFound
		}
		return l, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM horeca_leads WHERE id=$1`, id)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func (s *Store) List(ctx context.Context, q ListQuery) (ListResult, error) {
	q.Kind = NormalizeKind(q.Kind)
	q.Status = NormalizeStatus(q.Status)
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Cursor == "" {
		if cached, ok := s.getListCache(q); ok {
			cached.Cached = true
			return cached, nil
		}
	}

	if s.db == nil {
		res, err := s.listMemory(q)
		if err != nil {
			return ListResult{}, err
		}
		if q.Cursor == "" {
			s.setListCache(q, res)
		}
		return res, nil
	}

	cursorTime, cursorID, err := parseCursor(q.Cursor)
	if err != nil {
		return ListResult{}, err
	}
	where, args := listFilter(q)
	nextArg := len(args) + 1
	if !cursorTime.IsZero() {
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", nextArg, nextArg+1))
		args = append(args, cursorTime, cursorID)
		nextArg += 2
	}
	args = append(args, q.Limit+1)
	stmt := fmt.Sprintf(`
		SELECT %s
		FROM horeca_leads
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d
	`, leadColumns, whereClause(where), nextArg)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return ListResult{}, errors.Wrap(err, "list leads")
	}
	defer rows.Close()

	items := make([]Lead, 0, q.Limit)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return ListResult{}, err
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, err
	}

	res := page(items, q.Limit)
	if q.Cursor == "" {
		s.setListCache(q, res)
	}
	return res, nil
}

func (s *Store) listMemory(q ListQuery) (ListResult, error) {
	cursorTime, cursorID, err := parseCursor(q.Cursor)
	if err != nil {
		return ListResult{}, err
	}

	s.memMu.RLock()
	items := make([]Lead, 0)
	for _, l := range s.memByID {
		if q.Kind != "" && l.Kind != q.Kind {
			continue
		}
		if q.Status != "" && l.Status != q.Status {
			continue
		}
		if !cursorTime.IsZero() && !(l.CreatedAt.Before(cursorTime) || (l.CreatedAt.Equal(cursorTime) && l.ID < cursorID)) {
			continue
		}
		items = append(items, l)
	}
	s.memMu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return page(items, q.Limit), nil
}

func page(items []Lead, limit int) ListResult {
	res := ListResult{Items: make([]Lead, 0, len(items))}
	if len(items) <= limit {
		res.Items = append(res.Items, items...)
		return res
	}
	res.Items = append(res.Items, items[:limit]...)
	last := items[limit-1]
	res.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	return res
}

func (s *Store) Update(ctx context.Context, id string, u Update) (Lead, error) {
	if u.Status == nil && u.Comment == nil {
		return Lead{}, ErrEmptyUpdate
	}
	var status string
	if u.Status != nil {
		status = NormalizeStatus(*u.Status)
		if status == "" {
			return Lead{}, ErrInvalidStatus
		}
	}
	now := s.now()

	if s.db == nil {
		s.memMu.Lock()
		l, ok := s.memByID[id]
		if !ok {
			s.memMu.Unlock()
			return Lead{}, ErrNotFound
		}
		if u.Status != nil {
			l.Status = status
		}
		if u.Comment != nil {
			l.Comment = strings.TrimSpace(*u.Comment)
		}
		l.UpdatedAt = now
		s.memByID[id] = l
		s.memMu.Unlock()
		s.invalidateCache()
		return l, nil
	}

	assignments := make([]string, 0, 3)
	args := []any{id}
	next := 2
	if u.Status != nil {
		assignments = append(assignments, fmt.Sprintf("status = $%d", next))
		args = append(args, status)
		next++
	}
	if u.Comment != nil {
		assignments = append(assignments, fmt.Sprintf("comment = $%d", next))
		args = append(args, strings.TrimSpace(*u.Comment))
		next++
	}
	assignments = append(assignments, fmt.Sprintf("updated_at = $%d", next))
	args = append(args, now)

	stmt := fmt.Sprintf(`UPDATE horeca_leads SET %s WHERE id = $1`, strings.Join(assignments, ", "))
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return Lead{}, errors.Wrap(err, "update lead")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Lead{}, err
	}
	if affected == 0 {
		return Lead{}, ErrNotFound
	}
	s.invalidateCache()
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		s.memMu.Lock()
		_, ok := s.memByID[id]
		if !ok {
			s.memMu.Unlock()
			return ErrNotFound
		}
		delete(s.memByID, id)
		s.memMu.Unlock()
		s.invalidateCache()
		return nil
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM horeca_leads WHERE id=$1`, id)
	if err != nil {
		return errors.Wrap(err, "delete lead")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.invalidateCache()
	return nil
}

// Explain returns the Postgres plan for the first list page.
func (s *Store) Explain(ctx context.Context, kind, status string) (any, error) {
	if s.db == nil {
		return map[string]any{"mode": "memory", "note": "no SQL plan available"}, nil
	}
	where, args := listFilter(ListQuery{Kind: NormalizeKind(kind), Status: NormalizeStatus(status)})
	planQuery := fmt.Sprintf(`EXPLAIN (ANALYZE FALSE, FORMAT JSON)
		SELECT %s
		FROM horeca_leads
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT 50`, leadColumns, whereClause(where))

	var planRaw []byte
	if err := s.db.QueryRowContext(ctx, planQuery, args...).Scan(&planRaw); err != nil {
		return nil, errors.Wrap(err, "explain leads")
	}
	var parsed any
	if err := json.Unmarshal(planRaw, &parsed); err != nil {
		return string(planRaw), nil
	}
	return parsed, nil
}

func listFilter(q ListQuery) ([]string, []any) {
	var where []string
	var args []any
	if q.Kind != "" {
		args = append(args, q.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	return where, args
}

func whereClause(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(where, " AND ")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (Lead, error) {
	var l Lead
	var email, company, comment, itemsJSON, answersJSON sql.NullString
	if err := row.Scan(&l.ID, &l.Kind, &l.Status, &l.Name, &l.Phone, &email, &company, &comment,
		&itemsJSON, &answersJSON, &l.Total, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return Lead{}, err
	}
	l.Email = email.String
	l.Company = company.String
	l.Comment = comment.String
	if itemsJSON.Valid && itemsJSON.String != "" {
		if err := json.Unmarshal([]byte(itemsJSON.String), &l.Items); err != nil {
			return Lead{}, errors.Wrapf(err, "decode items of lead %s", l.ID)
		}
	}
	if answersJSON.Valid && answersJSON.String != "" {
		if err := json.Unmarshal([]byte(answersJSON.String), &l.Answers); err != nil {
			return Lead{}, errors.Wrapf(err, "decode answers of lead %s", l.ID)
		}
	}
	return l, nil
}

func encodeDetails(l Lead) (string, string, error) {
	var itemsJSON, answersJSON string
	if len(l.Items) > 0 {
		b, err := json.Marshal(l.Items)
		if err != nil {
			return "", "", errors.Wrap(err, "encode lead items")
		}
		itemsJSON = string(b)
	}
	if len(l.Answers) > 0 {
		b, err := json.Marshal(l.Answers)
		if err != nil {
			return "", "", errors.Wrap(err, "encode lead answers")
		}
		answersJSON = string(b)
	}
	return itemsJSON, answersJSON, nil
}

func (s *Store) getListCache(q ListQuery) (ListResult, bool) {
	key := cacheKey(q)
	s.cacheMu.RLock()
	item, ok := s.listCache[key]
	s.cacheMu.RUnlock()
	if !ok || s.now().After(item.Expires) {
		return ListResult{}, false
	}
	return item.Result, true
}

func (s *Store) setListCache(q ListQuery, value ListResult) {
	key := cacheKey(q)
	s.cacheMu.Lock()
	s.listCache[key] = cacheItem{Result: value, Expires: s.now().Add(s.cacheTTL)}
	s.cacheMu.Unlock()
}

func (s *Store) invalidateCache() {
	s.cacheMu.Lock()
	clear(s.listCache)
	s.cacheMu.Unlock()
}

func cacheKey(q ListQuery) string {
	return fmt.Sprintf("%s|%s|%s|%d", q.Kind, q.Status, q.Cursor, q.Limit)
}

func parseCursor(cursor string) (time.Time, string, error) {
	if cursor == "" {
		return time.Time{}, "", nil
	}
	parts := strings.SplitN(cursor, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.Wrap(ErrInvalidCursor, "format")
	}
	n, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", errors.Wrap(ErrInvalidCursor, "timestamp")
	}
	if parts[1] == "" {
		return time.Time{}, "", errors.Wrap(ErrInvalidCursor, "empty id")
	}
	return time.Unix(0, n).UTC(), parts[1], nil
}

func encodeCursor(ts time.Time, id string) string {
	return fmt.Sprintf("%d:%s", ts.UTC().UnixNano(), id)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

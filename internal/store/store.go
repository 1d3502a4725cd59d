package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/mindmorass/clipdeck/internal/item"
	"github.com/mindmorass/clipdeck/internal/store/migrations"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Filter narrows ListItems. Zero values match everything.
type Filter struct {
	Type   item.Type
	Tag    string
	Query  string
	Limit  int
	Offset int
}

// Store persists clipboard items, their tags and templates in SQLite
type Store struct {
	db   *sql.DB
	path string
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema. path may be MemoryPath.
func Open(path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas go in the DSN so every connection the pool opens gets them
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	if path != MemoryPath {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives and dies with its connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database location
func (s *Store) Path() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Items

// AddItem stores a new item with its tags
func (s *Store) AddItem(ctx context.Context, it *item.ClipboardItem) error {
	if err := it.Validate(); err != nil {
		return err
	}
	it.Tags = item.NormalizeTags(it.Tags)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertItem(ctx, tx, it, false); err != nil {
			return err
		}
		return writeTags(ctx, tx, it.ID, it.Tags)
	})
}

func insertItem(ctx context.Context, q querier, it *item.ClipboardItem, ignore bool) error {
	meta, err := encodeMetadata(it.Metadata)
	if err != nil {
		return err
	}
	verb := "INSERT"
	if ignore {
		verb = "INSERT OR IGNORE"
	}
	res, err := q.ExecContext(ctx,
		verb+" INTO items (id, type, content, preview, created_at, metadata) VALUES (?, ?, ?, ?, ?, ?)",
		it.ID, string(it.Type), it.Content, it.Preview, it.CreatedAt, meta,
	)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("item %s: %w", it.ID, ErrExists)
		}
		return fmt.Errorf("insert item: %w", err)
	}
	if ignore {
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("item %s: %w", it.ID, ErrExists)
		}
	}
	return nil
}

// GetItem returns the item with the given id
func (s *Store) GetItem(ctx context.Context, id string) (*item.ClipboardItem, error) {
	return getItem(ctx, s.db, id)
}

func getItem(ctx context.Context, q querier, id string) (*item.ClipboardItem, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, type, content, preview, created_at, metadata FROM items WHERE id = ?", id)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	if err := attachTags(ctx, q, []*item.ClipboardItem{it}); err != nil {
		return nil, err
	}
	return it, nil
}

// ListItems returns items newest first
func (s *Store) ListItems(ctx context.Context, f Filter) ([]*item.ClipboardItem, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		where = append(where, "id IN (SELECT item_id FROM item_tags WHERE tag = ?)")
		args = append(args, tag)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		where = append(where, `(content LIKE ? ESCAPE '\' OR metadata LIKE ? ESCAPE '\' OR id IN (SELECT item_id FROM item_tags WHERE tag LIKE ? ESCAPE '\'))`)
		args = append(args, pattern, pattern, pattern)
	}

	query := "SELECT id, type, content, preview, created_at, metadata FROM items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, max(f.Offset, 0))

	return queryItems(ctx, s.db, query, args...)
}

// LatestItem returns the most recently created item
func (s *Store) LatestItem(ctx context.Context) (*item.ClipboardItem, error) {
	items, err := s.ListItems(ctx, Filter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("latest item: %w", ErrNotFound)
	}
	return items[0], nil
}

// CountItems returns the number of stored items
func (s *Store) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// UpdateContent replaces an item's content. The preview is left as it was
// at creation.
func (s *Store) UpdateContent(ctx context.Context, id, content string) (*item.ClipboardItem, error) {
	var out *item.ClipboardItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := execOne(ctx, tx, id, "UPDATE items SET content = ? WHERE id = ?", content, id); err != nil {
			return err
		}
		it, err := getItem(ctx, tx, id)
		out = it
		return err
	})
	return out, err
}

// UpdateMetadata loads an item, lets fn change it and persists the
// resulting metadata. Only metadata is written back.
func (s *Store) UpdateMetadata(ctx context.Context, id string, fn func(*item.ClipboardItem)) (*item.ClipboardItem, error) {
	var out *item.ClipboardItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		it, err := getItem(ctx, tx, id)
		if err != nil {
			return err
		}
		fn(it)
		meta, err := encodeMetadata(it.Metadata)
		if err != nil {
			return err
		}
		if err := execOne(ctx, tx, id, "UPDATE items SET metadata = ? WHERE id = ?", meta, id); err != nil {
			return err
		}
		out, err = getItem(ctx, tx, id)
		return err
	})
	return out, err
}

// SetTags replaces an item's tags and returns the normalized list
func (s *Store) SetTags(ctx context.Context, id string, tags []string) ([]string, error) {
	tags = item.NormalizeTags(tags)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureItem(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM item_tags WHERE item_id = ?", id); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		return writeTags(ctx, tx, id, tags)
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// AddTag appends a tag to an item. Adding a tag the item already has is a
// no-op.
func (s *Store) AddTag(ctx context.Context, id, tag string) ([]string, error) {
	var out []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		it, err := getItem(ctx, tx, id)
		if err != nil {
			return err
		}
		out = item.NormalizeTags(append(it.Tags, tag))
		if len(out) == len(it.Tags) {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO item_tags (item_id, tag, position)
			VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM item_tags WHERE item_id = ?))`,
			id, out[len(out)-1], id)
		if err != nil {
			return fmt.Errorf("add tag: %w", err)
		}
		return nil
	})
	return out, err
}

// RemoveTag removes a tag from an item
func (s *Store) RemoveTag(ctx context.Context, id, tag string) ([]string, error) {
	var out []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureItem(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM item_tags WHERE item_id = ? AND tag = ?", id, strings.TrimSpace(tag)); err != nil {
			return fmt.Errorf("remove tag: %w", err)
		}
		tags, err := loadTags(ctx, tx, []string{id})
		out = tags[id]
		if out == nil {
			out = []string{}
		}
		return err
	})
	return out, err
}

// DeleteItem removes an item and its tag associations
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	return execOne(ctx, s.db, id, "DELETE FROM items WHERE id = ?", id)
}

// Prune deletes the oldest untagged items so that at most keep untagged
// items remain. Tagged items are never pruned. keep <= 0 disables pruning.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM items WHERE id IN (
			SELECT id FROM items
			WHERE id NOT IN (SELECT item_id FROM item_tags)
			ORDER BY created_at DESC, rowid DESC
			LIMIT -1 OFFSET ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune items: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListTags returns every tag with the number of items carrying it
func (s *Store) ListTags(ctx context.Context) ([]item.Tag, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT tag, COUNT(*) FROM item_tags GROUP BY tag")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []item.Tag{}
	for rows.Next() {
		var t item.Tag
		if err := rows.Scan(&t.Name, &t.Count); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	item.SortTags(tags)
	return tags, nil
}

// Templates

// AddTemplate stores a new template
func (s *Store) AddTemplate(ctx context.Context, t *item.Template) error {
	if strings.TrimSpace(t.ID) == "" {
		return item.ErrMissingID
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO templates (id, name, content, created_at) VALUES (?, ?, ?, ?)",
		t.ID, t.Name, t.Content, t.CreatedAt)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("template %s: %w", t.ID, ErrExists)
		}
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// GetTemplate returns the template with the given id
func (s *Store) GetTemplate(ctx context.Context, id string) (*item.Template, error) {
	var t item.Template
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, content, created_at FROM templates WHERE id = ?", id,
	).Scan(&t.ID, &t.Name, &t.Content, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &t, nil
}

// ListTemplates returns templates ordered by name
func (s *Store) ListTemplates(ctx context.Context) ([]*item.Template, error) {
	return queryTemplates(ctx, s.db)
}

func queryTemplates(ctx context.Context, q querier) ([]*item.Template, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, content, created_at FROM templates ORDER BY name COLLATE NOCASE, created_at")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []*item.Template{}
	for rows.Next() {
		var t item.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}

// DeleteTemplate removes a template
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	return execOne(ctx, s.db, id, "DELETE FROM templates WHERE id = ?", id)
}

// Snapshots

// Snapshot returns every item and template in a single read transaction
func (s *Store) Snapshot(ctx context.Context) ([]*item.ClipboardItem, []*item.Template, error) {
	var (
		items     []*item.ClipboardItem
		templates []*item.Template
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		items, err = queryItems(ctx, tx,
			"SELECT id, type, content, preview, created_at, metadata FROM items ORDER BY created_at DESC, rowid DESC")
		if err != nil {
			return err
		}
		templates, err = queryTemplates(ctx, tx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return items, templates, nil
}

// RestoreResult counts what Restore inserted and skipped
type RestoreResult struct {
	ItemsAdded       int `json:"itemsAdded"`
	ItemsSkipped     int `json:"itemsSkipped"`
	TemplatesAdded   int `json:"templatesAdded"`
	TemplatesSkipped int `json:"templatesSkipped"`
}

// Restore inserts items and templates whose ids are not already present.
// Existing records are left untouched. Invalid items are skipped.
func (s *Store) Restore(ctx context.Context, items []*item.ClipboardItem, templates []*item.Template) (RestoreResult, error) {
	var result RestoreResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, it := range items {
			if it == nil || it.Validate() != nil {
				result.ItemsSkipped++
				continue
			}
			it.Tags = item.NormalizeTags(it.Tags)
			if err := insertItem(ctx, tx, it, true); err != nil {
				if errors.Is(err, ErrExists) {
					result.ItemsSkipped++
					continue
				}
				return err
			}
			if err := writeTags(ctx, tx, it.ID, it.Tags); err != nil {
				return err
			}
			result.ItemsAdded++
		}

		for _, t := range templates {
			if t == nil || strings.TrimSpace(t.ID) == "" {
				result.TemplatesSkipped++
				continue
			}
			res, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO templates (id, name, content, created_at) VALUES (?, ?, ?, ?)",
				t.ID, t.Name, t.Content, t.CreatedAt)
			if err != nil {
				return fmt.Errorf("restore template: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				result.TemplatesSkipped++
				continue
			}
			result.TemplatesAdded++
		}
		return nil
	})
	return result, err
}

// Helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*item.ClipboardItem, error) {
	var (
		it   item.ClipboardItem
		typ  string
		meta sql.NullString
	)
	if err := row.Scan(&it.ID, &typ, &it.Content, &it.Preview, &it.CreatedAt, &meta); err != nil {
		return nil, err
	}
	it.Type = item.CoerceType(typ)
	it.Tags = []string{}
	if meta.Valid && meta.String != "" {
		var m item.Metadata
		if err := json.Unmarshal([]byte(meta.String), &m); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", it.ID, err)
		}
		if !m.IsZero() {
			it.Metadata = &m
		}
	}
	return &it, nil
}

func queryItems(ctx context.Context, q querier, query string, args ...any) ([]*item.ClipboardItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := []*item.ClipboardItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list items: %w", err)
	}
	// Released before the tag query; the pool holds a single connection
	rows.Close()

	if err := attachTags(ctx, q, items); err != nil {
		return nil, err
	}
	return items, nil
}

func attachTags(ctx context.Context, q querier, items []*item.ClipboardItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	tags, err := loadTags(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, it := range items {
		if t, ok := tags[it.ID]; ok {
			it.Tags = t
		}
	}
	return nil
}

// maxVariables stays under SQLite's default bound parameter limit
const maxVariables = 500

func loadTags(ctx context.Context, q querier, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	for start := 0; start < len(ids); start += maxVariables {
		end := min(start+maxVariables, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		rows, err := q.QueryContext(ctx,
			"SELECT item_id, tag FROM item_tags WHERE item_id IN ("+placeholders+") ORDER BY item_id, position", args...)
		if err != nil {
			return nil, fmt.Errorf("load tags: %w", err)
		}
		for rows.Next() {
			var id, tag string
			if err := rows.Scan(&id, &tag); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan tag: %w", err)
			}
			out[id] = append(out[id], tag)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("load tags: %w", err)
		}
	}
	return out, nil
}

func writeTags(ctx context.Context, q querier, id string, tags []string) error {
	for pos, tag := range tags {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO item_tags (item_id, tag, position) VALUES (?, ?, ?)", id, tag, pos); err != nil {
			return fmt.Errorf("write tag %q: %w", tag, err)
		}
	}
	return nil
}

func ensureItem(ctx context.Context, q querier, id string) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM items WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find item: %w", err)
	}
	return nil
}

func execOne(ctx context.Context, q querier, id, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func encodeMetadata(m *item.Metadata) (any, error) {
	if m.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

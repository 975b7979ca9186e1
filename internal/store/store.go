package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"todoblock/internal/apperr"
	"todoblock/internal/model"
)

// Store persists to-do items. Every call is scoped to one owner: rows owned by
// someone else behave exactly like rows that do not exist.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for createdAt/modifiedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens (and migrates) the SQLite database at path. Use MemoryPath for a
// throwaway database.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const itemColumns = `id, owner_id, text, due_date, group_id, done, pinned, hidden, created_at_unixms, modified_at_unixms`

// Create inserts a new item for ownerID. Text is stripped of HTML and must not be empty.
func (s *Store) Create(ctx context.Context, ownerID, text string, due *int64, group model.GroupID) (model.Item, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return model.Item{}, apperr.Validation("owner", "empty")
	}
	text = CleanText(text)
	if text == "" {
		return model.Item{}, apperr.Validation("text", "empty")
	}
	if !group.Valid() {
		return model.Item{}, apperr.Validation("groupId", "out of range")
	}

	nowMs := s.now().UTC().UnixMilli()
	res, err := s.db.ExecContext(ctx, `INSERT INTO todo_items(
		owner_id, text, due_date, group_id, done, pinned, hidden, created_at_unixms, modified_at_unixms
	) VALUES(?, ?, ?, ?, 0, 0, 0, ?, ?)`,
		ownerID, text, nullableInt64(due), int(group), nowMs, nowMs,
	)
	if err != nil {
		return model.Item{}, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return s.Get(ctx, ownerID, id)
}

func (s *Store) Get(ctx context.Context, ownerID string, id int64) (model.Item, error) {
	return getItem(ctx, s.db, ownerID, id)
}

// Update applies patch to one item and bumps modifiedAt.
func (s *Store) Update(ctx context.Context, ownerID string, id int64, patch model.Patch) (model.Item, error) {
	if patch.Text != nil {
		cleaned := CleanText(*patch.Text)
		if cleaned == "" {
			return model.Item{}, apperr.Validation("text", "empty")
		}
		patch.Text = &cleaned
	}
	if patch.GroupID != nil && !patch.GroupID.Valid() {
		return model.Item{}, apperr.Validation("groupId", "out of range")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return model.Item{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getItem(ctx, tx, ownerID, id)
	if err != nil {
		return model.Item{}, err
	}
	next := patch.Apply(cur)
	next.ModifiedAt = time.UnixMilli(s.now().UTC().UnixMilli()).UTC()

	if _, err := tx.ExecContext(ctx, `UPDATE todo_items SET
		text = ?, due_date = ?, group_id = ?, done = ?, pinned = ?, hidden = ?, modified_at_unixms = ?
		WHERE owner_id = ? AND id = ?`,
		next.Text, nullableInt64(next.DueDate), int(next.GroupID),
		boolToInt(next.Done), boolToInt(next.Pinned), boolToInt(next.Hidden),
		next.ModifiedAt.UnixMilli(),
		cur.OwnerID, cur.ID,
	); err != nil {
		return model.Item{}, fmt.Errorf("update item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Item{}, err
	}
	return next, nil
}

func (s *Store) Delete(ctx context.Context, ownerID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todo_items WHERE owner_id = ? AND id = ?`, strings.TrimSpace(ownerID), id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("item", strconv.FormatInt(id, 10))
	}
	return nil
}

// DeleteWhere removes every item of ownerID matching f and reports how many went.
func (s *Store) DeleteWhere(ctx context.Context, ownerID string, f model.Filter) (int64, error) {
	where, args := filterClause(ownerID, f)
	res, err := s.db.ExecContext(ctx, `DELETE FROM todo_items WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateWhere applies the flag and group fields of patch to every matching item.
// Text and due date are per-item fields and are rejected here.
func (s *Store) UpdateWhere(ctx context.Context, ownerID string, f model.Filter, patch model.Patch) (int64, error) {
	if patch.Text != nil || patch.DueDate != nil || patch.ClearDueDate {
		return 0, apperr.Validation("patch", "text and due date cannot be bulk updated")
	}
	if patch.GroupID != nil && !patch.GroupID.Valid() {
		return 0, apperr.Validation("groupId", "out of range")
	}

	var sets []string
	var args []any
	if patch.GroupID != nil {
		sets = append(sets, "group_id = ?")
		args = append(args, int(*patch.GroupID))
	}
	if patch.Done != nil {
		sets = append(sets, "done = ?")
		args = append(args, boolToInt(*patch.Done))
	}
	if patch.Pinned != nil {
		sets = append(sets, "pinned = ?")
		args = append(args, boolToInt(*patch.Pinned))
	}
	if patch.Hidden != nil {
		sets = append(sets, "hidden = ?")
		args = append(args, boolToInt(*patch.Hidden))
	}
	if len(sets) == 0 {
		return 0, nil
	}
	sets = append(sets, "modified_at_unixms = ?")
	args = append(args, s.now().UTC().UnixMilli())

	where, whereArgs := filterClause(ownerID, f)
	args = append(args, whereArgs...)
	res, err := s.db.ExecContext(ctx, `UPDATE todo_items SET `+strings.Join(sets, ", ")+` WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("update items: %w", err)
	}
	return res.RowsAffected()
}

// ListByOwner returns ownerID's items, optionally limited to one group.
// Rows come back in the canonical (due date, group, created) order, undated last,
// but callers must not rely on it: ordering belongs to the view.
func (s *Store) ListByOwner(ctx context.Context, ownerID string, group model.GroupID) ([]model.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM todo_items WHERE owner_id = ?`
	args := []any{strings.TrimSpace(ownerID)}
	if group != model.GroupNone {
		q += ` AND group_id = ?`
		args = append(args, int(group))
	}
	q += ` ORDER BY due_date IS NULL, due_date, group_id, created_at_unixms, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	out := []model.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getItem(ctx context.Context, q queryer, ownerID string, id int64) (model.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM todo_items WHERE owner_id = ? AND id = ?`, strings.TrimSpace(ownerID), id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, apperr.NotFound("item", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func scanItem(sc scanner) (model.Item, error) {
	var (
		it                   model.Item
		due                  sql.NullInt64
		group                int
		done, pinned, hidden int
		createdMs, modMs     int64
	)
	if err := sc.Scan(&it.ID, &it.OwnerID, &it.Text, &due, &group, &done, &pinned, &hidden, &createdMs, &modMs); err != nil {
		return model.Item{}, err
	}
	if due.Valid {
		v := due.Int64
		it.DueDate = &v
	}
	it.GroupID = model.GroupID(group)
	it.Done = done != 0
	it.Pinned = pinned != 0
	it.Hidden = hidden != 0
	it.CreatedAt = time.UnixMilli(createdMs).UTC()
	it.ModifiedAt = time.UnixMilli(modMs).UTC()
	return it, nil
}

func filterClause(ownerID string, f model.Filter) (string, []any) {
	where := "owner_id = ?"
	args := []any{strings.TrimSpace(ownerID)}
	if f.Done != nil {
		where += " AND done = ?"
		args = append(args, boolToInt(*f.Done))
	}
	return where, args
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

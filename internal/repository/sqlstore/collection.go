package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/travelboard/internal/apperror"
)

// table describes how one resource type maps onto its table. Every table has
// id and owner_id as its first two columns; columns lists the rest.
type table[T any] struct {
	collection string // collection name, also recorded on idempotency keys
	resource   string // singular noun for error messages
	name       string
	columns    []string
	orderBy    string
	limit      int // 0 means unbounded

	// stamp assigns the server-controlled fields before insert.
	stamp func(item *T, id, ownerID string, now time.Time)
	// values returns the driver values for columns, in order.
	values func(item *T) []any
	// scan reads id, owner_id, columns... into a T.
	scan func(row scanner) (T, error)
	// id returns the item's id.
	id func(item *T) string
}

// Collection is the owner-scoped store shared by every resource type.
// Every statement carries "owner_id = ?", so rows of other users are
// unreachable through it.
//
// ONE STORE, MANY TABLES:
// The resource tables and the activity feed differ only in their columns,
// sort order and row limit. The table[T] descriptor captures those
// differences (see tables.go) and Collection[T] runs the same four
// statements against any of them:
//
//	List    SELECT ... WHERE owner_id = ? ORDER BY <orderBy> [LIMIT n]
//	Get     SELECT ... WHERE id = ? AND owner_id = ?
//	Create  INSERT ... (optionally inside an idempotency-key transaction)
//	Delete  DELETE ... WHERE id = ? AND owner_id = ?
//
// OWNERSHIP:
// A row that exists but belongs to someone else is indistinguishable from a
// row that does not exist: both come back as apperror.NotFound. Callers never
// learn that another user's id is valid.
type Collection[T any] struct {
	db *DB
	t  table[T]

	selectSQL string
	insertSQL string
}

func newCollection[T any](db *DB, t table[T]) *Collection[T] {
	cols := append([]string{"id", "owner_id"}, t.columns...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	return &Collection[T]{
		db:        db,
		t:         t,
		selectSQL: `SELECT ` + strings.Join(cols, ", ") + ` FROM ` + t.name,
		insertSQL: `INSERT INTO ` + t.name + ` (` + strings.Join(cols, ", ") + `) VALUES (` + placeholders + `)`,
	}
}

// Name is the collection name ("trips", "wishlist", ...).
func (c *Collection[T]) Name() string {
	return c.t.collection
}

// List returns the rows of ownerID in the table's display order. A table
// with a limit (the activity feed) returns at most that many rows. The
// result is never nil.
func (c *Collection[T]) List(ctx context.Context, ownerID string) ([]T, error) {
	query := c.selectSQL + ` WHERE owner_id = ? ORDER BY ` + c.t.orderBy
	if c.t.limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(c.t.limit)
	}

	rows, err := c.db.conn.QueryContext(ctx, c.db.rebind(query), ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing %s: %w", c.t.collection, err)
	}
	defer rows.Close()

	// Never nil: an empty collection encodes as [] not null.
	items := make([]T, 0)
	for rows.Next() {
		item, err := c.t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning %s: %w", c.t.collection, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating %s: %w", c.t.collection, err)
	}
	return items, nil
}

// Get returns one row of ownerID, or apperror.NotFound when id is unknown or
// owned by another user.
func (c *Collection[T]) Get(ctx context.Context, ownerID, id string) (*T, error) {
	return c.get(ctx, c.db.conn, ownerID, id)
}

func (c *Collection[T]) get(ctx context.Context, q dbtx, ownerID, id string) (*T, error) {
	row := q.QueryRowContext(ctx, c.db.rebind(c.selectSQL+` WHERE id = ? AND owner_id = ?`), id, ownerID)
	item, err := c.t.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(c.t.resource, id)
		}
		return nil, fmt.Errorf("sqlstore: getting %s %s: %w", c.t.resource, id, err)
	}
	return &item, nil
}

// Create stamps item with a fresh xid, ownerID and the current time, then
// inserts it. On return item holds the stored row.
//
// IDEMPOTENCY KEYS:
// With an empty key this is a plain INSERT. With a key, the key is claimed
// and the row inserted in one transaction:
//
//  1. INSERT the key into idempotency_keys, ON CONFLICT DO NOTHING.
//  2. One row affected: the key is new, insert the resource.
//  3. Zero rows affected: the key was used before. Load the resource it
//     points at into item and report replayed = true.
//
// A key first used for another collection fails with InvalidInput on
// "idempotency_key". A key whose resource was since deleted is NotFound.
func (c *Collection[T]) Create(ctx context.Context, ownerID string, item *T, idempotencyKey string) (bool, error) {
	now := time.Now().UTC()
	c.t.stamp(item, xid.New().String(), ownerID, now)

	if idempotencyKey == "" {
		return false, c.insert(ctx, c.db.conn, ownerID, item)
	}

	replayed := false
	err := c.db.withTx(ctx, func(tx dbtx) error {
		// Claiming the key first makes concurrent retries with the same key
		// serialise on the primary key: exactly one of them inserts.
		res, err := tx.ExecContext(ctx, c.db.rebind(
			`INSERT INTO idempotency_keys (owner_id, idem_key, collection, resource_id, created_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (owner_id, idem_key) DO NOTHING`),
			ownerID, idempotencyKey, c.t.collection, c.t.id(item), now)
		if err != nil {
			return fmt.Errorf("sqlstore: claiming idempotency key: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlstore: claiming idempotency key: %w", err)
		}
		if n == 1 {
			return c.insert(ctx, tx, ownerID, item)
		}

		var collection, resourceID string
		err = tx.QueryRowContext(ctx, c.db.rebind(
			`SELECT collection, resource_id FROM idempotency_keys WHERE owner_id = ? AND idem_key = ?`),
			ownerID, idempotencyKey,
		).Scan(&collection, &resourceID)
		if err != nil {
			return fmt.Errorf("sqlstore: reading idempotency key: %w", err)
		}
		if collection != c.t.collection {
			return apperror.ValidationFailed("idempotency_key",
				"idempotency key was already used for a different collection")
		}

		existing, err := c.get(ctx, tx, ownerID, resourceID)
		if err != nil {
			return err
		}
		*item = *existing
		replayed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return replayed, nil
}

func (c *Collection[T]) insert(ctx context.Context, q dbtx, ownerID string, item *T) error {
	args := append([]any{c.t.id(item), ownerID}, c.t.values(item)...)
	if _, err := q.ExecContext(ctx, c.db.rebind(c.insertSQL), args...); err != nil {
		return fmt.Errorf("sqlstore: creating %s: %w", c.t.resource, err)
	}
	return nil
}

// Delete removes one row of ownerID. Zero rows affected means the id is
// unknown or foreign, and both are apperror.NotFound. Idempotency keys that
// pointed at the row are left in place.
func (c *Collection[T]) Delete(ctx context.Context, ownerID, id string) error {
	res, err := c.db.conn.ExecContext(ctx, c.db.rebind(
		`DELETE FROM `+c.t.name+` WHERE id = ? AND owner_id = ?`), id, ownerID)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting %s %s: %w", c.t.resource, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: deleting %s %s: %w", c.t.resource, id, err)
	}
	if n == 0 {
		return apperror.NotFound(c.t.resource, id)
	}
	return nil
}

package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"libkiosk/internal/domain/book"
)

const bookColumns = `id, remote_id, title, author, publisher, published_year, stock, rfid_tag, created_at, updated_at`

type BookRepository struct {
	s   *Storage
	log *slog.Logger
}

func NewBookRepository(s *Storage, log *slog.Logger) *BookRepository {
	return &BookRepository{
		s:   s,
		log: log.With("component", "book_repository"),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (*book.Book, error) {
	var (
		b        book.Book
		remoteID sql.NullInt64
	)
	err := row.Scan(&b.ID, &remoteID, &b.Title, &b.Author, &b.Publisher, &b.Year,
		&b.Stock, &b.RFIDTag, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.RemoteID = nullableID(remoteID)
	return &b, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func (r *BookRepository) getBy(ctx context.Context, q DBTX, column string, arg any, lock bool) (*book.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE ` + column + ` = ?`
	if lock {
		query += r.s.forUpdate()
	}

	b, err := scanBook(q.QueryRowContext(ctx, r.s.rebind(query), arg))
	if err != nil {
		return nil, notFound(err, book.ErrNotFound)
	}
	return b, nil
}

func (r *BookRepository) GetByID(ctx context.Context, id int64) (*book.Book, error) {
	return r.getBy(ctx, r.s.db, "id", id, false)
}

func (r *BookRepository) GetByRFID(ctx context.Context, rfid string) (*book.Book, error) {
	return r.getBy(ctx, r.s.db, "rfid_tag", rfid, false)
}

func (r *BookRepository) GetByRemoteID(ctx context.Context, remoteID int64) (*book.Book, error) {
	return r.getBy(ctx, r.s.db, "remote_id", remoteID, false)
}

func (r *BookRepository) List(ctx context.Context) ([]book.Book, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY title, id`)
	if err != nil {
		r.log.Error("failed to list books", "error", err)
		return nil, storageErr(err)
	}
	defer rows.Close()

	books := make([]book.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return books, nil
}

func (r *BookRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

func (r *BookRepository) Create(ctx context.Context, b *book.Book) (*book.Book, error) {
	const query = `
		INSERT INTO books (remote_id, title, author, publisher, published_year, stock, rfid_tag, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	now := time.Now().UTC()
	created := *b
	created.CreatedAt, created.UpdatedAt = now, now

	err := r.s.db.QueryRowContext(ctx, r.s.rebind(query),
		created.RemoteID, created.Title, created.Author, created.Publisher, created.Year,
		created.Stock, created.RFIDTag, now, now,
	).Scan(&created.ID)
	if err != nil {
		return nil, r.mapWriteErr(err, "create")
	}

	r.log.Debug("book created", "book_id", created.ID, "rfid", created.RFIDTag)
	return &created, nil
}

func (r *BookRepository) Update(ctx context.Context, b *book.Book) (*book.Book, error) {
	const query = `
		UPDATE books
		SET remote_id = ?, title = ?, author = ?, publisher = ?, published_year = ?, stock = ?,
		    rfid_tag = ?, updated_at = ?
		WHERE id = ?`

	updated := *b
	updated.UpdatedAt = time.Now().UTC()

	res, err := r.s.db.ExecContext(ctx, r.s.rebind(query),
		updated.RemoteID, updated.Title, updated.Author, updated.Publisher, updated.Year,
		updated.Stock, updated.RFIDTag, updated.UpdatedAt, updated.ID,
	)
	if err != nil {
		return nil, r.mapWriteErr(err, "update")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, book.ErrNotFound
	}

	return r.GetByID(ctx, updated.ID)
}

func (r *BookRepository) DeleteByRemoteID(ctx context.Context, remoteID int64) (*book.Book, error) {
	var deleted *book.Book

	err := r.s.RunInTx(ctx, func(tx DBTX) error {
		b, err := r.getBy(ctx, tx, "remote_id", remoteID, true)
		if err != nil {
			return err
		}

		active, err := countActive(ctx, r.s, tx, "book_id", b.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return book.ErrHasActiveBorrowing
		}

		if _, err := tx.ExecContext(ctx, r.s.rebind(`DELETE FROM books WHERE id = ?`), b.ID); err != nil {
			return storageErr(err)
		}
		deleted = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Debug("book deleted", "book_id", deleted.ID, "remote_id", remoteID)
	return deleted, nil
}

func (r *BookRepository) mapWriteErr(err error, op string) error {
	if ce, ok := asConstraint(err); ok && ce.unique("rfid") {
		return book.ErrRFIDTaken
	}
	r.log.Error("failed to "+op+" book", "error", err)
	return fmt.Errorf("%s book: %w", op, storageErr(err))
}

// countActive counts active borrowings matching column = id.
func countActive(ctx context.Context, s *Storage, q DBTX, column string, id int64) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM borrowings WHERE ` + column + ` = ? AND status = 'active'`
	if err := q.QueryRowContext(ctx, s.rebind(query), id).Scan(&n); err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

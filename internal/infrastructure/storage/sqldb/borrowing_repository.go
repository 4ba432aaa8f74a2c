package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"libkiosk/internal/domain/borrowing"
	"libkiosk/internal/domain/outbox"
)

const borrowingColumns = `id, remote_id, user_id, book_id, borrowed_at, due_at, returned_at, status, synced, created_at, updated_at`

const detailQuery = `
	SELECT b.id, b.remote_id, b.user_id, b.book_id, b.borrowed_at, b.due_at, b.returned_at, b.status,
	       b.synced, b.created_at, b.updated_at, u.full_name, u.email, k.title, k.author, k.rfid_tag
	FROM borrowings b
	JOIN users u ON u.id = b.user_id
	JOIN books k ON k.id = b.book_id`

type BorrowingRepository struct {
	s     *Storage
	books *BookRepository
	log   *slog.Logger
}

func NewBorrowingRepository(s *Storage, log *slog.Logger) *BorrowingRepository {
	return &BorrowingRepository{
		s:     s,
		books: NewBookRepository(s, log),
		log:   log.With("component", "borrowing_repository"),
	}
}

func scanBorrowingInto(b *borrowing.Borrowing, extra ...any) []any {
	return append([]any{&b.ID, nil, &b.UserID, &b.BookID, &b.BorrowedAt, &b.DueAt, nil,
		&b.Status, &b.Synced, &b.CreatedAt, &b.UpdatedAt}, extra...)
}

func scanBorrowing(row scanner) (*borrowing.Borrowing, error) {
	var (
		b          borrowing.Borrowing
		remoteID   sql.NullInt64
		returnedAt sql.NullTime
	)
	dest := scanBorrowingInto(&b)
	dest[1], dest[6] = &remoteID, &returnedAt
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	b.RemoteID = nullableID(remoteID)
	if returnedAt.Valid {
		t := returnedAt.Time
		b.ReturnedAt = &t
	}
	return &b, nil
}

func scanDetail(row scanner) (*borrowing.Detail, error) {
	var (
		d          borrowing.Detail
		remoteID   sql.NullInt64
		returnedAt sql.NullTime
	)
	dest := scanBorrowingInto(&d.Borrowing,
		&d.UserName, &d.UserEmail, &d.BookTitle, &d.BookAuthor, &d.BookRFID)
	dest[1], dest[6] = &remoteID, &returnedAt
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	d.RemoteID = nullableID(remoteID)
	if returnedAt.Valid {
		t := returnedAt.Time
		d.ReturnedAt = &t
	}
	return &d, nil
}

// Lend checks the user, the active-borrowing rule and stock, then decrements stock, inserts
// the borrowing and enqueues it, all under one write lock.
func (r *BorrowingRepository) Lend(ctx context.Context, p borrowing.LendParams) (*borrowing.Detail, error) {
	var detail *borrowing.Detail

	err := r.s.RunInTx(ctx, func(tx DBTX) error {
		if _, err := getUser(ctx, r.s, tx, "id = ?", p.UserID, true); err != nil {
			return err
		}

		active, err := countActive(ctx, r.s, tx, "user_id", p.UserID)
		if err != nil {
			return err
		}
		if active > 0 {
			return borrowing.ErrUserHasActiveBorrowing
		}

		b, err := r.books.getBy(ctx, tx, "rfid_tag", p.RFIDTag, true)
		if err != nil {
			return err
		}
		if !b.Available() {
			return borrowing.ErrOutOfStock
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, r.s.rebind(`UPDATE books SET stock = stock - 1, updated_at = ? WHERE id = ?`), now, b.ID)
		if err != nil {
			return r.mapWriteErr(err, "decrement stock")
		}

		const insert = `
			INSERT INTO borrowings (user_id, book_id, borrowed_at, due_at, status, synced, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, FALSE, ?, ?)
			RETURNING id`

		var id int64
		err = tx.QueryRowContext(ctx, r.s.rebind(insert),
			p.UserID, b.ID, p.BorrowedAt.UTC(), p.DueAt.UTC(), borrowing.StatusActive, now, now,
		).Scan(&id)
		if err != nil {
			return r.mapWriteErr(err, "insert borrowing")
		}

		detail, err = r.getDetail(ctx, tx, id)
		if err != nil {
			return err
		}
		return enqueue(ctx, r.s, tx, outbox.TableBorrowings, id, outbox.ActionCreate,
			outbox.NewBorrowingSnapshot(detail))
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("book lent", "borrowing_id", detail.ID, "user_id", p.UserID, "rfid", p.RFIDTag)
	return detail, nil
}

func (r *BorrowingRepository) Return(ctx context.Context, userID int64, returnedAt time.Time) (*borrowing.Detail, error) {
	var detail *borrowing.Detail

	err := r.s.RunInTx(ctx, func(tx DBTX) error {
		if _, err := getUser(ctx, r.s, tx, "id = ?", userID, true); err != nil {
			return err
		}

		query := `SELECT ` + borrowingColumns + ` FROM borrowings WHERE user_id = ? AND status = 'active'` + r.s.forUpdate()
		b, err := scanBorrowing(tx.QueryRowContext(ctx, r.s.rebind(query), userID))
		if err != nil {
			return notFound(err, borrowing.ErrNoActiveBorrowing)
		}

		now := time.Now().UTC()
		const update = `
			UPDATE borrowings
			SET status = ?, returned_at = ?, synced = FALSE, updated_at = ?
			WHERE id = ?`
		_, err = tx.ExecContext(ctx, r.s.rebind(update), borrowing.StatusReturned, returnedAt.UTC(), now, b.ID)
		if err != nil {
			return r.mapWriteErr(err, "return borrowing")
		}

		_, err = tx.ExecContext(ctx, r.s.rebind(`UPDATE books SET stock = stock + 1, updated_at = ? WHERE id = ?`), now, b.BookID)
		if err != nil {
			return r.mapWriteErr(err, "increment stock")
		}

		detail, err = r.getDetail(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		return enqueue(ctx, r.s, tx, outbox.TableBorrowings, b.ID, outbox.ActionUpdate,
			outbox.NewBorrowingSnapshot(detail))
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("book returned", "borrowing_id", detail.ID, "user_id", userID)
	return detail, nil
}

func (r *BorrowingRepository) GetActiveByUser(ctx context.Context, userID int64) (*borrowing.Borrowing, error) {
	query := `SELECT ` + borrowingColumns + ` FROM borrowings WHERE user_id = ? AND status = 'active'`
	b, err := scanBorrowing(r.s.db.QueryRowContext(ctx, r.s.rebind(query), userID))
	if err != nil {
		return nil, notFound(err, borrowing.ErrNoActiveBorrowing)
	}
	return b, nil
}

func (r *BorrowingRepository) GetDetail(ctx context.Context, id int64) (*borrowing.Detail, error) {
	return r.getDetail(ctx, r.s.db, id)
}

func (r *BorrowingRepository) getDetail(ctx context.Context, q DBTX, id int64) (*borrowing.Detail, error) {
	d, err := scanDetail(q.QueryRowContext(ctx, r.s.rebind(detailQuery+` WHERE b.id = ?`), id))
	if err != nil {
		return nil, notFound(err, borrowing.ErrNotFound)
	}
	return d, nil
}

// List returns the newest borrowings first.
func (r *BorrowingRepository) List(ctx context.Context, f borrowing.ListFilter) ([]borrowing.Detail, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID > 0 {
		where = append(where, "b.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, f.Status)
	}

	query := detailQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.borrowed_at DESC, b.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		r.log.Error("failed to list borrowings", "error", err)
		return nil, storageErr(err)
	}
	defer rows.Close()

	list := make([]borrowing.Detail, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		list = append(list, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return list, nil
}

// mapWriteErr turns schema-level rejections into the business errors the service checks
// up front, covering writers that raced past those checks.
func (r *BorrowingRepository) mapWriteErr(err error, op string) error {
	if ce, ok := asConstraint(err); ok {
		switch {
		case ce.unique("user_id") || ce.unique("ux_borrowings_active_user"):
			return borrowing.ErrUserHasActiveBorrowing
		case ce.check("stock"):
			return borrowing.ErrOutOfStock
		}
	}
	r.log.Error("failed to "+op, "error", err)
	return fmt.Errorf("%s: %w", op, storageErr(err))
}

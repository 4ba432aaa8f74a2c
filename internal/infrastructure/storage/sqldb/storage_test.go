package sqldb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libkiosk/internal/config"
	"libkiosk/internal/domain/book"
	"libkiosk/internal/domain/user"
	"libkiosk/internal/infrastructure/migration"
	"libkiosk/internal/utils/logger"
)

type fixture struct {
	s          *Storage
	books      *BookRepository
	users      *UserRepository
	borrowings *BorrowingRepository
	outbox     *OutboxRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.DB{Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "data", "kiosk.db")}
	log := logger.Discard()

	s, err := Open(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, migration.NewMigration(cfg, migration.DefaultEngine).Up())

	return &fixture{
		s:          s,
		books:      NewBookRepository(s, log),
		users:      NewUserRepository(s, log),
		borrowings: NewBorrowingRepository(s, log),
		outbox:     NewOutboxRepository(s, log),
	}
}

func (f *fixture) book(t *testing.T, rfid string, stock int) *book.Book {
	t.Helper()
	b, err := f.books.Create(context.Background(), &book.Book{
		Title:   "Book " + rfid,
		Author:  "Author",
		Stock:   stock,
		RFIDTag: rfid,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) user(t *testing.T, name, email string) *user.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), &user.User{FullName: name, Email: email, Role: user.RoleMember})
	require.NoError(t, err)
	return u
}

func TestOpen_CreatesDirectory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.s.Ping(context.Background()))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DB{Driver: "mysql", DSN: "x"}, logger.Discard())
	require.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Storage{postgres: true}
	lite := &Storage{}

	q := `SELECT 1 FROM books WHERE id = ? AND rfid_tag = ?`
	assert.Equal(t, `SELECT 1 FROM books WHERE id = $1 AND rfid_tag = $2`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
	assert.Equal(t, " FOR UPDATE", pg.forUpdate())
	assert.Empty(t, lite.forUpdate())
}

func TestSQLiteDSN(t *testing.T) {
	const defaults = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"

	tests := []struct {
		dsn  string
		want string
	}{
		{"data/kiosk.db", "file:data/kiosk.db?" + defaults},
		{"file:data/kiosk.db", "file:data/kiosk.db?" + defaults},
		{"file:kiosk.db?_busy_timeout=100", "file:kiosk.db?_busy_timeout=100&_foreign_keys=on&_journal_mode=WAL&_txlock=immediate"},
		{"kiosk.db?mode=rwc", "file:kiosk.db?mode=rwc&" + defaults},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.dsn))
		})
	}
}

func TestOpen_DSNQueryKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	cfg := config.DB{Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "kiosk.db") + "?mode=rwc"}

	s, err := Open(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var fk int
	require.NoError(t, s.DB().QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var mode string
	require.NoError(t, s.DB().QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.s.RunInTx(ctx, func(tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO books (title, stock, rfid_tag, created_at, updated_at) VALUES ('x', 1, 'T1', ?, ?)`,
			time.Now(), time.Now())
		require.NoError(t, err)
		return book.ErrNotFound
	})
	assert.ErrorIs(t, err, book.ErrNotFound)

	n, err := f.books.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStockCheckConstraint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, "RF-1", 0)

	_, err := f.s.DB().ExecContext(ctx, `UPDATE books SET stock = stock - 1 WHERE id = ?`, b.ID)
	require.Error(t, err)

	ce, ok := asConstraint(err)
	require.True(t, ok)
	assert.True(t, ce.check("stock"))
	assert.ErrorIs(t, ce, ErrConstraint)
}

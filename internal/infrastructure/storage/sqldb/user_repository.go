package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"libkiosk/internal/domain/outbox"
	"libkiosk/internal/domain/user"
)

const userColumns = `id, remote_id, full_name, email, role, face_image_ref, synced, created_at, updated_at`

type UserRepository struct {
	s   *Storage
	log *slog.Logger
}

func NewUserRepository(s *Storage, log *slog.Logger) *UserRepository {
	return &UserRepository{
		s:   s,
		log: log.With("component", "user_repository"),
	}
}

func scanUser(row scanner) (*user.User, error) {
	var (
		u        user.User
		remoteID sql.NullInt64
	)
	err := row.Scan(&u.ID, &remoteID, &u.FullName, &u.Email, &u.Role, &u.FaceImageRef,
		&u.Synced, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.RemoteID = nullableID(remoteID)
	return &u, nil
}

func getUser(ctx context.Context, s *Storage, q DBTX, where string, arg any, lock bool) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY id LIMIT 1`
	if lock {
		query += s.forUpdate()
	}

	u, err := scanUser(q.QueryRowContext(ctx, s.rebind(query), arg))
	if err != nil {
		return nil, notFound(err, user.ErrNotFound)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return getUser(ctx, r.s, r.s.db, "id = ?", id, false)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return getUser(ctx, r.s, r.s.db, "email = ?", email, false)
}

func (r *UserRepository) GetByFullName(ctx context.Context, name string) (*user.User, error) {
	return getUser(ctx, r.s, r.s.db, "lower(full_name) = lower(?)", name, false)
}

func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY full_name, id`)
	if err != nil {
		r.log.Error("failed to list users", "error", err)
		return nil, storageErr(err)
	}
	defer rows.Close()

	users := make([]user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) (*user.User, error) {
	const query = `
		INSERT INTO users (full_name, email, role, face_image_ref, synced, created_at, updated_at)
		VALUES (?, ?, ?, ?, FALSE, ?, ?)
		RETURNING id`

	now := time.Now().UTC()
	created := *u
	created.RemoteID = nil
	created.Synced = false
	created.CreatedAt, created.UpdatedAt = now, now

	err := r.s.RunInTx(ctx, func(tx DBTX) error {
		err := tx.QueryRowContext(ctx, r.s.rebind(query),
			created.FullName, created.Email, created.Role, created.FaceImageRef, now, now,
		).Scan(&created.ID)
		if err != nil {
			return r.mapWriteErr(err, "create")
		}
		return enqueue(ctx, r.s, tx, outbox.TableUsers, created.ID, outbox.ActionCreate,
			outbox.NewUserSnapshot(&created))
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("user created", "user_id", created.ID)
	return &created, nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) (*user.User, error) {
	const query = `
		UPDATE users
		SET full_name = ?, email = ?, role = ?, synced = FALSE, updated_at = ?
		WHERE id = ?`

	var updated *user.User
	err := r.s.RunInTx(ctx, func(tx DBTX) error {
		res, err := tx.ExecContext(ctx, r.s.rebind(query),
			u.FullName, u.Email, u.Role, time.Now().UTC(), u.ID)
		if err != nil {
			return r.mapWriteErr(err, "update")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return user.ErrNotFound
		}

		updated, err = getUser(ctx, r.s, tx, "id = ?", u.ID, false)
		if err != nil {
			return err
		}
		return enqueue(ctx, r.s, tx, outbox.TableUsers, updated.ID, outbox.ActionUpdate,
			outbox.NewUserSnapshot(updated))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *UserRepository) SetFaceImage(ctx context.Context, id int64, ref string) (*user.User, error) {
	const query = `UPDATE users SET face_image_ref = ?, synced = FALSE, updated_at = ? WHERE id = ?`

	var updated *user.User
	err := r.s.RunInTx(ctx, func(tx DBTX) error {
		res, err := tx.ExecContext(ctx, r.s.rebind(query), ref, time.Now().UTC(), id)
		if err != nil {
			return storageErr(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return user.ErrNotFound
		}

		updated, err = getUser(ctx, r.s, tx, "id = ?", id, false)
		if err != nil {
			return err
		}
		return enqueue(ctx, r.s, tx, outbox.TableUsers, id, outbox.ActionUpdate,
			outbox.NewUserSnapshot(updated))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete refuses users holding a book. Returned borrowings go with the user; the delete entry
// carries the last snapshot since the row is gone by the time it drains.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	err := r.s.RunInTx(ctx, func(tx DBTX) error {
		u, err := getUser(ctx, r.s, tx, "id = ?", id, true)
		if err != nil {
			return err
		}

		active, err := countActive(ctx, r.s, tx, "user_id", id)
		if err != nil {
			return err
		}
		if active > 0 {
			return user.ErrHasActiveBorrowing
		}

		if _, err := tx.ExecContext(ctx, r.s.rebind(`DELETE FROM users WHERE id = ?`), id); err != nil {
			return storageErr(err)
		}
		return enqueue(ctx, r.s, tx, outbox.TableUsers, id, outbox.ActionDelete, outbox.NewUserSnapshot(u))
	})
	if err != nil {
		return err
	}

	r.log.Info("user deleted", "user_id", id)
	return nil
}

func (r *UserRepository) mapWriteErr(err error, op string) error {
	if ce, ok := asConstraint(err); ok && ce.unique("email") {
		return user.ErrEmailTaken
	}
	r.log.Error("failed to "+op+" user", "error", err)
	return fmt.Errorf("%s user: %w", op, storageErr(err))
}

package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/postboard/service_layer/internal/database"
	svcerrors "github.com/postboard/service_layer/internal/errors"
)

// Store persists comments.
type Store interface {
	ListComments(ctx context.Context, postID int64, limit, offset int) ([]Comment, int, error)
	CreateComment(ctx context.Context, postID int64, content, author string) (int64, error)
	// DeleteComment removes comment id if it belongs to author. It returns a
	// NOT_FOUND error when the comment is absent and FORBIDDEN when the
	// author differs.
	DeleteComment(ctx context.Context, id int64, author string) error
	CountComments(ctx context.Context) (int, error)
}

// SQLStore is the sqlx-backed Store.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Schema returns the comments table DDL for driver. post_id is deliberately
// not a foreign key: posts live in another service's database.
func Schema(driver string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS comments (
			` + database.AutoIncrementPK(driver) + `,
			post_id BIGINT NOT NULL,
			content TEXT NOT NULL,
			author TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments (post_id)`,
	}
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	return database.Migrate(ctx, s.db, Schema(s.db.DriverName()))
}

func (s *SQLStore) ListComments(ctx context.Context, postID int64, limit, offset int) ([]Comment, int, error) {
	comments := []Comment{}
	var total int
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		if err := conn.GetContext(ctx, &total, conn.Rebind(`SELECT COUNT(*) FROM comments WHERE post_id = ?`), postID); err != nil {
			return err
		}
		query := conn.Rebind(`SELECT id, post_id, content, author FROM comments WHERE post_id = ? ORDER BY id LIMIT ? OFFSET ?`)
		return conn.SelectContext(ctx, &comments, query, postID, limit, offset)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list comments for post %d: %w", postID, err)
	}
	return comments, total, nil
}

func (s *SQLStore) CreateComment(ctx context.Context, postID int64, content, author string) (int64, error) {
	var id int64
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		query := conn.Rebind(`INSERT INTO comments (post_id, content, author) VALUES (?, ?, ?) RETURNING id`)
		return conn.QueryRowxContext(ctx, query, postID, content, author).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	return id, nil
}

func (s *SQLStore) DeleteComment(ctx context.Context, id int64, author string) error {
	return database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		var owner string
		err = tx.GetContext(ctx, &owner, tx.Rebind(`SELECT author FROM comments WHERE id = ?`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return svcerrors.NotFound("Comment not found")
		}
		if err != nil {
			return fmt.Errorf("get comment %d: %w", id, err)
		}
		if owner != author {
			return svcerrors.Forbidden("Unauthorized to delete this comment")
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM comments WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete comment %d: %w", id, err)
		}
		return tx.Commit()
	})
}

func (s *SQLStore) CountComments(ctx context.Context) (int, error) {
	var total int
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM comments`)
	})
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return total, nil
}

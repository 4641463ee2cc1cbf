package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/postboard/service_layer/internal/database"
)

// Store persists posts. Lookups of absent rows return nil, not an error.
type Store interface {
	ListPosts(ctx context.Context, limit, offset int) ([]Post, int, error)
	GetPost(ctx context.Context, id int64) (*Post, error)
	CreatePost(ctx context.Context, title, content string) (int64, error)
	// UpdatePost reports false when no post has id.
	UpdatePost(ctx context.Context, id int64, title, content string) (bool, error)
	// DeletePost returns the removed post, or nil when none existed.
	DeletePost(ctx context.Context, id int64) (*Post, error)
	CountPosts(ctx context.Context) (int, error)
}

// SQLStore is the sqlx-backed Store.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Schema returns the posts table DDL for driver.
func Schema(driver string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS posts (
			` + database.AutoIncrementPK(driver) + `,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT ''
		)`,
	}
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	return database.Migrate(ctx, s.db, Schema(s.db.DriverName()))
}

func (s *SQLStore) ListPosts(ctx context.Context, limit, offset int) ([]Post, int, error) {
	posts := []Post{}
	var total int
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		if err := conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM posts`); err != nil {
			return err
		}
		query := conn.Rebind(`SELECT id, title, content FROM posts ORDER BY id LIMIT ? OFFSET ?`)
		return conn.SelectContext(ctx, &posts, query, limit, offset)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return posts, total, nil
}

func (s *SQLStore) CountPosts(ctx context.Context) (int, error) {
	var total int
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM posts`)
	})
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

func (s *SQLStore) GetPost(ctx context.Context, id int64) (*Post, error) {
	var post Post
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		query := conn.Rebind(`SELECT id, title, content FROM posts WHERE id = ?`)
		return conn.GetContext(ctx, &post, query, id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &post, nil
}

func (s *SQLStore) CreatePost(ctx context.Context, title, content string) (int64, error) {
	var id int64
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		query := conn.Rebind(`INSERT INTO posts (title, content) VALUES (?, ?) RETURNING id`)
		return conn.QueryRowxContext(ctx, query, title, content).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return id, nil
}

func (s *SQLStore) UpdatePost(ctx context.Context, id int64, title, content string) (bool, error) {
	var affected int64
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		query := conn.Rebind(`UPDATE posts SET title = ?, content = ? WHERE id = ?`)
		res, err := conn.ExecContext(ctx, query, title, content, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("update post %d: %w", id, err)
	}
	return affected > 0, nil
}

func (s *SQLStore) DeletePost(ctx context.Context, id int64) (*Post, error) {
	var deleted *Post
	err := database.WithConn(ctx, s.db, func(conn *sqlx.Conn) error {
		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var post Post
		err = tx.GetContext(ctx, &post, tx.Rebind(`SELECT id, title, content FROM posts WHERE id = ?`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM posts WHERE id = ?`), id); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		deleted = &post
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete post %d: %w", id, err)
	}
	return deleted, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/storage"
)

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, full_name, telegram_chat_id, is_teacher, created_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	err := s.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.FullName,
		&u.TelegramChatID,
		&u.IsTeacher,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

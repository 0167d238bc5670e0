// Package directory keeps an operational list of chats that talk to the bot.
// It is not conversation state: pending modes never leave memory.
package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Entry is one row of the chat directory.
type Entry struct {
	ChatID    int64     `db:"chat_id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	FirstName string    `db:"first_name"`
	Commands  int       `db:"commands"`
	FirstSeen time.Time `db:"first_seen"`
	LastSeen  time.Time `db:"last_seen"`
}

// Repository stores directory entries in Postgres.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps an open database handle.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const touchQuery = `
INSERT INTO chat_directory (chat_id, user_id, username, first_name, commands, first_seen, last_seen)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (chat_id) DO UPDATE SET
    user_id = EXCLUDED.user_id,
    username = EXCLUDED.username,
    first_name = EXCLUDED.first_name,
    commands = chat_directory.commands + EXCLUDED.commands,
    last_seen = EXCLUDED.last_seen`

// Touch records activity for a chat. Commands in e is added to the stored counter.
func (r *Repository) Touch(ctx context.Context, e Entry) error {
	seen := e.LastSeen
	if seen.IsZero() {
		seen = time.Now()
	}
	_, err := r.db.ExecContext(ctx, touchQuery,
		e.ChatID, e.UserID, e.Username, e.FirstName, e.Commands, seen.UTC())
	if err != nil {
		return fmt.Errorf("directory: touch %d: %w", e.ChatID, err)
	}
	return nil
}

// Stats summarizes the directory.
type Stats struct {
	Chats    int `db:"chats"`
	Commands int `db:"commands"`
}

const statsQuery = `SELECT count(*) AS chats, coalesce(sum(commands), 0) AS commands FROM chat_directory`

// Stats counts known chats and the commands they sent.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := r.db.GetContext(ctx, &st, statsQuery); err != nil {
		return Stats{}, fmt.Errorf("directory: stats: %w", err)
	}
	return st, nil
}

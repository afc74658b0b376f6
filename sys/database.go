package sys

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

// InitDatabase opens the SQLite database and creates the schema.
func InitDatabase(ctx context.Context, dataSourceName string) error {
	var err error
	DB, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return err
	}

	DB.SetMaxOpenConns(5)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := DB.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tx, err := DB.BeginTx(initCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS chat_settings (
			chat_id INTEGER PRIMARY KEY,
			channel_target INTEGER DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS auth_users (
			chat_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			PRIMARY KEY (chat_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS blacklist (
			user_id INTEGER PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sudoers (
			user_id INTEGER PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS served_chats (
			chat_id INTEGER PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS served_users (
			user_id INTEGER PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, q := range tableQueries {
		if _, err := tx.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		_ = DB.Close()
	}
}

// --- Chat settings ---

// GetChannelTarget returns the channel-play target for a chat, if configured.
func GetChannelTarget(ctx context.Context, chatID int64) (int64, bool) {
	var target int64
	err := DB.QueryRowContext(ctx,
		"SELECT channel_target FROM chat_settings WHERE chat_id = ?", chatID).Scan(&target)
	if err != nil || target == 0 {
		return 0, false
	}
	return target, true
}

func SetChannelTarget(ctx context.Context, chatID, target int64) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO chat_settings (chat_id, channel_target, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(chat_id) DO UPDATE SET channel_target = excluded.channel_target, updated_at = CURRENT_TIMESTAMP`,
		chatID, target)
	return err
}

// --- Authorized users (per-chat playback permissions) ---

func AddAuthUser(ctx context.Context, chatID, userID int64) error {
	_, err := DB.ExecContext(ctx,
		"INSERT OR IGNORE INTO auth_users (chat_id, user_id) VALUES (?, ?)", chatID, userID)
	return err
}

func RemoveAuthUser(ctx context.Context, chatID, userID int64) error {
	_, err := DB.ExecContext(ctx,
		"DELETE FROM auth_users WHERE chat_id = ? AND user_id = ?", chatID, userID)
	return err
}

func IsAuthUser(ctx context.Context, chatID, userID int64) bool {
	var n int
	err := DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM auth_users WHERE chat_id = ? AND user_id = ?", chatID, userID).Scan(&n)
	return err == nil && n > 0
}

// --- Blacklist ---

func BlacklistUser(ctx context.Context, userID int64) error {
	_, err := DB.ExecContext(ctx,
		"INSERT OR IGNORE INTO blacklist (user_id) VALUES (?)", userID)
	return err
}

func UnblacklistUser(ctx context.Context, userID int64) error {
	_, err := DB.ExecContext(ctx, "DELETE FROM blacklist WHERE user_id = ?", userID)
	return err
}

func IsBlacklisted(ctx context.Context, userID int64) bool {
	var n int
	err := DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM blacklist WHERE user_id = ?", userID).Scan(&n)
	return err == nil && n > 0
}

// --- Sudoers ---

func AddSudo(ctx context.Context, userID int64) error {
	_, err := DB.ExecContext(ctx, "INSERT OR IGNORE INTO sudoers (user_id) VALUES (?)", userID)
	return err
}

func RemoveSudo(ctx context.Context, userID int64) error {
	_, err := DB.ExecContext(ctx, "DELETE FROM sudoers WHERE user_id = ?", userID)
	return err
}

func IsSudo(ctx context.Context, userID int64) bool {
	var n int
	err := DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sudoers WHERE user_id = ?", userID).Scan(&n)
	return err == nil && n > 0
}

// --- Served chats and users (broadcast recipients) ---

func AddServedChat(ctx context.Context, chatID int64) error {
	_, err := DB.ExecContext(ctx,
		"INSERT OR IGNORE INTO served_chats (chat_id) VALUES (?)", chatID)
	return err
}

func AddServedUser(ctx context.Context, userID int64) error {
	_, err := DB.ExecContext(ctx,
		"INSERT OR IGNORE INTO served_users (user_id) VALUES (?)", userID)
	return err
}

// ServedChats lists every group the bot has been used in.
func ServedChats(ctx context.Context) ([]int64, error) {
	return collectIDs(ctx, "SELECT chat_id FROM served_chats ORDER BY chat_id")
}

// ServedUsers lists every user who has talked to the bot in private.
func ServedUsers(ctx context.Context) ([]int64, error) {
	return collectIDs(ctx, "SELECT user_id FROM served_users ORDER BY user_id")
}

func collectIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

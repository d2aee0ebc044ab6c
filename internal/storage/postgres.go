package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scam-quiz-bot/internal/models"

	_ "github.com/lib/pq"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresStorage is the SQL-backed alternative for deployments that want
// their scores next to the rest of their relational data. The clamped score
// update happens inside a single upsert, so it is atomic here.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) GetConversation(ctx context.Context, key models.ConversationKey) (*models.ConversationRecord, error) {
	query := `
		SELECT record
		FROM conversations
		WHERE conversation_key = $1`

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, string(key)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying conversation: %v", err)
	}

	var rec models.ConversationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("error decoding conversation record: %v", err)
	}
	return &rec, nil
}

func (s *PostgresStorage) PutConversation(ctx context.Context, key models.ConversationKey, rec *models.ConversationRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("error encoding conversation record: %v", err)
	}

	query := `
		INSERT INTO conversations (conversation_key, record, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_key)
		DO UPDATE SET record = $2, updated_at = $3`

	if _, err := s.db.ExecContext(ctx, query, string(key), raw, time.Now()); err != nil {
		return fmt.Errorf("error writing conversation: %v", err)
	}
	return nil
}

func (s *PostgresStorage) GetScore(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT score
		FROM scores
		WHERE user_id = $1`

	var score int
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error querying score: %v", err)
	}
	return score, nil
}

func (s *PostgresStorage) AddScore(ctx context.Context, userID string, delta int) (int, error) {
	query := `
		INSERT INTO scores (user_id, score, updated_at)
		VALUES ($1, GREATEST(0, $2), $3)
		ON CONFLICT (user_id)
		DO UPDATE SET score = GREATEST(0, scores.score + $2), updated_at = $3
		RETURNING score`

	var score int
	if err := s.db.QueryRowContext(ctx, query, userID, delta, time.Now()).Scan(&score); err != nil {
		return 0, fmt.Errorf("error updating score: %v", err)
	}
	return score, nil
}

func (s *PostgresStorage) ListScores(ctx context.Context) ([]models.ScoreRecord, error) {
	query := `
		SELECT user_id, score
		FROM scores`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying scores: %v", err)
	}
	defer rows.Close()

	var records []models.ScoreRecord
	for rows.Next() {
		var rec models.ScoreRecord
		if err := rows.Scan(&rec.UserID, &rec.Score); err != nil {
			return nil, fmt.Errorf("error scanning score: %v", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scores: %v", err)
	}
	return records, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"research-reports/backend/pkg/models"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationLockKey int64 = 0x72657365617263

const researchColumns = "id, title, query, depth, breadth, questions, status, result, duration, initial_learnings, user_id, created_at, started_at, updated_at"

// PostgresResearchStore is a PostgreSQL implementation of the ResearchStore interface.
type PostgresResearchStore struct {
	db *pgxpool.Pool
}

// NewPostgresResearchStore creates a new PostgresResearchStore.
func NewPostgresResearchStore(db *pgxpool.Pool) *PostgresResearchStore {
	return &PostgresResearchStore{db: db}
}

// Migrate applies the embedded schema. Every statement is idempotent so it is
// safe to run on each acquisition.
func (s *PostgresResearchStore) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Concurrent CREATE ... IF NOT EXISTS can still collide on the catalog.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("lock schema: %w", err)
	}
	for _, name := range names {
		stmt, err := migrationFiles.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, string(stmt)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return tx.Commit(ctx)
}

// List returns every research ordered by creation time, newest first.
func (s *PostgresResearchStore) List(ctx context.Context) ([]*models.Research, error) {
	rows, err := s.db.Query(ctx, "SELECT "+researchColumns+" FROM researches ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	researches := []*models.Research{}
	for rows.Next() {
		research, err := scanResearch(rows)
		if err != nil {
			return nil, err
		}
		researches = append(researches, research)
	}

	return researches, rows.Err()
}

// Get retrieves a research by its ID.
func (s *PostgresResearchStore) Get(ctx context.Context, id string) (*models.Research, error) {
	row := s.db.QueryRow(ctx, "SELECT "+researchColumns+" FROM researches WHERE id = $1", id)
	research, err := scanResearch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return research, nil
}

// Create inserts a new research. Questions are stored as JSON text.
func (s *PostgresResearchStore) Create(ctx context.Context, research *models.Research) error {
	questions, err := EncodeQuestions(research.Questions)
	if err != nil {
		return err
	}
	if research.CreatedAt.IsZero() {
		research.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.Exec(ctx,
		"INSERT INTO researches ("+researchColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)",
		research.ID, research.Title, research.Query, research.Depth, research.Breadth, questions,
		int(research.Status), research.Result, research.Duration, research.InitialLearnings, research.UserID,
		research.CreatedAt, research.StartedAt, research.UpdatedAt,
	)
	return err
}

// Delete removes a research by its ID.
func (s *PostgresResearchStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM researches WHERE id = $1", id)
	return err
}

// Ping checks the database connection.
func (s *PostgresResearchStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanResearch(row pgx.Row) (*models.Research, error) {
	var (
		research  models.Research
		questions string
		status    int
	)
	err := row.Scan(
		&research.ID, &research.Title, &research.Query, &research.Depth, &research.Breadth, &questions,
		&status, &research.Result, &research.Duration, &research.InitialLearnings, &research.UserID,
		&research.CreatedAt, &research.StartedAt, &research.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	research.Status = models.ResearchStatus(status)
	research.Questions, err = DecodeQuestions(questions)
	if err != nil {
		return nil, fmt.Errorf("research %s: %w", research.ID, err)
	}
	return &research, nil
}

// EncodeQuestions serializes question/answer pairs for the questions column.
func EncodeQuestions(questions []models.QuestionAnswer) (string, error) {
	if questions == nil {
		questions = []models.QuestionAnswer{}
	}
	b, err := json.Marshal(questions)
	if err != nil {
		return "", fmt.Errorf("encode questions: %w", err)
	}
	return string(b), nil
}

// DecodeQuestions parses the questions column. An empty column decodes to no questions.
func DecodeQuestions(raw string) ([]models.QuestionAnswer, error) {
	questions := []models.QuestionAnswer{}
	if raw == "" {
		return questions, nil
	}
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return questions, nil
}

// PostgresProvider acquires PostgresResearchStore handles from a shared pool.
type PostgresProvider struct {
	db *pgxpool.Pool
}

// NewPostgresProvider creates a new PostgresProvider.
func NewPostgresProvider(db *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// Acquire returns a store with the schema applied.
func (p *PostgresProvider) Acquire(ctx context.Context) (ResearchStore, error) {
	store := NewPostgresResearchStore(p.db)
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

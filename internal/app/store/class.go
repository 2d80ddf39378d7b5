package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"edulive/internal/app/perms"
)

// ErrClassNotFound is returned when no live class matches the lookup.
var ErrClassNotFound = errors.New("store: class not found")

// Class is the persisted live-class record.
type Class struct {
	ID              string
	Code            string
	Title           string
	TeacherID       string
	Sections        []string
	MaxParticipants int
	Settings        perms.ClassSettings
	PasswordHash    string
	EndedAt         pgtype.Timestamptz
	CreatedAt       time.Time
}

// Ended reports whether the class session has been closed.
func (c *Class) Ended() bool {
	return c.EndedAt.Valid
}

// Store wraps the connection pool with the live-class queries.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an initialized pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// CreateClassParams carries the inputs for CreateClass.
type CreateClassParams struct {
	Code            string
	Title           string
	TeacherID       string
	Sections        []string
	MaxParticipants int
	Settings        perms.ClassSettings
	PasswordHash    string
}

const createClassQuery = `
INSERT INTO live_classes (code, title, teacher_id, sections, max_participants, settings, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
RETURNING id, code, title, teacher_id, sections, max_participants, settings,
          COALESCE(password_hash, ''), ended_at, created_at`

// CreateClass inserts a new live class. A unique violation on code surfaces
// unchanged so callers can branch with IsUniqueViolation.
func (s *Store) CreateClass(ctx context.Context, params CreateClassParams) (*Class, error) {
	settingsJSON, err := json.Marshal(params.Settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	row := s.pool.QueryRow(ctx, createClassQuery,
		params.Code,
		params.Title,
		params.TeacherID,
		params.Sections,
		params.MaxParticipants,
		settingsJSON,
		params.PasswordHash,
	)
	return scanClass(row)
}

const classColumns = `id, code, title, teacher_id, sections, max_participants, settings,
        COALESCE(password_hash, ''), ended_at, created_at`

// GetClassByID loads one class by its UUID.
func (s *Store) GetClassByID(ctx context.Context, id string) (*Class, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+classColumns+` FROM live_classes WHERE id = $1`, id)
	return scanClass(row)
}

// GetClassByCode loads one class by its share code.
func (s *Store) GetClassByCode(ctx context.Context, code string) (*Class, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+classColumns+` FROM live_classes WHERE code = $1`, code)
	return scanClass(row)
}

// UpdateSettings persists a new settings document for the class.
func (s *Store) UpdateSettings(ctx context.Context, id string, settings perms.ClassSettings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE live_classes SET settings = $2 WHERE id = $1`, id, settingsJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClassNotFound
	}
	return nil
}

// EndClass stamps the class as finished. Ending an ended class is a no-op.
func (s *Store) EndClass(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE live_classes SET ended_at = now() WHERE id = $1 AND ended_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either unknown or already ended; distinguish for the caller.
		if _, lookupErr := s.GetClassByID(ctx, id); lookupErr != nil {
			return lookupErr
		}
	}
	return nil
}

// SaveWhiteboardNotes upserts the whiteboard snapshot for a class.
func (s *Store) SaveWhiteboardNotes(ctx context.Context, classID string, notes json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO whiteboard_notes (class_id, notes, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (class_id) DO UPDATE SET notes = EXCLUDED.notes, updated_at = now()`,
		classID, notes)
	return err
}

// GetWhiteboardNotes loads the whiteboard snapshot. A class with no saved
// notes returns an empty JSON object.
func (s *Store) GetWhiteboardNotes(ctx context.Context, classID string) (json.RawMessage, error) {
	var notes json.RawMessage
	err := s.pool.QueryRow(ctx,
		`SELECT notes FROM whiteboard_notes WHERE class_id = $1`, classID).Scan(&notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return json.RawMessage(`{}`), nil
	}
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// scanClass reads one class row.
func scanClass(row pgx.Row) (*Class, error) {
	var (
		c            Class
		id           pgtype.UUID
		settingsJSON []byte
	)

	err := row.Scan(
		&id,
		&c.Code,
		&c.Title,
		&c.TeacherID,
		&c.Sections,
		&c.MaxParticipants,
		&settingsJSON,
		&c.PasswordHash,
		&c.EndedAt,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, err
	}

	c.ID = id.String()
	c.Settings = perms.DefaultClassSettings()
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &c.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	return &c, nil
}

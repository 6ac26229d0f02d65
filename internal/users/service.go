// Package users persists user profiles and their interaction log.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrUserNotFound indicates no user matches the given key.
var ErrUserNotFound = errors.New("user not found")

// DBTX is the subset of pgxpool.Pool the service needs; tests substitute a
// fake.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service provides user profile CRUD and the interaction log.
type Service struct {
	db     DBTX
	logger *slog.Logger
}

// NewService creates a user service.
func NewService(log *slog.Logger, db DBTX) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db:     db,
		logger: log.With(slog.String("service", "users")),
	}
}

const userColumns = "profile_id, phone_number, name, email, consent_accepted, language, created_at, updated_at"

func scanUser(row pgx.Row) (User, error) {
	var (
		u     User
		name  pgtype.Text
		email pgtype.Text
	)
	err := row.Scan(&u.ProfileID, &u.PhoneNumber, &name, &email, &u.ConsentAccepted, &u.Language, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	u.Name = name.String
	u.Email = email.String
	return u, nil
}

// GetByProfileID fetches a user by internal id.
func (s *Service) GetByProfileID(ctx context.Context, profileID string) (User, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE profile_id = $1", profileID)
	u, err := scanUser(row)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("get user %s: %w", profileID, err)
	}
	return u, err
}

// GetByPhone fetches a user by channel address.
func (s *Service) GetByPhone(ctx context.Context, phoneNumber string) (User, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE phone_number = $1", phoneNumber)
	u, err := scanUser(row)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("get user by phone: %w", err)
	}
	return u, err
}

// GetOrCreate returns the user for the phone number, creating a fresh
// record (consent not accepted, no email) on first contact. The upsert
// keeps the stored name; the webhook contact name only seeds new rows.
func (s *Service) GetOrCreate(ctx context.Context, phoneNumber, name string) (User, error) {
	phone := strings.TrimSpace(phoneNumber)
	if phone == "" {
		return User{}, fmt.Errorf("phone number is required")
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (profile_id, phone_number, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone_number) DO UPDATE SET updated_at = now()
		RETURNING `+userColumns,
		uuid.NewString(), phone, strings.TrimSpace(name))
	u, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("get or create user: %w", err)
	}
	return u, nil
}

// AcceptConsent marks the user's consent as accepted.
func (s *Service) AcceptConsent(ctx context.Context, profileID string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE users SET consent_accepted = TRUE, updated_at = now() WHERE profile_id = $1", profileID)
	if err != nil {
		return fmt.Errorf("accept consent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateEmail stores a validated email address.
func (s *Service) UpdateEmail(ctx context.Context, profileID, email string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE users SET email = $2, updated_at = now() WHERE profile_id = $1",
		profileID, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AppendInteraction records one answered turn.
func (s *Service) AppendInteraction(ctx context.Context, profileID, question, response string) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO interactions (profile_id, question, response) VALUES ($1, $2, $3)",
		profileID, question, response)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// RecentInteractions returns up to limit recent turns in chronological
// order, oldest first, so callers can replay them as conversation context.
func (s *Service) RecentInteractions(ctx context.Context, profileID string, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `
		SELECT profile_id, question, response, created_at
		FROM interactions
		WHERE profile_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var it Interaction
		if err := rows.Scan(&it.ProfileID, &it.Question, &it.Response, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}

	// newest-first from the query; flip to chronological
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Package repository implements the identity store on a relational
// database through bun. It backs development and test deployments;
// production runs against dynamostore.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	session "github.com/DotRed108/go-session"
)

// Users is the base repository for profile records.
type Users = repository.Repository[*session.UserProfile]

// NewUsersRepository builds the generic bun repository for profiles.
func NewUsersRepository(db *bun.DB) Users {
	return repository.NewRepository[*session.UserProfile](db, repository.ModelHandlers[*session.UserProfile]{
		NewRecord: func() *session.UserProfile { return &session.UserProfile{} },
		GetID: func(u *session.UserProfile) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *session.UserProfile, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})
}

// Store adapts the users repository to the resolver's identity store.
type Store struct {
	db     *bun.DB
	users  Users
	logger session.Logger
}

var _ session.IdentityStore = (*Store)(nil)

func NewStore(db *bun.DB, logger session.Logger) *Store {
	if logger == nil {
		logger = session.DefaultLogger()
	}
	return &Store{
		db:     db,
		users:  NewUsersRepository(db),
		logger: logger,
	}
}

// Users exposes the underlying repository for callers that need more
// than the identity store surface.
func (s *Store) Users() Users {
	return s.users
}

// OpenSQLite opens a sqlite backed bun DB, creating the file on demand.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open sqlite database")
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// GetUser fetches a profile by email, optionally projecting fields.
func (s *Store) GetUser(ctx context.Context, email string, fields ...string) (*session.UserProfile, error) {
	profile := &session.UserProfile{}

	q := s.db.NewSelect().Model(profile).Where("email = ?", email)
	if len(fields) > 0 {
		cols := append([]string{session.FieldEmail}, fields...)
		q = q.Column(dedupe(cols)...)
	}

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrUserNotFound
		}
		return nil, errors.Wrap(err, session.ErrStoreUnavailable.Category, session.ErrStoreUnavailable.Message).
			WithTextCode(session.ErrStoreUnavailable.TextCode)
	}

	return profile, nil
}

// PutUserIfAbsent inserts the profile unless the email is registered.
func (s *Store) PutUserIfAbsent(ctx context.Context, profile *session.UserProfile) error {
	res, err := s.db.NewInsert().
		Model(profile).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, session.ErrStoreUnavailable.Category, session.ErrStoreUnavailable.Message).
			WithTextCode(session.ErrStoreUnavailable.TextCode)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return session.ErrEmailTaken
	}

	return nil
}

// TouchLastLogin stamps the last login instant.
func (s *Store) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	return s.updateField(ctx, email, session.FieldLastLoginAt, at.UTC())
}

// RecordRefreshFingerprint stores the latest refresh token fingerprint.
func (s *Store) RecordRefreshFingerprint(ctx context.Context, email, fingerprint string) error {
	return s.updateField(ctx, email, session.FieldRefreshFingerprint, fingerprint)
}

func (s *Store) updateField(ctx context.Context, email, field string, value any) error {
	res, err := s.db.NewUpdate().
		Model((*session.UserProfile)(nil)).
		Set("? = ?", bun.Ident(field), value).
		Set("updated_at = ?", time.Now().UTC()).
		Where("email = ?", email).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, session.ErrStoreUnavailable.Category, session.ErrStoreUnavailable.Message).
			WithTextCode(session.ErrStoreUnavailable.TextCode)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return session.ErrUserNotFound
	}

	return nil
}

func dedupe(cols []string) []string {
	seen := map[string]bool{}
	out := cols[:0]
	for _, c := range cols {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

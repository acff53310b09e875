package session

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// Standing is the account's lifecycle state.
type Standing = string

const (
	// StandingActive accounts resolve normally.
	StandingActive Standing = "active"
	// StandingSuspended accounts are blocked from refresh exchanges
	// until the suspension lapses.
	StandingSuspended Standing = "suspended"
)

// UserType buckets accounts by capability tier.
const (
	UserTypeStandard = "standard"
	UserTypeStaff    = "staff"
)

// DefaultAvatar is the profile picture every new account starts with.
const DefaultAvatar = "/images/default-avatar.svg"

// Attribute names shared by the store adapters and used to build
// field projections.
const (
	FieldEmail              = "email"
	FieldUsername           = "username"
	FieldProfilePicture     = "profile_picture"
	FieldPhone              = "phone_number"
	FieldRank               = "rank"
	FieldUserType           = "user_type"
	FieldUploadTokens       = "upload_token_balance"
	FieldActiveDecks        = "active_decks"
	FieldOwnedDecks         = "owned_decks"
	FieldCollabDecks        = "collab_decks"
	FieldSettings           = "settings"
	FieldStanding           = "standing"
	FieldSuspendedUntil     = "suspended_until"
	FieldLastLoginAt        = "last_login_at"
	FieldRefreshFingerprint = "refresh_fingerprint"
	FieldCreatedAt          = "created_at"
	FieldUpdatedAt          = "updated_at"
)

// DeckList is an ordered list of deck identifiers, duplicate free.
type DeckList []string

// Has reports whether the named deck is on the list.
func (d DeckList) Has(deck string) bool {
	for _, e := range d {
		if e == deck {
			return true
		}
	}
	return false
}

// Add appends a deck unless it is already listed.
func (d DeckList) Add(deck string) DeckList {
	if deck == "" || d.Has(deck) {
		return d
	}
	return append(d, deck)
}

// Remove drops a deck from the list if present.
func (d DeckList) Remove(deck string) DeckList {
	for i, e := range d {
		if e == deck {
			return append(d[:i], d[i+1:]...)
		}
	}
	return d
}

// UserProfile is the account record. Email is the primary key on every
// storage backend.
type UserProfile struct {
	bun.BaseModel      `bun:"table:users,alias:usr"`
	ID                 uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty" dynamodbav:"-"`
	Email              string            `bun:"email,notnull,unique" json:"email" dynamodbav:"email"`
	Username           string            `bun:"username,notnull" json:"username,omitempty" dynamodbav:"username,omitempty"`
	ProfilePicture     string            `bun:"profile_picture" json:"profile_picture,omitempty" dynamodbav:"profile_picture,omitempty"`
	Phone              string            `bun:"phone_number" json:"phone_number,omitempty" dynamodbav:"phone_number,omitempty"`
	Rank               string            `bun:"rank" json:"rank,omitempty" dynamodbav:"rank,omitempty"`
	UserType           string            `bun:"user_type" json:"user_type,omitempty" dynamodbav:"user_type,omitempty"`
	UploadTokens       int64             `bun:"upload_token_balance" json:"upload_token_balance,omitempty" dynamodbav:"upload_token_balance,omitempty"`
	ActiveDecks        DeckList          `bun:"active_decks,type:jsonb" json:"active_decks,omitempty" dynamodbav:"active_decks,omitempty"`
	OwnedDecks         DeckList          `bun:"owned_decks,type:jsonb" json:"owned_decks,omitempty" dynamodbav:"owned_decks,omitempty"`
	CollabDecks        DeckList          `bun:"collab_decks,type:jsonb" json:"collab_decks,omitempty" dynamodbav:"collab_decks,omitempty"`
	Settings           map[string]string `bun:"settings,type:jsonb" json:"settings,omitempty" dynamodbav:"settings,omitempty"`
	Standing           Standing          `bun:"standing,notnull" json:"standing,omitempty" dynamodbav:"standing,omitempty"`
	SuspendedUntil     *time.Time        `bun:"suspended_until,nullzero" json:"suspended_until,omitempty" dynamodbav:"suspended_until,omitempty"`
	LastLoginAt        *time.Time        `bun:"last_login_at,nullzero" json:"last_login_at,omitempty" dynamodbav:"last_login_at,omitempty"`
	RefreshFingerprint string            `bun:"refresh_fingerprint" json:"-" dynamodbav:"refresh_fingerprint,omitempty"`
	CreatedAt          *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty" dynamodbav:"created_at,omitempty"`
	UpdatedAt          *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty" dynamodbav:"updated_at,omitempty"`
}

// NewDefaultProfile builds the profile a finalized sign-up starts with.
// The ID is derived from the email so repeated finalizations of the
// same address always target the same record.
func NewDefaultProfile(email string) *UserProfile {
	now := time.Now()
	profile := &UserProfile{
		Email:          email,
		Username:       usernameFromEmail(email),
		ProfilePicture: DefaultAvatar,
		UserType:       UserTypeStandard,
		Standing:       StandingActive,
		CreatedAt:      &now,
	}
	if id, err := hashid.NewUUID(email); err == nil {
		profile.ID = id
	}
	return profile
}

// Suspended reports whether the account is blocked at the given instant.
// A lapsed suspension no longer blocks.
func (u *UserProfile) Suspended(now time.Time) bool {
	if u.Standing != StandingSuspended {
		return false
	}
	if u.SuspendedUntil == nil {
		return true
	}
	return now.Before(*u.SuspendedUntil)
}

// HasDeck reports whether the deck appears on any of the three lists.
func (u *UserProfile) HasDeck(deck string) bool {
	return u.ActiveDecks.Has(deck) || u.OwnedDecks.Has(deck) || u.CollabDecks.Has(deck)
}

// SetPhone normalizes and stores a phone number in E.164 form.
func (u *UserProfile) SetPhone(raw, region string) error {
	if raw == "" {
		u.Phone = ""
		return nil
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "failed to parse phone number")
	}
	u.Phone = phonenumbers.Format(number, phonenumbers.E164)
	return nil
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

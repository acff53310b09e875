package session

import "time"

// OutcomeKind enumerates every way a resolution attempt can end. The
// set is closed: consumers switch over it and treat anything else as a
// programming error.
type OutcomeKind string

const (
	OutcomeUnresolved            OutcomeKind = "unresolved"
	OutcomeVerificationFailure   OutcomeKind = "verification_failure"
	OutcomeTokenExpired          OutcomeKind = "token_expired"
	OutcomeAlreadySignedIn       OutcomeKind = "already_signed_in"
	OutcomeSignedIn              OutcomeKind = "signed_in"
	// OutcomeSignedInRefreshOnly means a valid refresh token was found
	// but no exchange could run, so the holder has no session yet.
	OutcomeSignedInRefreshOnly   OutcomeKind = "signed_in_refresh_only"
	OutcomeNotSignedIn           OutcomeKind = "not_signed_in"
	OutcomeRefreshExchangeFailed OutcomeKind = "refresh_exchange_failed"
	OutcomeAccountCreated        OutcomeKind = "account_created"
	OutcomeAccountCreationFailed OutcomeKind = "account_creation_failed"
	OutcomeEmailAlreadyInUse     OutcomeKind = "email_already_in_use"
	OutcomeUserSuspended         OutcomeKind = "user_suspended"
)

// Outcome is the result of a session resolution attempt. The zero value
// is Unresolved, the state before any attempt ran.
type Outcome struct {
	Kind           OutcomeKind `json:"kind"`
	Tokens         TokenPair   `json:"tokens,omitempty"`
	Subject        string      `json:"subject,omitempty"`
	Reason         string      `json:"reason,omitempty"`
	SuspendedUntil *time.Time  `json:"suspended_until,omitempty"`
}

// SignedIn reports whether the outcome leaves the caller holding a
// usable session. A refresh-only outcome does not: the holder still
// needs a successful exchange.
func (o Outcome) SignedIn() bool {
	switch o.Kind {
	case OutcomeAlreadySignedIn, OutcomeSignedIn, OutcomeAccountCreated:
		return true
	}
	return false
}

// Failed reports whether the attempt ended in an error state rather
// than a mere absence of credentials.
func (o Outcome) Failed() bool {
	switch o.Kind {
	case OutcomeVerificationFailure, OutcomeRefreshExchangeFailed,
		OutcomeAccountCreationFailed, OutcomeEmailAlreadyInUse, OutcomeUserSuspended:
		return true
	}
	return false
}

// Resolved reports whether an attempt has run at all.
func (o Outcome) Resolved() bool {
	return o.Kind != "" && o.Kind != OutcomeUnresolved
}

func signedInOutcome(kind OutcomeKind, subject string, pair TokenPair) Outcome {
	return Outcome{Kind: kind, Subject: subject, Tokens: pair}
}

func failedOutcome(kind OutcomeKind, reason string) Outcome {
	return Outcome{Kind: kind, Reason: reason}
}

func refreshOnlyOutcome(subject, refresh string) Outcome {
	return Outcome{Kind: OutcomeSignedInRefreshOnly, Subject: subject, Tokens: TokenPair{Refresh: refresh}}
}

func suspendedOutcome(subject string, until *time.Time) Outcome {
	return Outcome{Kind: OutcomeUserSuspended, Subject: subject, SuspendedUntil: until}
}

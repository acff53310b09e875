package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-errors"
)

// Resolver turns located credentials into a session outcome. Resolution
// probes in a fixed order: a still-valid Auth token wins outright, then
// a sign-up token is finalized, then the refresh token is exchanged.
// The refresh exchange makes exactly one identity store round trip and
// re-checks account standing every time.
//
// A valid Auth token resolves even when the account has since been
// suspended; the suspension takes hold at the next refresh exchange.
type Resolver struct {
	codec   *TokenCodec
	store   IdentityStore
	cache   *SessionCache
	sink    ActivitySink
	logger  Logger
	now     func() time.Time
	attempt atomic.Uint64
}

func NewResolver(codec *TokenCodec, store IdentityStore, cache *SessionCache) *Resolver {
	return &Resolver{
		codec:  codec,
		store:  store,
		cache:  cache,
		sink:   noopActivitySink{},
		logger: defLogger{},
		now:    time.Now,
	}
}

// WithLogger replaces the default logger.
func (r *Resolver) WithLogger(logger Logger) *Resolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// WithActivitySink attaches an audit sink. Sink failures never affect outcomes.
func (r *Resolver) WithActivitySink(sink ActivitySink) *Resolver {
	r.sink = normalizeActivitySink(sink)
	return r
}

// WithClock overrides the resolver clock, mainly for tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	if now != nil {
		r.now = now
	}
	return r
}

// Resolve runs one resolution attempt. Each call supersedes any attempt
// still in flight: a superseded attempt reports Unresolved instead of
// committing a stale outcome, and skips its cache and bookkeeping
// writes.
func (r *Resolver) Resolve(ctx context.Context, creds LocatedCredentials) Outcome {
	attempt := r.attempt.Add(1)

	outcome := r.resolve(ctx, creds, attempt)

	if !r.current(attempt) {
		r.logger.Debug("discarding superseded resolution attempt %d", attempt)
		return Outcome{Kind: OutcomeUnresolved}
	}

	return outcome
}

// Supersede invalidates any attempt still in flight without starting a
// new one. Sign-out calls this so an in-flight resolution cannot land
// tokens or a cached profile after the session was dropped.
func (r *Resolver) Supersede() {
	r.attempt.Add(1)
}

func (r *Resolver) current(attempt uint64) bool {
	return r.attempt.Load() == attempt
}

// ResolveAmbient resolves from the storage mirror alone, with no
// request in flight. A complete cache lets it skip everything but the
// local token check.
func (r *Resolver) ResolveAmbient(ctx context.Context, storage Storage) Outcome {
	return r.Resolve(ctx, LocateCredentials(NewMirrorSource(storage)))
}

func (r *Resolver) resolve(ctx context.Context, creds LocatedCredentials, attempt uint64) Outcome {
	if creds.Empty() {
		// a profile cached without any tokens backing it is orphaned
		if r.cache != nil && creds.CacheStatus != "" {
			r.cache.Invalidate()
		}
		return Outcome{Kind: OutcomeNotSignedIn}
	}

	// A live Auth token settles the attempt locally.
	if creds.Pair.Auth != "" {
		claims, err := r.codec.Classify(creds.Pair.Auth)
		switch {
		case err == nil && claims.Purpose() == PurposeAuth:
			if creds.LinkDelivered {
				return r.acceptDeliveredPair(ctx, claims, creds.Pair, attempt)
			}
			return signedInOutcome(OutcomeAlreadySignedIn, claims.Subject(), creds.Pair)
		case err == nil && claims.Purpose() == PurposeSignUp && creds.SignUp == "":
			// magic link token delivered through the token slot
			creds.SignUp = creds.Pair.Auth
		case err == nil:
			// a refresh token in the auth slot is not a session
		case IsTokenExpiredError(err):
			// expired is routine, the refresh path takes over
		case IsVerificationError(err):
			return failedOutcome(OutcomeVerificationFailure, errorReason(err))
		default:
			return failedOutcome(OutcomeVerificationFailure, errorReason(err))
		}
	}

	if creds.SignUp != "" {
		return r.finalizeSignUp(ctx, creds.SignUp, attempt)
	}

	if creds.Pair.Refresh != "" {
		return r.exchangeRefresh(ctx, creds.Pair, attempt)
	}

	return Outcome{Kind: OutcomeUnresolved}
}

// acceptDeliveredPair handles a whole pair arriving on a magic link.
// Both tokens were minted together after a standing check, so a pair
// that verifies is accepted without another store round trip. The
// SignedIn kind tells the caller the pair still needs persisting.
func (r *Resolver) acceptDeliveredPair(ctx context.Context, auth *Claims, pair TokenPair, attempt uint64) Outcome {
	if _, err := r.codec.Verify(pair.Refresh, PurposeRefresh); err != nil {
		// the auth half still carries the session on its own
		return signedInOutcome(OutcomeAlreadySignedIn, auth.Subject(), TokenPair{Auth: pair.Auth})
	}

	if r.current(attempt) {
		r.record(ctx, ActivityEventSignedIn, auth.Subject(), OutcomeSignedIn)
		r.afterExchange(auth.Subject(), pair.Refresh)
	}

	return signedInOutcome(OutcomeSignedIn, auth.Subject(), pair)
}

// finalizeSignUp turns a magic link token into an account. Creation is
// guarded by the store's if-absent put, so a reused link reports the
// email as taken instead of clobbering the account.
func (r *Resolver) finalizeSignUp(ctx context.Context, token string, attempt uint64) Outcome {
	claims, err := r.codec.Verify(token, PurposeSignUp)
	if err != nil {
		if IsTokenExpiredError(err) {
			return failedOutcome(OutcomeTokenExpired, "sign-up link expired")
		}
		return failedOutcome(OutcomeVerificationFailure, errorReason(err))
	}

	profile := NewDefaultProfile(claims.Subject())

	if err := r.store.PutUserIfAbsent(ctx, profile); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return failedOutcome(OutcomeEmailAlreadyInUse, claims.Subject())
		}
		r.logger.Error("sign-up finalization for %s failed: %v", claims.Subject(), err)
		return failedOutcome(OutcomeAccountCreationFailed, errorReason(err))
	}

	pair, err := r.codec.IssuePair(claims.Subject(), claims.Trusted())
	if err != nil {
		r.logger.Error("failed to mint pair for new account %s: %v", claims.Subject(), err)
		return failedOutcome(OutcomeAccountCreationFailed, errorReason(err))
	}

	if r.current(attempt) {
		if r.cache != nil {
			if err := r.cache.Put(profile, CacheComplete); err != nil {
				r.logger.Debug("profile cache write failed: %v", err)
			}
		}
		r.record(ctx, ActivityEventAccountCreated, claims.Subject(), OutcomeAccountCreated)
		r.afterExchange(claims.Subject(), pair.Refresh)
	}

	return signedInOutcome(OutcomeAccountCreated, claims.Subject(), pair)
}

// exchangeRefresh trades a refresh token for a fresh auth token,
// keeping the refresh token. This is the only resolution path that
// consults the identity store, and it does so with a single GetUser
// call.
func (r *Resolver) exchangeRefresh(ctx context.Context, located TokenPair, attempt uint64) Outcome {
	claims, err := r.codec.Verify(located.Refresh, PurposeRefresh)
	if err != nil {
		if IsTokenExpiredError(err) {
			return failedOutcome(OutcomeTokenExpired, "refresh token expired")
		}
		return failedOutcome(OutcomeVerificationFailure, errorReason(err))
	}

	email := claims.Subject()

	if r.store == nil {
		// nowhere to exchange, the caller keeps the bare refresh half
		return refreshOnlyOutcome(email, located.Refresh)
	}

	profile, err := r.store.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) && r.cache != nil {
			// account deleted server side, drop the local shadow
			r.cache.Invalidate()
		}
		r.logger.Error("refresh exchange for %s could not load profile: %v", email, err)
		r.record(ctx, ActivityEventRefreshFailed, email, OutcomeRefreshExchangeFailed)
		return failedOutcome(OutcomeRefreshExchangeFailed, errorReason(err))
	}

	if profile.Suspended(r.now()) {
		r.record(ctx, ActivityEventSuspendedBlock, email, OutcomeUserSuspended)
		return suspendedOutcome(email, profile.SuspendedUntil)
	}

	// only the auth half is reminted, the refresh token rides on
	auth, err := r.codec.Issue(PurposeAuth, email, claims.Trusted())
	if err != nil {
		if errors.Is(err, ErrKeyUnavailable) {
			// verify-only keyring, the refresh half survives unexchanged
			return refreshOnlyOutcome(email, located.Refresh)
		}
		r.logger.Error("failed to mint auth token during refresh exchange: %v", err)
		return failedOutcome(OutcomeRefreshExchangeFailed, errorReason(err))
	}
	pair := TokenPair{Auth: auth, Refresh: located.Refresh}

	if r.current(attempt) {
		if r.cache != nil {
			if err := r.cache.Put(profile, CacheComplete); err != nil {
				r.logger.Debug("profile cache write failed: %v", err)
			}
		}
		r.record(ctx, ActivityEventSignedIn, email, OutcomeSignedIn)
		r.afterExchange(email, pair.Refresh)
	}

	return signedInOutcome(OutcomeSignedIn, email, pair)
}

// afterExchange runs the bookkeeping writes that must not delay or fail
// the exchange: the last-login stamp and the refresh token fingerprint.
func (r *Resolver) afterExchange(email, refreshToken string) {
	at := r.now()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := r.store.TouchLastLogin(ctx, email, at); err != nil {
			r.logger.Debug("last-login stamp for %s failed: %v", email, err)
		}

		fingerprint, err := FingerprintToken(refreshToken)
		if err != nil {
			r.logger.Debug("refresh fingerprint for %s failed: %v", email, err)
			return
		}
		if err := r.store.RecordRefreshFingerprint(ctx, email, fingerprint); err != nil {
			r.logger.Debug("refresh fingerprint write for %s failed: %v", email, err)
		}
	}()
}

func (r *Resolver) record(ctx context.Context, event ActivityEventType, email string, kind OutcomeKind) {
	err := r.sink.Record(ctx, ActivityEvent{
		EventType:  event,
		Email:      email,
		Outcome:    kind,
		OccurredAt: r.now(),
	})
	if err != nil {
		r.logger.Debug("activity sink rejected %s: %v", event, err)
	}
}

func errorReason(err error) string {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr.TextCode
	}
	return err.Error()
}

// Package session resolves purpose-scoped tokens into signed-in
// sessions, and keeps the resolved profile cached next to the tokens.
//
// Tokens:
//   - Every token is an Ed25519-signed payload whose subject lives under
//     its purpose key (wannabe_user, refresh_user, user), so a token can
//     never stand in for a different purpose. Expiry travels as an
//     ISO-8601 UTC string and is mandatory; Auth tokens get a few hours
//     of leeway so a slow refresh never bounces the user.
//   - TokenPair joins the Auth and Refresh token into one wire string so
//     both halves travel and persist together.
//
// Resolution:
//   - Resolver probes credentials in a fixed order: a live Auth token
//     wins outright, a sign-up token is finalized into an account, and
//     otherwise the Refresh token is exchanged for a fresh Auth token
//     while the Refresh token rides on unchanged. The exchange makes
//     exactly one identity store round trip and re-checks
//     account standing every time. Every ending is an OutcomeKind, a
//     closed set callers can switch over.
//
// Identity stores:
//   - dynamostore runs against DynamoDB with a conditional put guarding
//     sign-up idempotency; repository offers the same surface on bun for
//     development and tests.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing sign-ins,
//     account creation, and suspension blocks. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue
//     without blocking resolution.
package session

// Package session implements the authentication and session lifecycle of
// the Fintrack dashboard client: a small explicit state machine over the
// states restoring, anonymous, authenticating, authenticated, and
// auth-failed, plus the durable token store and route guard around it.
//
// Lifecycle:
//   - Manager is the single source of truth and the only writer of both the
//     in-memory Session and the Store. Call Restore once at boot to decide
//     the initial state from persisted data, then Login/Logout/ClearError.
//     Consumers read snapshots via Current or Subscribe; a later Login
//     supersedes an earlier in-flight one so stale responses never
//     overwrite newer state.
//
// Persistence:
//   - Store keeps exactly two namespaced entries, the versioned user record
//     and the token string. BunStore is the durable sqlite-backed
//     implementation; MemoryStore backs tests. Malformed persisted data
//     reads as "no session" and is wiped on restore, never surfaced as an
//     error to the UI.
//
// Tokens:
//   - LegacyCodec reproduces the client's historical base64(JSON) token:
//     unauthenticated, unverified, expiry stamped but never checked.
//     SignedCodec is the opt-in HS256 replacement that actually validates.
//     Restore trusts any decodable stored token without consulting the
//     identity service; switching codecs is the supported way to tighten
//     that.
package session

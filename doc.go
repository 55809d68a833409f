// Package mailinglist provides the identity and subscription-lifecycle
// primitives of a mailing-list service: credential authentication backed by
// Argon2id password hashes, server-side admin sessions with identifier
// rotation, and the double-opt-in subscriber flow (register, confirm via
// emailed token, publish to confirmed subscribers).
//
// Subscription lifecycle:
//   - Subscribers carry a SubscriberStatus that is persisted via Bun. A row is
//     created as pending_confirmation together with its confirmation token in
//     one transaction; a duplicate email rolls the transaction back and is
//     reported to the caller exactly like a fresh subscription.
//   - Confirmation is idempotent: replaying a valid token is a no-op success.
//
// Authentication:
//   - Auther verifies credentials with a constant-shape algorithm. Unknown
//     usernames are verified against a placeholder hash so the wall-clock time
//     of a rejection does not reveal whether the account exists.
//   - SessionManager establishes server-side sessions and rotates the session
//     identifier on privilege elevation before the caller ever sees it.
//
// Rendering, routing tables, and the outbound email provider are consumed
// through narrow interfaces; they are not implemented here.
package mailinglist

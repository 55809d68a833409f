package mailinglist

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SubscriberStatus is the subscriber's lifecycle state
type SubscriberStatus = string

const (
	// SubscriberPending is a subscriber that has not yet clicked their link
	SubscriberPending SubscriberStatus = "pending_confirmation"
	// SubscriberConfirmed is a subscriber eligible to receive newsletters
	SubscriberConfirmed SubscriberStatus = "confirmed"
)

// Subscriber is the subscriptions model. Rows are created as
// pending_confirmation and flipped to confirmed exactly once; they are never
// deleted by this package.
type Subscriber struct {
	bun.BaseModel `bun:"table:subscriptions,alias:sub"`
	ID            uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string           `bun:"email,notnull,unique" json:"email,omitempty"`
	Name          string           `bun:"name,notnull" json:"name,omitempty"`
	Status        SubscriberStatus `bun:"status,notnull" json:"status,omitempty"`
	SubscribedAt  *time.Time       `bun:"subscribed_at,nullzero,default:current_timestamp" json:"subscribed_at,omitempty"`
}

// SubscriptionToken binds an unguessable confirmation token to a subscriber.
// The token column holds the 86 character base64url form, never raw bytes.
type SubscriptionToken struct {
	bun.BaseModel `bun:"table:subscription_tokens,alias:subtok"`
	Token         string      `bun:"subscription_token,pk" json:"-"`
	SubscriberID  uuid.UUID   `bun:"subscriber_id,notnull,type:uuid" json:"subscriber_id,omitempty"`
	Subscriber    *Subscriber `bun:"rel:has-one,join:subscriber_id=id" json:"subscriber,omitempty"`
}

// User is an operator account. Rows are provisioned out-of-band; this package
// only ever reads them. PasswordHash is a self-describing PHC string.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// SessionRecord is a server-side session row. The public identifier is
// rotated on login; LastSeen is bumped explicitly via SessionStore.Touch.
type SessionRecord struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            string    `bun:"id,pk" json:"-"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	FirstSeen     time.Time `bun:"first_seen,notnull" json:"first_seen,omitempty"`
	LastSeen      time.Time `bun:"last_seen,notnull" json:"last_seen,omitempty"`
}

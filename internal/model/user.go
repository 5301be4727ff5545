package model

import "time"

// Staff roles carried in the access token's "role" claim.
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// StaffUser represents a staff account as stored in the `staff_users`
// table.  Staff accounts are the only authenticated principals: every
// booking transition is attributed to one of them for auditing.
//
// Fields:
//
//	ID           – primary key identifier of the account.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – ADMIN or STAFF.
//	IsActive     – inactive accounts cannot log in.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type StaffUser struct {
	ID           uint64    // staff_users.id
	Email        string    // staff_users.email
	PasswordHash string    // staff_users.password_hash
	Role         string    // staff_users.role
	IsActive     bool      // staff_users.is_active
	CreatedAt    time.Time // staff_users.created_at
	UpdatedAt    time.Time // staff_users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owning staff account.
//	TokenHash – SHA-256 hex digest of the token value.
//	ExpiresAt – expiration timestamp of the token.
//	RevokedAt – when the token was revoked (null if still active).
//	CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// AuditEntry is the fact tuple handed to the audit sink for each staff
// action on a booking.
type AuditEntry struct {
	ActorID      uint64        `json:"actor_id"`
	Action       string        `json:"action"`
	Entity       string        `json:"entity"`
	EntityID     uint64        `json:"entity_id"`
	BeforeStatus BookingStatus `json:"before_status,omitempty"`
}

// AuditRecord is a stored audit_log row.
type AuditRecord struct {
	ID uint64 `json:"id"`
	AuditEntry
	CreatedAt time.Time `json:"created_at"`
}

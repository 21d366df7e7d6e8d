package model

import "time"

// Role names stored in users.role. Members are regular app users; admins
// may seed invite codes and matches.
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// User status values stored in users.user_status. A user starts at NONE,
// may be placed on a waitlist as PENDING, and becomes APPROVED only by
// redeeming an invite code.
const (
	StatusNone     = "NONE"
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
)

// User mirrors the `users` table. Handlers define their own response
// types; the password hash never leaves the repository/handler layer.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address (stored lower-cased).
//  PasswordHash – bcrypt hashed password.
//  DisplayName  – name shown to other users.
//  Role         – MEMBER or ADMIN.
//  UserStatus   – NONE, PENDING or APPROVED (see invite redemption).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation (UTC).
//  UpdatedAt    – timestamp of last update (UTC).
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	DisplayName  string    // users.display_name
	Role         string    // users.role
	UserStatus   string    // users.user_status
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the raw token is persisted.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

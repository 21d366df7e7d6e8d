package model

import "time"

// InviteCode represents one row of the `invite_codes` table. Codes gate
// onboarding: a code can be redeemed while it is active, not expired and
// below its use cap. Codes are never deleted; exhausted or deactivated
// codes stay around for audit.
//
// Fields:
//  ID          – primary key identifier.
//  Code        – normalized code string (trimmed, upper-cased, unique).
//  CreatedBy   – user who created the code (null for seeded codes).
//  MaxUses     – maximum number of redemptions (>= 1).
//  CurrentUses – redemptions so far; never exceeds MaxUses.
//  ExpiresAt   – optional expiry; null means the code never expires.
//  IsActive    – deactivated codes are not redeemable regardless of uses.
//  UsedBy      – last user to redeem the code (null until first use).
//  CreatedAt   – when the code was created.
type InviteCode struct {
	ID          uint64     // invite_codes.id
	Code        string     // invite_codes.code
	CreatedBy   *uint64    // invite_codes.created_by (nullable)
	MaxUses     uint32     // invite_codes.max_uses
	CurrentUses uint32     // invite_codes.current_uses
	ExpiresAt   *time.Time // invite_codes.expires_at (nullable)
	IsActive    bool       // invite_codes.is_active
	UsedBy      *uint64    // invite_codes.used_by (nullable)
	CreatedAt   time.Time  // invite_codes.created_at
}

package sellers

import "time"

// Role is the marketplace role attached to a user.
type Role string

const (
	RoleSeller Role = "SELLER"
	RoleBuyer  Role = "BUYER"
	RoleAdmin  Role = "ADMIN"
)

// VerificationStatus tracks the business verification of a seller.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Profile is the seller profile bound to a user account.
type Profile struct {
	ID                 int64
	UserID             int64
	Role               Role
	BusinessName       string
	VerificationStatus VerificationStatus
	CreatedAt          time.Time
}

// CanOperate reports whether the profile may use the seller back office.
func (p Profile) CanOperate() bool {
	return p.Role == RoleSeller && p.VerificationStatus == VerificationVerified
}

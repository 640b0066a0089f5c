package domain

import "time"

type UserRole string

const (
	RoleBuyer  UserRole = "BUYER"
	RoleSeller UserRole = "SELLER"
)

// User is read-only inside the core; registration and authentication live
// in the surrounding platform.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName,omitempty"`
	Role         UserRole  `json:"role"`
	ReferralCode *string   `json:"referralCode,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

package dto

import "time"

// SetRoleRequest selects the acting user.
type SetRoleRequest struct {
	UserName string `json:"user_name" form:"user_name"`
	UserRole string `json:"user_role" form:"user_role"`
}

// SessionResponse describes the acting user.
type SessionResponse struct {
	UserName  string     `json:"user_name"`
	UserRole  string     `json:"user_role"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

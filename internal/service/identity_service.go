package service

import (
	"github.com/spec-kit/ticket-desk/internal/domain"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// IdentityService resolves and switches the client-selected identity.
// There is no authentication: the role is whatever the client asks for,
// limited to the configured allow-lists.
type IdentityService struct {
	directory domain.Directory
}

// NewIdentityService builds the service over the given allow-lists.
func NewIdentityService(directory domain.Directory) *IdentityService {
	return &IdentityService{directory: directory}
}

// Directory returns the allow-lists.
func (s *IdentityService) Directory() domain.Directory {
	return s.directory
}

// Resolve turns stored session values into an identity, falling back to the
// default reporter when nothing usable is stored.
func (s *IdentityService) Resolve(name, role string) domain.Identity {
	fallback := s.directory.DefaultIdentity()
	if role == "" {
		role = string(fallback.Role)
	}
	parsed, ok := domain.ParseRole(role)
	if !ok {
		return fallback
	}
	if name == "" {
		name = fallback.Name
	}
	return domain.Identity{Name: name, Role: parsed}
}

// SetRole validates the requested combination. A name outside the role's
// allow-list is replaced by that role's default user; an unknown role fails.
func (s *IdentityService) SetRole(name, role string) (domain.Identity, error) {
	parsed, ok := domain.ParseRole(role)
	if !ok {
		return domain.Identity{}, apperrors.NewValidationError("Invalid user or role")
	}
	if s.directory.Contains(parsed, name) {
		return domain.Identity{Name: name, Role: parsed}, nil
	}
	return s.directory.DefaultFor(parsed), nil
}

package auth

import (
	"github.com/spec-kit/event-service/internal/domain"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

// Decision is the outcome of an access check.
type Decision int

const (
	Allowed Decision = iota
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "forbidden"
	}
}

// Authorize decides whether principal may perform an operation requiring
// capability. A nil principal is anonymous.
func Authorize(principal *domain.Principal, required domain.Capability) Decision {
	if required == domain.CapabilityAnonymous {
		return Allowed
	}
	if principal == nil {
		return Unauthenticated
	}
	if principal.Capability() >= required {
		return Allowed
	}
	return Forbidden
}

// Err converts a negative decision into the matching domain error.
func (d Decision) Err() error {
	switch d {
	case Allowed:
		return nil
	case Unauthenticated:
		return apperrors.NewUnauthorized("authentication required")
	default:
		return apperrors.NewForbidden("insufficient permissions")
	}
}

// Check is Authorize followed by Err.
func Check(principal *domain.Principal, required domain.Capability) error {
	return Authorize(principal, required).Err()
}

package application

import (
	"github.com/bunny/boardhole/internal/domain/entity"
)

// Principal is the authenticated caller, resolved from the session by the
// auth middleware and threaded explicitly through access checks. A nil
// Principal means the request carried no valid session.
type Principal struct {
	ID       int64
	Username string
	Roles    []entity.Role
}

func (p *Principal) IsAdmin() bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == entity.RoleAdmin {
			return true
		}
	}
	return false
}

// Decision is the outcome of an access check.
type Decision int

const (
	// Allow grants the operation; only then may the caller observe whether
	// the target exists.
	Allow Decision = iota
	// Unauthenticated means no valid session was presented.
	Unauthenticated
	// Forbidden means the caller is authenticated but not permitted. The
	// decision never consults storage, so callers get the same answer for
	// existing and missing targets (existence-hiding).
	Forbidden
)

// DecideUserAccess checks whether p may read, update, delete, or change the
// password of the user identified by targetID. Authentication absence wins
// over everything else; admins may touch any target; everyone else only
// themselves.
func DecideUserAccess(p *Principal, targetID int64) Decision {
	if p == nil {
		return Unauthenticated
	}
	if p.IsAdmin() {
		return Allow
	}
	if p.ID == targetID {
		return Allow
	}
	return Forbidden
}

// DecideUserList checks access to the user listing and search endpoints,
// which are admin-only. Authenticated owners still get Forbidden.
func DecideUserList(p *Principal) Decision {
	if p == nil {
		return Unauthenticated
	}
	if p.IsAdmin() {
		return Allow
	}
	return Forbidden
}

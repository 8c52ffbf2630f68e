package academy

import "fmt"

type roleKind uint8

const (
	roleOwner roleKind = iota + 1
	roleEmergencyAdminOrOwner
	roleCourseAuthor
)

// Role is an authorization requirement checked against a caller.
type Role struct {
	kind     roleKind
	courseID uint64
}

var (
	// RoleOwner is held by the platform owner only.
	RoleOwner = Role{kind: roleOwner}
	// RoleEmergencyAdminOrOwner is held by the owner and the emergency admin.
	RoleEmergencyAdminOrOwner = Role{kind: roleEmergencyAdminOrOwner}
)

// RoleCourseAuthor is held by the author of courseID.
func RoleCourseAuthor(courseID uint64) Role {
	return Role{kind: roleCourseAuthor, courseID: courseID}
}

func (r Role) String() string {
	switch r.kind {
	case roleOwner:
		return "owner"
	case roleEmergencyAdminOrOwner:
		return "emergency-admin-or-owner"
	case roleCourseAuthor:
		return fmt.Sprintf("author(course=%d)", r.courseID)
	default:
		return "unknown"
	}
}

func (e *Engine) authorize(s *Settings, caller [20]byte, role Role) error {
	switch role.kind {
	case roleOwner:
		if caller != s.Owner {
			return ErrUnauthorized
		}
	case roleEmergencyAdminOrOwner:
		if caller == s.Owner {
			return nil
		}
		if isZeroAddress(s.EmergencyAdmin) || caller != s.EmergencyAdmin {
			return ErrUnauthorized
		}
	case roleCourseAuthor:
		course, err := e.course(role.courseID)
		if err != nil {
			return err
		}
		if caller != course.Author {
			return ErrNotAuthor
		}
	default:
		return ErrUnauthorized
	}
	return nil
}

// Authorize fails with ErrUnauthorized (or ErrNotAuthor for course roles)
// when caller does not hold role.
func (e *Engine) Authorize(caller [20]byte, role Role) error {
	s, err := e.settings()
	if err != nil {
		return err
	}
	return e.authorize(s, caller, role)
}

// SetEmergencyAdmin appoints the secondary account allowed to pause.
func (e *Engine) SetEmergencyAdmin(caller, admin [20]byte) error {
	s, err := e.check(e.onlyRole(caller, RoleOwner))
	if err != nil {
		return err
	}
	if isZeroAddress(admin) {
		return ErrZeroAddress
	}
	previous := s.EmergencyAdmin
	s.EmergencyAdmin = admin
	if err := e.putSettings(s); err != nil {
		return err
	}
	e.emit(addressChangedEvent(EventTypeEmergencyAdminSet, previous, admin))
	return nil
}

// TransferOwnership hands every owner privilege, including the platform
// balance, to newOwner.
func (e *Engine) TransferOwnership(caller, newOwner [20]byte) error {
	s, err := e.check(e.onlyRole(caller, RoleOwner))
	if err != nil {
		return err
	}
	if isZeroAddress(newOwner) {
		return ErrZeroAddress
	}
	previous := s.Owner
	s.Owner = newOwner
	if err := e.putSettings(s); err != nil {
		return err
	}
	e.emit(addressChangedEvent(EventTypeOwnershipTransferred, previous, newOwner))
	return nil
}

package academy

import (
	"fmt"
	"math/big"
)

// Course returns the course with the supplied id.
func (e *Engine) Course(id uint64) (*Course, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.course(id)
}

// Enrollment returns the record for (courseID, student). A missing record
// yields ErrNotEnrolled.
func (e *Engine) Enrollment(courseID uint64, student [20]byte) (*Enrollment, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	record, err := e.enrollment(courseID, student)
	if err != nil {
		return nil, err
	}
	if !record.Exists() {
		return nil, ErrNotEnrolled
	}
	return record, nil
}

func (e *Engine) idList(key []byte) ([]uint64, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	var raw [][]byte
	if err := e.state.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(raw))
	for _, entry := range raw {
		id, ok := decodeUint64(entry)
		if !ok {
			return nil, fmt.Errorf("academy: corrupt index entry")
		}
		out = append(out, id)
	}
	return out, nil
}

// AuthorCourses lists the ids of courses created by author.
func (e *Engine) AuthorCourses(author [20]byte) ([]uint64, error) {
	return e.idList(authorCoursesKey(author))
}

// StudentCourses lists the ids of courses student enrolled in.
func (e *Engine) StudentCourses(student [20]byte) ([]uint64, error) {
	return e.idList(studentCoursesKey(student))
}

// CourseStudents lists the students enrolled in courseID in enrollment order.
func (e *Engine) CourseStudents(courseID uint64) ([][20]byte, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	var raw [][]byte
	if err := e.state.KVGetList(courseStudentsKey(courseID), &raw); err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 20 {
			return nil, fmt.Errorf("academy: corrupt index entry")
		}
		var addr [20]byte
		copy(addr[:], entry)
		out = append(out, addr)
	}
	return out, nil
}

// AuthorBalance returns the amount author can withdraw.
func (e *Engine) AuthorBalance(author [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.authorBalance(author)
}

// PlatformBalance returns the accrued, unwithdrawn platform fees.
func (e *Engine) PlatformBalance() (*big.Int, error) {
	s, err := e.settings()
	if err != nil {
		return nil, err
	}
	return newBigInt(s.PlatformBalance), nil
}

// PlatformFee returns the current fee in basis points.
func (e *Engine) PlatformFee() (uint64, error) {
	s, err := e.settings()
	if err != nil {
		return 0, err
	}
	return s.FeeBps, nil
}

// EmergencyAdmin returns the emergency admin. Only the owner may ask.
func (e *Engine) EmergencyAdmin(caller [20]byte) ([20]byte, error) {
	s, err := e.check(e.onlyRole(caller, RoleOwner))
	if err != nil {
		return [20]byte{}, err
	}
	return s.EmergencyAdmin, nil
}

// Owner returns the platform owner.
func (e *Engine) Owner() ([20]byte, error) {
	s, err := e.settings()
	if err != nil {
		return [20]byte{}, err
	}
	return s.Owner, nil
}

// CertificateContract returns the address of the certificate issuer.
func (e *Engine) CertificateContract() ([20]byte, error) {
	s, err := e.settings()
	if err != nil {
		return [20]byte{}, err
	}
	return s.CertificateContract, nil
}

// CourseCount returns the number of courses ever created.
func (e *Engine) CourseCount() (uint64, error) {
	s, err := e.settings()
	if err != nil {
		return 0, err
	}
	return s.NextCourseID - 1, nil
}

// Solvency returns what the platform owes (all author balances plus the
// platform balance) and what its account actually holds. Held never falls
// below liabilities, and the two match unless value reached the platform
// account outside of enrollments.
func (e *Engine) Solvency() (liabilities, held *big.Int, err error) {
	s, err := e.settings()
	if err != nil {
		return nil, nil, err
	}
	held, err = e.bank.Balance(e.address)
	if err != nil {
		return nil, nil, err
	}
	liabilities = new(big.Int).Add(s.AuthorLiabilities, s.PlatformBalance)
	return liabilities, held, nil
}

// Status summarises the platform.
func (e *Engine) Status() (*Status, error) {
	s, err := e.settings()
	if err != nil {
		return nil, err
	}
	liabilities, held, err := e.Solvency()
	if err != nil {
		return nil, err
	}
	return &Status{
		Owner:           s.Owner,
		Paused:          s.Paused,
		FeeBps:          s.FeeBps,
		CourseCount:     s.NextCourseID - 1,
		PlatformBalance: newBigInt(s.PlatformBalance),
		Liabilities:     liabilities,
		Held:            held,
	}, nil
}

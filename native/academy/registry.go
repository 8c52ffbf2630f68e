package academy

import (
	"fmt"
	"math/big"
	"strings"
)

func (e *Engine) course(id uint64) (*Course, error) {
	var course Course
	ok, err := e.state.KVGet(courseKey(id), &course)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	course.Price = newBigInt(course.Price)
	return &course, nil
}

func (e *Engine) putCourse(course *Course) error {
	return e.state.KVPut(courseKey(course.ID), course)
}

// enrollment returns the stored record or an empty one when the pair has
// never enrolled.
func (e *Engine) enrollment(courseID uint64, student [20]byte) (*Enrollment, error) {
	var record Enrollment
	ok, err := e.state.KVGet(enrollmentKey(courseID, student), &record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Enrollment{CourseID: courseID}, nil
	}
	record.PricePaid = newBigInt(record.PricePaid)
	record.PlatformFee = newBigInt(record.PlatformFee)
	return &record, nil
}

func (e *Engine) putEnrollment(record *Enrollment) error {
	return e.state.KVPut(enrollmentKey(record.CourseID, record.Student), record)
}

// CreateCourse publishes a course authored by caller and returns its id.
func (e *Engine) CreateCourse(caller [20]byte, title, description, metadataURI string, price *big.Int) (uint64, error) {
	s, err := e.check(whenNotPaused())
	if err != nil {
		return 0, err
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	metadataURI = strings.TrimSpace(metadataURI)
	switch {
	case title == "":
		return 0, fmt.Errorf("%w: title", ErrEmptyField)
	case description == "":
		return 0, fmt.Errorf("%w: description", ErrEmptyField)
	case metadataURI == "":
		return 0, fmt.Errorf("%w: metadataURI", ErrEmptyField)
	}
	if price != nil && price.Sign() < 0 {
		return 0, ErrInvalidPrice
	}
	course := &Course{
		ID:           s.NextCourseID,
		Title:        title,
		Description:  description,
		MetadataURI:  metadataURI,
		Author:       caller,
		Price:        newBigInt(price),
		IsActive:     true,
		CreationDate: e.now(),
	}
	err = e.atomic(func() error {
		s.NextCourseID++
		if err := e.putSettings(s); err != nil {
			return err
		}
		if err := e.putCourse(course); err != nil {
			return err
		}
		return e.state.KVAppend(authorCoursesKey(caller), encodeUint64(course.ID))
	})
	if err != nil {
		return 0, err
	}
	e.emit(courseCreatedEvent(course))
	return course.ID, nil
}

// UpdateCourse applies update to a course owned by caller.
func (e *Engine) UpdateCourse(caller [20]byte, courseID uint64, update CourseUpdate) error {
	if _, err := e.check(whenNotPaused(), e.onlyRole(caller, RoleCourseAuthor(courseID))); err != nil {
		return err
	}
	if update.Price != nil && update.Price.Sign() < 0 {
		return ErrInvalidPrice
	}
	course, err := e.course(courseID)
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(update.Title); v != "" {
		course.Title = v
	}
	if v := strings.TrimSpace(update.Description); v != "" {
		course.Description = v
	}
	if v := strings.TrimSpace(update.MetadataURI); v != "" {
		course.MetadataURI = v
	}
	if update.Price != nil && update.Price.Sign() > 0 {
		course.Price = new(big.Int).Set(update.Price)
	}
	course.IsActive = update.IsActive
	if err := e.putCourse(course); err != nil {
		return err
	}
	e.emit(courseUpdatedEvent(course))
	return nil
}

// EnrollInCourse collects paid from student, books the course price through
// the fee ledger and refunds any excess.
func (e *Engine) EnrollInCourse(student [20]byte, courseID uint64, paid *big.Int) error {
	s, release, err := e.nonReentrant(whenNotPaused())
	if err != nil {
		return err
	}
	defer release()

	paid = newBigInt(paid)
	if paid.Sign() < 0 {
		return ErrInvalidPrice
	}
	return e.atomic(func() error {
		if isZeroAddress(student) {
			return ErrStudentZero
		}
		course, err := e.course(courseID)
		if err != nil {
			return err
		}
		if !course.IsActive {
			return ErrCourseInactive
		}
		if paid.Cmp(course.Price) < 0 {
			return fmt.Errorf("%w: paid %s, price %s", ErrInsufficientPayment, paid, course.Price)
		}
		record, err := e.enrollment(courseID, student)
		if err != nil {
			return err
		}
		if record.Exists() {
			return ErrAlreadyEnrolled
		}

		if err := e.bank.Transfer(student, e.address, paid); err != nil {
			return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
		}
		authorCredit, platformCredit, err := e.creditEnrollment(s, course, course.Price)
		if err != nil {
			return err
		}
		record = &Enrollment{
			CourseID:       courseID,
			Student:        student,
			EnrollmentDate: e.now(),
			PricePaid:      new(big.Int).Set(course.Price),
			PlatformFee:    platformCredit,
		}
		if err := e.putEnrollment(record); err != nil {
			return err
		}
		if err := e.state.KVAppend(courseStudentsKey(courseID), student[:]); err != nil {
			return err
		}
		if err := e.state.KVAppend(studentCoursesKey(student), encodeUint64(courseID)); err != nil {
			return err
		}
		course.TotalEnrollments++
		if err := e.putCourse(course); err != nil {
			return err
		}

		refund := new(big.Int).Sub(paid, course.Price)
		if refund.Sign() > 0 {
			if err := e.bank.Transfer(e.address, student, refund); err != nil {
				return fmt.Errorf("%w: %w", ErrRefundFailed, err)
			}
		}
		e.emit(enrolledEvent(record, authorCredit, refund))
		return nil
	})
}

// CompleteCourse marks student as having finished courseID and attempts to
// mint the certificate. A failed mint leaves the completion in place with the
// certificate pending; the returned MintResult carries the failure.
func (e *Engine) CompleteCourse(caller [20]byte, courseID uint64, student [20]byte, certificateURI string) (MintResult, error) {
	_, release, err := e.nonReentrant(whenNotPaused(), e.onlyRole(caller, RoleCourseAuthor(courseID)))
	if err != nil {
		return MintResult{}, err
	}
	defer release()

	var result MintResult
	err = e.atomic(func() error {
		record, err := e.completable(courseID, student, certificateURI)
		if err != nil {
			return err
		}
		record.Completed = true
		record.CompletionDate = e.now()
		if err := e.putEnrollment(record); err != nil {
			return err
		}
		e.emit(courseCompletedEvent(courseID, student))

		result = e.mintCertificate(student, courseID, certificateURI)
		if !result.OK() {
			e.emit(certificatePendingEvent(courseID, student, result.Err))
			return nil
		}
		return e.recordIssued(record, result.CertificateID)
	})
	if err != nil {
		return MintResult{}, err
	}
	return result, nil
}

func (e *Engine) completable(courseID uint64, student [20]byte, uri string) (*Enrollment, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("%w: certificateURI", ErrEmptyField)
	}
	if isZeroAddress(student) {
		return nil, ErrStudentZero
	}
	record, err := e.enrollment(courseID, student)
	if err != nil {
		return nil, err
	}
	if !record.Exists() {
		return nil, ErrNotEnrolled
	}
	if record.Completed {
		return nil, ErrAlreadyCompleted
	}
	return record, nil
}

// RetryCertificateIssuance mints a certificate whose first attempt failed.
// Unlike CompleteCourse, a mint failure aborts the call.
func (e *Engine) RetryCertificateIssuance(caller [20]byte, courseID uint64, student [20]byte, certificateURI string) (uint64, error) {
	_, release, err := e.nonReentrant(whenNotPaused(), e.onlyRole(caller, RoleCourseAuthor(courseID)))
	if err != nil {
		return 0, err
	}
	defer release()

	var certificateID uint64
	err = e.atomic(func() error {
		if strings.TrimSpace(certificateURI) == "" {
			return fmt.Errorf("%w: certificateURI", ErrEmptyField)
		}
		record, err := e.enrollment(courseID, student)
		if err != nil {
			return err
		}
		switch {
		case !record.Exists():
			return ErrNotEnrolled
		case !record.Completed:
			return ErrNotCompleted
		case record.CertificateIssued:
			return ErrAlreadyIssued
		}
		result := e.mintCertificate(student, courseID, certificateURI)
		if !result.OK() {
			return result.Err
		}
		certificateID = result.CertificateID
		return e.recordIssued(record, result.CertificateID)
	})
	if err != nil {
		return 0, err
	}
	return certificateID, nil
}

func (e *Engine) recordIssued(record *Enrollment, certificateID uint64) error {
	record.CertificateIssued = true
	record.CertificateID = certificateID
	if err := e.putEnrollment(record); err != nil {
		return err
	}
	e.emit(certificateIssuedEvent(record.CourseID, record.Student, certificateID))
	return nil
}

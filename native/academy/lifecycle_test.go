package academy

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"learnchain/native/bank"
	"learnchain/native/certificate"
	"learnchain/native/common"
)

func (f *fixture) enrolledCourse(price int64) uint64 {
	f.t.Helper()
	id := f.createCourse(price)
	require.NoError(f.t, f.academy.EnrollInCourse(studentAddr, id, big.NewInt(price)))
	return id
}

func TestCreateCourse(t *testing.T) {
	f := newFixture(t, 250)

	_, err := f.academy.CreateCourse(authorAddr, "", "d", "u", big.NewInt(1))
	require.ErrorIs(t, err, ErrEmptyField)
	_, err = f.academy.CreateCourse(authorAddr, "t", " ", "u", big.NewInt(1))
	require.ErrorIs(t, err, ErrEmptyField)
	_, err = f.academy.CreateCourse(authorAddr, "t", "d", "", big.NewInt(1))
	require.ErrorIs(t, err, ErrEmptyField)
	_, err = f.academy.CreateCourse(authorAddr, "t", "d", "u", big.NewInt(-1))
	require.ErrorIs(t, err, ErrInvalidPrice)

	first := f.createCourse(100)
	second := f.createCourse(200)
	require.Equal(t, uint64(1), first)
	require.Equal(t, uint64(2), second)

	course, err := f.academy.Course(first)
	require.NoError(t, err)
	require.Equal(t, authorAddr, course.Author)
	require.True(t, course.IsActive)
	require.Zero(t, course.TotalEnrollments)
	require.Equal(t, uint64(testNow), course.CreationDate)

	ids, err := f.academy.AuthorCourses(authorAddr)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ids)
	count, err := f.academy.CourseCount()
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)
}

func TestUpdateCourse(t *testing.T) {
	f := newFixture(t, 250)
	id := f.createCourse(100)

	require.ErrorIs(t, f.academy.UpdateCourse(authorAddr, 42, CourseUpdate{IsActive: true}), ErrNotFound)
	err := f.academy.UpdateCourse(strangerAddr, id, CourseUpdate{Title: "stolen", IsActive: true})
	require.ErrorIs(t, err, ErrNotAuthor)
	require.Equal(t, KindAuthorization, KindOf(err))

	require.NoError(t, f.academy.UpdateCourse(authorAddr, id, CourseUpdate{
		Title:    "Advanced Go",
		Price:    big.NewInt(0),
		IsActive: false,
	}))
	course, err := f.academy.Course(id)
	require.NoError(t, err)
	require.Equal(t, "Advanced Go", course.Title)
	require.Equal(t, "Idiomatic Go", course.Description)
	require.Equal(t, "ipfs://course", course.MetadataURI)
	requireAmount(t, 100, course.Price)
	require.False(t, course.IsActive)
	require.Equal(t, authorAddr, course.Author)

	require.NoError(t, f.academy.UpdateCourse(authorAddr, id, CourseUpdate{Price: big.NewInt(300), IsActive: true}))
	course, err = f.academy.Course(id)
	require.NoError(t, err)
	requireAmount(t, 300, course.Price)
	require.True(t, course.IsActive)
}

func TestCompleteCourseMintsCertificate(t *testing.T) {
	f := newFixture(t, 250)
	id := f.enrolledCourse(1_000)

	result, err := f.academy.CompleteCourse(authorAddr, id, studentAddr, "ipfs://certificate")
	require.NoError(t, err)
	require.True(t, result.OK())
	require.Equal(t, uint64(1), result.CertificateID)

	record, err := f.academy.Enrollment(id, studentAddr)
	require.NoError(t, err)
	require.True(t, record.Completed)
	require.Equal(t, uint64(testNow), record.CompletionDate)
	require.True(t, record.CertificateIssued)
	require.Equal(t, result.CertificateID, record.CertificateID)

	owner, err := f.issuer.OwnerOf(result.CertificateID)
	require.NoError(t, err)
	require.Equal(t, studentAddr, owner)

	_, err = f.academy.CompleteCourse(authorAddr, id, studentAddr, "ipfs://certificate")
	require.ErrorIs(t, err, ErrAlreadyCompleted)
	_, err = f.academy.RetryCertificateIssuance(authorAddr, id, studentAddr, "ipfs://certificate")
	require.ErrorIs(t, err, ErrAlreadyIssued)

	held, err := f.issuer.CertificatesOf(studentAddr)
	require.NoError(t, err)
	require.Len(t, held, 1)
}

func TestCompleteCourseValidation(t *testing.T) {
	f := newFixture(t, 250)
	id := f.enrolledCourse(1_000)

	cases := []struct {
		name    string
		caller  [20]byte
		course  uint64
		student [20]byte
		uri     string
		err     error
	}{
		{"missing course", authorAddr, 99, studentAddr, "ipfs://c", ErrNotFound},
		{"not author", strangerAddr, id, studentAddr, "ipfs://c", ErrNotAuthor},
		{"empty uri", authorAddr, id, studentAddr, "", ErrEmptyField},
		{"zero student", authorAddr, id, [20]byte{}, "ipfs://c", ErrStudentZero},
		{"not enrolled", authorAddr, id, otherStudent, "ipfs://c", ErrNotEnrolled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.academy.CompleteCourse(tc.caller, tc.course, tc.student, tc.uri)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestCompleteSurvivesMintFailureAndRetryIssues(t *testing.T) {
	f := newFixture(t, 250)
	id := f.enrolledCourse(1_000)
	require.NoError(t, f.issuer.PauseMinting(issuerOwner))

	result, err := f.academy.CompleteCourse(authorAddr, id, studentAddr, "ipfs://certificate")
	require.NoError(t, err)
	require.True(t, result.Pending())
	require.ErrorIs(t, result.Err, ErrMintFailed)
	require.ErrorIs(t, result.Err, certificate.ErrMintingPaused)
	require.Equal(t, KindExternalCall, KindOf(result.Err))

	record, err := f.academy.Enrollment(id, studentAddr)
	require.NoError(t, err)
	require.True(t, record.Completed)
	require.False(t, record.CertificateIssued)
	require.Zero(t, record.CertificateID)

	pending := f.state.PendingEvents()
	require.Equal(t, EventTypeCertificatePending, pending[len(pending)-1].Type)

	// Retry propagates the failure and changes nothing.
	_, err = f.academy.RetryCertificateIssuance(authorAddr, id, studentAddr, "ipfs://certificate")
	require.ErrorIs(t, err, ErrMintFailed)
	record, err = f.academy.Enrollment(id, studentAddr)
	require.NoError(t, err)
	require.False(t, record.CertificateIssued)

	require.NoError(t, f.issuer.ResumeMinting(issuerOwner))
	certID, err := f.academy.RetryCertificateIssuance(authorAddr, id, studentAddr, "ipfs://certificate")
	require.NoError(t, err)
	require.NotZero(t, certID)

	record, err = f.academy.Enrollment(id, studentAddr)
	require.NoError(t, err)
	require.True(t, record.CertificateIssued)
	require.Equal(t, certID, record.CertificateID)

	_, err = f.academy.RetryCertificateIssuance(authorAddr, id, studentAddr, "ipfs://certificate")
	require.ErrorIs(t, err, ErrAlreadyIssued)
}

func TestRetryRequiresCompletion(t *testing.T) {
	f := newFixture(t, 250)
	id := f.enrolledCourse(1_000)

	_, err := f.academy.RetryCertificateIssuance(authorAddr, id, otherStudent, "ipfs://c")
	require.ErrorIs(t, err, ErrNotEnrolled)
	_, err = f.academy.RetryCertificateIssuance(authorAddr, id, studentAddr, "ipfs://c")
	require.ErrorIs(t, err, ErrNotCompleted)
	_, err = f.academy.RetryCertificateIssuance(strangerAddr, id, studentAddr, "ipfs://c")
	require.ErrorIs(t, err, ErrNotAuthor)
}

type countingIssuer struct {
	Issuer
	calls int
	fail  bool
}

func (c *countingIssuer) Mint(caller, student [20]byte, courseID uint64, uri string) (uint64, error) {
	c.calls++
	if c.fail {
		return 0, errors.New("issuer offline")
	}
	return c.Issuer.Mint(caller, student, courseID, uri)
}

func TestNoMintAfterIssuance(t *testing.T) {
	f := newFixture(t, 250)
	counter := &countingIssuer{Issuer: f.issuer}
	f.academy.SetIssuer(counter)
	id := f.enrolledCourse(1_000)

	_, err := f.academy.CompleteCourse(authorAddr, id, studentAddr, "ipfs://c")
	require.NoError(t, err)
	require.Equal(t, 1, counter.calls)

	for i := 0; i < 3; i++ {
		_, err = f.academy.RetryCertificateIssuance(authorAddr, id, studentAddr, "ipfs://c")
		require.ErrorIs(t, err, ErrAlreadyIssued)
		_, err = f.academy.CompleteCourse(authorAddr, id, studentAddr, "ipfs://c")
		require.ErrorIs(t, err, ErrAlreadyCompleted)
	}
	require.Equal(t, 1, counter.calls)
}

func TestIssuerFailureIsReverted(t *testing.T) {
	f := newFixture(t, 250)
	counter := &countingIssuer{Issuer: f.issuer, fail: true}
	f.academy.SetIssuer(counter)
	id := f.enrolledCourse(1_000)

	result, err := f.academy.CompleteCourse(authorAddr, id, studentAddr, "ipfs://c")
	require.NoError(t, err)
	require.True(t, result.Pending())
	require.Equal(t, 1, counter.calls)

	_, err = f.issuer.CertificateFor(studentAddr, id)
	require.ErrorIs(t, err, certificate.ErrNotFound)
}

func TestAuthorWithdraw(t *testing.T) {
	f := newFixture(t, 250)
	f.enrolledCourse(1_000_000)

	paid, err := f.academy.AuthorWithdraw(authorAddr)
	require.NoError(t, err)
	requireAmount(t, 975_000, paid)
	requireAmount(t, 0, f.authorBalance(authorAddr))
	requireAmount(t, 975_000, f.balance(authorAddr))
	requireAmount(t, 25_000, f.balance(platformAddr))
	f.requireSolvent()

	_, err = f.academy.AuthorWithdraw(authorAddr)
	require.ErrorIs(t, err, ErrNothingToWithdraw)
	_, err = f.academy.AuthorWithdraw(strangerAddr)
	require.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestWithdrawTransferFailureRollsBack(t *testing.T) {
	f := newFixture(t, 250)
	f.enrolledCourse(1_000_000)
	f.bank.SetReceiver(authorAddr, bank.ReceiverFunc(func([20]byte, *big.Int) error {
		return errors.New("wallet offline")
	}))

	_, err := f.academy.AuthorWithdraw(authorAddr)
	require.ErrorIs(t, err, ErrTransferFailed)
	require.Equal(t, KindTransfer, KindOf(err))
	requireAmount(t, 975_000, f.authorBalance(authorAddr))
	requireAmount(t, 0, f.balance(authorAddr))
	f.requireSolvent()

	f.bank.SetReceiver(authorAddr, nil)
	paid, err := f.academy.AuthorWithdraw(authorAddr)
	require.NoError(t, err)
	requireAmount(t, 975_000, paid)
}

func TestReentrantWithdrawIsRejected(t *testing.T) {
	f := newFixture(t, 250)
	f.enrolledCourse(1_000_000)

	var attempts []error
	f.bank.SetReceiver(authorAddr, bank.ReceiverFunc(func([20]byte, *big.Int) error {
		_, err := f.academy.AuthorWithdraw(authorAddr)
		attempts = append(attempts, err)
		return nil
	}))

	paid, err := f.academy.AuthorWithdraw(authorAddr)
	require.NoError(t, err)
	requireAmount(t, 975_000, paid)
	require.Len(t, attempts, 1)
	require.ErrorIs(t, attempts[0], ErrReentrant)
	require.ErrorIs(t, attempts[0], common.ErrReentrant)
	requireAmount(t, 975_000, f.balance(authorAddr))
	f.requireSolvent()
}

func TestPlatformWithdraw(t *testing.T) {
	f := newFixture(t, 250)
	f.enrolledCourse(1_000_000)

	_, err := f.academy.PlatformWithdraw(adminAddr)
	require.ErrorIs(t, err, ErrUnauthorized)

	paid, err := f.academy.PlatformWithdraw(ownerAddr)
	require.NoError(t, err)
	requireAmount(t, 25_000, paid)
	requireAmount(t, 25_000, f.balance(ownerAddr))
	requireAmount(t, 0, f.platformBalance())
	requireAmount(t, 975_000, f.authorBalance(authorAddr))
	f.requireSolvent()

	_, err = f.academy.PlatformWithdraw(ownerAddr)
	require.ErrorIs(t, err, ErrNothingToWithdraw)
}

func TestPauseGatesMutationsButNotWithdrawals(t *testing.T) {
	f := newFixture(t, 250)
	id := f.enrolledCourse(1_000_000)

	require.NoError(t, f.academy.Pause(adminAddr))
	paused, err := f.academy.Paused()
	require.NoError(t, err)
	require.True(t, paused)
	require.True(t, f.academy.IsPaused(ModuleName))

	err = f.academy.EnrollInCourse(otherStudent, id, big.NewInt(1_000_000))
	require.ErrorIs(t, err, ErrPaused)
	require.ErrorIs(t, err, common.ErrModulePaused)
	require.Equal(t, KindHalted, KindOf(err))
	_, err = f.academy.CreateCourse(authorAddr, "t", "d", "u", nil)
	require.ErrorIs(t, err, ErrPaused)
	require.ErrorIs(t, f.academy.UpdateCourse(authorAddr, id, CourseUpdate{IsActive: true}), ErrPaused)
	_, err = f.academy.CompleteCourse(authorAddr, id, studentAddr, "ipfs://c")
	require.ErrorIs(t, err, ErrPaused)
	_, err = f.academy.RetryCertificateIssuance(authorAddr, id, studentAddr, "ipfs://c")
	require.ErrorIs(t, err, ErrPaused)

	paid, err := f.academy.AuthorWithdraw(authorAddr)
	require.NoError(t, err)
	requireAmount(t, 975_000, paid)
	_, err = f.academy.PlatformWithdraw(ownerAddr)
	require.NoError(t, err)
	require.NoError(t, f.academy.UpdatePlatformFee(ownerAddr, 100))

	require.ErrorIs(t, f.academy.Unpause(adminAddr), ErrUnauthorized)
	require.NoError(t, f.academy.Unpause(ownerAddr))
	require.NoError(t, f.academy.EnrollInCourse(otherStudent, id, big.NewInt(1_000_000)))
}

func TestPauseTransitions(t *testing.T) {
	f := newFixture(t, 250)
	require.ErrorIs(t, f.academy.Pause(strangerAddr), ErrUnauthorized)
	require.ErrorIs(t, f.academy.Unpause(ownerAddr), ErrNotPaused)
	require.NoError(t, f.academy.Pause(ownerAddr))
	require.ErrorIs(t, f.academy.Pause(adminAddr), ErrPaused)
}

func TestAccessControl(t *testing.T) {
	f := newFixture(t, 250)
	id := f.createCourse(10)

	require.NoError(t, f.academy.Authorize(ownerAddr, RoleOwner))
	require.ErrorIs(t, f.academy.Authorize(adminAddr, RoleOwner), ErrUnauthorized)
	require.NoError(t, f.academy.Authorize(adminAddr, RoleEmergencyAdminOrOwner))
	require.NoError(t, f.academy.Authorize(ownerAddr, RoleEmergencyAdminOrOwner))
	require.ErrorIs(t, f.academy.Authorize(strangerAddr, RoleEmergencyAdminOrOwner), ErrUnauthorized)
	require.NoError(t, f.academy.Authorize(authorAddr, RoleCourseAuthor(id)))
	require.ErrorIs(t, f.academy.Authorize(ownerAddr, RoleCourseAuthor(id)), ErrNotAuthor)
	require.ErrorIs(t, f.academy.Authorize(authorAddr, RoleCourseAuthor(id+1)), ErrNotFound)

	require.ErrorIs(t, f.academy.SetEmergencyAdmin(adminAddr, strangerAddr), ErrUnauthorized)
	require.ErrorIs(t, f.academy.SetEmergencyAdmin(ownerAddr, [20]byte{}), ErrZeroAddress)
	require.NoError(t, f.academy.SetEmergencyAdmin(ownerAddr, strangerAddr))

	pending := f.state.PendingEvents()
	last := pending[len(pending)-1]
	require.Equal(t, EventTypeEmergencyAdminSet, last.Type)
	require.Equal(t, hexAddr(adminAddr), last.Attributes["previous"])
	require.Equal(t, hexAddr(strangerAddr), last.Attributes["current"])

	_, err := f.academy.EmergencyAdmin(strangerAddr)
	require.ErrorIs(t, err, ErrUnauthorized)
	admin, err := f.academy.EmergencyAdmin(ownerAddr)
	require.NoError(t, err)
	require.Equal(t, strangerAddr, admin)
	require.ErrorIs(t, f.academy.Pause(adminAddr), ErrUnauthorized)
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t, 250)
	require.ErrorIs(t, f.academy.TransferOwnership(strangerAddr, strangerAddr), ErrUnauthorized)
	require.ErrorIs(t, f.academy.TransferOwnership(ownerAddr, [20]byte{}), ErrZeroAddress)
	require.NoError(t, f.academy.TransferOwnership(ownerAddr, strangerAddr))

	owner, err := f.academy.Owner()
	require.NoError(t, err)
	require.Equal(t, strangerAddr, owner)
	require.ErrorIs(t, f.academy.UpdatePlatformFee(ownerAddr, 1), ErrUnauthorized)
	require.NoError(t, f.academy.UpdatePlatformFee(strangerAddr, 1))
}

func TestSolvencyAcrossSequence(t *testing.T) {
	f := newFixture(t, 333)
	prices := []int64{1_234_567, 999, 42, 0, 10_001}
	ids := make([]uint64, len(prices))
	for i, price := range prices {
		ids[i] = f.createCourse(price)
	}
	students := [][20]byte{studentAddr, otherStudent, strangerAddr}
	for i, id := range ids {
		for j, student := range students {
			if (i+j)%2 == 0 {
				continue
			}
			require.NoError(t, f.academy.EnrollInCourse(student, id, big.NewInt(prices[i]+int64(j))))
			f.requireSolvent()
		}
		if i == 2 {
			_, err := f.academy.AuthorWithdraw(authorAddr)
			require.NoError(t, err)
			f.requireSolvent()
			requireAmount(t, 0, f.authorBalance(authorAddr))
		}
		if i == 3 {
			require.NoError(t, f.academy.UpdatePlatformFee(ownerAddr, 1_000))
		}
	}
	_, err := f.academy.PlatformWithdraw(ownerAddr)
	require.NoError(t, err)
	f.requireSolvent()

	status, err := f.academy.Status()
	require.NoError(t, err)
	require.Equal(t, uint64(len(prices)), status.CourseCount)
	require.Equal(t, 0, status.Liabilities.Cmp(status.Held))
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindNone, KindOf(nil))
	require.Equal(t, KindInternal, KindOf(errors.New("boom")))
	require.Equal(t, KindValidation, KindOf(ErrEmptyField))
	require.Equal(t, KindAuthorization, KindOf(ErrNotAuthor))
	require.Equal(t, KindStateConflict, KindOf(ErrAlreadyIssued))
	require.Equal(t, KindStateConflict, KindOf(common.ErrReentrant))
	require.Equal(t, "transfer_failure", KindOf(ErrRefundFailed).String())
	require.Equal(t, KindHalted, KindOf(ErrPaused))
}

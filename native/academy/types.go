package academy

import "math/big"

// MaxPlatformFeeBps caps the platform fee at 10%.
const MaxPlatformFeeBps uint64 = 1_000

const bpsDenominator = 10_000

// Course is a listing published by its author.
type Course struct {
	ID               uint64   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	MetadataURI      string   `json:"metadataUri"`
	Author           [20]byte `json:"author"`
	Price            *big.Int `json:"price"`
	IsActive         bool     `json:"isActive"`
	TotalEnrollments uint64   `json:"totalEnrollments"`
	CreationDate     uint64   `json:"creationDate"`
}

// Clone returns a deep copy of the course.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Price = newBigInt(c.Price)
	return &clone
}

// CourseUpdate carries the mutable course fields. Empty strings and a nil or
// zero price leave the stored value unchanged; IsActive always applies.
type CourseUpdate struct {
	Title       string
	Description string
	MetadataURI string
	Price       *big.Int
	IsActive    bool
}

// Enrollment tracks a student's progress through a course. A zero Student
// marks a missing record.
type Enrollment struct {
	CourseID          uint64   `json:"courseId"`
	Student           [20]byte `json:"student"`
	EnrollmentDate    uint64   `json:"enrollmentDate"`
	Completed         bool     `json:"completed"`
	CompletionDate    uint64   `json:"completionDate"`
	CertificateIssued bool     `json:"certificateIssued"`
	CertificateID     uint64   `json:"certificateId"`
	PricePaid         *big.Int `json:"pricePaid"`
	PlatformFee       *big.Int `json:"platformFee"`
}

// Exists reports whether the record refers to a real enrollment.
func (e *Enrollment) Exists() bool {
	return e != nil && !isZeroAddress(e.Student)
}

// Clone returns a deep copy of the enrollment.
func (e *Enrollment) Clone() *Enrollment {
	if e == nil {
		return nil
	}
	clone := *e
	clone.PricePaid = newBigInt(e.PricePaid)
	clone.PlatformFee = newBigInt(e.PlatformFee)
	return &clone
}

// Settings is the platform's administrative and fee-ledger scalar state.
type Settings struct {
	Owner               [20]byte
	EmergencyAdmin      [20]byte
	CertificateContract [20]byte
	FeeBps              uint64
	Paused              bool
	NextCourseID        uint64
	PlatformBalance     *big.Int
	AuthorLiabilities   *big.Int
}

// InitConfig seeds the platform at genesis.
type InitConfig struct {
	Owner          [20]byte
	EmergencyAdmin [20]byte
	FeeBps         uint64
}

// Status summarises the platform for operators.
type Status struct {
	Owner           [20]byte `json:"owner"`
	Paused          bool     `json:"paused"`
	FeeBps          uint64   `json:"feeBps"`
	CourseCount     uint64   `json:"courseCount"`
	PlatformBalance *big.Int `json:"platformBalance"`
	Liabilities     *big.Int `json:"liabilities"`
	Held            *big.Int `json:"held"`
}

func newBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

package certificate

// Certificate is a non-fungible completion credential owned by a student.
type Certificate struct {
	ID       uint64   `json:"id"`
	Owner    [20]byte `json:"owner"`
	CourseID uint64   `json:"courseId"`
	URI      string   `json:"uri"`
	Issuer   [20]byte `json:"issuer"`
	IssuedAt uint64   `json:"issuedAt"`
}

// Clone returns a copy of the certificate.
func (c *Certificate) Clone() *Certificate {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Settings is the issuer's administrative record.
type Settings struct {
	Owner         [20]byte
	Platform      [20]byte
	MintingPaused bool
	NextID        uint64
}

package certificate

import "encoding/binary"

var (
	settingsKey       = []byte("certificate/settings")
	tokenPrefix       = []byte("certificate/token/")
	ownerIndexPrefix  = []byte("certificate/owner/")
	issuedIndexPrefix = []byte("certificate/issued/")
)

func encodeID(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

func decodeID(raw []byte) (uint64, bool) {
	if len(raw) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(raw), true
}

func tokenKey(id uint64) []byte {
	return append(append([]byte{}, tokenPrefix...), encodeID(id)...)
}

func ownerIndexKey(owner [20]byte) []byte {
	return append(append([]byte{}, ownerIndexPrefix...), owner[:]...)
}

func issuedKey(student [20]byte, courseID uint64) []byte {
	key := append(append([]byte{}, issuedIndexPrefix...), student[:]...)
	return append(key, encodeID(courseID)...)
}

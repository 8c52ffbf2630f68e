package academy

import "encoding/binary"

var (
	settingsKey          = []byte("academy/settings")
	coursePrefix         = []byte("academy/course/")
	enrollmentPrefix     = []byte("academy/enrollment/")
	authorCoursesPrefix  = []byte("academy/index/author/")
	studentCoursesPrefix = []byte("academy/index/student/")
	courseStudentsPrefix = []byte("academy/index/course/")
	authorBalancePrefix  = []byte("academy/balance/author/")
)

func encodeUint64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

func decodeUint64(raw []byte) (uint64, bool) {
	if len(raw) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(raw), true
}

func prefixed(prefix []byte, parts ...[]byte) []byte {
	key := append([]byte{}, prefix...)
	for _, part := range parts {
		key = append(key, part...)
	}
	return key
}

func courseKey(id uint64) []byte { return prefixed(coursePrefix, encodeUint64(id)) }

func enrollmentKey(courseID uint64, student [20]byte) []byte {
	return prefixed(enrollmentPrefix, encodeUint64(courseID), student[:])
}

func authorCoursesKey(author [20]byte) []byte { return prefixed(authorCoursesPrefix, author[:]) }

func studentCoursesKey(student [20]byte) []byte { return prefixed(studentCoursesPrefix, student[:]) }

func courseStudentsKey(courseID uint64) []byte {
	return prefixed(courseStudentsPrefix, encodeUint64(courseID))
}

func authorBalanceKey(author [20]byte) []byte { return prefixed(authorBalancePrefix, author[:]) }

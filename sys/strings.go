package sys

import (
	"strings"
	"unsafe"
)

// CString returns s as a NUL-terminated byte slice. It reports false when s
// contains a NUL byte and so cannot be represented as a C string.
func CString(s string) ([]byte, bool) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, false
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b, true
}

// GoString copies the NUL-terminated string starting at p.
func GoString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

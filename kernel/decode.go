package kernel

import (
	"bytes"
	"unicode/utf8"

	"github.com/wippyai/ortext/errors"
)

// queryThenFill runs the native size-then-fill protocol: the first call gets
// a nil buffer and reports the required length, the second fills a buffer of
// exactly that length. A length of zero is valid.
func queryThenFill[T any](call func(out []T, size *int) error) ([]T, error) {
	var size int
	if err := call(nil, &size); err != nil {
		return nil, err
	}
	out := make([]T, size)
	if err := call(out, &size); err != nil {
		return nil, err
	}
	return out[:min(size, len(out))], nil
}

// decodeCString converts a NUL-terminated native buffer. An empty buffer is
// the empty string.
func decodeCString(path []string, buf []byte) (string, error) {
	if len(buf) == 0 {
		return "", nil
	}
	if buf[len(buf)-1] != 0 {
		return "", errors.InvalidData(errors.PhaseDecode, path, "string is not NUL terminated")
	}
	s := buf[:len(buf)-1]
	if bytes.IndexByte(s, 0) >= 0 {
		return "", errors.InvalidData(errors.PhaseDecode, path, "string contains an interior NUL byte")
	}
	if !utf8.Valid(s) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, path, s)
	}
	return string(s), nil
}

func nativeErr(op string, path []string, cause error) error {
	return errors.New(errors.PhaseDecode, errors.KindNativeStatus).
		Path(path...).
		Detail("%s", op).
		Cause(cause).
		Build()
}

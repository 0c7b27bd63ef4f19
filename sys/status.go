package sys

import (
	"errors"
	"fmt"
)

// ErrorCode mirrors OrtErrorCode.
type ErrorCode int32

const (
	CodeOK ErrorCode = iota
	CodeFail
	CodeInvalidArgument
	CodeNoSuchFile
	CodeNoModel
	CodeEngineError
	CodeRuntimeException
	CodeInvalidProtobuf
	CodeModelLoaded
	CodeNotImplemented
	CodeInvalidGraph
	CodeEPFail
)

// Status is a failed native call. The native status object has already been
// released by the time a Status is returned; only its code and message survive.
type Status struct {
	Code    ErrorCode
	Message string
}

func (s *Status) Error() string {
	return fmt.Sprintf("onnxruntime status %d: %s", s.Code, s.Message)
}

// NewStatus creates a Status with the given code and message.
func NewStatus(code ErrorCode, format string, args ...any) *Status {
	return &Status{Code: code, Message: fmt.Sprintf(format, args...)}
}

// StatusFromError converts err for return to native code. A *Status in the
// chain keeps its code; anything else becomes CodeFail.
func StatusFromError(err error) *Status {
	if err == nil {
		return nil
	}
	var st *Status
	if errors.As(err, &st) && st.Code != CodeOK {
		return &Status{Code: st.Code, Message: err.Error()}
	}
	return &Status{Code: CodeFail, Message: err.Error()}
}

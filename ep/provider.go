package ep

import (
	"github.com/wippyai/ortext/sys"
)

// Session is the part of a session builder a provider registers against.
type Session interface {
	API() sys.API
	Ptr() sys.SessionOptions
}

// ExecutionProvider is a compute backend that can be attached to a session.
type ExecutionProvider interface {
	// Name is the native provider name, e.g. "CUDAExecutionProvider".
	Name() string
	// SupportedByPlatform reports whether the provider can exist on the
	// target OS and architecture. It never calls into native code.
	SupportedByPlatform() bool
	// Register attaches the provider to s. It fails with a missing-feature
	// error when the provider's backend was not compiled in.
	Register(s Session) error
}

// Platform is an operating system and architecture pair, in GOOS/GOARCH terms.
type Platform struct {
	OS   string
	Arch string
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Supported reports whether goos/goarch appears in table.
func Supported(table []Platform, goos, goarch string) bool {
	for _, p := range table {
		if p.OS == goos && p.Arch == goarch {
			return true
		}
	}
	return false
}

package ep

import (
	"runtime"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/sys"
)

// Options is an ordered set of provider options. Keys are unique; setting an
// existing key replaces its value in place.
type Options struct {
	keys   []string
	values map[string]string
}

// NewOptions creates an empty option set.
func NewOptions() *Options {
	return &Options{values: make(map[string]string)}
}

// Set stores value under key. The native runtime validates values at
// registration time.
func (o *Options) Set(key, value string) {
	if o.values == nil {
		o.values = make(map[string]string)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value stored under key.
func (o *Options) Get(key string) (string, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (o *Options) Len() int {
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *Options) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Each calls fn for every option in insertion order.
func (o *Options) Each(fn func(key, value string)) {
	for _, k := range o.keys {
		fn(k, o.values[k])
	}
}

// Clone returns an independent copy.
func (o *Options) Clone() *Options {
	c := &Options{
		keys:   append([]string(nil), o.keys...),
		values: make(map[string]string, len(o.values)),
	}
	for k, v := range o.values {
		c.values[k] = v
	}
	return c
}

// FFIOptions is the native view of an option set: parallel arrays of
// NUL-terminated keys and values. The strings are pinned until Release.
type FFIOptions struct {
	keys    []*byte
	values  []*byte
	storage [][]byte
	pinner  runtime.Pinner
}

// ToFFI builds the native view. It fails when a key or value contains a NUL
// byte. The view is a snapshot; the caller must Release it once the native
// call that consumes it has returned.
func (o *Options) ToFFI() (*FFIOptions, error) {
	f := &FFIOptions{
		keys:    make([]*byte, 0, len(o.keys)),
		values:  make([]*byte, 0, len(o.keys)),
		storage: make([][]byte, 0, 2*len(o.keys)),
	}
	for _, k := range o.keys {
		kb, ok := sys.CString(k)
		if !ok {
			f.Release()
			return nil, errors.InvalidData(errors.PhaseEncode, []string{k}, "option key contains a NUL byte")
		}
		vb, ok := sys.CString(o.values[k])
		if !ok {
			f.Release()
			return nil, errors.InvalidData(errors.PhaseEncode, []string{k}, "option value contains a NUL byte")
		}
		f.pinner.Pin(&kb[0])
		f.pinner.Pin(&vb[0])
		f.storage = append(f.storage, kb, vb)
		f.keys = append(f.keys, &kb[0])
		f.values = append(f.values, &vb[0])
	}
	return f, nil
}

// Keys returns the key pointers.
func (f *FFIOptions) Keys() []*byte {
	return f.keys
}

// Values returns the value pointers, index-aligned with Keys.
func (f *FFIOptions) Values() []*byte {
	return f.values
}

// Len returns the number of entries.
func (f *FFIOptions) Len() int {
	return len(f.keys)
}

// Release unpins the backing strings.
func (f *FFIOptions) Release() {
	f.pinner.Unpin()
	f.keys, f.values, f.storage = nil, nil, nil
}

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/internal/refort"
	"github.com/wippyai/ortext/sys"
)

func TestInfo_CPU(t *testing.T) {
	r := refort.New()
	info, err := NewCPUInfo(r, AllocatorArena, MemTypeDefault)
	require.NoError(t, err)

	assert.Equal(t, DeviceCPU, info.DeviceType())
	assert.True(t, info.IsCPUAccessible())
	name, err := info.Name()
	require.NoError(t, err)
	assert.Equal(t, NameCPU, name)

	info.Close()
	info.Close()
	assert.Equal(t, 1, r.Count("ReleaseMemoryInfo"))
	assert.Empty(t, r.Misuse())
}

func TestInfo_IsCPUAccessible(t *testing.T) {
	tests := []struct {
		name string
		mt   MemType
		want bool
	}{
		{NameCUDA, MemTypeDefault, false},
		{NameCUDA, MemTypeCPUInput, true},
		{NameCUDA, MemTypeCPUOutput, true},
		{NameCUDAPinned, MemTypeDefault, true},
		{NameCPU, MemTypeDefault, true},
	}

	r := refort.New()
	for _, tt := range tests {
		info, err := NewInfo(r, tt.name, AllocatorDevice, 0, tt.mt)
		require.NoError(t, err)
		assert.Equal(t, tt.want, info.IsCPUAccessible(), "%s/%d", tt.name, tt.mt)
		info.Close()
	}
	assert.Zero(t, r.Live(refort.KindMemoryInfo))
}

func TestInfo_UnknownDevice(t *testing.T) {
	r := refort.New()
	_, err := NewInfo(r, "Tpu", AllocatorDevice, 0, MemTypeDefault)
	require.Error(t, err)

	var st *sys.Status
	assert.ErrorAs(t, err, &st)
	assert.ErrorIs(t, err, errors.ErrNativeStatus)
}

func TestBorrowInfo_CloseIsNoop(t *testing.T) {
	r := refort.New()
	a, err := DefaultAllocator(r)
	require.NoError(t, err)

	info, err := a.Info()
	require.NoError(t, err)
	info.Close()
	assert.Zero(t, r.Count("ReleaseMemoryInfo"))
}

func TestAllocator(t *testing.T) {
	r := refort.New()
	a, err := DefaultAllocator(r)
	require.NoError(t, err)

	p, err := a.Alloc(128)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NoError(t, a.Free(p))
	assert.Zero(t, r.Outstanding())

	require.NoError(t, a.Free(nil))

	_, err = a.Alloc(-1)
	assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindInvalidInput})

	r.FailOn("AllocatorAlloc", sys.CodeFail, "out of memory")
	_, err = a.Alloc(16)
	assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindAllocation})
}

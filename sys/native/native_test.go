//go:build ort

package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ortext/memory"
	"github.com/wippyai/ortext/sys"
)

func TestSessionOptions(t *testing.T) {
	api, err := New()
	require.NoError(t, err)

	so, err := api.CreateSessionOptions()
	require.NoError(t, err)
	require.NotNil(t, so)
	api.ReleaseSessionOptions(so)
}

func TestCPUMemoryInfo(t *testing.T) {
	api, err := New()
	require.NoError(t, err)

	info, err := memory.NewCPUInfo(api, sys.AllocatorArena, sys.MemTypeDefault)
	require.NoError(t, err)
	defer info.Close()

	assert.True(t, info.IsCPUAccessible())
	name, err := info.Name()
	require.NoError(t, err)
	assert.Equal(t, "Cpu", name)
}

func TestDefaultAllocator(t *testing.T) {
	api, err := New()
	require.NoError(t, err)

	alloc, err := memory.DefaultAllocator(api)
	require.NoError(t, err)
	p, err := alloc.Alloc(64)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NoError(t, alloc.Free(p))
}

func TestStatusRoundTrip(t *testing.T) {
	_, err := New()
	require.NoError(t, err)

	st := toStatus(sys.NewStatus(sys.CodeInvalidArgument, "bad shape"))
	require.NotNil(t, st)
	err = toError(st)
	var got *sys.Status
	require.ErrorAs(t, err, &got)
	assert.Equal(t, sys.CodeInvalidArgument, got.Code)
	assert.Contains(t, got.Message, "bad shape")

	assert.Nil(t, toStatus(nil))
}

package endpoint

import (
	"testing"

	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorDefaults(t *testing.T) {
	k := MustNew("dir.host", 1414, "CH")

	d := NewDescriptor(" mq8 ", k, 0, -5)
	assert.Equal(t, "mq8", d.PoolName)
	assert.Equal(t, DefaultProtocolWait, d.ProtocolWait)
	assert.Equal(t, DefaultProtocolExpiry, d.ProtocolExpiry)
	assert.False(t, d.Synthesized())

	d = NewDescriptor("mq8", k, 5, 10)
	assert.Equal(t, 5, d.ProtocolWait)
	assert.Equal(t, 10, d.ProtocolExpiry)
}

func TestSynthesizeNamesAreUnique(t *testing.T) {
	k := MustNew("dir.host", 1415, "CH")

	a := Synthesize(k)
	b := Synthesize(k)

	assert.True(t, a.Synthesized())
	assert.Regexp(t, `^Pool#\d+$`, a.PoolName)
	assert.NotEqual(t, a.PoolName, b.PoolName)
	assert.Same(t, k, a.Key)
}

func TestDirectoryBindAndLookup(t *testing.T) {
	d := NewDirectory()
	k := MustNew("dir.host", 1416, "CH")
	other := MustNew("dir.host", 1417, "CH")

	require.NoError(t, d.Bind(NewDescriptor("mq8", k, 0, 0)))
	require.NoError(t, d.Bind(NewDescriptor("mq8", k, 0, 0)), "rebinding to the same key is a no-op")

	err := d.Bind(NewDescriptor("mq8", other, 0, 0))
	assert.ErrorIs(t, err, mqerr.ErrInvalidArgument)

	got, ok := d.Lookup("mq8")
	require.True(t, ok)
	assert.Same(t, k, got)

	name, ok := d.NameOf(k)
	require.True(t, ok)
	assert.Equal(t, "mq8", name)

	desc, ok := d.Descriptor(k)
	require.True(t, ok)
	assert.Equal(t, "mq8", desc.PoolName)

	_, ok = d.Lookup("mq9")
	assert.False(t, ok)
	_, ok = d.NameOf(other)
	assert.False(t, ok)
}

func TestDirectoryNamesSorted(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.Bind(NewDescriptor("zeta", MustNew("dir.host", 1, "CH"), 0, 0)))
	require.NoError(t, d.Bind(NewDescriptor("alpha", MustNew("dir.host", 2, "CH"), 0, 0)))

	assert.Equal(t, []string{"alpha", "zeta"}, d.Names())
}

func TestDirectoryBindRejectsEmpty(t *testing.T) {
	d := NewDirectory()
	assert.ErrorIs(t, d.Bind(Descriptor{PoolName: " "}), mqerr.ErrInvalidArgument)
	assert.ErrorIs(t, d.Bind(Descriptor{PoolName: "x"}), mqerr.ErrInvalidArgument)
}

package filter

import (
	"testing"

	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatch(t *testing.T) {
	tests := []struct {
		name    string
		exclude string
		include string
		input   string
		want    bool
	}{
		{"no patterns", "", "", "ANY.Q", true},
		{"include glob", "", "ORDERS.*", "ORDERS.IN", true},
		{"include miss", "", "ORDERS.*", "BILLING.IN", false},
		{"exclude wins", "SYSTEM.*", "*", "SYSTEM.ADMIN.QUEUE", false},
		{"exclude before include", "ORDERS.DLQ", "ORDERS.*", "ORDERS.DLQ", false},
		{"trimmed", "", "ORDERS.IN", "  ORDERS.IN   ", true},
		{"regexp include", "", "re:ORD(ERS)?\\..*", "ORD.X", true},
		{"regexp anchored", "", "re:ORDERS", "ORDERS.IN", false},
		{"regexp exclude", "re:(SYSTEM|AMQ)\\..*", "", "AMQ.1234", false},
		{"char class", "", "Q[0-9]", "Q7", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := New(tt.exclude, tt.include)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Match(tt.input))
		})
	}
}

func TestFilterMalformed(t *testing.T) {
	_, err := New("[unclosed", "")
	assert.ErrorIs(t, err, mqerr.ErrInvalidArgument)

	_, err = New("", "re:(")
	assert.ErrorIs(t, err, mqerr.ErrInvalidArgument)
}

func TestFilterApply(t *testing.T) {
	names := map[string]string{
		"ORDERS.IN":          "ORDERS.IN    ",
		"ORDERS.OUT":         "ORDERS.OUT   ",
		"SYSTEM.ADMIN.QUEUE": "SYSTEM.ADMIN.QUEUE",
	}
	f := MustNew("SYSTEM.*", "")

	got := f.Apply(names)
	assert.Equal(t, map[string]string{"ORDERS.IN": "ORDERS.IN    ", "ORDERS.OUT": "ORDERS.OUT   "}, got)
	assert.Len(t, names, 3, "input untouched")

	assert.Empty(t, MustNew("", "NOTHING").Apply(names), "an empty result is valid")
}

func TestNilFilter(t *testing.T) {
	var f *Filter
	assert.True(t, f.Match("X"))
	assert.Len(t, f.Apply(map[string]string{"A": "A"}), 1)
}

func TestWhere(t *testing.T) {
	w, err := CompileWhere(`QUEUE_DEPTH > 10 && !ADMIN`)
	require.NoError(t, err)

	ok, err := w.Match(map[string]any{"QUEUE_DEPTH": int64(11), "ADMIN": false})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.Match(map[string]any{"QUEUE_DEPTH": int64(3), "ADMIN": false})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, `QUEUE_DEPTH > 10 && !ADMIN`, w.String())
}

func TestWhereEmptyAndInvalid(t *testing.T) {
	w, err := CompileWhere("  ")
	require.NoError(t, err)
	assert.Nil(t, w)
	ok, err := w.Match(nil)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = CompileWhere("QUEUE_DEPTH >")
	assert.ErrorIs(t, err, mqerr.ErrInvalidArgument)
}

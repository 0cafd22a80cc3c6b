package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringArray_ScanFormats(t *testing.T) {
	var a StringArray
	require.NoError(t, a.Scan([]byte(`["u1","u2"]`)))
	assert.Equal(t, StringArray{"u1", "u2"}, a)

	var pg StringArray
	require.NoError(t, pg.Scan(`{u1,"u 2"}`))
	assert.Equal(t, StringArray{"u1", "u 2"}, pg)

	var empty StringArray
	require.NoError(t, empty.Scan("{}"))
	assert.Empty(t, empty)
}

func TestCounterMap_RoundTrip(t *testing.T) {
	m := CounterMap{"u1": 0, "u2": 3}

	v, err := m.Value()
	require.NoError(t, err)

	var out CounterMap
	require.NoError(t, out.Scan(v))
	assert.Equal(t, m, out)
}

func TestCounterMap_NilValue(t *testing.T) {
	var m CounterMap
	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	var out CounterMap
	require.NoError(t, out.Scan(nil))
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

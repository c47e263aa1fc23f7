package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap(t *testing.T) {
	meta := JSONMap{"from_position": float64(2), "to_position": float64(0)}

	value, err := meta.Value()
	require.NoError(t, err)

	var decoded JSONMap
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, meta, decoded)

	require.NoError(t, decoded.Scan([]byte(`{"lane":"Doing"}`)))
	assert.Equal(t, "Doing", decoded["lane"])

	require.NoError(t, decoded.Scan(nil))
	assert.Nil(t, decoded)

	assert.Error(t, decoded.Scan(42))

	var empty JSONMap
	v, err := empty.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

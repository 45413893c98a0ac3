package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testULID = "01HYX3KQW7ERTV9XNBM2P8QJZF"

func TestNewULIDReturnsValid(t *testing.T) {
	value, err := NewULID()

	require.NoError(t, err)
	require.NoError(t, validateULID(value))
}

func TestNewULIDIsUnique(t *testing.T) {
	first, err := NewULID()
	require.NoError(t, err)

	second, err := NewULID()
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestIsULIDAndValidateULID(t *testing.T) {
	require.True(t, isULID(testULID))
	require.True(t, isULID(" "+testULID+" "))
	require.NoError(t, validateULID(testULID))

	require.False(t, isULID("not-a-ulid"))
	require.ErrorIs(t, validateULID("not-a-ulid"), ErrInvalidULID)
}

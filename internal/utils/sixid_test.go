package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSixIDStringRoundtrip(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := NewSixID()
		s := id.String()
		assert.Len(t, s, 10)

		parsed, err := ParseSixID(s)
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
}

func TestParseSixIDTolerance(t *testing.T) {
	id := NewSixID()
	s := id.String()

	// Hyphens, spaces and lowercase are accepted.
	parsed, err := ParseSixID(s[:5] + "-" + s[5:])
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseSixIDErrors(t *testing.T) {
	_, err := ParseSixID("TOOSHORT")
	assert.Error(t, err)

	_, err = ParseSixID("UUUUUUUUUU") // U is not in the alphabet
	assert.Error(t, err)

	parsed, err := ParseSixID("")
	require.NoError(t, err)
	assert.True(t, parsed.IsZero())
}

func TestSixIDJSON(t *testing.T) {
	id := NewSixID()

	data, err := json.Marshal(id)
	require.NoError(t, err)

	var back SixID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, id, back)
}

func TestNewSixIDHook(t *testing.T) {
	fixed := SixID{1, 2, 3, 4, 5, 6}
	NewSixIDHook = func() (SixID, bool) { return fixed, true }
	defer func() { NewSixIDHook = nil }()

	assert.Equal(t, fixed, NewSixID())
}

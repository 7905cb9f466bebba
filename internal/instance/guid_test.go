package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomGUIDs(t *testing.T) {
	var gen GUIDGenerator = RandomGUIDs{}

	a := gen.NewGUID()
	b := gen.NewGUID()

	assert.NotEqual(t, a, b)
	assert.True(t, ValidGUID(a))
	assert.True(t, ValidGUID(b))
}

func TestDeriveGUID(t *testing.T) {
	a := DeriveGUID("AssetLink", "g-1", "g-2")

	assert.Equal(t, a, DeriveGUID("AssetLink", "g-1", "g-2"), "derivation is deterministic")
	assert.NotEqual(t, a, DeriveGUID("AssetLink", "g-2", "g-1"), "end order matters")
	assert.NotEqual(t, a, DeriveGUID("AssetLin", "kg-1", "g-2"), "parts are separated")
	assert.True(t, ValidGUID(a))
}

func TestValidGUID(t *testing.T) {
	assert.False(t, ValidGUID(""))
	assert.False(t, ValidGUID("not-a-guid"))
}

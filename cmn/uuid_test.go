package cmn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenUUIDIsValidAndUnique(t *testing.T) {
	a := GenUUID()
	b := GenUUID()

	assert.True(t, IsValidUUID(a))
	assert.True(t, IsValidUUID(b))
	assert.NotEqual(t, a, b)
}

func TestIsValidUUIDRejectsGarbage(t *testing.T) {
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID(""))
}

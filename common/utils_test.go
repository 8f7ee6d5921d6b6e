package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterestSignatureOrderIndependent(t *testing.T) {
	a := InterestSignature("San Francisco", []string{"Yoga", "Music"})
	b := InterestSignature("san francisco", []string{"music", "yoga"})
	assert.Equal(t, a, b)
}

func TestInterestSignatureDiffersByCity(t *testing.T) {
	a := InterestSignature("San Francisco", []string{"Yoga"})
	b := InterestSignature("Oakland", []string{"Yoga"})
	assert.NotEqual(t, a, b)
}

func TestRotateStrings(t *testing.T) {
	s := []string{"a", "b", "c"}
	assert.Equal(t, []string{"b", "c", "a"}, RotateStrings(s, 1))
	assert.Equal(t, []string{"c", "a", "b"}, RotateStrings(s, 2))
	assert.Equal(t, []string{"a", "b", "c"}, RotateStrings(s, 3))
	assert.Equal(t, []string{"a"}, RotateStrings([]string{"a"}, 5))
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 6, ClampInt(0, 1, 20, 6))
	assert.Equal(t, 20, ClampInt(100, 1, 20, 6))
	assert.Equal(t, 5, ClampInt(5, 1, 20, 6))
}

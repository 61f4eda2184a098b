package routegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	t.Run("known distance", func(t *testing.T) {
		// Aix-en-Provence to Lyon, roughly 250km as the crow flies.
		d := haversineKm(43.5297, 5.4474, 45.7640, 4.8357)
		assert.InDelta(t, 253, d, 5)
	})
	t.Run("zero distance", func(t *testing.T) {
		assert.Zero(t, haversineKm(43.5297, 5.4474, 43.5297, 5.4474))
	})
	t.Run("symmetry", func(t *testing.T) {
		ab := haversineKm(43.9493, 4.8055, 45.7640, 4.8357)
		ba := haversineKm(45.7640, 4.8357, 43.9493, 4.8055)
		assert.InDelta(t, ab, ba, 1e-9)
	})
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, validCoordinate(43.5297, 5.4474))
	assert.True(t, validCoordinate(-33.8688, 151.2093))
	assert.False(t, validCoordinate(0, 0), "0,0 marks a failed geocode")
	assert.False(t, validCoordinate(95, 5))
	assert.False(t, validCoordinate(45, 200))
	assert.False(t, validCoordinate(-95, -200))
}

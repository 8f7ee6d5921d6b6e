package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationAcceptableTargetCity(t *testing.T) {
	assert.True(t, locationAcceptable("San Francisco", "Golden Gate Park, San Francisco"))
	assert.True(t, locationAcceptable("san francisco", "Mission District, San Francisco, CA"))
}

func TestLocationAcceptableSuperstringCityName(t *testing.T) {
	// The target city may contain a metro-list entry; its own events must
	// still pass.
	assert.True(t, locationAcceptable("New York City", "Brooklyn Museum, New York City"))
	assert.True(t, locationAcceptable("Washington DC", "National Mall, Washington DC"))
	assert.True(t, locationAcceptable("Portland, OR", "Powell's Books, Portland, OR"))
}

func TestLocationAcceptableRejectsDifferentCity(t *testing.T) {
	assert.False(t, locationAcceptable("San Francisco", "Madison Square Garden, New York"))
	assert.False(t, locationAcceptable("New York City", "Staples Center, Los Angeles"))
	assert.False(t, locationAcceptable("San Francisco", ""))
	assert.False(t, locationAcceptable("San Francisco", "Somewhere Else Entirely"))
}

func TestLocationAcceptableOnlineMarkers(t *testing.T) {
	assert.True(t, locationAcceptable("San Francisco", "Online via Zoom"))
	assert.False(t, locationAcceptable("San Francisco", "Virtual event hosted from Chicago"))
}

package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/miradorstack/reconcile-timeline/internal/models"
)

func TestExtractCorrelationKey(t *testing.T) {
	key := ExtractCorrelationKey("using input snapshot: Client Input History Insertion Time (epoch ms): 1000, x")
	v, ok := key.Value()
	assert.True(t, ok)
	assert.Equal(t, uint64(1000), v)

	assert.Equal(t, models.NoKey, ExtractCorrelationKey("physics tick with delta: 16"))
	assert.Equal(t, models.NoKey, ExtractCorrelationKey(CorrelationMarker+" 99999999999999999999999"))
}

func TestExtractCorrelationKeyZeroIsNotNoKey(t *testing.T) {
	key := ExtractCorrelationKey(CorrelationMarker + " 0")
	assert.True(t, key.Valid())
	assert.NotEqual(t, models.NoKey, key)
	assert.False(t, models.NoKey.Matches(models.NoKey))
}

func TestExtractNumericPayload(t *testing.T) {
	cases := map[string]float64{
		"poslen: 12":            12,
		"pos (1, 2) poslen=3.5": 3.5,
		"poslen 1.25e2":         125,
		"poslen: -.5":           -0.5,
	}
	for message, want := range cases {
		got, ok := ExtractNumericPayload(message)
		assert.True(t, ok, message)
		assert.InDelta(t, want, got, 1e-9, message)
	}

	_, ok := ExtractNumericPayload("no payload here")
	assert.False(t, ok)
}

package extractors

import (
	"regexp"
	"strconv"

	"github.com/miradorstack/reconcile-timeline/internal/models"
)

// CorrelationMarker is the label the client's input snapshot formatter prints before the
// steady-clock insertion time of the snapshot.
const CorrelationMarker = "Client Input History Insertion Time (epoch ms):"

var (
	correlationPattern = regexp.MustCompile(regexp.QuoteMeta(CorrelationMarker) + `\s*(\d+)`)
	posLenPattern      = regexp.MustCompile(`poslen\s*[:=]?\s*([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)`)
)

// ExtractCorrelationKey returns the input-history insertion marker in message, or NoKey.
func ExtractCorrelationKey(message string) models.CorrelationKey {
	m := correlationPattern.FindStringSubmatch(message)
	if m == nil {
		return models.NoKey
	}
	v, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return models.NoKey
	}
	return models.KeyOf(v)
}

// ExtractNumericPayload returns the value following the "poslen" marker.
func ExtractNumericPayload(message string) (float64, bool) {
	m := posLenPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

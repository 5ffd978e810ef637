// Package health classifies device observations and translates raw device
// error codes into human-readable messages.
package health

import (
	"github.com/newtron-network/fleetscan/pkg/model"
)

// DefaultThreshold is the fraction of nameplate hashrate below which a
// device is considered degraded.
const DefaultThreshold = 0.8

// Hashrates below this many TH/s count as zero.
const zeroHashrate = 1e-3

// Observation error markers.
const (
	AuthFailed    = "Authentication failed"
	ConnectFailed = "Unable to connect"
	NoPoolSet     = "No pool set"
)

// Classifier decides when error codes must be queried and derives a status.
type Classifier struct {
	Threshold float64
}

// NewClassifier returns a classifier, falling back to DefaultThreshold for
// thresholds outside (0, 1].
func NewClassifier(threshold float64) Classifier {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return Classifier{Threshold: threshold}
}

// IsZero reports whether a hashrate is effectively zero.
func IsZero(hashrate float64) bool {
	return hashrate < zeroHashrate
}

// NeedsErrorQuery reports whether the device's error codes should be read:
// hashrate effectively zero, or below Threshold × nameplate. Without a
// nameplate rating only the zero check applies.
func (c Classifier) NeedsErrorQuery(hashrate float64, nameplate *float64) bool {
	if IsZero(hashrate) {
		return true
	}
	if nameplate == nil || *nameplate <= 0 {
		return false
	}
	rated := *nameplate
	return hashrate < c.Threshold*rated
}

// Status derives the health status of an observation.
//
//	unknown   no hashrate reading (unreachable, auth failure, or read error)
//	critical  awake with zero hashrate
//	warning   below threshold, or any error recorded
//	ok        otherwise, including a sleeping device without errors
func (c Classifier) Status(obs *model.Observation) model.HealthStatus {
	if obs.Hashrate == nil {
		return model.StatusUnknown
	}
	hr := *obs.Hashrate
	if IsZero(hr) && !obs.Sleep {
		return model.StatusCritical
	}
	if !obs.Sleep && c.NeedsErrorQuery(hr, obs.Nameplate) {
		return model.StatusWarning
	}
	if len(obs.Errors) > 0 {
		return model.StatusWarning
	}
	return model.StatusOK
}

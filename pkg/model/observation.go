package model

// Unknown is the placeholder for string readings that could not be obtained.
const Unknown = "Unknown"

// PoolSlots is the number of pool entries a device always reports.
const PoolSlots = 3

// HealthStatus summarises a device observation.
type HealthStatus string

const (
	StatusOK       HealthStatus = "ok"
	StatusWarning  HealthStatus = "warning"
	StatusCritical HealthStatus = "critical"
	StatusUnknown  HealthStatus = "unknown"
)

// Pool is one mining pool endpoint configured on a device.
type Pool struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// PoolTemplate is a named pool configuration applied by set-pool jobs.
// Worker may contain the {can}, {model} and {ip} placeholders.
type PoolTemplate struct {
	Name     string            `json:"name" yaml:"name"`
	URLs     [PoolSlots]string `json:"urls" yaml:"urls"`
	Worker   string            `json:"worker" yaml:"worker"`
	Password string            `json:"password" yaml:"password"`
}

// Observation is the result of scanning one device. Optional readings are
// nil when the device did not answer them.
type Observation struct {
	IP          string       `json:"ip"`
	Make        string       `json:"make,omitempty"`
	Model       string       `json:"model,omitempty"`
	MAC         string       `json:"mac,omitempty"`
	Hashrate    *float64     `json:"hashrate,omitempty"`    // TH/s
	Temperature *float64     `json:"temperature,omitempty"` // degrees C
	Fans        []int        `json:"fans,omitempty"`        // RPM
	Uptime      *float64     `json:"uptime,omitempty"`      // seconds
	Power       *float64     `json:"power,omitempty"`       // watts
	Nameplate   *float64     `json:"nameplate,omitempty"`   // rated TH/s
	Pools       []Pool       `json:"pools"`
	Sleep       bool         `json:"sleep"`
	Locate      bool         `json:"locate"`
	Profile     string       `json:"profile,omitempty"`
	Errors      []string     `json:"errors"`
	Status      HealthStatus `json:"status"`
}

// NewObservation returns an empty observation for address.
func NewObservation(address string) *Observation {
	return &Observation{
		IP:     address,
		Errors: []string{},
		Status: StatusUnknown,
	}
}

// AddError appends a human-readable error string.
func (o *Observation) AddError(msg string) {
	o.Errors = append(o.Errors, msg)
}

// NormalizePools pads or trims the pool list to exactly PoolSlots entries.
func NormalizePools(pools []Pool) []Pool {
	out := make([]Pool, PoolSlots)
	copy(out, pools)
	return out
}

// Float returns a pointer to v, for optional readings.
func Float(v float64) *float64 {
	return &v
}

package model

// MinerEvent is the per-device result emitted once per device per job run.
type MinerEvent struct {
	Container   int          `json:"container"`
	Rack        int          `json:"rack"`
	RackName    string       `json:"rack_name,omitempty"`
	Row         int          `json:"row"`
	Column      int          `json:"column"`
	Observation *Observation `json:"miner"`
}

// Progress is the aggregate completion state of one job.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Ratio     float64 `json:"ratio"`
	Label     string  `json:"label"`
}

// NewMinerEvent builds a result event positioned at p.
func NewMinerEvent(p Placement, obs *Observation) MinerEvent {
	return MinerEvent{
		Container:   p.ContainerNum,
		Rack:        p.RackIndex,
		RackName:    p.RackName,
		Row:         p.Device.Row,
		Column:      p.Device.Column,
		Observation: obs,
	}
}

package events

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/newtron-network/fleetscan/pkg/cli"
	"github.com/newtron-network/fleetscan/pkg/model"
)

const barWidth = 30

// Console renders progress on a terminal and a result table on Flush.
// On a TTY the progress bar is redrawn in place; otherwise a line is
// printed at each 10% step.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	tty      bool
	rows     []model.MinerEvent
	lastStep int
}

// NewConsole creates a console emitter on f, detecting whether f is a terminal.
func NewConsole(f *os.File) *Console {
	return NewConsoleWriter(f, term.IsTerminal(int(f.Fd())))
}

// NewConsoleWriter creates a console emitter on w.
func NewConsoleWriter(w io.Writer, tty bool) *Console {
	return &Console{out: w, tty: tty, lastStep: -1}
}

func (c *Console) Miner(ev model.MinerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, ev)
}

func (c *Console) Progress(p model.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := cli.ProgressBar(p.Completed, p.Total, barWidth) + " " + p.Label
	if c.tty {
		fmt.Fprint(c.out, "\r"+line)
		if p.Completed >= p.Total {
			fmt.Fprintln(c.out)
		}
		return
	}

	step := int(p.Ratio * 10)
	if step != c.lastStep {
		c.lastStep = step
		fmt.Fprintln(c.out, line)
	}
}

// Flush prints the collected results ordered by position and resets.
func (c *Console) Flush() {
	c.mu.Lock()
	rows := c.rows
	c.rows = nil
	c.lastStep = -1
	c.mu.Unlock()

	if c.tty {
		fmt.Fprintln(c.out)
	}
	SortEvents(rows)

	t := cli.NewTableTo(c.out, "CAN", "RACK", "POS", "ADDRESS", "MODEL", "HASHRATE", "TEMP", "STATUS", "ERRORS")
	for _, ev := range rows {
		obs := ev.Observation
		rack := ev.RackName
		if rack == "" {
			rack = strconv.Itoa(ev.Rack)
		}
		t.Row(
			strconv.Itoa(ev.Container),
			rack,
			fmt.Sprintf("%d,%d", ev.Row, ev.Column),
			obs.IP,
			obs.Model,
			cli.Float(obs.Hashrate, 2),
			cli.Float(obs.Temperature, 0),
			cli.Status(obs.Status),
			strings.Join(obs.Errors, "; "),
		)
	}
	t.Flush()
}

// SortEvents orders result events by container, rack, row, column.
func SortEvents(evs []model.MinerEvent) {
	sort.SliceStable(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if a.Container != b.Container {
			return a.Container < b.Container
		}
		if a.Rack != b.Rack {
			return a.Rack < b.Rack
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Column < b.Column
	})
}

// JSONLines writes each event as one JSON object per line:
// {"type":"miner",...} or {"type":"progress",...}.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLines creates a JSON lines emitter on w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (j *JSONLines) Miner(ev model.MinerEvent) {
	j.write(envelope{Type: "miner", Data: ev})
}

func (j *JSONLines) Progress(p model.Progress) {
	j.write(envelope{Type: "progress", Data: p})
}

func (j *JSONLines) write(v envelope) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.enc.Encode(v)
}

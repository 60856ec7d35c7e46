// Package trace records CPU State at instruction boundaries for replay and
// regression comparison, persists those snapshots with encoding/gob, and
// formats the register dump used for diagnostics.
package trace

import (
	"encoding/gob"
	"fmt"
	"os"
	"sync"

	"github.com/hjkit/Arduino8080/pkg/cpu"
)

func init() {
	gob.Register(cpu.RunState(0))
}

// Snapshot is a persisted copy of architectural state at one instruction
// boundary.
type Snapshot struct {
	A, B, C, D, E, H, L, F uint8
	PC, SP                 uint16
	IFF                    uint8
	Tstates                uint64
	RunState               cpu.RunState
}

// Capture takes a Snapshot of s.
func Capture(s *cpu.State) Snapshot {
	return Snapshot{
		A: s.A, B: s.B, C: s.C, D: s.D, E: s.E, H: s.H, L: s.L, F: s.F,
		PC: s.PC, SP: s.SP, IFF: s.IFF, Tstates: s.Tstates,
		RunState: s.RunState(),
	}
}

// Recorder accumulates Snapshots taken by the caller at whatever cadence it
// chooses (every instruction, every N instructions, on state transitions).
// It has no dependency on how Step is driven; the caller decides when to
// call Record. Guarded by a mutex, append-only, the same "guarded slice,
// copy-out accessor" shape used by conformance.Report.
type Recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

// Record appends a Snapshot of s to the trace.
func (r *Recorder) Record(s *cpu.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, Capture(s))
}

// Snapshots returns a copy of the recorded trace in capture order.
func (r *Recorder) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

// SaveCheckpoint persists snapshots to path using encoding/gob.
func SaveCheckpoint(path string, snapshots []Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trace: save checkpoint: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(snapshots); err != nil {
		return fmt.Errorf("trace: save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint restores a trace previously written by SaveCheckpoint.
func LoadCheckpoint(path string) ([]Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: load checkpoint: %w", err)
	}
	defer f.Close()
	var snapshots []Snapshot
	if err := gob.NewDecoder(f).Decode(&snapshots); err != nil {
		return nil, fmt.Errorf("trace: load checkpoint: %w", err)
	}
	return snapshots, nil
}

func bit(v uint8, flag uint8) int {
	if v&flag != 0 {
		return 1
	}
	return 0
}

// FormatDiagnostic renders s in the register-dump order: PC, A, S Z H P C
// (each as 0/1), B:C, D:E, H:L, SP, cycles. It takes the elapsed wall-clock
// time already measured by the caller and derives a clock-frequency figure
// from it; the core itself never touches a clock, so that measurement
// cannot live here.
func FormatDiagnostic(s *cpu.State, elapsedMs float64) string {
	mhz := 0.0
	if elapsedMs > 0 {
		mhz = float64(s.Tstates) / elapsedMs / 1000
	}
	return fmt.Sprintf(
		"PC=%04X A=%02X S=%d Z=%d H=%d P=%d C=%d BC=%04X DE=%04X HL=%04X SP=%04X cycles=%d %.3fMHz",
		s.PC, s.A,
		bit(s.F, cpu.SFlag), bit(s.F, cpu.ZFlag), bit(s.F, cpu.HFlag), bit(s.F, cpu.PFlag), bit(s.F, cpu.CFlag),
		s.BC(), s.DE(), s.HL(), s.SP, s.Tstates, mhz,
	)
}

// Package conformance is a worker-pool-driven battery that exercises every
// opcode, including the undocumented aliases, plus the concrete end-to-end
// scenarios of this system's specification, reporting failures in a
// sorted, thread-safe table. It gives each worker its own private RAM,
// I/O bus and CPU State rather than sharing collaborators across
// goroutines.
package conformance

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/hjkit/Arduino8080/pkg/cpu"
	"github.com/hjkit/Arduino8080/pkg/inst"
	"github.com/hjkit/Arduino8080/pkg/ram"
)

// Task is one program-plus-predicate unit: load Program at address 0, run
// it to completion (or for one Step, for opcode-coverage tasks), then call
// Check against the resulting state.
type Task struct {
	Name    string
	Program []byte
	Setup   func(s *cpu.State)
	Step    bool // if true, execute exactly one Step instead of Run
	Check   func(s *cpu.State, mem cpu.Memory) error
}

// Failure records one Task that did not pass its own Check.
type Failure struct {
	Name string
	Err  error
}

// Report is the thread-safe result of a Pool run.
type Report struct {
	mu       sync.Mutex
	total    int
	failures []Failure
}

func (r *Report) fail(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, Failure{Name: name, Err: err})
}

// Total returns the number of tasks run.
func (r *Report) Total() int { return r.total }

// Failures returns the recorded failures sorted by task name.
func (r *Report) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Failure, len(r.failures))
	copy(out, r.failures)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Pool runs Tasks across NumWorkers goroutines. If Verbose, each failure is
// also logged at Info level as it is discovered.
type Pool struct {
	NumWorkers int
	Verbose    bool
}

// NewPool returns a Pool sized to the host, or numWorkers if positive.
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{NumWorkers: numWorkers}
}

// Run executes every task and returns the accumulated Report.
func (p *Pool) Run(tasks []Task) *Report {
	report := &Report{total: len(tasks)}
	ch := make(chan Task, len(tasks))
	for _, t := range tasks {
		ch <- t
	}
	close(ch)

	var wg sync.WaitGroup
	for i := 0; i < p.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range ch {
				runOne(task, report, p.Verbose)
			}
		}()
	}
	wg.Wait()
	return report
}

func runOne(task Task, report *Report, verbose bool) {
	mem := ram.New()
	for i, b := range task.Program {
		mem.Write(uint16(i), b)
	}
	s := &cpu.State{}
	if task.Setup != nil {
		task.Setup(s)
	}
	if task.Step {
		cpu.Step(s, mem, discardIO{})
	} else {
		cpu.Run(s, mem, discardIO{})
	}
	if err := task.Check(s, mem); err != nil {
		if verbose {
			slog.Info("conformance task failed", "task", task.Name, "err", err)
		}
		report.fail(task.Name, err)
	}
}

type discardIO struct{}

func (discardIO) In(port, addrLowCopy uint8) uint8 { return 0 }
func (discardIO) Out(port, addrLowCopy, v uint8)   {}

// conditionFalseFlags returns an F value that makes branch condition cc
// evaluate false, so opcode-coverage tasks for Rcc/Ccc observe the
// catalog's untaken (base) T-state charge.
func conditionFalseFlags(cc uint8) uint8 {
	switch cc {
	case 0: // NZ false: Z set
		return cpu.ZFlag
	case 2: // NC false: C set
		return cpu.CFlag
	case 4: // PO false: P set
		return cpu.PFlag
	case 6: // P false: S set
		return cpu.SFlag
	default: // Z, C, PE, M false with their flag clear
		return 0
	}
}

// GenerateOpcodeCoverage builds one Task per documented opcode and one per
// undocumented alias: each loads the opcode (plus filler operand bytes for
// multi-byte forms) at address 0, executes exactly one Step, and checks
// that Tstates advanced by exactly the catalog's base charge. Conditional
// opcodes are seeded so the condition is false, matching the catalog's
// untaken (base) charge.
func GenerateOpcodeCoverage() []Task {
	tasks := make([]Task, 0, 256)
	for op := 0; op < 256; op++ {
		op := uint8(op)
		info := inst.Catalog[op]
		program := make([]byte, info.Length)
		program[0] = op
		for i := 1; i < len(program); i++ {
			program[i] = 0x00
		}
		want := uint64(info.TStates)
		condFlags := uint8(0)
		if op&0xC7 == 0xC0 || op&0xC7 == 0xC4 { // Rcc, Ccc: seed flags so the catalog's untaken charge applies
			condFlags = conditionFalseFlags(op >> 3 & 7)
		}
		tasks = append(tasks, Task{
			Name:    fmt.Sprintf("opcode_%02X_%s", op, info.Mnemonic),
			Program: program,
			Setup:   func(s *cpu.State) { s.F = condFlags },
			Step:    true,
			Check: func(s *cpu.State, mem cpu.Memory) error {
				if s.Tstates != want {
					return fmt.Errorf("Tstates = %d, want %d", s.Tstates, want)
				}
				return nil
			},
		})
	}
	return tasks
}

// GenerateScenarios returns the concrete end-to-end programs this system's
// specification names, each checked against one or two fields of its final
// state (A, and where given SP, PC, Tstates or a memory byte); flags are not
// checked. Tasks run against an I/O port whose In returns 0, so io_echo
// checks A=00 rather than a value fed in through IN.
func GenerateScenarios() []Task {
	return []Task{
		{
			Name:    "immediate_add",
			Program: []byte{0x3E, 0x02, 0xC6, 0x03, 0x76},
			Check: func(s *cpu.State, mem cpu.Memory) error {
				return expect(s.A == 0x05 && s.Tstates == 21, "A=%02X Tstates=%d, want A=05 Tstates=21", s.A, s.Tstates)
			},
		},
		{
			Name:    "daa_after_bcd_add",
			Program: []byte{0x3E, 0x15, 0xC6, 0x27, 0x27, 0x76},
			Check: func(s *cpu.State, mem cpu.Memory) error {
				return expect(s.A == 0x42, "A=%02X, want 42", s.A)
			},
		},
		{
			Name:    "memory_round_trip",
			Program: []byte{0x21, 0x00, 0x20, 0x36, 0x55, 0x7E, 0x76},
			Check: func(s *cpu.State, mem cpu.Memory) error {
				return expect(s.A == 0x55 && mem.Read(0x2000) == 0x55, "A=%02X mem[2000]=%02X, want 55/55", s.A, mem.Read(0x2000))
			},
		},
		{
			Name: "call_return",
			Program: append(
				[]byte{0x31, 0x00, 0x30, 0xCD, 0x08, 0x00, 0x76, 0x00},
				[]byte{0x3E, 0xAA, 0xC9}...,
			),
			Check: func(s *cpu.State, mem cpu.Memory) error {
				return expect(s.A == 0xAA && s.SP == 0x3000, "A=%02X SP=%04X, want A=AA SP=3000", s.A, s.SP)
			},
		},
		{
			Name:    "conditional_branch_not_taken",
			Program: []byte{0x3E, 0x01, 0xFE, 0x01, 0xC2, 0x00, 0x01, 0x76},
			Check: func(s *cpu.State, mem cpu.Memory) error {
				return expect(s.PC == 0x0008, "PC=%04X, want 0008", s.PC)
			},
		},
		{
			Name:    "io_echo",
			Program: []byte{0xDB, 0x42, 0xD3, 0x43, 0x76},
			Check: func(s *cpu.State, mem cpu.Memory) error {
				return expect(s.A == 0x00, "A=%02X, want 00 (discardIO.In returns 0)", s.A)
			},
		},
	}
}

func expect(ok bool, format string, args ...interface{}) error {
	if ok {
		return nil
	}
	return fmt.Errorf(format, args...)
}

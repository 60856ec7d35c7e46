// Command i8080run is a Cobra-based front end wiring the 8080 core to the
// reference RAM and I/O bus collaborators for running programs, recording
// execution traces, and checking the engine against the conformance
// harness.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/hjkit/Arduino8080/pkg/conformance"
	"github.com/hjkit/Arduino8080/pkg/cpu"
	"github.com/hjkit/Arduino8080/pkg/ioport"
	"github.com/hjkit/Arduino8080/pkg/ram"
	"github.com/hjkit/Arduino8080/pkg/trace"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "i8080run",
		Short: "Intel 8080 core runner — load a ROM image and execute it",
	}

	// run command
	var loadAddr uint16
	var seed int64
	var maxInstructions int

	runCmd := &cobra.Command{
		Use:   "run [rom]",
		Short: "Load a ROM image and run it to completion or HLT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mem := ram.New()
			if err := ram.LoadROMFile(mem, loadAddr, args[0]); err != nil {
				return err
			}
			bus := ioport.NewBus()
			sr := &ioport.ShiftRegister{ResultPort: 3, DataPort: 4, OffsetPort: 2}
			bus.Register(2, sr)
			bus.Register(3, sr)
			bus.Register(4, sr)

			s := &cpu.State{}
			cpu.Init(s, rand.New(rand.NewSource(seed)))
			s.PC = loadAddr

			slog.Info("starting run", "rom", args[0], "load_addr", fmt.Sprintf("%04X", loadAddr))
			start := time.Now()
			for i := 0; (maxInstructions == 0 || i < maxInstructions) && s.RunState() == cpu.Running; i++ {
				cpu.Step(s, mem, bus)
			}
			elapsedMs := float64(time.Since(start).Microseconds()) / 1000
			fmt.Println(trace.FormatDiagnostic(s, elapsedMs))
			return nil
		},
	}
	runCmd.Flags().Uint16Var(&loadAddr, "load-addr", 0, "address to load the ROM image at")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "RNG seed for power-on register state")
	runCmd.Flags().IntVar(&maxInstructions, "max-instructions", 0, "stop after this many instructions (0 = run to HLT)")

	// trace command
	traceCmd := &cobra.Command{
		Use:   "trace [rom] [checkpoint-out]",
		Short: "Run a ROM image, recording a snapshot after every instruction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mem := ram.New()
			if err := ram.LoadROMFile(mem, loadAddr, args[0]); err != nil {
				return err
			}
			s := &cpu.State{}
			cpu.Init(s, rand.New(rand.NewSource(seed)))
			s.PC = loadAddr

			var rec trace.Recorder
			for (maxInstructions == 0 || len(rec.Snapshots()) < maxInstructions) && s.RunState() == cpu.Running {
				cpu.Step(s, mem, ioport.NewBus())
				rec.Record(s)
			}
			if err := trace.SaveCheckpoint(args[1], rec.Snapshots()); err != nil {
				return err
			}
			fmt.Printf("recorded %d snapshots to %s\n", len(rec.Snapshots()), args[1])
			return nil
		},
	}
	traceCmd.Flags().Uint16Var(&loadAddr, "load-addr", 0, "address to load the ROM image at")
	traceCmd.Flags().Int64Var(&seed, "seed", 1, "RNG seed for power-on register state")
	traceCmd.Flags().IntVar(&maxInstructions, "max-instructions", 0, "stop after this many instructions (0 = run to HLT)")

	// verify command
	var verbose bool
	var workers int

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the conformance harness: every opcode plus the documented end-to-end scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks := append(conformance.GenerateOpcodeCoverage(), conformance.GenerateScenarios()...)
			pool := conformance.NewPool(workers)
			pool.Verbose = verbose
			slog.Info("conformance run starting", "tasks", len(tasks), "workers", pool.NumWorkers)
			report := pool.Run(tasks)
			fails := report.Failures()
			fmt.Printf("%d/%d tasks passed\n", report.Total()-len(fails), report.Total())
			for _, f := range fails {
				fmt.Printf("  FAIL %s: %v\n", f.Name, f.Err)
			}
			if len(fails) > 0 {
				return fmt.Errorf("%d conformance tasks failed", len(fails))
			}
			return nil
		},
	}
	verifyCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each failure as it is found")
	verifyCmd.Flags().IntVar(&workers, "workers", 0, "number of workers (0 = NumCPU)")

	rootCmd.AddCommand(runCmd, traceCmd, verifyCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

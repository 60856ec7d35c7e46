package trace

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/hjkit/Arduino8080/pkg/cpu"
)

func TestCaptureRecordsFields(t *testing.T) {
	s := &cpu.State{}
	cpu.Init(s, rand.New(rand.NewSource(1)))
	s.A = 0x42
	snap := Capture(s)
	if snap.A != 0x42 {
		t.Errorf("snapshot A = %02X, want 42", snap.A)
	}
	if snap.RunState != cpu.Running {
		t.Errorf("snapshot RunState = %v, want Running", snap.RunState)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	var r Recorder
	s := &cpu.State{A: 1}
	r.Record(s)
	s.A = 2
	r.Record(s)

	path := filepath.Join(t.TempDir(), "ckpt.gob")
	if err := SaveCheckpoint(path, r.Snapshots()); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	snaps, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("loaded %d snapshots, want 2", len(snaps))
	}
	if snaps[len(snaps)-1].A != 2 {
		t.Errorf("final snapshot A = %02X, want 02", snaps[len(snaps)-1].A)
	}
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	if _, err := LoadCheckpoint(filepath.Join(t.TempDir(), "missing.gob")); err == nil {
		t.Error("expected an error loading a checkpoint that does not exist")
	}
}

func TestFormatDiagnosticContainsRegisters(t *testing.T) {
	s := &cpu.State{A: 0xAB, F: cpu.ZFlag | cpu.CFlag}
	s.SetBC(0x1122)
	line := FormatDiagnostic(s, 1000)
	if line == "" {
		t.Fatal("FormatDiagnostic returned empty string")
	}
	if want := "A=AB"; !contains(line, want) {
		t.Errorf("diagnostic %q missing %q", line, want)
	}
	if want := "BC=1122"; !contains(line, want) {
		t.Errorf("diagnostic %q missing %q", line, want)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

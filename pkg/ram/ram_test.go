package ram

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadWriteRoundTrip(t *testing.T) {
	r := New()
	r.Write(0x1234, 0x42)
	if got := r.Read(0x1234); got != 0x42 {
		t.Errorf("Read(1234) = %02X, want 42", got)
	}
}

func TestUninitializedReadReturnsZero(t *testing.T) {
	r := New()
	if got := r.Read(0x0000); got != 0 {
		t.Errorf("Read of never-written address = %02X, want 00", got)
	}
}

func TestLoadROMOverrun(t *testing.T) {
	r := New()
	image := make([]byte, 16)
	if err := LoadROM(r, 0xFFF8, image); err == nil {
		t.Error("expected an error loading a ROM that overruns the address space")
	}
}

func TestLoadROMFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rom.bin")
	if err := os.WriteFile(path, []byte{0x3E, 0x02, 0x76}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r := New()
	if err := LoadROMFile(r, 0x0000, path); err != nil {
		t.Fatalf("LoadROMFile: %v", err)
	}
	if r.Read(0x0000) != 0x3E || r.Read(0x0001) != 0x02 || r.Read(0x0002) != 0x76 {
		t.Error("ROM contents did not land at the requested base address")
	}
}

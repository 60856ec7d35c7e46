// Package ram is a reference implementation of cpu.Memory: a flat 64 KiB
// byte array with no bank switching, no memory-mapped devices and no
// protection. It is a demonstration collaborator, not part of the core's
// interface contract.
package ram

import (
	"fmt"
	"log/slog"
	"os"
)

// RAM implements cpu.Memory over a flat 65536-byte array.
type RAM struct {
	bytes   [65536]byte
	written [65536]bool
	logged  [65536]bool
}

// New returns a zeroed 64 KiB address space.
func New() *RAM {
	return &RAM{}
}

// Read returns the byte at addr. A read of an address that has never been
// written is logged once at Debug level and returns 0; this is diagnostic
// only, it does not change the value returned.
func (r *RAM) Read(addr uint16) uint8 {
	if !r.written[addr] && !r.logged[addr] {
		r.logged[addr] = true
		slog.Debug("uninitialized read", "addr", fmt.Sprintf("%04X", addr))
	}
	return r.bytes[addr]
}

// Write stores v at addr.
func (r *RAM) Write(addr uint16, v uint8) {
	r.bytes[addr] = v
	r.written[addr] = true
}

// LoadROM copies image into the address space starting at base, marking
// every loaded address as written.
func LoadROM(r *RAM, base uint16, image []byte) error {
	if int(base)+len(image) > 0x10000 {
		return fmt.Errorf("ram: ROM image of %d bytes at %04X overruns the 64 KiB address space", len(image), base)
	}
	for i, b := range image {
		r.Write(base+uint16(i), b)
	}
	return nil
}

// LoadROMFile reads path and loads it at base via LoadROM.
func LoadROMFile(r *RAM, base uint16, path string) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ram: load ROM: %w", err)
	}
	return LoadROM(r, base, image)
}

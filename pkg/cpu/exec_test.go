package cpu

import "testing"

// flatMem is a minimal Memory used only by these package tests; the
// reference collaborator implementation lives in package ram.
type flatMem [65536]uint8

func (m *flatMem) Read(addr uint16) uint8     { return m[addr] }
func (m *flatMem) Write(addr uint16, v uint8) { m[addr] = v }

type nullIO struct {
	in       func(port, addrLow uint8) uint8
	outCalls []struct{ port, addrLow, v uint8 }
}

func (io *nullIO) In(port, addrLow uint8) uint8 {
	if io.in != nil {
		return io.in(port, addrLow)
	}
	return 0
}

func (io *nullIO) Out(port, addrLow, v uint8) {
	io.outCalls = append(io.outCalls, struct{ port, addrLow, v uint8 }{port, addrLow, v})
}

func TestSzpTable(t *testing.T) {
	if SzpTable[0]&ZFlag == 0 {
		t.Error("SzpTable[0] should have Z set")
	}
	if SzpTable[0x80]&SFlag == 0 {
		t.Error("SzpTable[0x80] should have S set")
	}
	if SzpTable[0x03]&PFlag == 0 {
		t.Error("SzpTable[0x03] (two bits set) should have P set")
	}
	if SzpTable[0x01]&PFlag != 0 {
		t.Error("SzpTable[0x01] (one bit set) should not have P set")
	}
}

func TestAddFlags(t *testing.T) {
	tests := []struct {
		a, b               uint8
		wantR              uint8
		wantC, wantH, wantZ, wantS, wantP bool
	}{
		{0x00, 0x00, 0x00, false, false, true, false, true},
		{0xFF, 0x01, 0x00, true, true, true, false, true},
		{0x0F, 0x01, 0x10, false, true, false, false, false},
		{0x7F, 0x01, 0x80, false, true, false, true, false},
	}
	for _, tc := range tests {
		s := &State{}
		r := execAdd(s, tc.a, tc.b)
		if r != tc.wantR {
			t.Errorf("execAdd(%02X,%02X) = %02X, want %02X", tc.a, tc.b, r, tc.wantR)
		}
		if (s.F&CFlag != 0) != tc.wantC {
			t.Errorf("execAdd(%02X,%02X) C = %v, want %v", tc.a, tc.b, s.F&CFlag != 0, tc.wantC)
		}
		if (s.F&HFlag != 0) != tc.wantH {
			t.Errorf("execAdd(%02X,%02X) H = %v, want %v", tc.a, tc.b, s.F&HFlag != 0, tc.wantH)
		}
		if (s.F&ZFlag != 0) != tc.wantZ {
			t.Errorf("execAdd(%02X,%02X) Z = %v, want %v", tc.a, tc.b, s.F&ZFlag != 0, tc.wantZ)
		}
		if (s.F&SFlag != 0) != tc.wantS {
			t.Errorf("execAdd(%02X,%02X) S = %v, want %v", tc.a, tc.b, s.F&SFlag != 0, tc.wantS)
		}
		if (s.F&PFlag != 0) != tc.wantP {
			t.Errorf("execAdd(%02X,%02X) P = %v, want %v", tc.a, tc.b, s.F&PFlag != 0, tc.wantP)
		}
	}
}

func TestSubFlagsBoundary(t *testing.T) {
	// SUB 0x00 - 0x01 -> 0xFF, Z=0, C=1, H=0 (inverted rule), S=1, P=1.
	s := &State{}
	r := execSub(s, 0x00, 0x01)
	if r != 0xFF {
		t.Fatalf("execSub(0,1) = %02X, want FF", r)
	}
	if s.F&CFlag == 0 {
		t.Error("want C set")
	}
	if s.F&HFlag != 0 {
		t.Error("want H clear")
	}
	if s.F&ZFlag != 0 {
		t.Error("want Z clear")
	}
	if s.F&SFlag == 0 {
		t.Error("want S set")
	}
	if s.F&PFlag == 0 {
		t.Error("want P set")
	}
}

func TestInrBoundary(t *testing.T) {
	// INR 0xFF -> 0x00, Z=1 S=0 P=1 H=1, C unchanged (preserve prior C=1).
	s := &State{F: CFlag}
	r := execInr(s, 0xFF)
	if r != 0x00 {
		t.Fatalf("execInr(FF) = %02X, want 00", r)
	}
	if s.F&ZFlag == 0 || s.F&SFlag != 0 || s.F&PFlag == 0 || s.F&HFlag == 0 {
		t.Errorf("execInr(FF) flags = %02X, want Z,P,H set and S clear", s.F)
	}
	if s.F&CFlag == 0 {
		t.Error("execInr must preserve a prior carry")
	}
}

func TestDcrBoundary(t *testing.T) {
	// DCR 0x00 -> 0xFF, Z=0 S=1 P=1 H=0 (inverted rule), C unchanged.
	s := &State{}
	r := execDcr(s, 0x00)
	if r != 0xFF {
		t.Fatalf("execDcr(0) = %02X, want FF", r)
	}
	if s.F&ZFlag != 0 || s.F&SFlag == 0 || s.F&PFlag == 0 || s.F&HFlag != 0 {
		t.Errorf("execDcr(0) flags = %02X, want Z clear, S,P set, H clear", s.F)
	}
}

func TestCmaTwiceRestoresA(t *testing.T) {
	for a := 0; a < 256; a++ {
		s := &State{A: uint8(a)}
		s.A = ^s.A
		s.A = ^s.A
		if s.A != uint8(a) {
			t.Fatalf("CMA;CMA on %02X gave %02X", a, s.A)
		}
	}
}

func TestStcCmc(t *testing.T) {
	s := &State{}
	s.F |= CFlag // STC
	s.F ^= CFlag // CMC
	if s.F&CFlag != 0 {
		t.Error("STC;CMC should clear C")
	}
	s.F |= CFlag // STC
	s.F |= CFlag // STC
	if s.F&CFlag == 0 {
		t.Error("STC;STC should leave C set")
	}
}

func TestPushPopPreservesPair(t *testing.T) {
	var mem flatMem
	s := &State{SP: 0x2000, B: 0x12, C: 0x34}
	push16(s, &mem, s.BC())
	got := pop16(s, &mem)
	if got != 0x1234 {
		t.Fatalf("push/pop round trip = %04X, want 1234", got)
	}
	if s.SP != 0x2000 {
		t.Fatalf("SP after round trip = %04X, want 2000", s.SP)
	}
}

func TestPushPSWMasksXY(t *testing.T) {
	var mem flatMem
	s := &State{SP: 0x2000, A: 0xAA, F: 0xFF}
	push16(s, &mem, pairPSW(s, 3))
	s.F = 0
	s.A = 0
	setPairPSW(s, 3, pop16(&State{SP: 0x1FFE}, &mem))
	if s.F&(XFlag|YFlag) != 0 {
		t.Errorf("popped F = %02X, X/Y should be masked to 0", s.F)
	}
}

func TestPushAtSPWrapBoundary(t *testing.T) {
	var mem flatMem
	s := &State{SP: 0x0001}
	push16(s, &mem, 0x1234)
	if mem.Read(0x0000) != 0x12 {
		t.Errorf("high byte at 0x0000 = %02X, want 12", mem.Read(0x0000))
	}
	if mem.Read(0xFFFF) != 0x34 {
		t.Errorf("low byte at 0xFFFF = %02X, want 34", mem.Read(0xFFFF))
	}
	if s.SP != 0xFFFF {
		t.Errorf("SP after push = %04X, want FFFF", s.SP)
	}
}

func TestXchgTwiceIsIdentity(t *testing.T) {
	s := &State{D: 1, E: 2, H: 3, L: 4}
	orig := *s
	execXchg := func(s *State) { s.D, s.H = s.H, s.D; s.E, s.L = s.L, s.E }
	execXchg(s)
	execXchg(s)
	if s.D != orig.D || s.E != orig.E || s.H != orig.H || s.L != orig.L {
		t.Errorf("XCHG;XCHG did not restore D,E,H,L")
	}
}

func TestJmpWrapsPCThroughFFFF(t *testing.T) {
	var mem flatMem
	mem.Write(0xFFFE, 0xC3) // JMP nn
	mem.Write(0xFFFF, 0x34) // low byte of nn, at PC=0xFFFF
	mem.Write(0x0000, 0x12) // high byte of nn, fetch wraps to PC=0x0000
	s := &State{PC: 0xFFFE}
	Step(s, &mem, &nullIO{})
	if s.PC != 0x1234 {
		t.Fatalf("PC after JMP = %04X, want 1234", s.PC)
	}
}

func TestConditionalJumpAlwaysConsumesOperand(t *testing.T) {
	var mem flatMem
	mem.Write(0x0000, 0xC2) // JNZ nn
	mem.Write(0x0001, 0x00)
	mem.Write(0x0002, 0x01)
	s := &State{F: ZFlag} // condition false: not taken
	Step(s, &mem, &nullIO{})
	if s.PC != 0x0003 {
		t.Fatalf("untaken JNZ should still advance past the operand, PC=%04X", s.PC)
	}
	if s.Tstates != 10 {
		t.Fatalf("JNZ Tstates = %d, want 10 regardless of outcome", s.Tstates)
	}
}

func TestConditionalReturnCycleCounts(t *testing.T) {
	var mem flatMem
	mem.Write(0x0000, 0xC0) // RNZ
	s := &State{F: ZFlag}   // condition false
	Step(s, &mem, &nullIO{})
	if s.Tstates != 5 {
		t.Fatalf("untaken RNZ Tstates = %d, want 5", s.Tstates)
	}

	mem2 := flatMem{}
	mem2.Write(0x0000, 0xC0)
	s2 := &State{F: 0, SP: 0x2000}
	Step(s2, &mem2, &nullIO{})
	if s2.Tstates != 11 {
		t.Fatalf("taken RNZ Tstates = %d, want 11", s2.Tstates)
	}
}

func TestDaaAfterBcdAdd(t *testing.T) {
	s := &State{A: 0x15}
	s.A = execAdd(s, s.A, 0x27) // A = 0x3C
	if s.A != 0x3C {
		t.Fatalf("ADD gave %02X, want 3C", s.A)
	}
	execDaa(s)
	if s.A != 0x42 {
		t.Fatalf("DAA gave %02X, want 42", s.A)
	}
	if s.F&CFlag != 0 {
		t.Error("DAA: want C clear")
	}
	if s.F&HFlag == 0 {
		t.Error("DAA: want H set (nibble carry)")
	}
}

func TestIOEcho(t *testing.T) {
	var mem flatMem
	program := []byte{0xDB, 0x42, 0xD3, 0x43, 0x76}
	for i, b := range program {
		mem.Write(uint16(i), b)
	}
	io := &nullIO{in: func(port, addrLow uint8) uint8 {
		if port != 0x42 || addrLow != 0x42 {
			t.Fatalf("IN called with port=%02X addrLow=%02X, want 42,42", port, addrLow)
		}
		return 0x7E
	}}
	s := &State{}
	Run(s, &mem, io)
	if s.A != 0x7E {
		t.Fatalf("A after IN/OUT = %02X, want 7E", s.A)
	}
	if len(io.outCalls) != 1 {
		t.Fatalf("OUT called %d times, want 1", len(io.outCalls))
	}
	oc := io.outCalls[0]
	if oc.port != 0x43 || oc.addrLow != 0x43 || oc.v != 0x7E {
		t.Fatalf("OUT call = %+v, want port=43 addrLow=43 v=7E", oc)
	}
}

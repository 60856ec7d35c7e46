package cpu

// Run advances the CPU until RunState is no longer Running. Each iteration
// is Step; Run adds nothing beyond the loop and the continuation check
// described in the concurrency contract (§5): RunState is read exactly once
// per instruction boundary.
func Run(s *State, mem Memory, io IOPort) {
	for s.RunState() == Running {
		Step(s, mem, io)
	}
}

// Step executes exactly one instruction: fetch, dispatch, charge T-states.
func Step(s *State, mem Memory, io IOPort) {
	t := uint8(4) // M1 fetch minimum
	op := mem.Read(s.PC)
	s.PC++
	t += dispatch(s, mem, io, op)
	s.Tstates += uint64(t)
}

func fetch8(s *State, mem Memory) uint8 {
	v := mem.Read(s.PC)
	s.PC++
	return v
}

func fetch16(s *State, mem Memory) uint16 {
	lo := fetch8(s, mem)
	hi := fetch8(s, mem)
	return uint16(hi)<<8 | uint16(lo)
}

func push16(s *State, mem Memory, v uint16) {
	s.SP--
	mem.Write(s.SP, uint8(v>>8))
	s.SP--
	mem.Write(s.SP, uint8(v))
}

func pop16(s *State, mem Memory) uint16 {
	lo := mem.Read(s.SP)
	s.SP++
	hi := mem.Read(s.SP)
	s.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// readReg/writeReg decode the 8080's 3-bit register field: 0-5 = B,C,D,E,H,L;
// 6 = M (the byte at HL); 7 = A.
func readReg(s *State, mem Memory, code uint8) uint8 {
	switch code {
	case 0:
		return s.B
	case 1:
		return s.C
	case 2:
		return s.D
	case 3:
		return s.E
	case 4:
		return s.H
	case 5:
		return s.L
	case 6:
		return mem.Read(s.HL())
	default:
		return s.A
	}
}

func writeReg(s *State, mem Memory, code uint8, v uint8) {
	switch code {
	case 0:
		s.B = v
	case 1:
		s.C = v
	case 2:
		s.D = v
	case 3:
		s.E = v
	case 4:
		s.H = v
	case 5:
		s.L = v
	case 6:
		mem.Write(s.HL(), v)
	default:
		s.A = v
	}
}

// pairSP/setPairSP decode the 2-bit register-pair field used by INX, DCX,
// DAD and LXI: 0=BC, 1=DE, 2=HL, 3=SP.
func pairSP(s *State, idx uint8) uint16 {
	switch idx {
	case 0:
		return s.BC()
	case 1:
		return s.DE()
	case 2:
		return s.HL()
	default:
		return s.SP
	}
}

func setPairSP(s *State, idx uint8, v uint16) {
	switch idx {
	case 0:
		s.SetBC(v)
	case 1:
		s.SetDE(v)
	case 2:
		s.SetHL(v)
	default:
		s.SP = v
	}
}

// pairPSW/setPairPSW decode the same field as used by PUSH and POP, where
// index 3 names PSW (A:F) rather than SP.
func pairPSW(s *State, idx uint8) uint16 {
	switch idx {
	case 0:
		return s.BC()
	case 1:
		return s.DE()
	case 2:
		return s.HL()
	default:
		return s.PSW()
	}
}

func setPairPSW(s *State, idx uint8, v uint16) {
	switch idx {
	case 0:
		s.SetBC(v)
	case 1:
		s.SetDE(v)
	case 2:
		s.SetHL(v)
	default:
		s.SetPSW(v)
	}
}

// condTrue evaluates one of the eight branch conditions against F. The
// 3-bit encoding is the 8080's own: 0=NZ 1=Z 2=NC 3=C 4=PO 5=PE 6=P 7=M.
func condTrue(f uint8, cc uint8) bool {
	switch cc {
	case 0:
		return f&ZFlag == 0
	case 1:
		return f&ZFlag != 0
	case 2:
		return f&CFlag == 0
	case 3:
		return f&CFlag != 0
	case 4:
		return f&PFlag == 0
	case 5:
		return f&PFlag != 0
	case 6:
		return f&SFlag == 0
	default:
		return f&SFlag != 0
	}
}

func bsel(cond bool, a, b uint8) uint8 {
	if cond {
		return a
	}
	return b
}

// --- ALU flag tails -------------------------------------------------------
//
// Each helper computes the result and leaves F holding S, Z, P (from
// SzpTable), plus H and C per the cout-based formulas in §4.4. Internal F
// never carries X, Y or N; those are added only by FlagPushImage.

func execAdd(s *State, a, b uint8) uint8 {
	r := a + b
	cout := (a & b) | ((a | b) &^ r)
	f := SzpTable[r]
	f |= (cout >> 7 & 1) * CFlag
	f |= (cout >> 3 & 1) * HFlag
	s.F = f
	return r
}

func execAdc(s *State, a, b uint8) uint8 {
	cin := s.F & CFlag
	r := a + b + cin
	cout := (a & b) | ((a | b) &^ r)
	f := SzpTable[r]
	f |= (cout >> 7 & 1) * CFlag
	f |= (cout >> 3 & 1) * HFlag
	s.F = f
	return r
}

func execSub(s *State, a, b uint8) uint8 {
	r := a - b
	cout := (^a & b) | ((^a | b) & r)
	f := SzpTable[r]
	f |= (cout >> 7 & 1) * CFlag
	f |= (1 - (cout >> 3 & 1)) * HFlag
	s.F = f
	return r
}

func execSbb(s *State, a, b uint8) uint8 {
	cin := s.F & CFlag
	r := a - b - cin
	cout := (^a & b) | ((^a | b) & r)
	f := SzpTable[r]
	f |= (cout >> 7 & 1) * CFlag
	f |= (1 - (cout >> 3 & 1)) * HFlag
	s.F = f
	return r
}

func execAnd(s *State, a, b uint8) uint8 {
	r := a & b
	f := SzpTable[r]
	f |= ((a | b) >> 3 & 1) * HFlag
	s.F = f
	return r
}

func execXor(s *State, a, b uint8) uint8 {
	r := a ^ b
	s.F = SzpTable[r]
	return r
}

func execOr(s *State, a, b uint8) uint8 {
	r := a | b
	s.F = SzpTable[r]
	return r
}

func execInr(s *State, p uint8) uint8 {
	r := p + 1
	cout := (p & 1) | ((p | 1) &^ r)
	f := SzpTable[r] | (s.F & CFlag)
	f |= (cout >> 3 & 1) * HFlag
	s.F = f
	return r
}

func execDcr(s *State, p uint8) uint8 {
	r := p - 1
	cout := (^p & 1) | ((^p | 1) & r)
	f := SzpTable[r] | (s.F & CFlag)
	f |= (1 - (cout >> 3 & 1)) * HFlag
	s.F = f
	return r
}

func execDad(s *State, pair uint16) {
	sum := uint32(s.HL()) + uint32(pair)
	if sum&0x10000 != 0 {
		s.F |= CFlag
	} else {
		s.F &^= CFlag
	}
	s.SetHL(uint16(sum))
}

func execDaa(s *State) {
	a := s.A
	h := s.F&HFlag != 0
	c := s.F&CFlag != 0
	var p uint8
	if a&0x0F > 9 || h {
		p |= 0x06
	}
	if a > 0x99 || c {
		p |= 0x60
	}
	s.A = execAdd(s, a, p)
	if a > 0x99 || c {
		s.F |= CFlag
	} else {
		s.F &^= CFlag
	}
}

func execRlc(s *State) {
	c := s.A >> 7
	s.A = s.A<<1 | c
	s.F = s.F&^CFlag | c*CFlag
}

func execRrc(s *State) {
	c := s.A & 1
	s.A = s.A>>1 | c<<7
	s.F = s.F&^CFlag | c*CFlag
}

func execRal(s *State) {
	oldC := s.F & CFlag
	newC := s.A >> 7
	s.A = s.A<<1 | oldC
	s.F = s.F&^CFlag | newC*CFlag
}

func execRar(s *State) {
	oldC := s.F & CFlag
	newC := s.A & 1
	s.A = s.A>>1 | oldC<<7
	s.F = s.F&^CFlag | newC*CFlag
}

// dispatch applies the effects of opcode op and returns the T-states to
// charge beyond the M1 minimum already accounted for in Step.
func dispatch(s *State, mem Memory, io IOPort, op uint8) uint8 {
	switch {
	case op == 0x00 || op == 0x08 || op == 0x10 || op == 0x18 ||
		op == 0x20 || op == 0x28 || op == 0x30 || op == 0x38:
		return 0 // NOP, and its seven undocumented duplicate-opcode aliases

	case op&0xCF == 0x01: // LXI rp,nn
		setPairSP(s, op>>4&3, fetch16(s, mem))
		return 6

	case op == 0x02: // STAX B
		mem.Write(s.BC(), s.A)
		return 3
	case op == 0x12: // STAX D
		mem.Write(s.DE(), s.A)
		return 3
	case op == 0x0A: // LDAX B
		s.A = mem.Read(s.BC())
		return 3
	case op == 0x1A: // LDAX D
		s.A = mem.Read(s.DE())
		return 3

	case op == 0x22: // SHLD nn
		addr := fetch16(s, mem)
		mem.Write(addr, s.L)
		mem.Write(addr+1, s.H)
		return 12
	case op == 0x2A: // LHLD nn
		addr := fetch16(s, mem)
		s.L = mem.Read(addr)
		s.H = mem.Read(addr + 1)
		return 12
	case op == 0x32: // STA nn
		mem.Write(fetch16(s, mem), s.A)
		return 9
	case op == 0x3A: // LDA nn
		s.A = mem.Read(fetch16(s, mem))
		return 9

	case op&0xCF == 0x03: // INX rp
		setPairSP(s, op>>4&3, pairSP(s, op>>4&3)+1)
		return 1
	case op&0xCF == 0x0B: // DCX rp
		setPairSP(s, op>>4&3, pairSP(s, op>>4&3)-1)
		return 1
	case op&0xCF == 0x09: // DAD rp
		execDad(s, pairSP(s, op>>4&3))
		return 6

	case op == 0x34: // INR M
		mem.Write(s.HL(), execInr(s, mem.Read(s.HL())))
		return 6
	case op == 0x35: // DCR M
		mem.Write(s.HL(), execDcr(s, mem.Read(s.HL())))
		return 6
	case op&0xC7 == 0x04: // INR r
		reg := op >> 3 & 7
		writeReg(s, mem, reg, execInr(s, readReg(s, mem, reg)))
		return 1
	case op&0xC7 == 0x05: // DCR r
		reg := op >> 3 & 7
		writeReg(s, mem, reg, execDcr(s, readReg(s, mem, reg)))
		return 1

	case op == 0x36: // MVI M,n
		mem.Write(s.HL(), fetch8(s, mem))
		return 6
	case op&0xC7 == 0x06: // MVI r,n
		writeReg(s, mem, op>>3&7, fetch8(s, mem))
		return 3

	case op == 0x07:
		execRlc(s)
		return 0
	case op == 0x0F:
		execRrc(s)
		return 0
	case op == 0x17:
		execRal(s)
		return 0
	case op == 0x1F:
		execRar(s)
		return 0
	case op == 0x27:
		execDaa(s)
		return 0
	case op == 0x2F: // CMA
		s.A = ^s.A
		return 0
	case op == 0x37: // STC
		s.F |= CFlag
		return 0
	case op == 0x3F: // CMC
		s.F ^= CFlag
		return 0

	case op == 0x76: // HLT
		s.setRunState(Halted)
		return 3

	case op >= 0x40 && op <= 0x7F: // MOV dst,src
		dst, src := op>>3&7, op&7
		v := readReg(s, mem, src)
		writeReg(s, mem, dst, v)
		return bsel(dst == 6 || src == 6, 3, 1)

	case op >= 0x80 && op <= 0xBF: // ALU A,r
		src := op & 7
		v := readReg(s, mem, src)
		extra := bsel(src == 6, 3, 0)
		switch op >> 3 & 7 {
		case 0:
			s.A = execAdd(s, s.A, v)
		case 1:
			s.A = execAdc(s, s.A, v)
		case 2:
			s.A = execSub(s, s.A, v)
		case 3:
			s.A = execSbb(s, s.A, v)
		case 4:
			s.A = execAnd(s, s.A, v)
		case 5:
			s.A = execXor(s, s.A, v)
		case 6:
			s.A = execOr(s, s.A, v)
		default:
			execSub(s, s.A, v) // CMP discards the result
		}
		return extra

	case op == 0xC6:
		s.A = execAdd(s, s.A, fetch8(s, mem))
		return 3
	case op == 0xCE:
		s.A = execAdc(s, s.A, fetch8(s, mem))
		return 3
	case op == 0xD6:
		s.A = execSub(s, s.A, fetch8(s, mem))
		return 3
	case op == 0xDE:
		s.A = execSbb(s, s.A, fetch8(s, mem))
		return 3
	case op == 0xE6:
		s.A = execAnd(s, s.A, fetch8(s, mem))
		return 3
	case op == 0xEE:
		s.A = execXor(s, s.A, fetch8(s, mem))
		return 3
	case op == 0xF6:
		s.A = execOr(s, s.A, fetch8(s, mem))
		return 3
	case op == 0xFE:
		execSub(s, s.A, fetch8(s, mem))
		return 3

	case op&0xC7 == 0xC0: // Rcc
		if condTrue(s.F, op>>3&7) {
			s.PC = pop16(s, mem)
			return 7
		}
		return 1

	case op == 0xC9 || op == 0xD9: // RET, and its undocumented alias
		s.PC = pop16(s, mem)
		return 6

	case op&0xC7 == 0xC2: // Jcc
		addr := fetch16(s, mem)
		if condTrue(s.F, op>>3&7) {
			s.PC = addr
		}
		return 6

	case op == 0xC3 || op == 0xCB: // JMP, and its undocumented alias
		s.PC = fetch16(s, mem)
		return 6

	case op&0xC7 == 0xC4: // Ccc
		addr := fetch16(s, mem)
		if condTrue(s.F, op>>3&7) {
			push16(s, mem, s.PC)
			s.PC = addr
			return 13
		}
		return 7

	case op == 0xCD || op == 0xDD || op == 0xED || op == 0xFD: // CALL, and its undocumented aliases
		addr := fetch16(s, mem)
		push16(s, mem, s.PC)
		s.PC = addr
		return 13

	case op&0xC7 == 0xC7: // RST k
		k := op >> 3 & 7
		push16(s, mem, s.PC)
		s.PC = uint16(k) * 8
		return 7

	case op&0xCF == 0xC1: // POP rp (idx 3 = PSW)
		setPairPSW(s, op>>4&3, pop16(s, mem))
		return 6
	case op&0xCF == 0xC5: // PUSH rp (idx 3 = PSW)
		push16(s, mem, pairPSW(s, op>>4&3))
		return 7

	case op == 0xE3: // XTHL
		lo, hi := mem.Read(s.SP), mem.Read(s.SP+1)
		mem.Write(s.SP, s.L)
		mem.Write(s.SP+1, s.H)
		s.L, s.H = lo, hi
		return 14
	case op == 0xE9: // PCHL
		s.PC = s.HL()
		return 1
	case op == 0xEB: // XCHG
		s.D, s.H = s.H, s.D
		s.E, s.L = s.L, s.E
		return 0
	case op == 0xF9: // SPHL
		s.SP = s.HL()
		return 1

	case op == 0xDB: // IN n
		port := fetch8(s, mem)
		s.A = io.In(port, port)
		return 6
	case op == 0xD3: // OUT n
		port := fetch8(s, mem)
		io.Out(port, port, s.A)
		return 6

	case op == 0xF3: // DI
		s.IFF = IFFDisabled
		return 0
	case op == 0xFB: // EI
		s.IFF = IFFEnabled
		return 0

	default:
		// Unreachable: all 256 opcode bytes are mapped above. Per §7's
		// defensive-behavior clause, an unmapped byte is treated as a
		// zero-cost NOP rather than panicking the run.
		return 0
	}
}

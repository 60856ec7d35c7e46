// Package inst holds the 8080's byte-indexed opcode metadata: mnemonic,
// instruction length and T-state cost for all 256 opcode bytes, including
// the twelve aliases of undocumented duplicate opcodes. It has no
// dependency on the execution engine, and the engine does not read it: the
// engine carries its own per-opcode T-state deltas, and the conformance
// harness checks those against this catalog.
package inst

// Info is the static metadata for one opcode byte.
type Info struct {
	Mnemonic     string
	Length       uint8 // total instruction bytes, opcode included
	TStates      uint8 // base T-state charge (untaken, for conditional forms)
	Extra        uint8 // additional T-states charged when a conditional form is taken
	Undocumented bool  // true for the twelve aliased duplicate opcodes
}

// Catalog is indexed by the raw opcode byte.
var Catalog [256]Info

// Mnemonic returns the assembly mnemonic for an opcode byte.
func Mnemonic(op byte) string { return Catalog[op].Mnemonic }

// TStates returns the base T-state charge for an opcode byte (the untaken
// cost for conditional call/return forms; conditional jumps have no extra).
func TStates(op byte) int { return int(Catalog[op].TStates) }

// Length returns the instruction length in bytes for an opcode byte.
func Length(op byte) int { return int(Catalog[op].Length) }

// Disassemble renders the instruction at pc using mem, returning its text
// and length in bytes.
func Disassemble(pc uint16, mem interface{ Read(uint16) uint8 }) (string, int) {
	op := mem.Read(pc)
	info := Catalog[op]
	switch info.Length {
	case 2:
		n := mem.Read(pc + 1)
		return appendOperand8(info.Mnemonic, n), 2
	case 3:
		lo := mem.Read(pc + 1)
		hi := mem.Read(pc + 2)
		nn := uint16(hi)<<8 | uint16(lo)
		return appendOperand16(info.Mnemonic, nn), 3
	default:
		return info.Mnemonic, 1
	}
}

func appendOperand8(mnemonic string, n uint8) string {
	const hex = "0123456789ABCDEF"
	return mnemonic + " " + string([]byte{hex[n>>4], hex[n&0xF]}) + "h"
}

func appendOperand16(mnemonic string, nn uint16) string {
	const hex = "0123456789ABCDEF"
	b := []byte{hex[nn>>12&0xF], hex[nn>>8&0xF], hex[nn>>4&0xF], hex[nn&0xF]}
	return mnemonic + " " + string(b) + "h"
}

type row struct {
	op      byte
	mn      string
	length  uint8
	tstates uint8
	extra   uint8
	undoc   bool
}

func init() {
	rows := []row{
		{0x00, "NOP", 1, 4, 0, false},
		{0x01, "LXI B,nn", 3, 10, 0, false},
		{0x02, "STAX B", 1, 7, 0, false},
		{0x03, "INX B", 1, 5, 0, false},
		{0x04, "INR B", 1, 5, 0, false},
		{0x05, "DCR B", 1, 5, 0, false},
		{0x06, "MVI B,n", 2, 7, 0, false},
		{0x07, "RLC", 1, 4, 0, false},
		{0x08, "NOP", 1, 4, 0, true},
		{0x09, "DAD B", 1, 10, 0, false},
		{0x0A, "LDAX B", 1, 7, 0, false},
		{0x0B, "DCX B", 1, 5, 0, false},
		{0x0C, "INR C", 1, 5, 0, false},
		{0x0D, "DCR C", 1, 5, 0, false},
		{0x0E, "MVI C,n", 2, 7, 0, false},
		{0x0F, "RRC", 1, 4, 0, false},

		{0x10, "NOP", 1, 4, 0, true},
		{0x11, "LXI D,nn", 3, 10, 0, false},
		{0x12, "STAX D", 1, 7, 0, false},
		{0x13, "INX D", 1, 5, 0, false},
		{0x14, "INR D", 1, 5, 0, false},
		{0x15, "DCR D", 1, 5, 0, false},
		{0x16, "MVI D,n", 2, 7, 0, false},
		{0x17, "RAL", 1, 4, 0, false},
		{0x18, "NOP", 1, 4, 0, true},
		{0x19, "DAD D", 1, 10, 0, false},
		{0x1A, "LDAX D", 1, 7, 0, false},
		{0x1B, "DCX D", 1, 5, 0, false},
		{0x1C, "INR E", 1, 5, 0, false},
		{0x1D, "DCR E", 1, 5, 0, false},
		{0x1E, "MVI E,n", 2, 7, 0, false},
		{0x1F, "RAR", 1, 4, 0, false},

		{0x20, "NOP", 1, 4, 0, true},
		{0x21, "LXI H,nn", 3, 10, 0, false},
		{0x22, "SHLD nn", 3, 16, 0, false},
		{0x23, "INX H", 1, 5, 0, false},
		{0x24, "INR H", 1, 5, 0, false},
		{0x25, "DCR H", 1, 5, 0, false},
		{0x26, "MVI H,n", 2, 7, 0, false},
		{0x27, "DAA", 1, 4, 0, false},
		{0x28, "NOP", 1, 4, 0, true},
		{0x29, "DAD H", 1, 10, 0, false},
		{0x2A, "LHLD nn", 3, 16, 0, false},
		{0x2B, "DCX H", 1, 5, 0, false},
		{0x2C, "INR L", 1, 5, 0, false},
		{0x2D, "DCR L", 1, 5, 0, false},
		{0x2E, "MVI L,n", 2, 7, 0, false},
		{0x2F, "CMA", 1, 4, 0, false},

		{0x30, "NOP", 1, 4, 0, true},
		{0x31, "LXI SP,nn", 3, 10, 0, false},
		{0x32, "STA nn", 3, 13, 0, false},
		{0x33, "INX SP", 1, 5, 0, false},
		{0x34, "INR M", 1, 10, 0, false},
		{0x35, "DCR M", 1, 10, 0, false},
		{0x36, "MVI M,n", 2, 10, 0, false},
		{0x37, "STC", 1, 4, 0, false},
		{0x38, "NOP", 1, 4, 0, true},
		{0x39, "DAD SP", 1, 10, 0, false},
		{0x3A, "LDA nn", 3, 13, 0, false},
		{0x3B, "DCX SP", 1, 5, 0, false},
		{0x3C, "INR A", 1, 5, 0, false},
		{0x3D, "DCR A", 1, 5, 0, false},
		{0x3E, "MVI A,n", 2, 7, 0, false},
		{0x3F, "CMC", 1, 4, 0, false},

		{0xC0, "RNZ", 1, 5, 6, false},
		{0xC1, "POP B", 1, 10, 0, false},
		{0xC2, "JNZ nn", 3, 10, 0, false},
		{0xC3, "JMP nn", 3, 10, 0, false},
		{0xC4, "CNZ nn", 3, 11, 6, false},
		{0xC5, "PUSH B", 1, 11, 0, false},
		{0xC6, "ADI n", 2, 7, 0, false},
		{0xC7, "RST 0", 1, 11, 0, false},
		{0xC8, "RZ", 1, 5, 6, false},
		{0xC9, "RET", 1, 10, 0, false},
		{0xCA, "JZ nn", 3, 10, 0, false},
		{0xCB, "JMP nn", 3, 10, 0, true},
		{0xCC, "CZ nn", 3, 11, 6, false},
		{0xCD, "CALL nn", 3, 17, 0, false},
		{0xCE, "ACI n", 2, 7, 0, false},
		{0xCF, "RST 1", 1, 11, 0, false},

		{0xD0, "RNC", 1, 5, 6, false},
		{0xD1, "POP D", 1, 10, 0, false},
		{0xD2, "JNC nn", 3, 10, 0, false},
		{0xD3, "OUT n", 2, 10, 0, false},
		{0xD4, "CNC nn", 3, 11, 6, false},
		{0xD5, "PUSH D", 1, 11, 0, false},
		{0xD6, "SUI n", 2, 7, 0, false},
		{0xD7, "RST 2", 1, 11, 0, false},
		{0xD8, "RC", 1, 5, 6, false},
		{0xD9, "RET", 1, 10, 0, true},
		{0xDA, "JC nn", 3, 10, 0, false},
		{0xDB, "IN n", 2, 10, 0, false},
		{0xDC, "CC nn", 3, 11, 6, false},
		{0xDD, "CALL nn", 3, 17, 0, true},
		{0xDE, "SBI n", 2, 7, 0, false},
		{0xDF, "RST 3", 1, 11, 0, false},

		{0xE0, "RPO", 1, 5, 6, false},
		{0xE1, "POP H", 1, 10, 0, false},
		{0xE2, "JPO nn", 3, 10, 0, false},
		{0xE3, "XTHL", 1, 18, 0, false},
		{0xE4, "CPO nn", 3, 11, 6, false},
		{0xE5, "PUSH H", 1, 11, 0, false},
		{0xE6, "ANI n", 2, 7, 0, false},
		{0xE7, "RST 4", 1, 11, 0, false},
		{0xE8, "RPE", 1, 5, 6, false},
		{0xE9, "PCHL", 1, 5, 0, false},
		{0xEA, "JPE nn", 3, 10, 0, false},
		{0xEB, "XCHG", 1, 4, 0, false},
		{0xEC, "CPE nn", 3, 11, 6, false},
		{0xED, "CALL nn", 3, 17, 0, true},
		{0xEE, "XRI n", 2, 7, 0, false},
		{0xEF, "RST 5", 1, 11, 0, false},

		{0xF0, "RP", 1, 5, 6, false},
		{0xF1, "POP PSW", 1, 10, 0, false},
		{0xF2, "JP nn", 3, 10, 0, false},
		{0xF3, "DI", 1, 4, 0, false},
		{0xF4, "CP nn", 3, 11, 6, false},
		{0xF5, "PUSH PSW", 1, 11, 0, false},
		{0xF6, "ORI n", 2, 7, 0, false},
		{0xF7, "RST 6", 1, 11, 0, false},
		{0xF8, "RM", 1, 5, 6, false},
		{0xF9, "SPHL", 1, 5, 0, false},
		{0xFA, "JM nn", 3, 10, 0, false},
		{0xFB, "EI", 1, 4, 0, false},
		{0xFC, "CM nn", 3, 11, 6, false},
		{0xFD, "CALL nn", 3, 17, 0, true},
		{0xFE, "CPI n", 2, 7, 0, false},
		{0xFF, "RST 7", 1, 11, 0, false},
	}
	for _, r := range rows {
		Catalog[r.op] = Info{Mnemonic: r.mn, Length: r.length, TStates: r.tstates, Extra: r.extra, Undocumented: r.undoc}
	}

	regNames := [8]string{"B", "C", "D", "E", "H", "L", "M", "A"}

	// MOV dst,src: 0x40-0x7F, dst = (op>>3)&7, src = op&7. 0x76 is HLT, not MOV M,M.
	for op := 0x40; op <= 0x7F; op++ {
		if op == 0x76 {
			Catalog[op] = Info{Mnemonic: "HLT", Length: 1, TStates: 7}
			continue
		}
		dst := regNames[(op>>3)&7]
		src := regNames[op&7]
		t := uint8(5)
		if dst == "M" || src == "M" {
			t = 7
		}
		Catalog[op] = Info{Mnemonic: "MOV " + dst + "," + src, Length: 1, TStates: t}
	}

	// ALU r: 0x80-0xBF, op family = (op>>3)&7, src = op&7.
	aluMn := [8]string{"ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP"}
	for op := 0x80; op <= 0xBF; op++ {
		fam := aluMn[(op>>3)&7]
		src := regNames[op&7]
		t := uint8(4)
		if src == "M" {
			t = 7
		}
		Catalog[op] = Info{Mnemonic: fam + " " + src, Length: 1, TStates: t}
	}
}

package compiler

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// machine interprets the subset of x86-64 AT&T assembly the code
// generator emits, so tests can check what a program computes without an
// assembler. Calls to labels it does not define go to externs.
type machine struct {
	regs    map[string]int64
	mem     []byte
	prog    []insn
	labels  map[string]int
	data    map[string]int64
	externs map[string]func(args []int64) int64

	cmpDst, cmpSrc int64
	calls          int
}

type insn struct {
	op   string
	args []string
	text string
}

const (
	memSize   = 1 << 20
	dataBase  = 0x1000
	maxSteps  = 10_000_000
	retToHost = -1
)

var argRegs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

var byteRegs = map[string]string{
	"al": "rax", "dil": "rdi", "sil": "rsi", "dl": "rdx", "cl": "rcx", "r8b": "r8", "r9b": "r9",
}

func newMachine(asm string) (*machine, error) {
	m := &machine{
		regs:   make(map[string]int64),
		mem:    make([]byte, memSize),
		labels: make(map[string]int),
		data:   make(map[string]int64),
		externs: map[string]func([]int64) int64{
			"add2": func(a []int64) int64 { return a[0] + a[1] },
			"sub2": func(a []int64) int64 { return a[0] - a[1] },
			"sum6": func(a []int64) int64 { return a[0] + a[1] + a[2] + a[3] + a[4] + a[5] },
			"weigh6": func(a []int64) int64 {
				return a[0] + 2*a[1] + 3*a[2] + 4*a[3] + 5*a[4] + 6*a[5]
			},
		},
	}

	inData := false
	next := int64(dataBase)
	for _, raw := range strings.Split(asm, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case strings.HasSuffix(line, ":"):
			name := strings.TrimSuffix(line, ":")
			if inData {
				m.data[name] = next
			} else {
				m.labels[name] = len(m.prog)
			}
			continue
		case line == ".data":
			inData = true
			continue
		case line == ".text":
			inData = false
			continue
		}

		op, rest, _ := strings.Cut(line, " ")
		var args []string
		if rest != "" {
			args = strings.Split(rest, ", ")
		}
		switch op {
		case ".globl":
		case ".zero":
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return nil, err
			}
			next += n
		case ".byte":
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return nil, err
			}
			m.mem[next] = byte(n)
			next++
		default:
			if inData {
				return nil, fmt.Errorf("instruction in data section: %s", line)
			}
			m.prog = append(m.prog, insn{op: op, args: args, text: line})
		}
	}
	return m, nil
}

// run calls fn with an aligned stack and returns %rax.
func (m *machine) run(fn string) (int64, error) {
	pc, ok := m.labels[fn]
	if !ok {
		return 0, fmt.Errorf("no function %s", fn)
	}
	m.regs["rsp"] = memSize - 64
	m.push(retToHost)

	for steps := 0; steps < maxSteps; steps++ {
		if pc < 0 || pc >= len(m.prog) {
			return 0, fmt.Errorf("pc %d out of range", pc)
		}
		in := m.prog[pc]
		pc++
		next, err := m.step(in, pc)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", in.text, err)
		}
		if next == retToHost {
			return m.regs["rax"], nil
		}
		pc = next
	}
	return 0, fmt.Errorf("step limit exceeded")
}

func (m *machine) step(in insn, pc int) (int, error) {
	a := in.args
	switch in.op {
	case "mov":
		switch {
		case isMem(a[1]):
			addr, err := m.addr(a[1])
			if err != nil {
				return 0, err
			}
			if full, ok := byteRegs[strings.TrimPrefix(a[0], "%")]; ok {
				m.mem[addr] = byte(m.regs[full])
			} else {
				v, err := m.value(a[0])
				if err != nil {
					return 0, err
				}
				m.store(addr, v)
			}
		default:
			v, err := m.value(a[0])
			if err != nil {
				return 0, err
			}
			m.setReg(a[1], v)
		}
	case "movsbq":
		addr, err := m.addr(a[0])
		if err != nil {
			return 0, err
		}
		m.setReg(a[1], int64(int8(m.mem[addr])))
	case "movzb":
		m.setReg(a[1], m.regs["rax"]&0xff)
	case "lea":
		addr, err := m.addr(a[0])
		if err != nil {
			return 0, err
		}
		m.setReg(a[1], addr)
	case "push":
		v, err := m.value(a[0])
		if err != nil {
			return 0, err
		}
		m.push(v)
	case "pop":
		m.setReg(a[0], m.pop())
	case "add", "sub", "imul":
		src, err := m.value(a[0])
		if err != nil {
			return 0, err
		}
		dst, err := m.value(a[1])
		if err != nil {
			return 0, err
		}
		switch in.op {
		case "add":
			dst += src
		case "sub":
			dst -= src
		default:
			dst *= src
		}
		m.setReg(a[1], dst)
	case "cqo":
		if m.regs["rax"] < 0 {
			m.regs["rdx"] = -1
		} else {
			m.regs["rdx"] = 0
		}
	case "idiv":
		d, err := m.value(a[0])
		if err != nil {
			return 0, err
		}
		if d == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		n := m.regs["rax"]
		m.regs["rax"], m.regs["rdx"] = n/d, n%d
	case "neg":
		m.setReg(a[0], -m.regs[strings.TrimPrefix(a[0], "%")])
	case "cmp":
		src, err := m.value(a[0])
		if err != nil {
			return 0, err
		}
		dst, err := m.value(a[1])
		if err != nil {
			return 0, err
		}
		m.cmpDst, m.cmpSrc = dst, src
	case "sete", "setne", "setl", "setle":
		var cond bool
		switch in.op {
		case "sete":
			cond = m.cmpDst == m.cmpSrc
		case "setne":
			cond = m.cmpDst != m.cmpSrc
		case "setl":
			cond = m.cmpDst < m.cmpSrc
		default:
			cond = m.cmpDst <= m.cmpSrc
		}
		var b int64
		if cond {
			b = 1
		}
		m.regs["rax"] = m.regs["rax"]&^0xff | b
	case "je", "jmp":
		if in.op == "je" && m.cmpDst != m.cmpSrc {
			return pc, nil
		}
		target, ok := m.labels[a[0]]
		if !ok {
			return 0, fmt.Errorf("unknown label %s", a[0])
		}
		return target, nil
	case "call":
		m.calls++
		if m.regs["rsp"]%16 != 0 {
			return 0, fmt.Errorf("misaligned stack at call: rsp=%#x", m.regs["rsp"])
		}
		if target, ok := m.labels[a[0]]; ok {
			m.push(int64(pc))
			return target, nil
		}
		ext, ok := m.externs[a[0]]
		if !ok {
			return 0, fmt.Errorf("undefined function %s", a[0])
		}
		args := make([]int64, len(argRegs))
		for i, r := range argRegs {
			args[i] = m.regs[r]
		}
		m.regs["rax"] = ext(args)
	case "ret":
		return int(m.pop()), nil
	default:
		return 0, fmt.Errorf("unsupported instruction")
	}
	return pc, nil
}

func isMem(op string) bool { return strings.HasSuffix(op, ")") }

func (m *machine) setReg(op string, v int64) {
	m.regs[strings.TrimPrefix(op, "%")] = v
}

func (m *machine) value(op string) (int64, error) {
	switch {
	case strings.HasPrefix(op, "$"):
		return strconv.ParseInt(op[1:], 10, 64)
	case strings.HasPrefix(op, "%"):
		name := op[1:]
		if full, ok := byteRegs[name]; ok {
			return m.regs[full] & 0xff, nil
		}
		return m.regs[name], nil
	case isMem(op):
		addr, err := m.addr(op)
		if err != nil {
			return 0, err
		}
		return m.load(addr), nil
	}
	return 0, fmt.Errorf("bad operand %q", op)
}

// addr resolves off(%reg), (%reg) and sym(%rip).
func (m *machine) addr(op string) (int64, error) {
	open := strings.IndexByte(op, '(')
	if open < 0 {
		return 0, fmt.Errorf("bad memory operand %q", op)
	}
	disp, base := op[:open], strings.TrimSuffix(op[open+1:], ")")
	if base == "%rip" {
		a, ok := m.data[disp]
		if !ok {
			return 0, fmt.Errorf("unknown data symbol %s", disp)
		}
		return a, nil
	}
	var off int64
	if disp != "" {
		var err error
		if off, err = strconv.ParseInt(disp, 10, 64); err != nil {
			return 0, err
		}
	}
	a := m.regs[strings.TrimPrefix(base, "%")] + off
	if a < 0 || a+8 > memSize {
		return 0, fmt.Errorf("address %#x out of range", a)
	}
	return a, nil
}

func (m *machine) load(addr int64) int64 {
	return int64(binary.LittleEndian.Uint64(m.mem[addr:]))
}

func (m *machine) store(addr, v int64) {
	binary.LittleEndian.PutUint64(m.mem[addr:], uint64(v))
}

func (m *machine) push(v int64) {
	m.regs["rsp"] -= 8
	m.store(m.regs["rsp"], v)
}

func (m *machine) pop() int64 {
	v := m.load(m.regs["rsp"])
	m.regs["rsp"] += 8
	return v
}

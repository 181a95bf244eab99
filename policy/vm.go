// Package policy implements the bytecode interpreter used to evaluate
// custom admission predicates over numeric transaction/block fields.
//
// The machine is deliberately tiny: an operand stack of float64 values, a
// program counter that only moves forward, and no jump opcodes, so every
// program terminates in at most len(bytecode) steps. Any fault is a typed
// Error; callers treat errors as rejection (fail-closed).
package policy

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Opcode bytes. PUSH carries an 8-byte little-endian IEEE-754 immediate;
// LOAD carries a 1-byte variable index.
const (
	OP_HALT byte = 0x00
	OP_PUSH byte = 0x01
	OP_LOAD byte = 0x02
	OP_ADD  byte = 0x10
	OP_SUB  byte = 0x11
	OP_MUL  byte = 0x12
	OP_DIV  byte = 0x13
	OP_EQ   byte = 0x20
	OP_GT   byte = 0x21
	OP_LT   byte = 0x22
	OP_AND  byte = 0x30
	OP_OR   byte = 0x31
	OP_NOT  byte = 0x32
)

// StackSize is the fixed operand-stack capacity.
const StackSize = 256

type ErrorCode string

const (
	VM_ERR_TRUNCATED       ErrorCode = "VM_ERR_TRUNCATED"
	VM_ERR_UNKNOWN_OPCODE  ErrorCode = "VM_ERR_UNKNOWN_OPCODE"
	VM_ERR_VAR_INDEX       ErrorCode = "VM_ERR_VAR_INDEX"
	VM_ERR_STACK_OVERFLOW  ErrorCode = "VM_ERR_STACK_OVERFLOW"
	VM_ERR_STACK_UNDERFLOW ErrorCode = "VM_ERR_STACK_UNDERFLOW"
	VM_ERR_DIV_ZERO        ErrorCode = "VM_ERR_DIV_ZERO"
)

type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func vmerr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Evaluate runs bytecode against the caller-supplied variables and returns
// the truthiness of the final top of stack (nonzero = true). An empty stack
// at termination evaluates to false. Identical inputs always yield the
// identical result; the machine has no side effects.
func Evaluate(bytecode []byte, vars []float64) (bool, error) {
	var stack [StackSize]float64
	sp := -1
	pc := 0

	pop2 := func(op string) (float64, float64, error) {
		if sp < 1 {
			return 0, 0, vmerr(VM_ERR_STACK_UNDERFLOW, op)
		}
		b := stack[sp]
		a := stack[sp-1]
		sp -= 2
		return a, b, nil
	}
	push := func(v float64) error {
		if sp >= StackSize-1 {
			return vmerr(VM_ERR_STACK_OVERFLOW, "")
		}
		sp++
		stack[sp] = v
		return nil
	}

loop:
	for pc < len(bytecode) {
		op := bytecode[pc]
		pc++

		switch op {
		case OP_HALT:
			break loop

		case OP_PUSH:
			if pc+8 > len(bytecode) {
				return false, vmerr(VM_ERR_TRUNCATED, "push immediate")
			}
			v := math.Float64frombits(binary.LittleEndian.Uint64(bytecode[pc:]))
			pc += 8
			if err := push(v); err != nil {
				return false, err
			}

		case OP_LOAD:
			if pc >= len(bytecode) {
				return false, vmerr(VM_ERR_TRUNCATED, "load index")
			}
			idx := int(bytecode[pc])
			pc++
			if idx >= len(vars) {
				return false, vmerr(VM_ERR_VAR_INDEX, fmt.Sprintf("index %d, %d variables", idx, len(vars)))
			}
			if err := push(vars[idx]); err != nil {
				return false, err
			}

		case OP_ADD:
			a, b, err := pop2("add")
			if err != nil {
				return false, err
			}
			_ = push(a + b)

		case OP_SUB:
			a, b, err := pop2("sub")
			if err != nil {
				return false, err
			}
			_ = push(a - b)

		case OP_MUL:
			a, b, err := pop2("mul")
			if err != nil {
				return false, err
			}
			_ = push(a * b)

		case OP_DIV:
			a, b, err := pop2("div")
			if err != nil {
				return false, err
			}
			if b == 0 {
				return false, vmerr(VM_ERR_DIV_ZERO, "")
			}
			_ = push(a / b)

		case OP_EQ:
			a, b, err := pop2("eq")
			if err != nil {
				return false, err
			}
			_ = push(boolVal(a == b))

		case OP_GT:
			a, b, err := pop2("gt")
			if err != nil {
				return false, err
			}
			_ = push(boolVal(a > b))

		case OP_LT:
			a, b, err := pop2("lt")
			if err != nil {
				return false, err
			}
			_ = push(boolVal(a < b))

		case OP_AND:
			a, b, err := pop2("and")
			if err != nil {
				return false, err
			}
			_ = push(boolVal(a != 0 && b != 0))

		case OP_OR:
			a, b, err := pop2("or")
			if err != nil {
				return false, err
			}
			_ = push(boolVal(a != 0 || b != 0))

		case OP_NOT:
			if sp < 0 {
				return false, vmerr(VM_ERR_STACK_UNDERFLOW, "not")
			}
			a := stack[sp]
			sp--
			_ = push(boolVal(a == 0))

		default:
			return false, vmerr(VM_ERR_UNKNOWN_OPCODE, fmt.Sprintf("0x%02x at %d", op, pc-1))
		}
	}

	if sp == -1 {
		return false, nil
	}
	return stack[sp] != 0, nil
}

func boolVal(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

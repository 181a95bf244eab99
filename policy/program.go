package policy

import (
	"encoding/binary"
	"math"
)

// Program builds predicate bytecode with append-style helpers, so callers
// never hand-write immediates:
//
//	code := policy.NewProgram().Push(5).Load(0).Gt().Halt().Bytes()
type Program struct {
	code []byte
}

func NewProgram() *Program {
	return &Program{}
}

func (p *Program) Push(v float64) *Program {
	p.code = append(p.code, OP_PUSH)
	var imm [8]byte
	binary.LittleEndian.PutUint64(imm[:], math.Float64bits(v))
	p.code = append(p.code, imm[:]...)
	return p
}

func (p *Program) Load(index uint8) *Program {
	p.code = append(p.code, OP_LOAD, index)
	return p
}

func (p *Program) Add() *Program  { return p.op(OP_ADD) }
func (p *Program) Sub() *Program  { return p.op(OP_SUB) }
func (p *Program) Mul() *Program  { return p.op(OP_MUL) }
func (p *Program) Div() *Program  { return p.op(OP_DIV) }
func (p *Program) Eq() *Program   { return p.op(OP_EQ) }
func (p *Program) Gt() *Program   { return p.op(OP_GT) }
func (p *Program) Lt() *Program   { return p.op(OP_LT) }
func (p *Program) And() *Program  { return p.op(OP_AND) }
func (p *Program) Or() *Program   { return p.op(OP_OR) }
func (p *Program) Not() *Program  { return p.op(OP_NOT) }
func (p *Program) Halt() *Program { return p.op(OP_HALT) }

func (p *Program) op(b byte) *Program {
	p.code = append(p.code, b)
	return p
}

// Bytes returns the assembled bytecode.
func (p *Program) Bytes() []byte {
	return append([]byte(nil), p.code...)
}

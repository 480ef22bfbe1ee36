package values

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wudi/havenlua/opcodes"
)

// UpvalueDesc describes how a closure created from this prototype
// should capture one of its upvalues: either from a local slot of the
// enclosing function's frame (FromLocal) or by sharing the enclosing
// closure's own upvalue at Index.
type UpvalueDesc struct {
	Name      string
	FromLocal bool
	Index     int
}

// Prototype is the compiled, immutable description of a function,
// shared by every closure created from it. It is produced by the
// lexer/parser/code generator, which this module does not implement;
// Prototype values are either built directly (by tests, via the
// in-package assembler) or loaded from a YAML chunk dump.
type Prototype struct {
	Source       string
	LineDefined  int
	NumParams    int
	IsVararg     bool
	MaxStackSize int

	Instructions []opcodes.Instruction
	Constants    []Value
	Protos       []*Prototype
	LineInfo     []int // parallel to Instructions

	Upvalues []UpvalueDesc
}

// --- YAML chunk-dump format -------------------------------------------------
//
// The lexer/parser/code generator that would normally produce a
// Prototype from source text is out of scope for this module (see
// spec §1). To still have an on-disk chunk format the stand-alone
// driver can load, a Prototype can be serialized to and parsed back
// from YAML. Constants are restricted to the compile-time-constant
// subset of Value (nil, boolean, number, string).

type constDump struct {
	Kind string  `yaml:"kind"`
	Num  float64 `yaml:"num,omitempty"`
	Str  string  `yaml:"str,omitempty"`
	Bool bool    `yaml:"bool,omitempty"`
}

type protoDump struct {
	Source       string        `yaml:"source"`
	LineDefined  int           `yaml:"line_defined"`
	NumParams    int           `yaml:"num_params"`
	IsVararg     bool          `yaml:"is_vararg"`
	MaxStackSize int           `yaml:"max_stack_size"`
	Instructions []uint32      `yaml:"instructions"`
	Constants    []constDump   `yaml:"constants"`
	Protos       []protoDump   `yaml:"protos"`
	LineInfo     []int         `yaml:"line_info"`
	Upvalues     []UpvalueDesc `yaml:"upvalues"`
}

func dumpConstant(v Value) (constDump, error) {
	switch v.Tag {
	case TNil:
		return constDump{Kind: "nil"}, nil
	case TBoolean:
		return constDump{Kind: "bool", Bool: v.boolean}, nil
	case TNumber:
		return constDump{Kind: "number", Num: v.num}, nil
	case TString:
		return constDump{Kind: "string", Str: v.obj.(*StringObj).s}, nil
	default:
		return constDump{}, fmt.Errorf("values: constant of type %s is not dumpable", v.Tag)
	}
}

func loadConstant(in *Interner, c constDump) (Value, error) {
	switch c.Kind {
	case "nil":
		return Nil(), nil
	case "bool":
		return Bool(c.Bool), nil
	case "number":
		return Number(c.Num), nil
	case "string":
		return in.NewString(c.Str), nil
	default:
		return Nil(), fmt.Errorf("values: unknown constant kind %q", c.Kind)
	}
}

func toDump(p *Prototype) (protoDump, error) {
	d := protoDump{
		Source:       p.Source,
		LineDefined:  p.LineDefined,
		NumParams:    p.NumParams,
		IsVararg:     p.IsVararg,
		MaxStackSize: p.MaxStackSize,
		LineInfo:     p.LineInfo,
		Upvalues:     p.Upvalues,
	}
	for _, ins := range p.Instructions {
		d.Instructions = append(d.Instructions, uint32(ins))
	}
	for _, c := range p.Constants {
		cd, err := dumpConstant(c)
		if err != nil {
			return protoDump{}, err
		}
		d.Constants = append(d.Constants, cd)
	}
	for _, child := range p.Protos {
		cd, err := toDump(child)
		if err != nil {
			return protoDump{}, err
		}
		d.Protos = append(d.Protos, cd)
	}
	return d, nil
}

func fromDump(in *Interner, d protoDump) (*Prototype, error) {
	p := &Prototype{
		Source:       d.Source,
		LineDefined:  d.LineDefined,
		NumParams:    d.NumParams,
		IsVararg:     d.IsVararg,
		MaxStackSize: d.MaxStackSize,
		LineInfo:     d.LineInfo,
		Upvalues:     d.Upvalues,
	}
	for _, ins := range d.Instructions {
		p.Instructions = append(p.Instructions, opcodes.Instruction(ins))
	}
	for _, cd := range d.Constants {
		c, err := loadConstant(in, cd)
		if err != nil {
			return nil, err
		}
		p.Constants = append(p.Constants, c)
	}
	for _, childDump := range d.Protos {
		child, err := fromDump(in, childDump)
		if err != nil {
			return nil, err
		}
		p.Protos = append(p.Protos, child)
	}
	return p, nil
}

// Dump serializes the prototype (and every nested child prototype) to
// a YAML chunk dump.
func (p *Prototype) Dump() ([]byte, error) {
	d, err := toDump(p)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(d)
}

// Undump parses a YAML chunk dump produced by Dump, interning any
// string constants through in.
func Undump(in *Interner, data []byte) (*Prototype, error) {
	var d protoDump
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("values: undump: %w", err)
	}
	return fromDump(in, d)
}

package ir

import "tlog.app/go/tlog/tlwire"

type (
	// Value is one of Tag, Reg, Tuple, Unit — the four value forms a
	// StackLang expression can produce.
	Value interface {
		isValue()
	}

	// Tag is a constant state tag, e.g. the result of a reduction
	// dispatch decision made upstream.
	Tag struct{ N StateTag }

	// Reg reads the current contents of a register.
	Reg struct{ R Register }

	// Tuple is a finite, possibly empty, sequence of values.
	Tuple struct{ Vals []Value }

	// Unit carries no information.
	Unit struct{}
)

func (Tag) isValue()   {}
func (Reg) isValue()   {}
func (Tuple) isValue() {}
func (Unit) isValue()  {}

func (v Tag) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	return e.AppendFormat(b, "tag(%d)", int(v.N))
}

func (v Reg) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	return e.AppendFormat(b, "r%d", int(v.R))
}

type tlogAppender interface {
	TlogAppend([]byte) []byte
}

func (v Tuple) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendTag(b, tlwire.Array, -1)

	for _, x := range v.Vals {
		if a, ok := x.(tlogAppender); ok {
			b = a.TlogAppend(b)
			continue
		}

		b = e.AppendFormat(b, "%v", x)
	}

	b = e.AppendBreak(b)

	return b
}

func (v Unit) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder
	return e.AppendFormat(b, "()")
}

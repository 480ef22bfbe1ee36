package vm

import (
	"math"
	"strings"

	"github.com/wudi/havenlua/values"
)

func coercibleToString(v values.Value) bool {
	return v.IsString() || v.IsNumber()
}

func coerceToStringBytes(v values.Value) string {
	if v.IsString() {
		return v.AsString().Bytes()
	}
	return values.NumberToString(v.AsNumber())
}

func pickNonCoercible(a, b values.Value) values.Value {
	if !coercibleToString(a) {
		return a
	}
	return b
}

// concat implements the string concatenation engine (spec.md §4.5).
// It operates in place on th.stack[first..last] and returns the
// single resulting value, which is also left at th.stack[first].
//
// Repeatedly: if the last two values are not both string-coercible,
// fall back to the __concat metamethod on them (or fail with a type
// error); otherwise scan leftward for the maximal run of
// string-coercible values, join them into one interned string, and
// shrink the working range. This turns a long `a..b..c..d` chain into
// O(1) intermediate allocations instead of one per `..`.
func (th *Thread) concat(first, last int) values.Value {
	for last > first {
		a := th.stack[last-1]
		b := th.stack[last]

		if !coercibleToString(a) || !coercibleToString(b) {
			mm := th.arithMetamethod(a, b, evConcat)
			if mm.IsNil() {
				th.raise(th.typeError("attempt to concatenate a %s value", values.TypeName(pickNonCoercible(a, b))))
			}
			th.stack[last-1] = th.callBinaryMetamethod(mm, a, b)
			last--
			continue
		}

		i := last
		for i > first && coercibleToString(th.stack[i-1]) {
			i--
		}

		parts := make([]string, 0, last-i+1)
		var totalLen int64
		nonEmpty := 0
		lastNonEmpty := -1
		for k := i; k <= last; k++ {
			s := coerceToStringBytes(th.stack[k])
			parts = append(parts, s)
			totalLen += int64(len(s))
			if s != "" {
				nonEmpty++
				lastNonEmpty = len(parts) - 1
			}
		}
		if totalLen > math.MaxInt32 {
			th.raise(th.structuralError(nil, "%s", values.SizeOverflowMessage(totalLen)))
		}

		var joined string
		switch {
		case nonEmpty == 0:
			joined = ""
		case nonEmpty == 1:
			// A no-op: the run collapses to its single non-empty
			// member without allocating a new joined buffer.
			joined = parts[lastNonEmpty]
		default:
			joined = strings.Join(parts, "")
		}
		th.stack[i] = th.interner.NewString(joined)
		th.state.GC.Checkpoint(int64(len(joined)))

		last = i
	}
	return th.stack[first]
}

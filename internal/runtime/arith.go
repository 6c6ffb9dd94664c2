package runtime

import (
	"math"
	"strings"
)

func unsupported(op string, a, b any) error {
	return Raise(TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(a), TypeName(b))
}

// bothInts reports whether a and b are integers (bool included) and not
// floats.
func bothInts(a, b any) (int64, int64, bool) {
	if isFloat(a) || isFloat(b) {
		return 0, 0, false
	}
	x, ok1 := toInt(a)
	y, ok2 := toInt(b)
	return x, y, ok1 && ok2
}

// overflow reports an integer result that does not fit in 64 bits.
func overflow(op string) error {
	return Raise(OverflowError, "integer result of %s does not fit in 64 bits", op)
}

func addInt(x, y int64) (int64, error) {
	s := x + y
	if (x^s)&(y^s) < 0 {
		return 0, overflow("+")
	}
	return s, nil
}

func subInt(x, y int64) (int64, error) {
	d := x - y
	if (x^y)&(x^d) < 0 {
		return 0, overflow("-")
	}
	return d, nil
}

func mulInt(op string, x, y int64) (int64, error) {
	if x == 0 || y == 0 {
		return 0, nil
	}
	p := x * y
	if p/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return 0, overflow(op)
	}
	return p, nil
}

func bothFloats(a, b any) (float64, float64, bool) {
	x, ok1 := toFloat(a)
	y, ok2 := toFloat(b)
	return x, y, ok1 && ok2
}

// Add implements +.
func Add(a, b any) (any, error) {
	if x, y, ok := bothInts(a, b); ok {
		return addInt(x, y)
	}
	if x, y, ok := bothFloats(a, b); ok {
		return x + y, nil
	}
	if x, ok := stringValue(a); ok {
		if y, ok := stringValue(b); ok {
			return x + y, nil
		}
	}
	switch x := a.(type) {
	case *List:
		if y, ok := b.(*List); ok {
			items := make([]any, 0, len(x.Items)+len(y.Items))
			return NewList(append(append(items, x.Items...), y.Items...)...), nil
		}
	case Tuple:
		if y, ok := b.(Tuple); ok {
			out := make(Tuple, 0, len(x)+len(y))
			return append(append(out, x...), y...), nil
		}
	}
	return nil, unsupported("+", a, b)
}

// Sub implements -.
func Sub(a, b any) (any, error) {
	if x, y, ok := bothInts(a, b); ok {
		return subInt(x, y)
	}
	if x, y, ok := bothFloats(a, b); ok {
		return x - y, nil
	}
	return nil, unsupported("-", a, b)
}

func repeat(items []any, n int64) []any {
	out := make([]any, 0, len(items)*int(max(n, 0)))
	for i := int64(0); i < n; i++ {
		out = append(out, items...)
	}
	return out
}

// Mul implements *.
func Mul(a, b any) (any, error) {
	if x, y, ok := bothInts(a, b); ok {
		return mulInt("*", x, y)
	}
	if x, y, ok := bothFloats(a, b); ok {
		return x * y, nil
	}

	seq, count := a, b
	if _, ok := toInt(seq); ok {
		seq, count = b, a
	}
	n, ok := toInt(count)
	if !ok || isFloat(count) {
		return nil, unsupported("*", a, b)
	}
	if s, ok := stringValue(seq); ok {
		return strings.Repeat(s, int(max(n, 0))), nil
	}
	switch x := seq.(type) {
	case *List:
		return NewList(repeat(x.Items, n)...), nil
	case Tuple:
		return Tuple(repeat(x, n)), nil
	}
	return nil, unsupported("*", a, b)
}

// TrueDiv implements /.
func TrueDiv(a, b any) (any, error) {
	x, y, ok := bothFloats(a, b)
	if !ok {
		return nil, unsupported("/", a, b)
	}
	if y == 0 {
		return nil, Raise(ZeroDivisionError, "division by zero")
	}
	return x / y, nil
}

// FloorDiv implements //.
func FloorDiv(a, b any) (any, error) {
	if x, y, ok := bothInts(a, b); ok {
		if y == 0 {
			return nil, Raise(ZeroDivisionError, "integer division or modulo by zero")
		}
		if x == math.MinInt64 && y == -1 {
			return nil, overflow("//")
		}
		q := x / y
		if (x%y != 0) && ((x < 0) != (y < 0)) {
			q--
		}
		return q, nil
	}
	if x, y, ok := bothFloats(a, b); ok {
		if y == 0 {
			return nil, Raise(ZeroDivisionError, "float floor division by zero")
		}
		return math.Floor(x / y), nil
	}
	return nil, unsupported("//", a, b)
}

// Mod implements %. The result takes the sign of the divisor.
func Mod(a, b any) (any, error) {
	if x, y, ok := bothInts(a, b); ok {
		if y == 0 {
			return nil, Raise(ZeroDivisionError, "integer division or modulo by zero")
		}
		r := x % y
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return r, nil
	}
	if x, y, ok := bothFloats(a, b); ok {
		if y == 0 {
			return nil, Raise(ZeroDivisionError, "float modulo")
		}
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return r, nil
	}
	return nil, unsupported("%", a, b)
}

// Pow implements **. A negative integer exponent yields a float.
func Pow(a, b any) (any, error) {
	if x, y, ok := bothInts(a, b); ok && y >= 0 {
		result := int64(1)
		for y > 0 {
			var err error
			if y&1 == 1 {
				if result, err = mulInt("**", result, x); err != nil {
					return nil, err
				}
			}
			if y >>= 1; y > 0 {
				if x, err = mulInt("**", x, x); err != nil {
					return nil, err
				}
			}
		}
		return result, nil
	}
	if x, y, ok := bothFloats(a, b); ok {
		if x == 0 && y < 0 {
			return nil, Raise(ZeroDivisionError, "0.0 cannot be raised to a negative power")
		}
		return math.Pow(x, y), nil
	}
	return nil, unsupported("**", a, b)
}

func intOp(op string, fn func(x, y int64) (int64, error)) func(a, b any) (any, error) {
	return func(a, b any) (any, error) {
		x, y, ok := bothInts(a, b)
		if !ok {
			return nil, unsupported(op, a, b)
		}
		r, err := fn(x, y)
		if err != nil {
			return nil, err
		}
		_, aBool := a.(bool)
		_, bBool := b.(bool)
		if aBool && bBool && op != "<<" && op != ">>" {
			return r != 0, nil
		}
		return r, nil
	}
}

var (
	// LShift implements <<.
	LShift = intOp("<<", func(x, y int64) (int64, error) {
		if y < 0 {
			return 0, Raise(ValueError, "negative shift count")
		}
		if x != 0 && (y >= 64 || (x<<uint(y))>>uint(y) != x) {
			return 0, overflow("<<")
		}
		return x << uint(y), nil
	})
	// RShift implements >>.
	RShift = intOp(">>", func(x, y int64) (int64, error) {
		if y < 0 {
			return 0, Raise(ValueError, "negative shift count")
		}
		return x >> uint(y), nil
	})
	// BitAnd implements &.
	BitAnd = intOp("&", func(x, y int64) (int64, error) { return x & y, nil })
	// BitOr implements |.
	BitOr = intOp("|", func(x, y int64) (int64, error) { return x | y, nil })
	// BitXor implements ^.
	BitXor = intOp("^", func(x, y int64) (int64, error) { return x ^ y, nil })
)

// Neg implements unary -.
func Neg(a any) (any, error) {
	if x, ok := toInt(a); ok && !isFloat(a) {
		if x == math.MinInt64 {
			return nil, overflow("unary -")
		}
		return -x, nil
	}
	if x, ok := toFloat(a); ok {
		return -x, nil
	}
	return nil, Raise(TypeError, "bad operand type for unary -: '%s'", TypeName(a))
}

// Pos implements unary +.
func Pos(a any) (any, error) {
	if x, ok := toInt(a); ok && !isFloat(a) {
		return x, nil
	}
	if x, ok := toFloat(a); ok {
		return x, nil
	}
	return nil, Raise(TypeError, "bad operand type for unary +: '%s'", TypeName(a))
}

// Invert implements unary ~.
func Invert(a any) (any, error) {
	if x, ok := toInt(a); ok && !isFloat(a) {
		return ^x, nil
	}
	return nil, Raise(TypeError, "bad operand type for unary ~: '%s'", TypeName(a))
}

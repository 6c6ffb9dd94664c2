package runtime

import "math"

func mathFunc1(name string, fn func(float64) float64) *Builtin {
	return &Builtin{Name: name, Fn: func(args []any, kwargs map[string]any) (any, error) {
		if err := noKwargs(name, kwargs); err != nil {
			return nil, err
		}
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		x, ok := toFloat(args[0])
		if !ok {
			return nil, Raise(TypeError, "must be real number, not %s", TypeName(args[0]))
		}
		return fn(x), nil
	}}
}

func mathFunc2(name string, fn func(float64, float64) float64) *Builtin {
	return &Builtin{Name: name, Fn: func(args []any, kwargs map[string]any) (any, error) {
		if err := noKwargs(name, kwargs); err != nil {
			return nil, err
		}
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		x, ok1 := toFloat(args[0])
		y, ok2 := toFloat(args[1])
		if !ok1 || !ok2 {
			return nil, Raise(TypeError, "must be real number")
		}
		return fn(x, y), nil
	}}
}

// mathRound wraps floor and ceil, which return integers.
func mathRound(name string, fn func(float64) float64) *Builtin {
	inner := mathFunc1(name, fn)
	return &Builtin{Name: name, Fn: func(args []any, kwargs map[string]any) (any, error) {
		if len(args) == 1 {
			if i, ok := toInt(args[0]); ok && !isFloat(args[0]) {
				return i, nil
			}
		}
		v, err := inner.Fn(args, kwargs)
		if err != nil {
			return nil, err
		}
		return int64(v.(float64)), nil
	}}
}

func mathDomain(name string, fn func(float64) float64, ok func(float64) bool) *Builtin {
	inner := mathFunc1(name, fn)
	return &Builtin{Name: name, Fn: func(args []any, kwargs map[string]any) (any, error) {
		if len(args) == 1 {
			if x, isNum := toFloat(args[0]); isNum && !ok(x) {
				return nil, Raise(ValueError, "math domain error")
			}
		}
		return inner.Fn(args, kwargs)
	}}
}

// MathModule returns a fresh math module value.
func MathModule() *Module {
	lgamma := func(x float64) float64 {
		v, _ := math.Lgamma(x)
		return v
	}
	positive := func(x float64) bool { return x > 0 }

	funcs := []*Builtin{
		mathDomain("sqrt", math.Sqrt, func(x float64) bool { return x >= 0 }),
		mathFunc1("sin", math.Sin),
		mathFunc1("cos", math.Cos),
		mathFunc1("tan", math.Tan),
		mathDomain("asin", math.Asin, func(x float64) bool { return x >= -1 && x <= 1 }),
		mathDomain("acos", math.Acos, func(x float64) bool { return x >= -1 && x <= 1 }),
		mathFunc1("atan", math.Atan),
		mathFunc2("atan2", math.Atan2),
		mathFunc1("exp", math.Exp),
		mathDomain("log", math.Log, positive),
		mathDomain("log2", math.Log2, positive),
		mathDomain("log10", math.Log10, positive),
		mathFunc2("pow", math.Pow),
		mathRound("floor", math.Floor),
		mathRound("ceil", math.Ceil),
		mathFunc1("fabs", math.Abs),
		mathFunc2("hypot", math.Hypot),
		mathFunc1("gamma", math.Gamma),
		mathFunc1("lgamma", lgamma),
		mathFunc1("erf", math.Erf),
		mathFunc1("erfc", math.Erfc),
		mathFunc1("degrees", func(x float64) float64 { return x * 180 / math.Pi }),
		mathFunc1("radians", func(x float64) float64 { return x * math.Pi / 180 }),
	}

	attrs := map[string]any{
		"pi":  math.Pi,
		"e":   math.E,
		"tau": 2 * math.Pi,
		"inf": math.Inf(1),
		"nan": math.NaN(),
	}
	for _, f := range funcs {
		attrs[f.Name] = f
	}
	return &Module{Name: "math", Attrs: attrs}
}

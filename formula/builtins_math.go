package formula

import "math"

func init() {
	registerBuiltins(
		&Function{Name: "abs", MinArgs: 1, MaxArgs: 1, Eval: eager(absFunc)},
		&Function{Name: "floor", MinArgs: 1, MaxArgs: 1, Eval: eager(rounding(math.Floor))},
		&Function{Name: "ceil", MinArgs: 1, MaxArgs: 1, Eval: eager(rounding(math.Ceil))},
		&Function{Name: "round", MinArgs: 1, MaxArgs: 1, Eval: eager(rounding(math.Round))},
		&Function{Name: "as_decimal", MinArgs: 1, MaxArgs: 1, Eval: eager(asDecimal)},
		&Function{Name: "rgb", MinArgs: 3, MaxArgs: 3, Eval: eager(rgb)},
		&Function{Name: "transition", MinArgs: 3, MaxArgs: -1, Eval: eager(transition)},
		&Function{Name: "color_transition", MinArgs: 3, MaxArgs: -1, Eval: eager(colorTransition)},
		&Function{Name: "wave", MinArgs: 1, MaxArgs: 1, Eval: eager(wave)},
	)
}

func absFunc(args []Value) (Value, error) {
	v := args[0]
	if !v.isNumeric() {
		return Null, typeError("number", v)
	}
	if v.n < 0 {
		return v.Neg()
	}
	return v, nil
}

// rounding converts a decimal to an integer with fn; integers pass through.
func rounding(fn func(float64) float64) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		v := args[0]
		switch v.kind {
		case KindInt:
			return v, nil
		case KindDecimal:
			f, _ := v.AsFloat()
			return Int(int(fn(f))), nil
		}
		return Null, typeError("number", v)
	}
}

func asDecimal(args []Value) (Value, error) {
	d, err := args[0].AsDecimal()
	if err != nil {
		return Null, err
	}
	return Dec(d), nil
}

func clampChannel(v Value) (int, error) {
	n, err := v.AsInt()
	if err != nil {
		return 0, err
	}
	return max(0, min(255, n)), nil
}

// rgb packs three 0-255 channels into one integer.
func rgb(args []Value) (Value, error) {
	var c [3]int
	for i := range c {
		n, err := clampChannel(args[i])
		if err != nil {
			return Null, err
		}
		c[i] = n
	}
	return Int(c[0]<<16 | c[1]<<8 | c[2]), nil
}

// keyframes reads the (time, value) pairs that follow the current time.
func keyframes(args []Value) (cur float64, times []float64, vals []Value, err error) {
	if len(args)%2 != 1 {
		return 0, nil, nil, errorf(RuntimeError, "transition needs time/value pairs after the current time")
	}
	if cur, err = args[0].AsFloat(); err != nil {
		return 0, nil, nil, err
	}
	for i := 1; i < len(args); i += 2 {
		t, err := args[i].AsFloat()
		if err != nil {
			return 0, nil, nil, err
		}
		times = append(times, t)
		vals = append(vals, args[i+1])
	}
	return cur, times, vals, nil
}

// segment finds the interpolation weight between keyframes i and i+1. Times
// before the first or after the last keyframe clamp to it.
func segment(cur float64, times []float64) (i int, w float64) {
	if cur <= times[0] || len(times) == 1 {
		return 0, 0
	}
	for i = 0; i+1 < len(times); i++ {
		if cur <= times[i+1] {
			span := times[i+1] - times[i]
			if span <= 0 {
				return i + 1, 0
			}
			return i, (cur - times[i]) / span
		}
	}
	return len(times) - 1, 0
}

// transition interpolates linearly between keyframes. The result is an
// integer unless a keyframe value is decimal.
func transition(args []Value) (Value, error) {
	cur, times, vals, err := keyframes(args)
	if err != nil {
		return Null, err
	}
	i, w := segment(cur, times)
	a, err := vals[i].AsFloat()
	if err != nil {
		return Null, err
	}
	b := a
	if i+1 < len(vals) {
		if b, err = vals[i+1].AsFloat(); err != nil {
			return Null, err
		}
	}
	r := a + (b-a)*w
	for _, v := range vals {
		if v.IsDecimal() {
			return DecFromFloat(r), nil
		}
	}
	return Int(int(math.Round(r))), nil
}

// colorTransition is transition applied to each rgb channel.
func colorTransition(args []Value) (Value, error) {
	cur, times, vals, err := keyframes(args)
	if err != nil {
		return Null, err
	}
	i, w := segment(cur, times)
	a, err := vals[i].AsInt()
	if err != nil {
		return Null, err
	}
	b := a
	if i+1 < len(vals) {
		if b, err = vals[i+1].AsInt(); err != nil {
			return Null, err
		}
	}
	out := 0
	for shift := 16; shift >= 0; shift -= 8 {
		ca := float64(a >> shift & 0xff)
		cb := float64(b >> shift & 0xff)
		c := int(math.Round(ca + (cb-ca)*w))
		out |= c << shift
	}
	return Int(out), nil
}

// wave samples a sine with period 1000, scaled to [-1000, 1000].
func wave(args []Value) (Value, error) {
	n, err := args[0].AsInt()
	if err != nil {
		return Null, err
	}
	angle := 2 * math.Pi * float64(n%1000) / 1000
	return Int(int(math.Sin(angle) * 1000)), nil
}

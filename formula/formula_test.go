package formula

import (
	"errors"
	"strings"
	"testing"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"2 ^ 3 ^ 2", "512"},
		{"1 ^ 5000000000", "1"},
		{"(-1) ^ 5000000001", "-1"},
		{"2 ^ 62", "4611686018427387904"},
		{"0 ^ 0", "1"},
		{"-2 ^ 2", "-4"},
		{"2 - -1", "3"},
		{"7 / 2", "3"},
		{"7.0 / 2", "3.50"},
		{"1.5 + 1", "2.50"},
		{"1.2345", "1.235"},
		{"10 % 3", "1"},
		{"1 < 2", "1"},
		{"1 = 1.0", "1"},
		{"not 1", "0"},
		{"not 1 = 2", "1"},
		{"0 or 'x'", "x"},
		{"3 and 4", "4"},
		{"'a' ~ 'b' ~ 1", "ab1"},
		{"2 in [1, 2, 3]", "1"},
		{"'k' in ['k' -> 1]", "1"},
		{"[1, 2] + [3]", "[1, 2, 3]"},
		{"[1, 2, 3][1]", "2"},
		{"(['a' -> 1] + ['a' -> 2])['a']", "2"},
		{"['a' -> 1] + ['b' -> 2]", "['a' -> 1, 'b' -> 2]"},
		{"['a' -> 1]['a']", "1"},
		{"['a' -> 1].a", "1"},
		{"['b' -> 1, 'a' -> 2]", "['a' -> 2, 'b' -> 1]"},
		{"[->]", "[->]"},
		{"'it[']s'", "it's"},
		{"# comment # 4", "4"},
		{"", "null"},
		{"null()", "null"},
		{"3d1", "3"},
		{"x * 2 where x = 5", "10"},
		{"a + b where a = b * 2, b = 3", "9"},
		{"max(a, b) where a = 1, b = 2", "2"},
		{"if(1 > 2, 'yes', 'no')", "no"},
		{"if(0, 1, 0, 2, 3)", "3"},
		{"if(0, 1)", "null"},
		{"switch(2, 1, 'one', 2, 'two', 'other')", "two"},
		{"switch(5, 1, 'one', 'other')", "other"},
		{"filter([1, 2, 3, 4], value > 2)", "[3, 4]"},
		{"filter(['a' -> 1, 'b' -> 3], value > 2)", "['b' -> 3]"},
		{"map([1, 2, 3], value * 2)", "[2, 4, 6]"},
		{"map([1, 2, 3], n, n + 1)", "[2, 3, 4]"},
		{"map(['a' -> 1], value * 10)", "['a' -> 10]"},
		{"find([1, 2, 3], self > 1)", "2"},
		{"find([1, 2, 3], self > 5)", "null"},
		{"choose([3, 9, 4], value)", "9"},
		{"choose([1, -5, 3], -value)", "-5"},
		{"choose([], value)", "null"},
		{"sort([3, 1, 2])", "[1, 2, 3]"},
		{"sort(['b', 'a'])", "['a', 'b']"},
		{"sort([3, 1, 2], a > b)", "[3, 2, 1]"},
		{"sum([1, 2, 3])", "6"},
		{"sum([], 5)", "5"},
		{"max(1, [5, 2], 3)", "5"},
		{"min([4, 2])", "2"},
		{"head([7, 8])", "7"},
		{"size([1, 2, 3])", "3"},
		{"keys(['b' -> 1, 'a' -> 2])", "['a', 'b']"},
		{"values(['b' -> 1, 'a' -> 2])", "[2, 1]"},
		{"tomap(['x', 'y', 'x'])", "['x' -> 2, 'y' -> 1]"},
		{"tomap(['x', 'y'], [1, 2])", "['x' -> 1, 'y' -> 2]"},
		{"map(tolist(['x' -> 1]), key)", "['x']"},
		{"index_of(3, [1, 3])", "1"},
		{"index_of(9, [1])", "-1"},
		{"reverse('abc')", "cba"},
		{"reverse([1, 2])", "[2, 1]"},
		{"contains_string('hello', 'ell')", "1"},
		{"concatenate('a', 1, 2.5)", "a12.50"},
		{"rgb(255, 0, 300)", "16711935"},
		{"transition(5, 0, 0, 10, 100)", "50"},
		{"transition(20, 0, 0, 10, 100)", "100"},
		{"color_transition(5, 0, rgb(0, 0, 0), 10, rgb(0, 0, 200))", "100"},
		{"wave(250)", "1000"},
		{"wave(0)", "0"},
		{"abs(-3)", "3"},
		{"floor(2.7)", "2"},
		{"ceil(2.1)", "3"},
		{"round(2.5)", "3"},
		{"as_decimal(2)", "2.00"},
		{"refcount([1])", "1"},
		{"refcount(1)", "0"},
		{"size(functions) > 10", "1"},
		{"def double(x) x * 2; double(21)", "42"},
		{"def fact(n) if(n <= 1, 1, n * fact(n - 1)); fact(5)", "120"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			v, err := Eval(tc.src, nil, nil)
			if err != nil {
				t.Fatalf("Eval(%q): %v", tc.src, err)
			}
			if got := v.String(); got != tc.want {
				t.Errorf("Eval(%q) = %s, want %s", tc.src, got, tc.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	cases := []struct {
		src  string
		kind ErrorKind
	}{
		{"1 +", ParseError},
		{"(1 + 2", ParseError},
		{"[1, 2", ParseError},
		{"nosuch(1)", ParseError},
		{"size(1, 2)", ParseError},
		{"def f(x) x", ParseError},
		{"'abc", TokenizerError},
		{"1 $ 2", TokenizerError},
		{"1 / 0", RuntimeError},
		{"1.5 / 0", RuntimeError},
		{"[1][5]", RuntimeError},
		{"x where x = x", RuntimeError},
		{"def loop(n) loop(n + 1); loop(0)", RuntimeError},
		{"def f(x) ([->]).f(x); f(1)", RuntimeError},
		{"def g(n) (['k' -> n]).g(k + 1); g(1)", RuntimeError},
		{"2 ^ 63", RuntimeError},
		{"(-3) ^ 41", RuntimeError},
		{"10001d6", RuntimeError},
		{"'a' + 1", TypeError},
		{"size(3)", TypeError},
		{"filter(3, value)", TypeError},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			_, err := Eval(tc.src, nil, nil)
			if err == nil {
				t.Fatalf("Eval(%q) succeeded, want %s", tc.src, tc.kind)
			}
			var fe *Error
			if !errors.As(err, &fe) {
				t.Fatalf("Eval(%q) error %v is not a formula error", tc.src, err)
			}
			if fe.Kind != tc.kind {
				t.Errorf("Eval(%q) kind = %s, want %s (%v)", tc.src, fe.Kind, tc.kind, err)
			}
		})
	}
}

func TestErrorLocation(t *testing.T) {
	f, err := NewFromSource(Source{Text: "1 +\n 'a' * 2", Filename: "ai.yaml", Line: 10}, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = f.Evaluate(nil)
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected formula error, got %v", err)
	}
	if fe.Filename != "ai.yaml" || fe.Line != 11 {
		t.Errorf("location = %s:%d, want ai.yaml:11", fe.Filename, fe.Line)
	}
	if fe.Formula != "1 +\n 'a' * 2" {
		t.Errorf("formula text = %q", fe.Formula)
	}

	_, err = Eval("1 / 0", nil, nil)
	if !errors.As(err, &fe) {
		t.Fatalf("expected formula error, got %v", err)
	}
	if fe.Filename != InlineFilename || fe.Line != 0 {
		t.Errorf("inline location = %s:%d", fe.Filename, fe.Line)
	}
	if !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("message %q lacks cause", err.Error())
	}
}

func TestEvaluateWithContext(t *testing.T) {
	unit := NewMapCallable(nil).Set("hitpoints", Int(30)).Set("name", Str("Grunt"))
	ctx := NewMapCallable(nil).
		Set("me", Object(unit)).
		Set("units", List(Object(NewMapCallable(nil).Set("hitpoints", Int(5))), Object(unit)))

	cases := []struct {
		src  string
		want string
	}{
		{"me.hitpoints", "30"},
		{"me.name ~ '!'", "Grunt!"},
		{"me.missing", "null"},
		{"nothing.at.all", "null"},
		{"choose(units, hitpoints).hitpoints", "30"},
		{"size(filter(units, u, u.hitpoints > 10))", "1"},
		{"dir(me)", "['hitpoints', 'name']"},
		{"if(me.hitpoints > 3, 'big', 'small')", "big"},
		{"if(units[0].hitpoints > 10, 'big', 'small')", "small"},
	}
	for _, tc := range cases {
		v, err := Eval(tc.src, ctx, nil)
		if err != nil {
			t.Errorf("Eval(%q): %v", tc.src, err)
			continue
		}
		if got := v.String(); got != tc.want {
			t.Errorf("Eval(%q) = %s, want %s", tc.src, got, tc.want)
		}
	}
}

func TestNewOptional(t *testing.T) {
	f, err := NewOptional(Source{Text: "  \n"}, nil)
	if err != nil || f != nil {
		t.Fatalf("NewOptional(blank) = %v, %v; want nil, nil", f, err)
	}
	v, err := f.Evaluate(nil)
	if err != nil || !v.IsNull() {
		t.Errorf("nil formula evaluated to %s, %v", v, err)
	}
}

func TestFormulaReusable(t *testing.T) {
	f, err := New("x + 1", nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		v, err := f.Evaluate(NewMapCallable(nil).Set("x", Int(i)))
		if err != nil {
			t.Fatal(err)
		}
		if n, _ := v.AsInt(); n != i+1 {
			t.Errorf("evaluation %d = %d", i, n)
		}
	}
}

package expr

import (
	"testing"

	"github.com/goliatone/go-formbind/pkg/visibility"
)

func TestEvaluator(t *testing.T) {
	ctx := visibility.Context{
		Values: map[string]any{
			"active":   true,
			"role":     "admin",
			"age":      36.0,
			"born":     "1990-05-01",
			"tags":     []string{},
			"archived": "false",
			"address":  map[string]any{"city": "Lisbon"},
			"kind":     nil,
		},
		Extras: map[string]any{"plan": "pro"},
	}

	cases := []struct {
		rule string
		want bool
	}{
		{"", true},
		{"active", true},
		{"!active", false},
		{"tags", false},
		{"archived", false},
		{"missing", false},
		{`role == "admin"`, true},
		{`role != 'admin'`, false},
		{"age >= 18 && age < 65", true},
		{"age > 40 || role == 'admin'", true},
		{`born < "2000-01-01"`, true},
		{"kind == null", true},
		{"missing == null", true},
		{"role != null", true},
		{"active == true", true},
		{`address.city == "Lisbon"`, true},
		{`extras.plan == "pro" && !(age < 30)`, true},
		{"age == 36", true},
		{"age == role", false},
	}
	e := New()
	for _, tc := range cases {
		got, err := e.Eval(tc.rule, ctx)
		if err != nil {
			t.Fatalf("eval %q: %v", tc.rule, err)
		}
		if got != tc.want {
			t.Fatalf("eval %q = %v, want %v", tc.rule, got, tc.want)
		}
	}
}

func TestCompile_Errors(t *testing.T) {
	for _, rule := range []string{
		"role ==",
		"(active",
		`role == "open`,
		"active && && x",
		"role # 1",
		"a b",
	} {
		if _, err := Compile(rule); err == nil {
			t.Fatalf("expected compile error for %q", rule)
		}
	}
}

func TestEvaluator_CachesPrograms(t *testing.T) {
	e := New()
	ctx := visibility.Context{Values: map[string]any{"n": 1.0}}
	for i := 0; i < 3; i++ {
		if ok, err := e.Eval("n == 1", ctx); err != nil || !ok {
			t.Fatalf("eval: %v %v", ok, err)
		}
	}
	if _, ok := e.programs.Load("n == 1"); !ok {
		t.Fatalf("expected compiled program to be cached")
	}
}

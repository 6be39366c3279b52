package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formbind/pkg/visibility"
)

type node interface {
	test(ctx visibility.Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) test(ctx visibility.Context) (bool, error) {
	ok, err := n.left.test(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.test(ctx)
}

type andNode struct{ left, right node }

func (n andNode) test(ctx visibility.Context) (bool, error) {
	ok, err := n.left.test(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.test(ctx)
}

type notNode struct{ inner node }

func (n notNode) test(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.test(ctx)
	return !ok, err
}

type truthyNode struct{ operand operand }

func (n truthyNode) test(ctx visibility.Context) (bool, error) {
	return truthy(n.operand.value(ctx)), nil
}

type compareNode struct {
	op          tokenKind
	left, right operand
}

func (n compareNode) test(ctx visibility.Context) (bool, error) {
	a, b := n.left.value(ctx), n.right.value(ctx)
	switch n.op {
	case tokEq:
		return equal(a, b), nil
	case tokNeq:
		return !equal(a, b), nil
	}

	if a == nil || b == nil {
		return false, nil
	}
	var cmp int
	x, xok := number(a)
	y, yok := number(b)
	if xok && yok {
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(text(a), text(b))
	}
	switch n.op {
	case tokLt:
		return cmp < 0, nil
	case tokLte:
		return cmp <= 0, nil
	case tokGt:
		return cmp > 0, nil
	case tokGte:
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unsupported operator")
}

type operand struct {
	path      string
	literal   any
	isLiteral bool
}

func (o operand) value(ctx visibility.Context) any {
	if o.isLiteral {
		return o.literal
	}
	if rest, ok := strings.CutPrefix(o.path, "extras."); ok {
		return lookup(ctx.Extras, rest)
	}
	return lookup(ctx.Values, o.path)
}

// lookup resolves a dot path. An exact key wins over traversal so flat keys
// like "address.city" work as well as nested maps.
func lookup(values map[string]any, path string) any {
	if values == nil {
		return nil
	}
	if v, ok := values[path]; ok {
		return v
	}
	var current any = values
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		if current, ok = m[part]; !ok {
			return nil
		}
	}
	return current
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if _, ok := a.(bool); ok {
		return truthy(a) == truthy(b)
	}
	if _, ok := b.(bool); ok {
		return truthy(a) == truthy(b)
	}
	x, xok := number(a)
	y, yok := number(b)
	if xok && yok {
		return x == y
	}
	return text(a) == text(b)
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
		return strings.TrimSpace(v) != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case []string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func text(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

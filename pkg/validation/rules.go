package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formbind/pkg/model"
)

// Rule kinds understood by FromRule. They match the identifiers used by
// declarative form files and OpenAPI imports.
const (
	RuleMin       = "min"
	RuleMax       = "max"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
	RuleMaxSize   = "maxSize"
)

// Chain returns a rule reporting the first failing message of rules.
func Chain(rules ...model.ValidateFunc) model.ValidateFunc {
	return func(value any) string {
		for _, rule := range rules {
			if rule == nil {
				continue
			}
			if msg := rule(value); msg != "" {
				return msg
			}
		}
		return ""
	}
}

// MinLength requires strings (in runes) and lists to have at least n
// elements. Empty values pass; pair with Required to reject them.
func MinLength(n int) model.ValidateFunc {
	return func(value any) string {
		length, ok := lengthOf(value)
		if !ok || model.IsEmpty(value) {
			return ""
		}
		if length < n {
			return fmt.Sprintf("must be at least %d characters", n)
		}
		return ""
	}
}

// MaxLength bounds strings (in runes) and lists to n elements.
func MaxLength(n int) model.ValidateFunc {
	return func(value any) string {
		length, ok := lengthOf(value)
		if !ok {
			return ""
		}
		if length > n {
			return fmt.Sprintf("must be at most %d characters", n)
		}
		return ""
	}
}

// Pattern requires string values to match expr.
func Pattern(expr string) (model.ValidateFunc, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("validation: pattern %q: %w", expr, err)
	}
	return func(value any) string {
		s, ok := value.(string)
		if !ok || s == "" {
			return ""
		}
		if !re.MatchString(s) {
			return fmt.Sprintf("must match %s", expr)
		}
		return ""
	}, nil
}

// Min requires numeric values (or numeric strings) to be >= limit.
func Min(limit float64) model.ValidateFunc {
	return func(value any) string {
		n, ok := toFloat(value)
		if !ok {
			return ""
		}
		if n < limit {
			return fmt.Sprintf("must be at least %s", formatFloat(limit))
		}
		return ""
	}
}

// Max requires numeric values (or numeric strings) to be <= limit.
func Max(limit float64) model.ValidateFunc {
	return func(value any) string {
		n, ok := toFloat(value)
		if !ok {
			return ""
		}
		if n > limit {
			return fmt.Sprintf("must be at most %s", formatFloat(limit))
		}
		return ""
	}
}

// MaxFileSize rejects file values larger than limit bytes.
func MaxFileSize(limit int64) model.ValidateFunc {
	return func(value any) string {
		file, ok := value.(model.FileValue)
		if !ok || limit <= 0 {
			return ""
		}
		if file.Size() > limit {
			return fmt.Sprintf("file exceeds %d bytes", limit)
		}
		return ""
	}
}

// FromRule builds a rule from its declarative form, e.g. ("minLength", "3").
func FromRule(kind, param string) (model.ValidateFunc, error) {
	param = strings.TrimSpace(param)
	switch kind {
	case RuleMin, RuleMax:
		limit, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return nil, fmt.Errorf("validation: %s expects a number, got %q", kind, param)
		}
		if kind == RuleMin {
			return Min(limit), nil
		}
		return Max(limit), nil
	case RuleMinLength, RuleMaxLength:
		n, err := strconv.Atoi(param)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("validation: %s expects a non-negative integer, got %q", kind, param)
		}
		if kind == RuleMinLength {
			return MinLength(n), nil
		}
		return MaxLength(n), nil
	case RuleMaxSize:
		n, err := strconv.ParseInt(param, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("validation: %s expects bytes, got %q", kind, param)
		}
		return MaxFileSize(n), nil
	case RulePattern:
		return Pattern(param)
	default:
		return nil, fmt.Errorf("validation: unknown rule %q", kind)
	}
}

func lengthOf(value any) (int, bool) {
	switch typed := value.(type) {
	case nil:
		return 0, false
	case string:
		return utf8.RuneCountInString(typed), true
	case []string:
		return len(typed), true
	case []any:
		return len(typed), true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len(), true
	}
	return 0, false
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	case string:
		if strings.TrimSpace(typed) == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

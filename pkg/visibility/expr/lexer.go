package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokTrue
	tokFalse
	tokNull
	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

var operators = []struct {
	text string
	kind tokenKind
}{
	{"==", tokEq},
	{"!=", tokNeq},
	{"<=", tokLte},
	{">=", tokGte},
	{"&&", tokAnd},
	{"||", tokOr},
	{"<", tokLt},
	{">", tokGt},
	{"!", tokNot},
	{"(", tokLParen},
	{")", tokRParen},
}

func lex(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
			continue
		case r == '"' || r == '\'':
			text, next, err := lexString(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: text, pos: i})
			i = next
			continue
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			i++
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[start:i]), pos: start})
			continue
		case isIdentStart(r):
			start := i
			for i < len(runes) && isIdentPart(runes[i]) {
				i++
			}
			text := string(runes[start:i])
			kind := tokIdent
			switch text {
			case "true":
				kind = tokTrue
			case "false":
				kind = tokFalse
			case "null", "nil":
				kind = tokNull
			}
			tokens = append(tokens, token{kind: kind, text: text, pos: start})
			continue
		}

		matched := false
		rest := string(runes[i:])
		for _, op := range operators {
			if strings.HasPrefix(rest, op.text) {
				tokens = append(tokens, token{kind: op.kind, text: op.text, pos: i})
				i += len([]rune(op.text))
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}
	return tokens, nil
}

func lexString(runes []rune, start int) (string, int, error) {
	quote := runes[start]
	var b strings.Builder
	for i := start + 1; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			if i+1 < len(runes) {
				i++
				b.WriteRune(runes[i])
			}
		case quote:
			return b.String(), i + 1, nil
		default:
			b.WriteRune(runes[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated string at offset %d", start)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || r == '.' || r == '-'
}

// Package labels derives human readable labels from property names.
package labels

import (
	"regexp"
	"strings"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s.]+`)

// Humanize converts a property name into a label. It splits on underscores,
// dashes, dots, and camelCase boundaries, and title-cases the first word
// only ("createdAt" -> "Created at", "avatar_url" -> "Avatar url").
func Humanize(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}

	var segments []string
	for _, word := range splitWordsPattern.Split(name, -1) {
		if word == "" {
			continue
		}
		segments = append(segments, strings.Fields(splitCamel(word))...)
	}
	if len(segments) == 0 {
		return ""
	}

	for i, segment := range segments {
		if isAcronym(segment) {
			continue
		}
		segments[i] = strings.ToLower(segment)
	}
	first := segments[0]
	segments[0] = strings.ToUpper(first[:1]) + first[1:]
	return strings.Join(segments, " ")
}

func splitCamel(input string) string {
	var out strings.Builder
	for i, r := range input {
		if i > 0 && isBoundary(input, i, r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isBoundary(input string, index int, r rune) bool {
	prev := rune(input[index-1])
	return (isLower(prev) && isUpper(r)) || (isLetter(prev) && isDigit(r)) || (isDigit(prev) && isLetter(r))
}

func isAcronym(word string) bool {
	if len(word) < 2 {
		return false
	}
	for _, r := range word {
		if !isUpper(r) && !isDigit(r) {
			return false
		}
	}
	return true
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }

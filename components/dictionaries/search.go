package dictionaries

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formbind/pkg/model"
)

// Search filters options by a case-insensitive substring of the label or the
// value. Prefix matches come first; ties keep declaration order.
func Search(options []model.Option, query string, limit int, opts Options) []model.Option {
	limit = clampLimit(limit, opts)

	query = strings.TrimSpace(query)
	if query == "" {
		if opts.EmptySearchMode == EmptySearchNone {
			return nil
		}
		if len(options) > limit {
			options = options[:limit]
		}
		return append([]model.Option{}, options...)
	}

	q := strings.ToLower(query)
	matches := make([]matchedOption, 0, 16)
	for _, opt := range options {
		label := strings.ToLower(opt.Label)
		value := strings.ToLower(opt.Value)
		if !strings.Contains(label, q) && !strings.Contains(value, q) {
			continue
		}
		matches = append(matches, matchedOption{
			option:   opt,
			isPrefix: strings.HasPrefix(label, q) || strings.HasPrefix(value, q),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].isPrefix && !matches[j].isPrefix
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]model.Option, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.option)
	}
	return out
}

type matchedOption struct {
	option   model.Option
	isPrefix bool
}

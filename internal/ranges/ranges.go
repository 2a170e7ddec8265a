// Package ranges turns human-written page range expressions such as
// "1-5,8,10-12" into validated page intervals.
package ranges

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Epistemic-Technology/pdf-splitter/models"
)

// Parse splits input on commas and keeps every token that describes pages
// within [1, totalPages]. Invalid tokens are dropped. The result keeps the
// order in which ranges were written; it is never sorted, merged or
// de-duplicated. An empty result means no token was usable.
func Parse(input string, totalPages int) models.RangeSpec {
	spec := models.RangeSpec{}
	if strings.TrimSpace(input) == "" {
		return spec
	}

	for _, token := range strings.Split(input, ",") {
		if r, ok := ParseToken(token, totalPages); ok {
			spec = append(spec, r)
		}
	}
	return spec
}

// ParseToken evaluates a single comma-free token. A hyphenated token must
// hold exactly two integers with 0 < start <= end and start <= totalPages;
// end is clamped to totalPages. Any other token must be a single page
// 0 < p <= totalPages.
func ParseToken(token string, totalPages int) (models.PageRange, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.PageRange{}, false
	}

	if strings.Contains(token, "-") {
		fields := strings.Split(token, "-")
		if len(fields) != 2 {
			return models.PageRange{}, false
		}
		start, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return models.PageRange{}, false
		}
		end, err := parseEnd(strings.TrimSpace(fields[1]), totalPages)
		if err != nil {
			return models.PageRange{}, false
		}
		if start <= 0 || start > end || start > totalPages {
			return models.PageRange{}, false
		}
		return models.PageRange{Start: start, End: min(end, totalPages)}, true
	}

	page, err := strconv.Atoi(token)
	if err != nil || page <= 0 || page > totalPages {
		return models.PageRange{}, false
	}
	return models.PageRange{Start: page, End: page}, true
}

// parseEnd reads the end of a range. A digit string too large for an int
// still names a page past the end of the document, so it clamps to
// totalPages.
func parseEnd(field string, totalPages int) (int, error) {
	end, err := strconv.Atoi(field)
	if errors.Is(err, strconv.ErrRange) && allDigits(strings.TrimPrefix(field, "+")) {
		return totalPages, nil
	}
	return end, err
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatLabel renders a range the way it appears in manifests and artifact
// names.
func FormatLabel(r models.PageRange) string {
	return r.Label()
}

// Format joins a spec back into its canonical comma separated form.
func Format(spec models.RangeSpec) string {
	labels := make([]string, len(spec))
	for i, r := range spec {
		labels[i] = r.Label()
	}
	return strings.Join(labels, ",")
}

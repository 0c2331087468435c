package orchestrator

import (
	"fmt"
	"strings"

	"github.com/lamim/nlpforge/pkg/models"
)

// duplicateNames returns names that appear more than once, compared
// case-insensitively after trimming, in first-seen order and original casing
func duplicateNames(items []models.NamedItem) []string {
	seen := make(map[string]int, len(items))
	var dupes []string

	for _, item := range items {
		trimmed := strings.TrimSpace(item.Name)
		normalized := strings.ToLower(trimmed)
		if normalized == "" {
			continue
		}

		seen[normalized]++
		if seen[normalized] == 2 {
			dupes = append(dupes, trimmed)
		}
	}

	return dupes
}

// blankNames counts items whose name is empty after trimming
func blankNames(items []models.NamedItem) int {
	n := 0
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			n++
		}
	}
	return n
}

// duplicateNameWarnings describes suspicious entries before training.
// They are warnings only; the service accepts the lists as sent.
func duplicateNameWarnings(entities, intents []models.NamedItem) []string {
	var warnings []string
	for _, l := range []struct {
		kind  string
		items []models.NamedItem
	}{{"entity", entities}, {"intent", intents}} {
		if dupes := duplicateNames(l.items); len(dupes) > 0 {
			warnings = append(warnings, fmt.Sprintf("duplicate %s names: %s", l.kind, strings.Join(dupes, ", ")))
		}
		if n := blankNames(l.items); n > 0 {
			warnings = append(warnings, fmt.Sprintf("%d %s(s) without a name", n, l.kind))
		}
	}
	return warnings
}

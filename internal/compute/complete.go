package compute

import (
	"cmp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
)

type candidate struct {
	name string
	dist int
}

// rankCompletions keeps names whose leading characters are within one edit
// per three prefix characters of prefix, closest and shortest first.
func rankCompletions(prefix string, names []string, limit int) []string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	maxDist := len(prefix) / 3
	var found []candidate
	for _, name := range names {
		head := name
		if len(head) > len(prefix) {
			head = head[:len(prefix)]
		}
		if d := levenshtein.ComputeDistance(prefix, head); d <= maxDist {
			found = append(found, candidate{name: name, dist: d})
		}
	}
	slices.SortFunc(found, func(a, b candidate) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		if c := cmp.Compare(len(a.name), len(b.name)); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.name
	}
	return out
}

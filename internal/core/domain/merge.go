package domain

import (
	"sort"
	"strings"
)

// descriptionKeyLen bounds the fallback dedup key so near-duplicate
// snippets from repeated queries collapse to one evidence record.
const descriptionKeyLen = 100

// Merge flattens per-source evidence lists into one deduplicated,
// deterministically ordered set. The dedup key is (source, category,
// locator); evidence without a locator falls back to (source, category,
// normalized description truncated to 100 characters). The result does
// not depend on arrival order of duplicates: presentation order is
// weight descending, then source id, then first-insertion order.
func Merge(lists ...[]Evidence) []Evidence {
	type slot struct {
		ev    Evidence
		index int
	}

	seen := make(map[string]struct{})
	var merged []slot

	for _, list := range lists {
		for _, ev := range list {
			key := dedupKey(ev)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, slot{ev: ev, index: len(merged)})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.ev.Weight != b.ev.Weight {
			return a.ev.Weight > b.ev.Weight
		}
		if a.ev.SourceID != b.ev.SourceID {
			return a.ev.SourceID < b.ev.SourceID
		}
		return a.index < b.index
	})

	out := make([]Evidence, len(merged))
	for i, s := range merged {
		out[i] = s.ev
	}
	return out
}

// PartitionBySource groups merged evidence by source id, preserving
// the merged order inside each group.
func PartitionBySource(merged []Evidence) map[string][]Evidence {
	out := make(map[string][]Evidence)
	for _, ev := range merged {
		out[ev.SourceID] = append(out[ev.SourceID], ev)
	}
	return out
}

func dedupKey(ev Evidence) string {
	if ev.Locator != "" {
		return ev.SourceID + "\x00" + string(ev.Category) + "\x00" + ev.Locator
	}
	return ev.SourceID + "\x00" + string(ev.Category) + "\x00" + normalizeDescription(ev.Description)
}

func normalizeDescription(desc string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(desc), " "))
	if runes := []rune(norm); len(runes) > descriptionKeyLen {
		norm = string(runes[:descriptionKeyLen])
	}
	return norm
}

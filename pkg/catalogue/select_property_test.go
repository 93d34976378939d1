package catalogue

import (
	"sort"
	"testing"

	"pgregory.net/rapid"
)

// TestProperty_SelectionIsDeduplicated 任意组合的选择条件，结果中没有重复 ID，且结果有序
func TestProperty_SelectionIsDeduplicated(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cat := Catalogue{}
		categories := rapid.IntRange(1, 4).Draw(t, "categories")
		for c := 0; c < categories; c++ {
			name := rapid.StringMatching(`[A-Z][a-z]{2,6}`).Draw(t, "category")
			if cat[name] == nil {
				cat[name] = map[string][]string{}
			}
			items := rapid.IntRange(0, 8).Draw(t, "items")
			for i := 0; i < items; i++ {
				// 小字母表让不同分类之间出现同名条目
				id := rapid.StringMatching(`[a-c]{1,2}\.obj`).Draw(t, "item")
				cat[name][id] = rapid.SliceOfN(rapid.SampledFrom([]string{"hero", "prop", "env"}), 0, 3).Draw(t, "tags")
			}
		}

		sel := Selection{
			Category:     rapid.SampledFrom(append(cat.Categories(), "")).Draw(t, "selCategory"),
			NameContains: rapid.SampledFrom([]string{"", "a", "b", ".obj"}).Draw(t, "selName"),
			Tag:          rapid.SampledFrom([]string{"", "hero", "prop"}).Draw(t, "selTag"),
		}
		if sel.Empty() {
			sel.All = true
		}

		items, err := Select(cat, sel)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen := map[string]bool{}
		for _, id := range items {
			if seen[id] {
				t.Fatalf("duplicate item %q in %v", id, items)
			}
			seen[id] = true
		}
		if !sort.StringsAreSorted(items) {
			t.Fatalf("items not sorted: %v", items)
		}
	})
}

package catalogue

import (
	"sort"
	"strings"
)

// Selection 选择条件。All 为真时其它条件被忽略；
// 否则每个非空条件独立求值后取并集
type Selection struct {
	All          bool
	Category     string
	NameContains string
	Tag          string
}

// Empty 没有任何选择条件
func (s Selection) Empty() bool {
	return !s.All && s.Category == "" && s.NameContains == "" && s.Tag == ""
}

// Select 返回去重并排序后的条目 ID。
// 没有选择条件时返回 ErrNothingSelected
func Select(cat Catalogue, sel Selection) ([]string, error) {
	if sel.Empty() {
		return nil, ErrNothingSelected
	}

	set := make(map[string]struct{})
	add := func(id string) { set[id] = struct{}{} }

	if sel.All {
		for _, items := range cat {
			for id := range items {
				add(id)
			}
		}
		return sorted(set), nil
	}

	if sel.Category != "" {
		// 分类不存在时不贡献任何条目
		for id := range cat[sel.Category] {
			add(id)
		}
	}

	if sel.NameContains != "" {
		for _, items := range cat {
			for id := range items {
				if strings.Contains(id, sel.NameContains) {
					add(id)
				}
			}
		}
	}

	if sel.Tag != "" {
		for _, items := range cat {
			for id, tags := range items {
				for _, tag := range tags {
					if tag == sel.Tag {
						add(id)
						break
					}
				}
			}
		}
	}

	return sorted(set), nil
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

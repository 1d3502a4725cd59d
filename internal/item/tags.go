package item

import (
	"sort"
	"strings"
)

// Tag is a label with the number of items referencing it
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NormalizeTags trims labels and drops empties and duplicates, keeping
// first-seen order
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// HasTag returns true if the item carries the tag
func (i *ClipboardItem) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CountTags recomputes tag counts from the given items
func CountTags(items []*ClipboardItem) []Tag {
	counts := make(map[string]int)
	for _, it := range items {
		for _, tag := range NormalizeTags(it.Tags) {
			counts[tag]++
		}
	}

	tags := make([]Tag, 0, len(counts))
	for name, count := range counts {
		tags = append(tags, Tag{Name: name, Count: count})
	}
	SortTags(tags)
	return tags
}

// SortTags orders tags by count descending, then by name
func SortTags(tags []Tag) {
	sort.Slice(tags, func(a, b int) bool {
		if tags[a].Count != tags[b].Count {
			return tags[a].Count > tags[b].Count
		}
		return tags[a].Name < tags[b].Name
	})
}

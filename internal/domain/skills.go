package domain

import "strings"

// NormalizeSkills trims, lower-cases and deduplicates skill tags while
// preserving first-seen order. The analysis provider and the admin UI both
// feed this; neither guarantees clean input.
func NormalizeSkills(skills []string) []string {
	if len(skills) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(skills))
	normalized := make([]string, 0, len(skills))
	for _, skill := range skills {
		tag := strings.ToLower(strings.TrimSpace(skill))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

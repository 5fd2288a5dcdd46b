package scapeid

import "strings"

// Normalize canonicalizes scape names and their aliases. Unknown names come
// back lowercased and dash-separated.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalScapeName(candidate); ok {
			return canonical
		}
	}
	return normalized
}

func aliasCandidates(normalized string) []string {
	candidates := []string{normalized}
	stripped := strings.Trim(strings.TrimPrefix(normalized, "scape-"), "-")
	if stripped != "" && stripped != normalized {
		candidates = append(candidates, stripped)
	}
	for _, base := range append([]string(nil), candidates...) {
		if trimmed := strings.TrimSuffix(base, "-predicate"); trimmed != base && trimmed != "" {
			candidates = append(candidates, trimmed)
		}
	}
	return candidates
}

func canonicalScapeName(alias string) (string, bool) {
	switch strings.ReplaceAll(alias, "-", "") {
	case "endsin00", "endsintwozeros", "endsinzerozero":
		return "ends-in-00", true
	case "evenodd", "evenones", "parity":
		return "even-odd", true
	case "bitcount", "onesbetweentwoandfive":
		return "bit-count", true
	case "div3", "divisiblebythree", "mod3":
		return "div-3", true
	default:
		return "", false
	}
}

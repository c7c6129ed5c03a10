package chat

import (
	"strings"

	"github.com/finchat/finchat/knowledge"
	"github.com/finchat/finchat/store"
)

const (
	fragmentBudget  = 500 // characters of fragment text per context entry
	permanentCutoff = 3
	sessionCutoff   = 2
)

// AssembleContext formats retrieved fragments into a single grounding
// context string. Fragments arrive pre-ranked, best match first. When both
// provenances contribute, the permanent base gets the top three fragments
// and session uploads the top two, each under its own section header.
// Returns "" when there are no fragments; callers treat that as "no
// grounding available".
func AssembleContext(results knowledge.Results) string {
	if results.Total() == 0 {
		return ""
	}

	var parts []string
	if len(results.Permanent) > 0 && len(results.Session) > 0 {
		parts = append(parts, "=== PERMANENT FINANCIAL KNOWLEDGE ===")
		parts = append(parts, formatFragments(results.Permanent, permanentCutoff)...)
		parts = append(parts, "=== USER UPLOADED DOCUMENTS ===")
		parts = append(parts, formatFragments(results.Session, sessionCutoff)...)
	} else {
		fragments := results.Permanent
		if len(fragments) == 0 {
			fragments = results.Session
		}
		parts = append(parts, "=== RELEVANT DOCUMENT CONTENT ===")
		parts = append(parts, formatFragments(fragments, permanentCutoff)...)
	}

	return strings.Join(parts, "\n")
}

func formatFragments(fragments []store.Fragment, cutoff int) []string {
	if len(fragments) > cutoff {
		fragments = fragments[:cutoff]
	}
	parts := make([]string, 0, len(fragments)*3)
	for _, f := range fragments {
		if name := f.Metadata["filename"]; name != "" {
			parts = append(parts, "Source: "+name)
		}
		parts = append(parts, "Content: "+truncate(f.Content, fragmentBudget))
		parts = append(parts, "")
	}
	return parts
}

// truncate cuts s to at most limit characters, appending a marker when
// anything was dropped.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

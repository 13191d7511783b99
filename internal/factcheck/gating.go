package factcheck

import "strings"

// ambiguousTerms are matched as case-insensitive substrings
var ambiguousTerms = []string{
	"they", "he", "she", "it",
	"they're", "he's", "she's", "it's",
	"their", "his", "hers", "its",
}

// NeedsContext reports whether a statement refers to something it does not
// name itself, so the prior transcript has to travel with it
func NeedsContext(statement string) bool {
	lower := strings.ToLower(statement)
	for _, term := range ambiguousTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// ContextFor returns the transcript context to pass downstream, or "" when
// the statement is self-contained or nothing was said before it.
func ContextFor(req Request) string {
	if !NeedsContext(req.Statement) {
		return ""
	}
	prior := strings.TrimSpace(req.Transcript)
	if prior == "" {
		return ""
	}
	return prior + " " + req.Statement
}

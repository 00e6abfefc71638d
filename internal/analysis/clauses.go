package analysis

// MinClauseTokens is the token count a sentence must exceed to be a key clause
const MinClauseTokens = 10

// DefaultClauseLimit is the key clause count used when none is configured
const DefaultClauseLimit = 10

// KeyClauses returns, in document order, the first limit sentences with more
// than MinClauseTokens tokens
// Punctuation tokens count
func KeyClauses(doc *Document, limit int) []string {
	limit = clamp(limit)
	var clauses []string
	for _, s := range doc.Sentences {
		if len(clauses) == limit {
			break
		}
		if len(s.Tokens) > MinClauseTokens {
			clauses = append(clauses, s.Text)
		}
	}
	return clauses
}

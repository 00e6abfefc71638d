package analysis

// DefaultTopN is the keyword count used when none is configured
const DefaultTopN = 10

// Keywords returns up to topN distinct words of doc, most frequent first
// Ties keep first-occurrence order
func Keywords(doc *Document, topN int) []string {
	return TopKeywords(BuildFrequencyTable(doc.Tokens()), topN)
}

// TopKeywords returns the first min(topN, table.Len()) ranked words
func TopKeywords(table *FrequencyTable, topN int) []string {
	topN = clamp(topN)
	ranked := table.Ranked()
	if topN > len(ranked) {
		topN = len(ranked)
	}
	out := make([]string, topN)
	for i := range out {
		out[i] = ranked[i].Word
	}
	return out
}

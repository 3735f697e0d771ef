package advisory

// Snippet lengths.
const (
	SourceSnippetLimit  = 500
	DisplaySnippetLimit = 150
)

// DedupSources returns sources for display: first occurrence per URL, sources
// without a URL dropped, snippets shortened to DisplaySnippetLimit runes
// followed by "...".
func DedupSources(sources []Source) []Source {
	seen := make(map[string]struct{}, len(sources))
	out := make([]Source, 0, len(sources))

	for _, src := range sources {
		if src.URL == "" {
			continue
		}
		if _, ok := seen[src.URL]; ok {
			continue
		}
		seen[src.URL] = struct{}{}

		if src.Snippet != "" {
			src.Snippet = clip(src.Snippet, DisplaySnippetLimit) + "..."
		}
		if src.Title == "" {
			src.Title = "Unknown Source"
		}
		out = append(out, src)
	}

	return out
}

package catalog

import "strings"

// ParseCandidateLine is the lenient form of ParseEntryLine used for
// externally supplied lists: an empty display name falls back to the URI host.
func ParseCandidateLine(line string) (Entry, bool) {
	if e, ok := ParseEntryLine(line); ok {
		return e, true
	}
	line = strings.TrimSuffix(line, "\r")
	if strings.Count(line, Separator) != 1 {
		return Entry{}, false
	}
	name, uri, _ := strings.Cut(line, Separator)
	if strings.TrimSpace(name) != "" {
		return Entry{}, false
	}
	host := Entry{URI: strings.TrimSpace(uri)}.Host()
	if host == "" {
		return Entry{}, false
	}
	e, err := NewEntry(host, uri)
	if err != nil {
		return Entry{}, false
	}
	return e, true
}

// ExtractCandidates returns the entries of text meant for tag. When text
// carries a header for tag only that group's lines are used (across every
// group block with that tag); otherwise every entry-shaped line is.
func ExtractCandidates(text, tag string) []Entry {
	var (
		all, tagged []Entry
		inTag, seen bool
	)
	for _, raw := range strings.Split(text, "\n") {
		tok := ClassifyLine(raw)
		switch tok.Kind {
		case TokenGroupHeader:
			inTag = tok.Tag == tag
			seen = seen || inTag
			continue
		case TokenBlank:
			inTag = false
			continue
		}
		e, ok := ParseCandidateLine(raw)
		if !ok {
			continue
		}
		all = append(all, e)
		if inTag {
			tagged = append(tagged, e)
		}
	}
	if seen {
		return tagged
	}
	return all
}

package catalog

import "strings"

// TokenKind classifies one physical line of a catalog document.
type TokenKind int

const (
	TokenOpaque TokenKind = iota
	TokenGroupHeader
	TokenEntry
	TokenBlank
)

func (k TokenKind) String() string {
	switch k {
	case TokenGroupHeader:
		return "group_header"
	case TokenEntry:
		return "entry"
	case TokenBlank:
		return "blank"
	default:
		return "opaque"
	}
}

// Token is one classified line. Raw always holds the line exactly as read,
// so emitting Raw for every token reproduces the source text.
type Token struct {
	Kind  TokenKind
	Raw   string
	Tag   string // set for TokenGroupHeader
	Entry Entry  // set for TokenEntry
}

// EntryToken builds the token for a freshly written entry line.
func EntryToken(e Entry) Token {
	return Token{Kind: TokenEntry, Raw: e.Line(), Entry: e}
}

// HeaderToken builds the token for a freshly written group header.
func HeaderToken(tag string) Token {
	return Token{Kind: TokenGroupHeader, Raw: tag + Separator + Marker, Tag: tag}
}

// Tokenize splits text on "\n" and classifies every line.
// It never fails: anything unrecognized becomes TokenOpaque.
func Tokenize(text string) []Token {
	lines := strings.Split(text, "\n")
	tokens := make([]Token, 0, len(lines))
	for _, raw := range lines {
		tokens = append(tokens, ClassifyLine(raw))
	}
	return tokens
}

// ClassifyLine classifies a single line. A trailing "\r" is ignored for
// classification but kept in Raw.
func ClassifyLine(raw string) Token {
	line := strings.TrimSuffix(raw, "\r")
	if strings.TrimSpace(line) == "" {
		return Token{Kind: TokenBlank, Raw: raw}
	}
	if tag, ok := headerTag(line); ok {
		return Token{Kind: TokenGroupHeader, Raw: raw, Tag: tag}
	}
	if e, ok := ParseEntryLine(line); ok {
		return Token{Kind: TokenEntry, Raw: raw, Entry: e}
	}
	return Token{Kind: TokenOpaque, Raw: raw}
}

// ParseEntryLine parses "name,URI". The line must contain exactly one
// separator, a non-empty name and a URI with a supported scheme.
func ParseEntryLine(line string) (Entry, bool) {
	line = strings.TrimSuffix(line, "\r")
	if strings.Count(line, Separator) != 1 {
		return Entry{}, false
	}
	name, uri, _ := strings.Cut(line, Separator)
	e, err := NewEntry(name, uri)
	if err != nil {
		return Entry{}, false
	}
	return e, true
}

func headerTag(line string) (string, bool) {
	t := strings.TrimSpace(line)
	suffix := Separator + Marker
	if !strings.HasSuffix(t, suffix) {
		return "", false
	}
	tag := strings.TrimSpace(strings.TrimSuffix(t, suffix))
	if tag == "" {
		return "", false
	}
	return tag, true
}

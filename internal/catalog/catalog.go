package catalog

import (
	"fmt"
	"strings"
)

// Group is a tagged run of lines that starts at a header and ends at the
// next blank line or header.
type Group struct {
	tag    string
	header string
	body   []Token
}

func (g *Group) Tag() string    { return g.tag }
func (g *Group) Header() string { return g.header }

// Lines returns a copy of the group body (entries and opaque lines).
func (g *Group) Lines() []Token {
	out := make([]Token, len(g.body))
	copy(out, g.body)
	return out
}

// Entries returns the group's entries in document order.
func (g *Group) Entries() []Entry {
	var out []Entry
	for _, t := range g.body {
		if t.Kind == TokenEntry {
			out = append(out, t.Entry)
		}
	}
	return out
}

// block is either a loose line or a group.
type block struct {
	line  *Token
	group *Group
}

// Catalog is a parsed catalog document. Unmodified content serializes back
// byte-for-byte.
type Catalog struct {
	blocks []block
}

// Parse builds a Catalog from text. It never fails.
func Parse(text string) *Catalog {
	c := &Catalog{}
	var current *Group

	for _, tok := range Tokenize(text) {
		switch tok.Kind {
		case TokenGroupHeader:
			current = &Group{tag: tok.Tag, header: tok.Raw}
			c.blocks = append(c.blocks, block{group: current})
		case TokenBlank:
			current = nil
			c.appendLoose(tok)
		default:
			if current != nil {
				current.body = append(current.body, tok)
				continue
			}
			// Entry-shaped lines outside any group are not addressable.
			tok.Kind = TokenOpaque
			tok.Entry = Entry{}
			c.appendLoose(tok)
		}
	}

	return c
}

func (c *Catalog) appendLoose(tok Token) {
	t := tok
	c.blocks = append(c.blocks, block{line: &t})
}

// String serializes the catalog.
func (c *Catalog) String() string {
	lines := make([]string, 0, len(c.blocks))
	for _, b := range c.blocks {
		if b.line != nil {
			lines = append(lines, b.line.Raw)
			continue
		}
		lines = append(lines, b.group.header)
		for _, t := range b.group.body {
			lines = append(lines, t.Raw)
		}
	}
	return strings.Join(lines, "\n")
}

// Bytes serializes the catalog.
func (c *Catalog) Bytes() []byte { return []byte(c.String()) }

// Groups returns every group in document order.
func (c *Catalog) Groups() []*Group {
	var out []*Group
	for _, b := range c.blocks {
		if b.group != nil {
			out = append(out, b.group)
		}
	}
	return out
}

// Group returns the first group carrying tag.
func (c *Catalog) Group(tag string) (*Group, bool) {
	for _, b := range c.blocks {
		if b.group != nil && b.group.tag == tag {
			return b.group, true
		}
	}
	return nil, false
}

// ReplaceGroupBody swaps the body of the first group carrying tag.
// The header line and all other content stay untouched.
func (c *Catalog) ReplaceGroupBody(tag string, body []Token) error {
	g, ok := c.Group(tag)
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, tag)
	}
	g.body = append([]Token(nil), body...)
	return nil
}

// AppendGroup adds a new group at the end of the document, separated from
// previous content by one blank line. A trailing newline is preserved.
func (c *Catalog) AppendGroup(tag string, body []Token) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ErrEmptyTag
	}
	if _, ok := c.Group(tag); ok {
		return fmt.Errorf("%w: %s", ErrGroupExists, tag)
	}

	// A final empty line stands for the trailing newline of the text.
	trailingNewline := false
	if n := len(c.blocks); n > 0 && c.blocks[n-1].line != nil && c.blocks[n-1].line.Raw == "" {
		trailingNewline = true
		c.blocks = c.blocks[:n-1]
	}
	if n := len(c.blocks); n > 0 && (c.blocks[n-1].line == nil || c.blocks[n-1].line.Kind != TokenBlank) {
		c.appendLoose(Token{Kind: TokenBlank})
	}

	header := HeaderToken(tag)
	c.blocks = append(c.blocks, block{group: &Group{
		tag:    tag,
		header: header.Raw,
		body:   append([]Token(nil), body...),
	}})

	if trailingNewline || len(c.blocks) == 1 {
		c.appendLoose(Token{Kind: TokenBlank})
	}
	return nil
}

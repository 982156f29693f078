package fragment

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Default marker names.
const (
	DefaultOpen  = "fragment"
	DefaultClose = "endfragment"
)

// Element is a marker found in a template source. Offsets are character
// positions into the normalized source; End is exclusive.
type Element interface {
	StartOffset() int
	EndOffset() int
}

// OpenElement is an opening marker with its fragment name.
type OpenElement struct {
	Name  string
	Start int
	End   int
}

func (e OpenElement) StartOffset() int { return e.Start }
func (e OpenElement) EndOffset() int   { return e.End }

// CloseElement is a bare closing marker.
type CloseElement struct {
	Start int
	End   int
}

func (e CloseElement) StartOffset() int { return e.Start }
func (e CloseElement) EndOffset() int   { return e.End }

// Parser finds fragment markers in template text.
//
// A Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	open  string
	close string
	re    *regexp.Regexp
}

// NewParser creates a parser for the given marker names. Empty names fall
// back to DefaultOpen and DefaultClose.
func NewParser(open, close string) *Parser {
	if open == "" {
		open = DefaultOpen
	}
	if close == "" {
		close = DefaultClose
	}
	// Groups: 1 open name (single quoted), 2 open name (double quoted), 3 close.
	pattern := `@(?:` + regexp.QuoteMeta(open) + `\(\s*(?:'([^']*)'|"([^"]*)")\s*\)|(` + regexp.QuoteMeta(close) + `)\b)`
	return &Parser{
		open:  open,
		close: close,
		re:    regexp.MustCompile(pattern),
	}
}

// Open returns the opening marker name.
func (p *Parser) Open() string { return p.open }

// Close returns the closing marker name.
func (p *Parser) Close() string { return p.close }

// Normalize converts \r\n and lone \r line endings to \n.
func Normalize(src string) string {
	if !strings.ContainsRune(src, '\r') {
		return src
	}
	src = strings.ReplaceAll(src, "\r\n", "\n")
	return strings.ReplaceAll(src, "\r", "\n")
}

// match is a raw marker hit in byte offsets.
type match struct {
	start, end int
	name       string
	open       bool
	escaped    bool
}

// scan walks the (already normalized) source left to right, resuming after
// each matched marker.
func (p *Parser) scan(src string) []match {
	var matches []match
	pos := 0
	for pos < len(src) {
		loc := p.re.FindStringSubmatchIndex(src[pos:])
		if loc == nil {
			break
		}
		m := match{start: pos + loc[0], end: pos + loc[1]}
		m.escaped = m.start > 0 && src[m.start-1] == '@'
		switch {
		case loc[2] >= 0:
			m.open = true
			m.name = src[pos+loc[2] : pos+loc[3]]
		case loc[4] >= 0:
			m.open = true
			m.name = src[pos+loc[4] : pos+loc[5]]
		}
		matches = append(matches, m)
		pos = m.end
	}
	return matches
}

// Parse returns the fragment markers in src in source order. Sources with
// fewer than two markers yield nil: a lone marker is not a fragment.
func (p *Parser) Parse(src string) []Element {
	src = Normalize(src)

	var elements []Element
	byteAt, runeAt := 0, 0
	toRunes := func(b int) int {
		runeAt += utf8.RuneCountInString(src[byteAt:b])
		byteAt = b
		return runeAt
	}

	for _, m := range p.scan(src) {
		if m.escaped {
			continue
		}
		start := toRunes(m.start)
		end := toRunes(m.end)
		if m.open {
			elements = append(elements, OpenElement{Name: m.name, Start: start, End: end})
		} else {
			elements = append(elements, CloseElement{Start: start, End: end})
		}
	}

	if len(elements) < 2 {
		return nil
	}
	return elements
}

// Names returns the names of all opening markers in source order.
func (p *Parser) Names(src string) []string {
	var names []string
	for _, e := range p.Parse(src) {
		if o, ok := e.(OpenElement); ok {
			names = append(names, o.Name)
		}
	}
	return names
}

// Strip removes every marker from src and unescapes @@marker to @marker.
func (p *Parser) Strip(src string) string {
	src = Normalize(src)
	matches := p.scan(src)
	if len(matches) == 0 {
		return src
	}

	var sb strings.Builder
	sb.Grow(len(src))
	last := 0
	for _, m := range matches {
		if m.escaped {
			// Drop the escaping '@', keep the marker text.
			sb.WriteString(src[last : m.start-1])
			sb.WriteString(src[m.start:m.end])
		} else {
			sb.WriteString(src[last:m.start])
		}
		last = m.end
	}
	sb.WriteString(src[last:])
	return sb.String()
}

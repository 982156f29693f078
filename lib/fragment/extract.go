package fragment

// Extract returns the text between the opening marker named name and its
// matching closing marker. Nested markers inside the fragment are kept
// verbatim.
//
// Exactly one opening marker with the name must exist: none is ErrNotFound,
// several is ErrDuplicate. A fragment whose closing marker cannot be found
// is ErrStructure.
func (p *Parser) Extract(src, name string) (string, error) {
	src = Normalize(src)
	elements := p.Parse(src)

	idx, count := -1, 0
	for i, e := range elements {
		if o, ok := e.(OpenElement); ok && o.Name == name {
			count++
			if idx < 0 {
				idx = i
			}
		}
	}
	switch {
	case count == 0:
		return "", &Error{Fragment: name, Err: ErrNotFound}
	case count > 1:
		return "", &Error{Fragment: name, Err: ErrDuplicate}
	}

	open := elements[idx].(OpenElement)
	depth := 0
	for _, e := range elements[idx+1:] {
		switch e.(type) {
		case OpenElement:
			depth++
		case CloseElement:
			if depth == 0 {
				runes := []rune(src)
				return string(runes[open.End:e.StartOffset()]), nil
			}
			depth--
		}
	}
	return "", &Error{Fragment: name, Err: ErrStructure}
}

// Span locates a fragment by character offsets.
type Span struct {
	Name string
	// Start and End bound the whole fragment including its markers.
	Start int
	End   int
	Depth int
}

// Spans returns every fragment in src with its outer offsets and nesting
// depth, in order of their opening markers. Unterminated fragments are
// reported as ErrStructure.
func (p *Parser) Spans(src string) ([]Span, error) {
	elements := p.Parse(src)

	var spans []Span
	var stack []int
	for _, e := range elements {
		switch el := e.(type) {
		case OpenElement:
			spans = append(spans, Span{Name: el.Name, Start: el.Start, Depth: len(stack)})
			stack = append(stack, len(spans)-1)
		case CloseElement:
			if len(stack) == 0 {
				return nil, &Error{Err: ErrStructure}
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			spans[top].End = el.End
		}
	}
	if len(stack) > 0 {
		return nil, &Error{Fragment: spans[stack[len(stack)-1]].Name, Err: ErrStructure}
	}
	return spans, nil
}

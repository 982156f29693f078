package el

func Div(children ...any) *Element      { return New("div", children...) }
func Span(children ...any) *Element     { return New("span", children...) }
func P(children ...any) *Element        { return New("p", children...) }
func Form(children ...any) *Element     { return New("form", children...) }
func Label(children ...any) *Element    { return New("label", children...) }
func Button(children ...any) *Element   { return New("button", children...) }
func Textarea(children ...any) *Element { return New("textarea", children...) }
func Select(children ...any) *Element   { return New("select", children...) }
func H1(children ...any) *Element       { return New("h1", children...) }
func H2(children ...any) *Element       { return New("h2", children...) }
func H3(children ...any) *Element       { return New("h3", children...) }
func Ul(children ...any) *Element       { return New("ul", children...) }
func Li(children ...any) *Element       { return New("li", children...) }
func Template(children ...any) *Element { return New("template", children...) }

// A creates a link.
func A(href string, children ...any) *Element {
	return New("a", children...).Href(href)
}

// Input creates an input element. Inputs are void.
func Input() *Element { return New("input") }

// Option creates a select option.
func Option(value, label string) *Element {
	return New("option", label).Value(value)
}

// Script creates a script element with unescaped source.
func Script(source string) *Element {
	return New("script").Raw(source)
}

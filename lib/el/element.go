package el

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// voidElements have no closing tag and no children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

type attribute struct {
	name  string
	value Value
}

// Element is an HTML element under construction. Setters mutate the element
// and return it so calls chain.
type Element struct {
	tag      string
	attrs    []attribute
	children []templ.Component

	bound      string
	rules      string
	validation validateConfig
}

// New creates an element. Children may be strings (escaped text), Values
// (text computed at render time), templ components including other
// Elements, or nil, which is skipped. Anything else renders as text.
func New(tag string, children ...any) *Element {
	e := &Element{tag: tag}
	return e.Children(children...)
}

// Tag returns the element's tag name.
func (e *Element) Tag() string { return e.tag }

// Attr sets an attribute, replacing an earlier value. v may be a Value.
func (e *Element) Attr(name string, v any) *Element {
	val := valueOf(v)
	for i := range e.attrs {
		if e.attrs[i].name == name {
			e.attrs[i].value = val
			return e
		}
	}
	e.attrs = append(e.attrs, attribute{name: name, value: val})
	return e
}

// Get returns the static value of an attribute. Providers and unset
// attributes report false.
func (e *Element) Get(name string) (any, bool) {
	for _, a := range e.attrs {
		if a.name == name {
			if s, ok := a.value.(Static); ok {
				return s.V, true
			}
			return nil, false
		}
	}
	return nil, false
}

// ID sets the id attribute.
func (e *Element) ID(id string) *Element { return e.Attr("id", id) }

// Class adds classes to the class attribute.
func (e *Element) Class(classes ...string) *Element {
	if cur, ok := e.Get("class"); ok {
		if s, ok := cur.(string); ok && s != "" {
			classes = append([]string{s}, classes...)
		}
	}
	return e.Attr("class", strings.Join(classes, " "))
}

// Style sets the style attribute.
func (e *Element) Style(style string) *Element { return e.Attr("style", style) }

// Data sets a data-* attribute.
func (e *Element) Data(key string, v any) *Element { return e.Attr("data-"+key, v) }

// Name sets the name attribute.
func (e *Element) Name(name string) *Element { return e.Attr("name", name) }

// Type sets the type attribute.
func (e *Element) Type(t string) *Element { return e.Attr("type", t) }

// Value sets the value attribute.
func (e *Element) Value(v any) *Element { return e.Attr("value", v) }

// Href sets the href attribute.
func (e *Element) Href(url string) *Element { return e.Attr("href", url) }

// Placeholder sets the placeholder attribute.
func (e *Element) Placeholder(text string) *Element { return e.Attr("placeholder", text) }

// Disabled sets or clears the disabled attribute.
func (e *Element) Disabled(on bool) *Element { return e.Attr("disabled", on) }

// Children appends children. See New for the accepted kinds.
func (e *Element) Children(children ...any) *Element {
	for _, c := range children {
		switch c := c.(type) {
		case nil:
		case *Element:
			if c != nil {
				e.children = append(e.children, c)
			}
		case templ.Component:
			e.children = append(e.children, c)
		case []templ.Component:
			e.children = append(e.children, c...)
		case []*Element:
			for _, child := range c {
				e.children = append(e.children, child)
			}
		default:
			e.children = append(e.children, textNode{valueOf(c)})
		}
	}
	return e
}

// Text appends escaped text. v may be a Value.
func (e *Element) Text(v any) *Element {
	e.children = append(e.children, textNode{valueOf(v)})
	return e
}

// Raw appends unescaped HTML.
func (e *Element) Raw(html string) *Element {
	e.children = append(e.children, templ.Raw(html))
	return e
}

// If applies fn when cond is true.
//
//	el.Button("Delete").If(!canDelete, func(b *el.Element) { b.Disabled(true) })
func (e *Element) If(cond bool, fn func(*Element)) *Element {
	if cond {
		fn(e)
	}
	return e
}

// Render writes the element. It implements templ.Component.
func (e *Element) Render(ctx context.Context, w io.Writer) error {
	var buf bytes.Buffer
	if err := e.render(ctx, newContext(ctx), &buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// HTML renders the element with ctx and returns the markup.
func (e *Element) HTML(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	if err := e.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// String renders the element without a request. Rendering errors are
// returned in place of the markup.
func (e *Element) String() string {
	s, err := e.HTML(context.Background())
	if err != nil {
		return "<!-- " + templ.EscapeString(err.Error()) + " -->"
	}
	return s
}

func (e *Element) render(ctx context.Context, c Context, buf *bytes.Buffer) error {
	attrs := e.attrs
	if e.rules != "" {
		hints, err := e.applyValidation(ctx)
		if err != nil {
			return err
		}
		attrs = mergeHints(attrs, hints)
	}

	buf.WriteByte('<')
	buf.WriteString(e.tag)
	for _, a := range attrs {
		v, err := a.value.resolve(c)
		if err != nil {
			return fmt.Errorf("el: %s[%s]: %w", e.tag, a.name, err)
		}
		s, ok, bare, err := attrString(v)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(a.name)
		if !bare {
			buf.WriteString(`="`)
			buf.WriteString(templ.EscapeString(s))
			buf.WriteByte('"')
		}
	}
	buf.WriteByte('>')

	if voidElements[e.tag] {
		return nil
	}

	for _, child := range e.children {
		var err error
		switch child := child.(type) {
		case *Element:
			err = child.render(ctx, c, buf)
		case textNode:
			err = child.write(c, buf)
		default:
			err = child.Render(ctx, buf)
		}
		if err != nil {
			return err
		}
	}

	buf.WriteString("</")
	buf.WriteString(e.tag)
	buf.WriteByte('>')
	return nil
}

type textNode struct {
	value Value
}

func (t textNode) Render(ctx context.Context, w io.Writer) error {
	var buf bytes.Buffer
	if err := t.write(newContext(ctx), &buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (t textNode) write(c Context, buf *bytes.Buffer) error {
	v, err := t.value.resolve(c)
	if err != nil {
		return err
	}
	buf.WriteString(templ.EscapeString(textString(v)))
	return nil
}

package el

import "strings"

// Bind two-way binds the element's value to a signal: data-bind="path".
// The path is also the key Validate registers rules under.
func (e *Element) Bind(path string) *Element {
	e.bound = path
	return e.Attr("data-bind", path)
}

// Bound returns the signal path set by Bind.
func (e *Element) Bound() string { return e.bound }

// On runs expr on a DOM event: data-on:click__once="...". expr may be a
// string expression or a hyper.Action.
func (e *Element) On(event string, expr any, modifiers ...string) *Element {
	return e.Attr(modifierKey("data-on:"+event, modifiers), expr)
}

// Show toggles visibility: data-show="$open".
func (e *Element) Show(expr string) *Element { return e.Attr("data-show", expr) }

// TextExpr sets the text content from an expression: data-text="$count".
func (e *Element) TextExpr(expr string) *Element { return e.Attr("data-text", expr) }

// Signals declares signals on the element, encoded as JSON.
func (e *Element) Signals(signals map[string]any) *Element {
	return e.Attr("data-signals", signals)
}

// Indicator sets a signal that is true while a request from the element is
// in flight.
func (e *Element) Indicator(signal string) *Element { return e.Attr("data-indicator", signal) }

// Ref stores the element in a signal.
func (e *Element) Ref(signal string) *Element { return e.Attr("data-ref", signal) }

// ClassExpr toggles class when expr is truthy: data-class:active="$on".
func (e *Element) ClassExpr(class, expr string) *Element {
	return e.Attr("data-class:"+class, expr)
}

// AttrExpr binds an attribute to an expression: data-attr:disabled="$busy".
func (e *Element) AttrExpr(name, expr string) *Element {
	return e.Attr("data-attr:"+name, expr)
}

func modifierKey(key string, modifiers []string) string {
	if len(modifiers) == 0 {
		return key
	}
	return key + "__" + strings.Join(modifiers, "__")
}

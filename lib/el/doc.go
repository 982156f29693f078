// Package el is a fluent HTML builder for Datastar views.
//
// Elements are built with constructors and chained setters, and render as
// templ components:
//
//	el.Form(
//	    el.Input().Type("email").Bind("user.email").Validate("required|email"),
//	    el.ErrorText("user.email"),
//	    el.Button("Save").On("click", hyper.Post("/profile")),
//	)
//
// Attribute values are coerced when rendered: true renders a bare
// attribute, false and nil omit it, numbers are formatted, maps and slices
// are encoded as JSON and everything else is escaped text. Values computed
// per request are expressed with Provider, which receives an explicit
// Context carrying the request and its signals.
//
// Validate registers rules for the element's bound signal with the
// validator found in the render context (see hyper.Middleware) and adds the
// matching HTML5 constraint attributes.
package el

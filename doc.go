// Package hyper provides server-driven UI over the Datastar SSE protocol:
// a request-scoped signal store, signal-centric validation, named template
// fragments, and a streaming response writer.
//
// # Signals
//
// Datastar keeps client state in signals identified by dotted paths
// ("user.email"). The browser sends them with every request, as the
// "datastar" query parameter for GET and as a JSON body otherwise.
// ReadSignals decodes them into a *Signals store:
//
//	s, err := hyper.ReadSignals(r, hyper.WithLocker(locker))
//	email := s.String("user.email")
//
// Two naming conventions are reserved. A leading underscore marks a local
// signal ("_open") that never leaves the browser and can never be validated
// on the server. A trailing underscore marks a locked signal ("role_") whose
// authoritative value lives in a sealed cookie; a request that carries a
// different value fails with ErrLockedTampered.
//
// # Validation
//
// Validation is keyed by signal path, the same join key used for client
// binding. A Validator is request scoped: the view registers rules while it
// renders and the handler validates the signals it received.
//
//	v := hyper.NewValidator()
//	v.Register("email", "required|email|max:255", nil, nil)
//	values, err := v.Validate(signals)
//	if hyper.IsValidationError(err) {
//	    sse.PatchErrors(err)
//	}
//
// Rule strings are evaluated by lib/rules. Registering a rule for a local
// signal fails with ErrLocalSignal; ValidateSingle on a path with no rule
// fails with ErrNotRegistered without running any validation.
//
// # Fragments
//
// Views mark regions with @fragment('name') ... @endfragment. The fragment
// renderer (lib/fragment) extracts and executes a single region so a handler
// can patch just that part of the page:
//
//	sse.Fragment(renderer, "contacts/index", "list", data)
//
// # Responses
//
// SSE writes Datastar events directly to a streaming response. Response
// buffers the same events so a handler can build its reply fluently and
// return it:
//
//	return hyper.NewResponse().
//	    Patch(listComponent, hyper.Selector("#list"), hyper.Mode(hyper.PatchInner)).
//	    Signals(map[string]any{"saving": false}).
//	    Flash(hyper.FlashSuccess, "Saved").
//	    Send(w, r)
//
// # Routing
//
// Router mounts handlers on chi with a CSRF guard: mutating methods require
// the Datastar-Request header the Datastar client always sends. Routes can
// be declared with //hyper:route directives and wired by the generator in
// lib/generator.
package hyper

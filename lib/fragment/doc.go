// Package fragment locates and renders named regions of view templates.
//
// A fragment is the text between an opening marker carrying a quoted name
// and its matching closing marker:
//
//	<section>
//	    @fragment('contact-form')
//	    <form>...</form>
//	    @endfragment
//	</section>
//
// Fragments may nest. Extracting the outer fragment returns the inner
// markers verbatim; the renderer strips them before compiling so only the
// surrounding markup reaches the response. A doubled marker prefix
// (@@fragment) is an escape and is never treated as a marker.
//
// # Parsing
//
// Parser scans the source with a single combined pattern and returns
// OpenElement and CloseElement records in source order. Offsets are in
// characters, not bytes, and line endings are normalized to \n before
// scanning.
//
// # Rendering
//
// Renderer loads view sources through a Source (a directory, any fs.FS, or
// an S3 bucket), extracts the requested fragment, compiles it with
// html/template and caches the result. When a compile or execute error looks
// like the cache is out of sync with the source, the cache is reset and the
// render retried exactly once.
package fragment

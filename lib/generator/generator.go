// Package generator discovers //hyper:route directives in Go source and
// writes the code that registers them on a hyper.Router.
//
// A handler function or method opts in with one or more directives in its
// doc comment:
//
//	//hyper:route GET /contacts/{id} name=contacts.show
//	func (h *Contacts) Show(w http.ResponseWriter, r *http.Request) error
//
// A type may set a path prefix for all of its methods:
//
//	//hyper:prefix /admin
//	type Admin struct{ ... }
//
// Handlers return an error (hyper.HandlerFunc) or nothing
// (http.HandlerFunc). Any other signature is reported as an error.
package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Directive prefixes recognized in doc comments.
const (
	RouteDirective  = "//hyper:route"
	PrefixDirective = "//hyper:prefix"
)

// GeneratedFile is the name of the file written into each package.
const GeneratedFile = "routes_hyper.go"

var httpMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

// Options configures the generator.
type Options struct {
	// DryRun reports what would be written or removed without touching
	// any file.
	DryRun bool
	// Out receives progress lines. Defaults to os.Stdout.
	Out io.Writer
}

// Generator discovers routes and generates registration code.
type Generator struct {
	opts Options
	fset *token.FileSet
}

// New creates a new generator.
func New(opts Options) *Generator {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Generator{
		opts: opts,
		fset: token.NewFileSet(),
	}
}

// HandlerSignature classifies a handler's parameters and results.
type HandlerSignature int

const (
	HandlerSigUnknown HandlerSignature = iota
	// HandlerSigError is func(http.ResponseWriter, *http.Request) error.
	HandlerSigError
	// HandlerSigPlain is func(http.ResponseWriter, *http.Request).
	HandlerSigPlain
)

func (s HandlerSignature) String() string {
	switch s {
	case HandlerSigError:
		return "error"
	case HandlerSigPlain:
		return "plain"
	}
	return "unknown"
}

// RouteInfo describes one discovered route.
type RouteInfo struct {
	Dir        string // package directory
	Package    string // package name
	SourceFile string
	Line       int

	Receiver string // receiver type name; empty for plain functions
	Pointer  bool   // receiver is a pointer
	Func     string // function or method name

	Method    string
	Pattern   string // prefix already applied
	Name      string
	Signature HandlerSignature
}

// Handler returns the Go expression naming the handler, e.g. "contacts.Show".
func (ri RouteInfo) Handler() string {
	if ri.Receiver == "" {
		return ri.Func
	}
	return receiverParam(ri.Receiver) + "." + ri.Func
}

// Position returns file:line of the declaration.
func (ri RouteInfo) Position() string {
	return fmt.Sprintf("%s:%d", ri.SourceFile, ri.Line)
}

// Discover parses the packages matched by patterns and returns their
// routes ordered by package directory and source position.
func (g *Generator) Discover(patterns ...string) ([]RouteInfo, error) {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return nil, err
	}

	var routes []RouteInfo
	for _, dir := range packages {
		pkgRoutes, err := g.discoverPackage(dir)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", dir, err)
		}
		routes = append(routes, pkgRoutes...)
	}
	if err := checkDuplicates(routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// findPackages resolves package patterns to directory paths.
func (g *Generator) findPackages(patterns []string) ([]string, error) {
	var packages []string

	for _, pattern := range patterns {
		// Handle ./... pattern
		if !strings.HasSuffix(pattern, "/...") && pattern != "..." {
			packages = append(packages, pattern)
			continue
		}

		root := strings.TrimSuffix(strings.TrimSuffix(pattern, "..."), "/")
		if root == "" {
			root = "."
		}

		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			// Skip hidden, underscore, vendor and testdata directories like the go tool
			base := filepath.Base(path)
			if path != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") ||
				base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}

			files, err := goFiles(path)
			if err != nil {
				return nil
			}
			if len(files) > 0 {
				packages = append(packages, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return packages, nil
}

// goFiles lists the non-test, non-generated Go files of dir.
func goFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") ||
			strings.HasSuffix(name, "_test.go") || name == GeneratedFile {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// discoverPackage finds the routes declared in one directory.
func (g *Generator) discoverPackage(dir string) ([]RouteInfo, error) {
	files, err := goFiles(dir)
	if err != nil {
		return nil, err
	}

	var parsed []*ast.File
	pkgName := ""
	for _, path := range files {
		file, err := parser.ParseFile(g.fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, err
		}
		if pkgName == "" {
			pkgName = file.Name.Name
		} else if file.Name.Name != pkgName {
			return nil, fmt.Errorf("found packages %s and %s", pkgName, file.Name.Name)
		}
		parsed = append(parsed, file)
	}

	prefixes, err := g.findPrefixes(parsed)
	if err != nil {
		return nil, err
	}

	var routes []RouteInfo
	for _, file := range parsed {
		fileRoutes, err := g.findRoutes(file, pkgName, dir, prefixes)
		if err != nil {
			return nil, err
		}
		routes = append(routes, fileRoutes...)
	}
	return routes, nil
}

// findPrefixes collects //hyper:prefix directives by type name.
func (g *Generator) findPrefixes(files []*ast.File) (map[string]string, error) {
	prefixes := make(map[string]string)

	for _, file := range files {
		for _, decl := range file.Decls {
			genDecl, ok := decl.(*ast.GenDecl)
			if !ok || genDecl.Tok != token.TYPE {
				continue
			}

			for _, spec := range genDecl.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}

				// A lone spec's directive sits on the GenDecl
				doc := typeSpec.Doc
				if doc == nil && len(genDecl.Specs) == 1 {
					doc = genDecl.Doc
				}
				for _, text := range directives(doc, PrefixDirective) {
					if !strings.HasPrefix(text, "/") || strings.ContainsAny(text, " \t") {
						return nil, fmt.Errorf("%s: invalid prefix %q",
							g.fset.Position(typeSpec.Pos()), text)
					}
					prefixes[typeSpec.Name.Name] = strings.TrimSuffix(text, "/")
				}
			}
		}
	}

	return prefixes, nil
}

// findRoutes finds the annotated functions and methods of a file.
func (g *Generator) findRoutes(file *ast.File, pkgName, dir string, prefixes map[string]string) ([]RouteInfo, error) {
	var routes []RouteInfo

	for _, decl := range file.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		specs := directives(funcDecl.Doc, RouteDirective)
		if len(specs) == 0 {
			continue
		}

		pos := g.fset.Position(funcDecl.Pos())
		base := RouteInfo{
			Dir:        dir,
			Package:    pkgName,
			SourceFile: pos.Filename,
			Line:       pos.Line,
			Func:       funcDecl.Name.Name,
			Signature:  g.detectHandlerSignature(funcDecl.Type),
		}
		if base.Signature == HandlerSigUnknown {
			return nil, fmt.Errorf("%s: %s must be func(http.ResponseWriter, *http.Request) [error]", pos, base.Func)
		}
		if !funcDecl.Name.IsExported() && funcDecl.Recv != nil {
			return nil, fmt.Errorf("%s: method %s must be exported", pos, base.Func)
		}

		if funcDecl.Recv != nil && len(funcDecl.Recv.List) == 1 {
			base.Receiver, base.Pointer = receiverType(funcDecl.Recv.List[0].Type)
			if base.Receiver == "" {
				return nil, fmt.Errorf("%s: unsupported receiver for %s", pos, base.Func)
			}
		}

		for _, spec := range specs {
			ri := base
			if err := parseRouteSpec(spec, &ri); err != nil {
				return nil, fmt.Errorf("%s: %w", pos, err)
			}
			if prefix, ok := prefixes[ri.Receiver]; ok && ri.Receiver != "" {
				ri.Pattern = joinPattern(prefix, ri.Pattern)
			}
			routes = append(routes, ri)
		}
	}

	return routes, nil
}

// directives returns the argument text of every comment line starting
// with directive.
func directives(doc *ast.CommentGroup, directive string) []string {
	if doc == nil {
		return nil
	}
	var out []string
	for _, c := range doc.List {
		rest, ok := strings.CutPrefix(c.Text, directive)
		if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
			continue
		}
		out = append(out, strings.TrimSpace(rest))
	}
	return out
}

// parseRouteSpec parses "METHOD /pattern [name=x]" into ri.
func parseRouteSpec(spec string, ri *RouteInfo) error {
	fields := strings.Fields(spec)
	if len(fields) < 2 {
		return fmt.Errorf("route directive needs a method and a pattern: %q", spec)
	}

	method := strings.ToUpper(fields[0])
	if !httpMethods[method] {
		return fmt.Errorf("unknown HTTP method %q", fields[0])
	}
	if !strings.HasPrefix(fields[1], "/") {
		return fmt.Errorf("pattern %q must start with /", fields[1])
	}
	ri.Method = method
	ri.Pattern = fields[1]

	for _, opt := range fields[2:] {
		key, value, ok := strings.Cut(opt, "=")
		if !ok || value == "" {
			return fmt.Errorf("malformed option %q", opt)
		}
		switch key {
		case "name":
			ri.Name = value
		default:
			return fmt.Errorf("unknown option %q", key)
		}
	}
	return nil
}

func joinPattern(prefix, pattern string) string {
	if prefix == "" {
		return pattern
	}
	if pattern == "/" {
		return prefix
	}
	return prefix + pattern
}

// receiverType returns the receiver's type name and whether it is a pointer.
func receiverType(expr ast.Expr) (string, bool) {
	pointer := false
	if star, ok := expr.(*ast.StarExpr); ok {
		pointer = true
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name, pointer
	}
	return "", false
}

// detectHandlerSignature classifies a function type.
func (g *Generator) detectHandlerSignature(ft *ast.FuncType) HandlerSignature {
	var params []ast.Expr
	for _, field := range ft.Params.List {
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			params = append(params, field.Type)
		}
	}
	if len(params) != 2 || typeString(params[0]) != "http.ResponseWriter" || typeString(params[1]) != "*http.Request" {
		return HandlerSigUnknown
	}

	if ft.Results == nil || len(ft.Results.List) == 0 {
		return HandlerSigPlain
	}
	if len(ft.Results.List) == 1 && len(ft.Results.List[0].Names) <= 1 && typeString(ft.Results.List[0].Type) == "error" {
		return HandlerSigError
	}
	return HandlerSigUnknown
}

// typeString converts an AST type to a string representation.
func typeString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + typeString(t.X)
	case *ast.SelectorExpr:
		return typeString(t.X) + "." + t.Sel.Name
	default:
		return fmt.Sprintf("%T", expr)
	}
}

// checkDuplicates rejects routes that would make Router.Handle panic.
func checkDuplicates(routes []RouteInfo) error {
	byRoute := make(map[string]RouteInfo)
	byName := make(map[string]RouteInfo)
	for _, ri := range routes {
		key := ri.Method + " " + ri.Pattern
		if prev, ok := byRoute[key]; ok {
			return fmt.Errorf("%s: duplicate route %s (first at %s)", ri.Position(), key, prev.Position())
		}
		byRoute[key] = ri

		if ri.Name == "" {
			continue
		}
		if prev, ok := byName[ri.Name]; ok {
			return fmt.Errorf("%s: duplicate route name %q (first at %s)", ri.Position(), ri.Name, prev.Position())
		}
		byName[ri.Name] = ri
	}
	return nil
}

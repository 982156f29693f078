package generator

import (
	"bufio"
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"unicode"
)

// generatedHeader marks files owned by the generator; Clean only removes
// files starting with it.
const generatedHeader = "// Code generated by hyper routes generate. DO NOT EDIT."

// Generate discovers routes in the packages matched by patterns and writes
// a GeneratedFile into every package that declares any.
func (g *Generator) Generate(patterns ...string) error {
	routes, err := g.Discover(patterns...)
	if err != nil {
		return err
	}

	for _, pkg := range groupByDir(routes) {
		if err := g.generatePackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg.Dir, err)
		}
	}
	return nil
}

// Clean removes generated files for the given package patterns.
func (g *Generator) Clean(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, dir := range packages {
		if err := g.cleanPackage(dir); err != nil {
			return fmt.Errorf("package %s: %w", dir, err)
		}
	}
	return nil
}

// cleanPackage removes the generated file from a package.
func (g *Generator) cleanPackage(dir string) error {
	path := filepath.Join(dir, GeneratedFile)
	generated, err := isGenerated(path)
	if err != nil || !generated {
		return err
	}

	fmt.Fprintf(g.opts.Out, "removing %s\n", path)
	if g.opts.DryRun {
		return nil
	}
	return os.Remove(path)
}

func isGenerated(path string) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	return sc.Scan() && sc.Text() == generatedHeader, sc.Err()
}

// packageRoutes holds the routes of one package ready for rendering.
type packageRoutes struct {
	Dir       string
	Package   string
	Routes    []RouteInfo
	Receivers []receiver
}

type receiver struct {
	Param string
	Type  string
}

func groupByDir(routes []RouteInfo) []*packageRoutes {
	byDir := make(map[string]*packageRoutes)
	var order []string
	for _, ri := range routes {
		pkg, ok := byDir[ri.Dir]
		if !ok {
			pkg = &packageRoutes{Dir: ri.Dir, Package: ri.Package}
			byDir[ri.Dir] = pkg
			order = append(order, ri.Dir)
		}
		pkg.Routes = append(pkg.Routes, ri)
	}

	out := make([]*packageRoutes, 0, len(order))
	for _, dir := range order {
		pkg := byDir[dir]
		pkg.Receivers = receivers(pkg.Routes)
		out = append(out, pkg)
	}
	return out
}

// receivers returns one parameter per receiver type, sorted by type name.
// A type with any pointer-receiver route is taken as a pointer.
func receivers(routes []RouteInfo) []receiver {
	pointer := make(map[string]bool)
	for _, ri := range routes {
		if ri.Receiver == "" {
			continue
		}
		pointer[ri.Receiver] = pointer[ri.Receiver] || ri.Pointer
	}

	names := make([]string, 0, len(pointer))
	for name := range pointer {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]receiver, 0, len(names))
	for _, name := range names {
		typ := name
		if pointer[name] {
			typ = "*" + name
		}
		out = append(out, receiver{Param: receiverParam(name), Type: typ})
	}
	return out
}

// receiverParam derives a parameter name from a type name: Contacts →
// contacts, HTTPAdmin → hTTPAdmin. Names that clash with keywords or the
// generated code's identifiers get an "H" suffix.
func receiverParam(typeName string) string {
	r := []rune(typeName)
	r[0] = unicode.ToLower(r[0])
	name := string(r)
	switch {
	case token.IsKeyword(name):
		name += "H"
	case name == "router", name == "http", name == "hyper", name == "w", name == "r":
		name += "H"
	}
	return name
}

// generatePackage writes the GeneratedFile of one package.
func (g *Generator) generatePackage(pkg *packageRoutes) error {
	outputFile := filepath.Join(pkg.Dir, GeneratedFile)

	fmt.Fprintf(g.opts.Out, "generating %s (%d routes)\n", outputFile, len(pkg.Routes))

	if g.opts.DryRun {
		for _, ri := range pkg.Routes {
			fmt.Fprintf(g.opts.Out, "  %-7s %s -> %s\n", ri.Method, ri.Pattern, ri.Handler())
		}
		return nil
	}

	code, err := renderRoutes(pkg)
	if err != nil {
		return err
	}
	return os.WriteFile(outputFile, code, 0644)
}

// renderRoutes renders and formats the registration code.
func renderRoutes(pkg *packageRoutes) ([]byte, error) {
	tmpl, err := template.New("routes").Funcs(template.FuncMap{
		"quote": func(s string) string { return fmt.Sprintf("%q", s) },
		"plain": func(ri RouteInfo) bool { return ri.Signature == HandlerSigPlain },
		"base":  filepath.Base,
	}).Parse(routesTemplate)
	if err != nil {
		return nil, err
	}

	needsHTTP := false
	for _, ri := range pkg.Routes {
		if ri.Signature == HandlerSigPlain {
			needsHTTP = true
		}
	}

	var params []string
	for _, rcv := range pkg.Receivers {
		params = append(params, rcv.Param+" "+rcv.Type)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Pkg":       pkg,
		"NeedsHTTP": needsHTTP,
		"Params":    strings.Join(params, ", "),
		"Header":    generatedHeader,
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format source: %w", err)
	}
	return formatted, nil
}

const routesTemplate = `{{.Header}}

package {{.Pkg.Package}}

import (
{{- if .NeedsHTTP}}
	"net/http"
{{end}}
	"github.com/pthm/hyper"
)

// RegisterRoutes registers the handlers annotated with //hyper:route.
func RegisterRoutes(router *hyper.Router{{if .Params}}, {{.Params}}{{end}}) {
{{- range .Pkg.Routes}}
	// {{base .SourceFile}}:{{.Line}}
{{- if plain .}}
	router.Handle({{quote .Method}}, {{quote .Pattern}}, {{quote .Name}}, func(w http.ResponseWriter, r *http.Request) error {
		{{.Handler}}(w, r)
		return nil
	})
{{- else}}
	router.Handle({{quote .Method}}, {{quote .Pattern}}, {{quote .Name}}, {{.Handler}})
{{- end}}
{{- end}}
}
`

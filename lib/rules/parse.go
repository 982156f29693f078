package rules

import (
	"strings"
)

// Rule is a single parsed rule token such as "max:255".
type Rule struct {
	Name   string
	Params []string
}

// String reassembles the rule token.
func (r Rule) String() string {
	if len(r.Params) == 0 {
		return r.Name
	}
	return r.Name + ":" + strings.Join(r.Params, ",")
}

// Parse splits a pipe-delimited rule string into rules.
//
// A regex or not_regex pattern may itself contain '|'. Tokens are joined
// back together until the pattern's closing delimiter is reached, so
// "regex:/^(a|b)$/|max:3" parses as two rules.
func Parse(rules string) []Rule {
	tokens := strings.Split(rules, "|")
	out := make([]Rule, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		tok := strings.TrimSpace(tokens[i])
		if tok == "" {
			continue
		}

		name, param, hasParam := strings.Cut(tok, ":")
		name = strings.ToLower(strings.TrimSpace(name))

		if name == "regex" || name == "not_regex" {
			for !regexClosed(param) && i+1 < len(tokens) {
				i++
				param += "|" + tokens[i]
			}
			out = append(out, Rule{Name: name, Params: []string{param}})
			continue
		}

		r := Rule{Name: name}
		if hasParam {
			for _, p := range strings.Split(param, ",") {
				r.Params = append(r.Params, strings.TrimSpace(p))
			}
		}
		out = append(out, r)
	}
	return out
}

// regexClosed reports whether a delimited pattern such as "/a|b/i" has its
// closing delimiter followed only by flags.
func regexClosed(p string) bool {
	if len(p) < 2 {
		return false
	}
	delim := p[0]
	end := strings.LastIndexByte(p, delim)
	if end <= 0 {
		return false
	}
	for _, c := range p[end+1:] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// Has reports whether rs contains a rule with the given name.
func Has(rs []Rule, name string) bool {
	for _, r := range rs {
		if r.Name == name {
			return true
		}
	}
	return false
}

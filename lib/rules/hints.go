package rules

// Hint is an HTML5 validation attribute derived from a rule. An empty Value
// renders as a boolean attribute.
type Hint struct {
	Name  string
	Value string
}

// Hints maps a rule string to client-side validation attributes, in rule
// order. Length limits become min/max for numeric fields and
// minlength/maxlength otherwise.
func Hints(rules string) []Hint {
	rs := Parse(rules)
	numeric := Has(rs, "numeric") || Has(rs, "integer")

	lower, upper := "minlength", "maxlength"
	if numeric {
		lower, upper = "min", "max"
	}

	var hints []Hint
	for _, r := range rs {
		switch r.Name {
		case "required", "accepted":
			hints = append(hints, Hint{Name: "required"})
		case "email":
			hints = append(hints, Hint{Name: "type", Value: "email"})
		case "url":
			hints = append(hints, Hint{Name: "type", Value: "url"})
		case "date":
			hints = append(hints, Hint{Name: "type", Value: "date"})
		case "numeric", "integer":
			if !hasHint(hints, "type") {
				hints = append(hints, Hint{Name: "type", Value: "number"})
			}
			if r.Name == "integer" && !hasHint(hints, "step") {
				hints = append(hints, Hint{Name: "step", Value: "1"})
			}
		case "min":
			hints = append(hints, Hint{Name: lower, Value: param(r, 0)})
		case "max":
			hints = append(hints, Hint{Name: upper, Value: param(r, 0)})
		case "between":
			hints = append(hints,
				Hint{Name: lower, Value: param(r, 0)},
				Hint{Name: upper, Value: param(r, 1)})
		case "size":
			if !numeric {
				hints = append(hints,
					Hint{Name: "minlength", Value: param(r, 0)},
					Hint{Name: "maxlength", Value: param(r, 0)})
			}
		case "regex":
			pattern, flags := SplitPattern(param(r, 0))
			if flags == "" {
				hints = append(hints, Hint{Name: "pattern", Value: pattern})
			}
		}
	}
	return hints
}

func hasHint(hints []Hint, name string) bool {
	for _, h := range hints {
		if h.Name == name {
			return true
		}
	}
	return false
}

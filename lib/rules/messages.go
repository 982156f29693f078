package rules

import (
	"strings"
)

// defaultMessages holds the built-in messages. Size rules are keyed by
// "rule.kind" where kind is numeric, string or array.
var defaultMessages = map[string]string{
	"accepted":         "The :attribute field must be accepted.",
	"alpha":            "The :attribute field must only contain letters.",
	"alpha_dash":       "The :attribute field must only contain letters, numbers, dashes, and underscores.",
	"alpha_num":        "The :attribute field must only contain letters and numbers.",
	"array":            "The :attribute field must be an array.",
	"between.array":    "The :attribute field must have between :min and :max items.",
	"between.numeric":  "The :attribute field must be between :min and :max.",
	"between.string":   "The :attribute field must be between :min and :max characters.",
	"boolean":          "The :attribute field must be true or false.",
	"confirmed":        "The :attribute field confirmation does not match.",
	"date":             "The :attribute field must be a valid date.",
	"different":        "The :attribute field and :other must be different.",
	"digits":           "The :attribute field must be :digits digits.",
	"email":            "The :attribute field must be a valid email address.",
	"ends_with":        "The :attribute field must end with one of the following: :values.",
	"filled":           "The :attribute field must have a value.",
	"in":               "The selected :attribute is invalid.",
	"integer":          "The :attribute field must be an integer.",
	"ip":               "The :attribute field must be a valid IP address.",
	"lowercase":        "The :attribute field must be lowercase.",
	"max.array":        "The :attribute field must not have more than :max items.",
	"max.numeric":      "The :attribute field must not be greater than :max.",
	"max.string":       "The :attribute field must not be greater than :max characters.",
	"min.array":        "The :attribute field must have at least :min items.",
	"min.numeric":      "The :attribute field must be at least :min.",
	"min.string":       "The :attribute field must be at least :min characters.",
	"not_in":           "The selected :attribute is invalid.",
	"not_regex":        "The :attribute field format is invalid.",
	"numeric":          "The :attribute field must be a number.",
	"present":          "The :attribute field must be present.",
	"regex":            "The :attribute field format is invalid.",
	"required":         "The :attribute field is required.",
	"same":             "The :attribute field must match :other.",
	"size.array":       "The :attribute field must contain :size items.",
	"size.numeric":     "The :attribute field must be :size.",
	"size.string":      "The :attribute field must be :size characters.",
	"starts_with":      "The :attribute field must start with one of the following: :values.",
	"string":           "The :attribute field must be a string.",
	"uppercase":        "The :attribute field must be uppercase.",
	"url":              "The :attribute field must be a valid URL.",
	"uuid":             "The :attribute field must be a valid UUID.",
	"required_if":      "The :attribute field is required when :other is :value.",
	"required_with":    "The :attribute field is required when :values is present.",
	"required_without": "The :attribute field is required when :values is not present.",
}

// DefaultMessage returns the built-in message template for rule, or a
// generic message for unknown rules.
func DefaultMessage(rule string, kind sizeKind) string {
	if kind != "" {
		if m, ok := defaultMessages[rule+"."+string(kind)]; ok {
			return m
		}
	}
	if m, ok := defaultMessages[rule]; ok {
		return m
	}
	return "The :attribute field is invalid."
}

// message resolves the template for a failed rule. Custom messages are
// looked up as "path.rule" then "rule" before falling back to the default.
func message(path string, r Rule, kind sizeKind, custom map[string]string) string {
	if m, ok := custom[path+"."+r.Name]; ok {
		return m
	}
	if m, ok := custom[r.Name]; ok {
		return m
	}
	return DefaultMessage(r.Name, kind)
}

// AttributeName returns the display name for path.
func AttributeName(path string, attributes map[string]string) string {
	if name, ok := attributes[path]; ok {
		return name
	}
	return strings.ReplaceAll(path, "_", " ")
}

// format fills the placeholders of a message template.
func format(tmpl, attribute string, r Rule, attributes map[string]string) string {
	pairs := []string{":attribute", attribute}

	switch r.Name {
	case "min":
		pairs = append(pairs, ":min", param(r, 0))
	case "max":
		pairs = append(pairs, ":max", param(r, 0))
	case "between":
		pairs = append(pairs, ":min", param(r, 0), ":max", param(r, 1))
	case "size":
		pairs = append(pairs, ":size", param(r, 0))
	case "digits":
		pairs = append(pairs, ":digits", param(r, 0))
	case "same", "different":
		pairs = append(pairs, ":other", AttributeName(param(r, 0), attributes))
	case "required_if":
		pairs = append(pairs, ":other", AttributeName(param(r, 0), attributes), ":value", param(r, 1))
	case "required_with", "required_without":
		names := make([]string, len(r.Params))
		for i, p := range r.Params {
			names[i] = AttributeName(p, attributes)
		}
		pairs = append(pairs, ":values", strings.Join(names, " / "))
	default:
		pairs = append(pairs, ":values", strings.Join(r.Params, ", "))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func param(r Rule, i int) string {
	if i < len(r.Params) {
		return r.Params[i]
	}
	return ""
}

package privilege

import (
	"fmt"
	"strings"
)

// Method is the HTTP-style verb a privilege expression or request carries.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPut    Method = "PUT"
	MethodPost   Method = "POST"
	MethodDelete Method = "DELETE"
)

// Wildcard matches any method, category or item inside an expression.
const Wildcard = "*"

// ParseMethod canonicalizes a method token. The wildcard is only legal inside
// expressions, never in a request, so it is rejected here.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(s) {
	case "GET":
		return MethodGet, nil
	case "PUT":
		return MethodPut, nil
	case "POST":
		return MethodPost, nil
	case "DELETE":
		return MethodDelete, nil
	}
	return "", fmt.Errorf("unknown method %q", s)
}

// Expression is a compiled "<method> <category> [<item>]" privilege pattern.
// Expressions are parsed once when a role enters the catalog and matched as a
// small struct on every request, never re-split from the raw string.
type Expression struct {
	method   string // "*" or a canonical Method
	category string // "*" or a category token
	item     string
	hasItem  bool
}

// ParseExpression compiles a privilege pattern.
//
// The method must be "*" or one of GET/PUT/POST/DELETE. The category is a
// free-form token or "*". The item is optional: when absent, the expression
// matches only requests without an item; absence is not a wildcard.
func ParseExpression(text string) (Expression, error) {
	fields := strings.Fields(text)
	switch len(fields) {
	case 0, 1:
		return Expression{}, fmt.Errorf("privilege expression %q: need at least method and category", text)
	case 2, 3:
	default:
		return Expression{}, fmt.Errorf("privilege expression %q: too many fields", text)
	}

	expr := Expression{category: fields[1]}

	if fields[0] == Wildcard {
		expr.method = Wildcard
	} else {
		m, err := ParseMethod(fields[0])
		if err != nil {
			return Expression{}, fmt.Errorf("privilege expression %q: %w", text, err)
		}
		expr.method = string(m)
	}

	if len(fields) == 3 {
		expr.item = fields[2]
		expr.hasItem = true
	}
	return expr, nil
}

// ParseExpressions compiles a list of raw patterns, failing on the first bad one.
func ParseExpressions(texts []string) ([]Expression, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([]Expression, 0, len(texts))
	for _, t := range texts {
		expr, err := ParseExpression(t)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

// Matches reports whether the expression covers the requested operation.
// An empty item means the request carries no sub-item.
func (e Expression) Matches(method Method, category, item string) bool {
	if e.method != Wildcard && !strings.EqualFold(e.method, string(method)) {
		return false
	}
	if e.category != Wildcard && !strings.EqualFold(e.category, category) {
		return false
	}
	if !e.hasItem {
		return item == ""
	}
	if e.item == Wildcard {
		return true
	}
	return item != "" && strings.EqualFold(e.item, item)
}

func (e Expression) String() string {
	if e.hasItem {
		return e.method + " " + e.category + " " + e.item
	}
	return e.method + " " + e.category
}

// NormalizeExpressions cleans raw privilege patterns before they are saved
// with a role definition: whitespace is collapsed, blank and single-token
// entries are dropped, and anything past the third token is discarded.
func NormalizeExpressions(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		fields := strings.Fields(t)
		if len(fields) < 2 {
			continue
		}
		if len(fields) > 3 {
			fields = fields[:3]
		}
		out = append(out, strings.Join(fields, " "))
	}
	return out
}

// splitOperationKey parses a batch operation key of the same shape as a
// privilege expression but with concrete tokens: "<method> <category> [<item>]".
func splitOperationKey(key string) (Method, string, string, error) {
	fields := strings.Fields(key)
	if len(fields) < 2 || len(fields) > 3 {
		return "", "", "", fmt.Errorf("operation key %q: want \"<method> <category> [<item>]\"", key)
	}
	m, err := ParseMethod(fields[0])
	if err != nil {
		return "", "", "", fmt.Errorf("operation key %q: %w", key, err)
	}
	item := ""
	if len(fields) == 3 {
		item = fields[2]
	}
	return m, fields[1], item, nil
}

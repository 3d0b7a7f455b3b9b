package jq

import (
	"fmt"

	"github.com/itchyny/gojq"
)

// Filter is a compiled jq expression used as a record predicate: a record is
// kept when the expression's first output is neither false nor null.
type Filter struct {
	expr string
	code *gojq.Code
}

func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return nil, fmt.Errorf("jq query is empty")
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse jq filter %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile jq filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, code: code}, nil
}

func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the filter against one JSON-shaped value.
func (f *Filter) Match(v map[string]any) (bool, error) {
	iter := f.code.Run(v)
	out, ok := iter.Next()
	if !ok {
		return false, nil
	}
	if err, ok := out.(error); ok {
		if err, ok := err.(*gojq.HaltError); ok && err.Value() == nil {
			return false, nil
		}
		return false, fmt.Errorf("jq filter %q: %w", f.expr, err)
	}
	switch t := out.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	}
	return true, nil
}

package domain

import (
	"fmt"
	"strings"
)

// Scope is a named dimension under which a currency balance is tracked
// separately, e.g. world=creative. The zero Scope is the global scope.
type Scope struct {
	Key   string
	Value string
}

var GlobalScope = Scope{}

func (s Scope) IsGlobal() bool {
	return s.Key == "" && s.Value == ""
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return s.Key + "|" + s.Value
}

func ParseScope(raw string) (Scope, error) {
	if raw == "" || raw == "global" {
		return GlobalScope, nil
	}
	key, value, found := strings.Cut(raw, "|")
	if !found || key == "" || value == "" {
		return Scope{}, fmt.Errorf("ParseScope: %q: %w", raw, ErrInvalidScope)
	}
	return Scope{Key: key, Value: value}, nil
}

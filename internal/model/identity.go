package model

import (
	"fmt"
	"strings"
)

// tokenSep joins the two identity components in the opaque token form.
// Both components are escaped first, so a literal "::" inside a path or a
// qualified name survives a round trip.
const tokenSep = "::"

// ExternalPath is the synthetic file path used for callees that resolve to
// nothing in the index (library calls, unindexed code). All unresolved calls
// to the same bare name share one external identity.
const ExternalPath = "."

// Identity uniquely names a function within an index snapshot.
type Identity struct {
	Path          string // file path, or ExternalPath for synthetic nodes
	QualifiedName string // scope-qualified name, segments joined with "."
}

// External returns the synthetic identity for an unresolved callee name.
func External(name string) Identity {
	return Identity{Path: ExternalPath, QualifiedName: name}
}

// Name returns the bare (unqualified) function name.
func (id Identity) Name() string {
	if i := strings.LastIndex(id.QualifiedName, "."); i >= 0 {
		return id.QualifiedName[i+1:]
	}
	return id.QualifiedName
}

// IsExternal reports whether the identity denotes an unindexed callee.
func (id Identity) IsExternal() bool {
	return id.Path == ExternalPath
}

// String renders the identity for logs and error messages.
func (id Identity) String() string {
	return id.Path + tokenSep + id.QualifiedName
}

// Token encodes the identity as a single opaque string suitable for URLs and
// storage keys. Escaping covers '%' and ':' so the separator can never occur
// inside an escaped component.
func (id Identity) Token() string {
	return escapeComponent(id.Path) + tokenSep + escapeComponent(id.QualifiedName)
}

// ParseToken is the inverse of Token. It fails on tokens that do not contain
// exactly one unescaped separator.
func ParseToken(token string) (Identity, error) {
	parts := strings.Split(token, tokenSep)
	if len(parts) != 2 {
		return Identity{}, fmt.Errorf("malformed identity token %q", token)
	}
	path, err := unescapeComponent(parts[0])
	if err != nil {
		return Identity{}, fmt.Errorf("identity token path: %w", err)
	}
	name, err := unescapeComponent(parts[1])
	if err != nil {
		return Identity{}, fmt.Errorf("identity token name: %w", err)
	}
	return Identity{Path: path, QualifiedName: name}, nil
}

func escapeComponent(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, ":", "%3A")
}

func unescapeComponent(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated escape in %q", s)
		}
		switch s[i+1 : i+3] {
		case "25":
			b.WriteByte('%')
		case "3A", "3a":
			b.WriteByte(':')
		default:
			return "", fmt.Errorf("unknown escape %%%s in %q", s[i+1:i+3], s)
		}
		i += 2
	}
	return b.String(), nil
}

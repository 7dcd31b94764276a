package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []Identity{
		{Path: "src/main.py", QualifiedName: "main"},
		{Path: "src/app/views.py", QualifiedName: "Handler.render"},
		{Path: "a::b/c.cpp", QualifiedName: "ns::Outer.run"},
		{Path: "weird%path/f.ts", QualifiedName: "x:y"},
		{Path: ".", QualifiedName: "printf"},
		{Path: "C:\\proj\\lib.c", QualifiedName: "init"},
	}
	for _, id := range cases {
		got, err := ParseToken(id.Token())
		require.NoError(t, err, "token %q", id.Token())
		assert.Equal(t, id, got)
	}
}

func TestParseTokenRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"", "noseparator", "a::b::c", "bad%zz::x", "trunc%2::x"} {
		_, err := ParseToken(tok)
		assert.Error(t, err, "token %q", tok)
	}
}

func TestBareName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "helper", Identity{Path: "a.py", QualifiedName: "helper"}.Name())
	assert.Equal(t, "render", Identity{Path: "a.py", QualifiedName: "Outer.Inner.render"}.Name())
}

func TestExternalIdentityCollapses(t *testing.T) {
	t.Parallel()

	a := External("printf")
	b := External("printf")
	assert.Equal(t, a, b)
	assert.True(t, a.IsExternal())
	assert.False(t, Identity{Path: "m.c", QualifiedName: "main"}.IsExternal())
}

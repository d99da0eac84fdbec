package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathElement_String(t *testing.T) {
	assert.Equal(t, "subsystem=web", NewElement("subsystem", "web").String())
	assert.Equal(t, "host=*", NewWildcardElement("host").String())
}

func TestPathAddress_AppendDoesNotAliasReceiver(t *testing.T) {
	base := NewAddress(NewWildcardElement("host"))

	a := base.Append(NewElement("subsystem", "web"))
	b := base.Append(NewElement("subsystem", "mail"))

	require.Equal(t, 2, a.Size())
	require.Equal(t, 2, b.Size())
	assert.Equal(t, "subsystem=web", a.Last().String())
	assert.Equal(t, "subsystem=mail", b.Last().String())
	assert.Equal(t, 1, base.Size())
}

func TestPathAddress_Concat(t *testing.T) {
	mount := NewAddress(NewWildcardElement("profile"))
	rel := NewAddress(NewElement("subsystem", "web"), NewElement("connector", "http"))

	full := mount.Concat(rel)

	require.Equal(t, 3, full.Size())
	assert.Equal(t, "/profile=*/subsystem=web/connector=http", full.String())
}

func TestPathAddress_Equals(t *testing.T) {
	a := NewAddress(NewElement("subsystem", "web"))
	b := NewAddress(NewElement("subsystem", "web"))
	c := NewAddress(NewElement("subsystem", "mail"))

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(EmptyAddress))
	assert.True(t, EmptyAddress.Equals(NewAddress()))
}

func TestPathAddress_EmptyString(t *testing.T) {
	assert.Equal(t, "/", EmptyAddress.String())
	assert.True(t, EmptyAddress.IsEmpty())
	assert.Equal(t, PathElement{}, EmptyAddress.Last())
}

func TestPathAddress_ElementsIsACopy(t *testing.T) {
	a := NewAddress(NewElement("subsystem", "web"))
	elems := a.Elements()
	elems[0] = NewElement("subsystem", "mail")
	assert.Equal(t, "subsystem=web", a.Element(0).String())
}

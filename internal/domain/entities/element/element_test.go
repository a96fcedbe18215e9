package element_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

func TestIsValidID(t *testing.T) {
	assert.True(t, element.IsValidID(element.RootID))
	assert.True(t, element.IsValidID("0123456789abcdef0123456789abcdef"))
	assert.False(t, element.IsValidID("0123456789ABCDEF0123456789abcdef"))
	assert.False(t, element.IsValidID("0123456789abcdef"))
	assert.False(t, element.IsValidID("0123456789abcdef0123456789abcdeg"))
	assert.False(t, element.IsValidID(""))

	err := element.CheckID("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, element.ErrInvalidID)
}

func TestTypeCapabilities(t *testing.T) {
	assert.True(t, element.TypePage.HasSlugs())
	assert.True(t, element.TypeSearch.HasSlugs())
	assert.False(t, element.TypeCollection.HasSlugs())
	assert.False(t, element.TypeSnippet.IsContainer())
	assert.True(t, element.TypeRoot.IsContainer())
	assert.False(t, element.Type("folder").IsValid())
}

func TestNewestVersionAndClone(t *testing.T) {
	e := element.New("0123456789abcdef0123456789abcdef", element.TypePage, element.RootID, "page.standard")
	e.Versions[2] = &element.ElementVersion{
		Version:  2,
		State:    element.StateEditing,
		Children: []string{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		Contents: map[string]*element.ElementContents{
			"en": {Fields: map[string]string{"title": "Hello"}},
		},
	}

	assert.Equal(t, 2, e.NewestVersionNumber())
	assert.Equal(t, []int{1, 2}, e.VersionNumbers())

	c := e.Clone()
	c.Versions[2].Children[0] = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	c.Versions[2].Contents["en"].Fields["title"] = "Changed"
	delete(c.Versions, 1)

	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", e.Versions[2].Children[0])
	assert.Equal(t, "Hello", e.Versions[2].Contents["en"].Fields["title"])
	assert.Len(t, e.Versions, 2)
}

func TestIsDeleted(t *testing.T) {
	e := element.New("0123456789abcdef0123456789abcdef", element.TypePage, "", "")
	assert.False(t, e.IsDeleted())
	e.Versions[1].State = element.StateDeleted
	assert.True(t, e.IsDeleted())
}

func TestSlugValidate(t *testing.T) {
	valid := []element.Slug{
		{URL: "home", Language: "en"},
		{URL: "/", Language: "en"},
		{URL: "/About-Us", Language: "en"},
		{URL: "../x", Language: "de"},
		{URL: "./a/b", Language: "pt-br"},
	}
	for _, s := range valid {
		assert.NoError(t, s.Validate(), s.URL)
	}

	invalid := []element.Slug{
		{URL: "", Language: "en"},
		{URL: "home", Language: "EN"},
		{URL: "home", Language: ""},
		{URL: "a//b", Language: "en"},
		{URL: "a b", Language: "en"},
		{URL: "a/", Language: "en"},
		{URL: "a/../b", Language: "en"},
		{URL: "../", Language: "en"},
		{URL: "a?b", Language: "en"},
	}
	for _, s := range invalid {
		assert.Error(t, s.Validate(), s.URL)
	}
}

func TestMergeSlugsDeprecatesOmitted(t *testing.T) {
	previous := []element.Slug{
		{URL: "old", Language: "en", Default: true},
		{URL: "keep", Language: "de", Default: true},
	}
	next := []element.Slug{
		{URL: "new", Language: "en", Default: true},
		{URL: "keep", Language: "de", Default: true},
	}

	merged := element.MergeSlugs(previous, next)
	require.Len(t, merged, 3)
	assert.Equal(t, element.Slug{URL: "old", Language: "en", Deprecated: true}, merged[0])
	assert.Equal(t, next[1], merged[1])
	assert.Equal(t, next[0], merged[2])

	again := element.MergeSlugs(merged, []element.Slug{{URL: "newer", Language: "en", Default: true}})
	assert.GreaterOrEqual(t, len(again), len(merged))
}

func TestContentsPaths(t *testing.T) {
	c := &element.ElementContents{}
	require.NoError(t, c.Set(element.ContentPath{"title"}, "Hi"))

	c.InsertSub("gallery", -1, &element.ElementContents{Fields: map[string]string{"caption": "one"}})
	idx := c.InsertSub("gallery", 0, &element.ElementContents{})
	assert.Equal(t, 0, idx)

	require.NoError(t, c.Set(element.ContentPath{"gallery", "0", "caption"}, "zero"))
	v, ok := c.Lookup(element.ContentPath{"gallery", "1", "caption"})
	assert.True(t, ok)
	assert.Equal(t, "one", v)

	_, ok = c.Lookup(element.ContentPath{"gallery", "5", "caption"})
	assert.False(t, ok)

	assert.ErrorIs(t, c.Set(element.ContentPath{"gallery", "0"}, "x"), element.ErrBadPath)

	require.NoError(t, c.RemoveSub("gallery", 0))
	require.NoError(t, c.RemoveSub("gallery", 0))
	assert.NotContains(t, c.SubElements, "gallery")
}

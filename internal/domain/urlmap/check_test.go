package urlmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
)

func TestCheckSlugsTakenUnlessOwnedByCaller(t *testing.T) {
	tr, ids := sampleTree(t)
	c := tr.cache(nil)

	proposed := map[string]element.Slug{"k": en("home")}

	res, err := c.CheckSlugs(element.RootID, proposed, "")
	require.NoError(t, err)
	assert.Equal(t, urlmap.SlugTaken, res["k"].Status)
	assert.Equal(t, []string{"/home"}, res["k"].URLs)

	res, err = c.CheckSlugs(element.RootID, proposed, ids["home"])
	require.NoError(t, err)
	assert.Equal(t, urlmap.SlugGood, res["k"].Status)
}

func TestCheckSlugsResolvesBelowParent(t *testing.T) {
	tr, ids := sampleTree(t)
	c := tr.cache(nil)

	res, err := c.CheckSlugs(ids["about"], map[string]element.Slug{
		"free":  en("history"),
		"taken": en("team"),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, urlmap.SlugGood, res["free"].Status)
	assert.Equal(t, []string{"/home/about/history"}, res["free"].URLs)
	assert.Equal(t, urlmap.SlugTaken, res["taken"].Status)
}

func TestCheckSlugsDuplicateAndInvalid(t *testing.T) {
	tr, _ := sampleTree(t)
	c := tr.cache(nil)

	res, err := c.CheckSlugs(element.RootID, map[string]element.Slug{
		"a": en("fresh"),
		"b": {URL: "Fresh", Language: "en"},
		"c": {URL: "a b", Language: "en"},
		"d": {URL: "fresh", Language: "de"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, urlmap.SlugGood, res["a"].Status)
	assert.Equal(t, urlmap.SlugDuplicate, res["b"].Status)
	assert.Equal(t, urlmap.SlugInvalid, res["c"].Status)
	assert.Equal(t, urlmap.SlugGood, res["d"].Status)
}

func TestCheckSlugsIgnoresDeprecatedOwner(t *testing.T) {
	tr, ids := sampleTree(t)
	c := tr.cache(nil)

	tr.update(ids["search"], func(e *element.Element) {
		v := e.NewestVersion()
		v.Slugs = element.MergeSlugs(v.Slugs, []element.Slug{en("/find")})
	})
	require.NoError(t, c.UpdateUrlMappingFor([]string{ids["search"]}))

	res, err := c.CheckSlugs(element.RootID, map[string]element.Slug{"k": en("/search")}, "")
	require.NoError(t, err)
	assert.Equal(t, urlmap.SlugGood, res["k"].Status)
}

func TestCheckSlugsRejectsMalformedParent(t *testing.T) {
	tr, _ := sampleTree(t)
	c := tr.cache(nil)

	_, err := c.CheckSlugs("nope", map[string]element.Slug{"k": en("x")}, "")
	assert.ErrorIs(t, err, element.ErrInvalidID)
}

package urlmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
)

func claim(url string, deprecated bool) urlmap.Claim {
	return urlmap.Claim{Slug: en(url), Default: !deprecated, Deprecated: deprecated}
}

func TestAssembleRejectsTwoLiveClaimants(t *testing.T) {
	perUrl := urlmap.PerUrlSlugs{
		"/dup": {
			id(1): {claim("/dup", false)},
			id(2): {claim("/dup", false)},
		},
	}
	_, err := urlmap.AssembleInvertedUrlMapping(perUrl, quiet)
	require.Error(t, err)
	assert.True(t, urlmap.IsCorruption(err))
}

func TestAssembleLiveClaimantBeatsDeprecated(t *testing.T) {
	perUrl := urlmap.PerUrlSlugs{
		"/dup": {
			id(1): {claim("/dup", true)},
			id(2): {claim("/dup", false)},
		},
	}
	m, err := urlmap.AssembleInvertedUrlMapping(perUrl, quiet)
	require.NoError(t, err)
	assert.Equal(t, element.UrlPointer{URL: "/dup", Languages: []string{"en"}, Default: true, ElementID: id(2)}, m["/dup"])
}

func TestAssembleDropsContestedDeprecatedURL(t *testing.T) {
	perUrl := urlmap.PerUrlSlugs{
		"/old": {
			id(1): {claim("/old", true)},
			id(2): {claim("/old", true)},
		},
		"/kept": {
			id(3): {claim("/kept", true)},
		},
	}
	m, err := urlmap.AssembleInvertedUrlMapping(perUrl, quiet)
	require.NoError(t, err)
	assert.NotContains(t, m, "/old")
	assert.Equal(t, element.UrlPointer{URL: "/kept", Languages: []string{"en"}, Deprecated: true, ElementID: id(3)}, m["/kept"])
}

func TestAssembleMergesLanguagesOfOneElement(t *testing.T) {
	perUrl := urlmap.PerUrlSlugs{
		"/shared": {
			id(1): {
				{Slug: element.Slug{URL: "/shared", Language: "en"}, Default: true},
				{Slug: element.Slug{URL: "/shared", Language: "de"}},
				{Slug: element.Slug{URL: "/shared", Language: "fr"}, Default: true},
			},
		},
		"/plain": {
			id(2): {
				{Slug: element.Slug{URL: "/plain", Language: "en"}},
				{Slug: element.Slug{URL: "/plain", Language: "de"}},
			},
		},
	}
	m, err := urlmap.AssembleInvertedUrlMapping(perUrl, quiet)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr"}, m["/shared"].Languages)
	assert.True(t, m["/shared"].Default)
	assert.Equal(t, []string{"de", "en"}, m["/plain"].Languages)
	assert.False(t, m["/plain"].Default)
}

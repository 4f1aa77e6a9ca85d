package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "spider silk", NormalizeQuery("  spider \t\n silk "))
	assert.Equal(t, "ab", NormalizeQuery("a\u200bb"))
	// NFKC faltet Kompatibilitätszeichen
	assert.Equal(t, "fi", NormalizeQuery("\ufb01"))
	assert.Equal(t, "", NormalizeQuery(" \x00 "))
}

func TestSafeToken(t *testing.T) {
	assert.Equal(t, "mechanics", safeToken("silk mechanics"))
	assert.Equal(t, "beta-sheet", safeToken("(beta-sheet)"))
	assert.Equal(t, "coli", safeToken("E. coli"))
	assert.Equal(t, "", safeToken("%%% ***"))
	assert.Equal(t, "silk", safeToken("'silk'"))
}

func TestBuildTextClause(t *testing.T) {
	clause, ok := buildTextClause("   ", LevelCombined)
	assert.True(t, ok)
	assert.Nil(t, clause)

	clause, ok = buildTextClause("spider  silk", LevelPerArray)
	assert.True(t, ok)
	assert.Equal(t, &TextClause{Level: LevelPerArray, Term: "spider silk"}, clause)

	clause, ok = buildTextClause("spider  silk!", LevelScalarOnly)
	assert.True(t, ok)
	assert.Equal(t, &TextClause{Level: LevelScalarOnly, Term: "spider"}, clause)

	_, ok = buildTextClause("silk", LevelUnsearchable)
	assert.False(t, ok)

	_, ok = buildTextClause("%_%", LevelCombined)
	assert.False(t, ok)
}

func TestMatchesText(t *testing.T) {
	scalars := []string{"Dragline Silk", ""}
	facets := [][]string{{"Medical sutures"}, nil}
	assert.True(t, MatchesText(scalars, facets, "silk"))
	assert.True(t, MatchesText(scalars, facets, "SUTURES"))
	assert.False(t, MatchesText(scalars, nil, "sutures"))
	assert.True(t, MatchesText(nil, nil, " "))
}

func TestOverlapsFold(t *testing.T) {
	assert.True(t, OverlapsFold([]string{"Spider Silk"}, []string{"spider silk"}))
	assert.False(t, OverlapsFold([]string{"Resilin"}, []string{"spider silk"}))
	assert.False(t, Overlaps([]string{"Spider Silk"}, []string{"spider silk"}))
}

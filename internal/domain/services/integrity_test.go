package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

const (
	pageA   = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	pageB   = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	pageC   = "cccccccccccccccccccccccccccccccc"
	ghost   = "dddddddddddddddddddddddddddddddd"
	fileOne = "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
)

func tree() map[string]*element.Element {
	root := element.New(element.RootID, element.TypeRoot, "", "root")
	root.Versions[1].Children = []string{pageA}

	a := element.New(pageA, element.TypePage, element.RootID, "page")
	a.Versions[1].References = map[string]string{"hero": fileOne}

	return map[string]*element.Element{element.RootID: root, pageA: a}
}

func TestAnalyzeCleanTree(t *testing.T) {
	s := NewIntegrityService()
	report := s.Analyze(tree(), func(id string) bool { return id == fileOne })
	assert.True(t, report.IsClean(), report)
	assert.Equal(t, 2, report.Elements)
}

func TestAnalyzeFindsProblems(t *testing.T) {
	els := tree()
	els[element.RootID].Versions[1].Children = append(els[element.RootID].Versions[1].Children, ghost)
	els[pageB] = element.New(pageB, element.TypePage, element.RootID, "page")
	els[pageC] = element.New(pageC, element.TypePage, ghost, "page")

	report := NewIntegrityService().Analyze(els, nil)

	assert.False(t, report.IsClean())
	assert.Equal(t, []string{pageB}, report.Orphans)
	assert.Equal(t, map[string]string{pageC: ghost}, report.MissingParents)
	assert.Equal(t, map[string][]string{element.RootID: {ghost}}, report.DanglingChildren)
	assert.Equal(t, map[string][]string{pageA: {"hero"}}, report.DanglingReferences)
	assert.Equal(t, []string{pageB, pageC}, report.Unreachable)
}

func TestAnalyzeIgnoresDeletedUnreachable(t *testing.T) {
	els := tree()
	gone := element.New(pageB, element.TypePage, element.RootID, "page")
	gone.Versions[1].State = element.StateDeleted
	els[pageB] = gone

	report := NewIntegrityService().Analyze(els, func(string) bool { return true })
	assert.Empty(t, report.Unreachable)
	assert.Equal(t, []string{pageB}, report.Orphans)
}

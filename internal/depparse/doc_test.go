package depparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// "the user clicks the save button"
func sampleDoc() *Doc {
	return &Doc{Tokens: []Token{
		{Index: 0, Text: "the", Dep: "det", Head: 1},
		{Index: 1, Text: "user", Dep: "nsubj", Head: 2},
		{Index: 2, Text: "clicks", Dep: "ROOT", Head: 2, POS: "VERB"},
		{Index: 3, Text: "the", Dep: "det", Head: 5},
		{Index: 4, Text: "save", Dep: "compound", Head: 5},
		{Index: 5, Text: "button", Dep: "dobj", Head: 2},
	}}
}

func TestDoc_Root(t *testing.T) {
	root, ok := sampleDoc().Root()
	assert.True(t, ok)
	assert.Equal(t, "clicks", root.Text)

	_, ok = (&Doc{}).Root()
	assert.False(t, ok)
}

func TestDoc_Children(t *testing.T) {
	kids := sampleDoc().Children(2)
	assert.Len(t, kids, 2)
	assert.Equal(t, "user", kids[0].Text)
	assert.Equal(t, "button", kids[1].Text)
}

func TestDoc_Subtree(t *testing.T) {
	assert.Equal(t, "the save button", JoinText(sampleDoc().Subtree(5)))
	assert.Equal(t, "the user clicks the save button", JoinText(sampleDoc().Subtree(2)))
}

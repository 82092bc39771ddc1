// Package depparse talks to a dependency-parsing service and models its
// output as a token tree.
package depparse

import "strings"

// Token is one word of a parsed sentence. Head is the index of the
// governing token; the root points at itself.
type Token struct {
	Index int               `json:"i"`
	Text  string            `json:"text"`
	Lemma string            `json:"lemma"`
	POS   string            `json:"pos"` // Universal POS tag (VERB, NOUN...)
	Tag   string            `json:"tag"` // Fine-grained tag (VB, VBD...)
	Dep   string            `json:"dep"` // Dependency label (nsubj, dobj, ROOT...)
	Head  int               `json:"head"`
	Morph map[string]string `json:"morph,omitempty"`
}

// Entity is a named entity span
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Doc is a parsed text
type Doc struct {
	Text   string   `json:"text"`
	Tokens []Token  `json:"tokens"`
	Ents   []Entity `json:"ents"`
}

// Children returns the direct dependents of token i in sentence order
func (d *Doc) Children(i int) []Token {
	var out []Token
	for _, t := range d.Tokens {
		if t.Head == i && t.Index != i {
			out = append(out, t)
		}
	}
	return out
}

// Root returns the first token labelled ROOT
func (d *Doc) Root() (Token, bool) {
	for _, t := range d.Tokens {
		if t.Dep == "ROOT" {
			return t, true
		}
	}
	return Token{}, false
}

// Subtree returns token i and all its descendants in sentence order
func (d *Doc) Subtree(i int) []Token {
	in := map[int]bool{i: true}
	// Heads can follow dependents, so repeat until stable
	for changed := true; changed; {
		changed = false
		for _, t := range d.Tokens {
			if !in[t.Index] && t.Index != t.Head && in[t.Head] {
				in[t.Index] = true
				changed = true
			}
		}
	}

	var out []Token
	for _, t := range d.Tokens {
		if in[t.Index] {
			out = append(out, t)
		}
	}
	return out
}

// Token returns the token at index i
func (d *Doc) Token(i int) (Token, bool) {
	for _, t := range d.Tokens {
		if t.Index == i {
			return t, true
		}
	}
	return Token{}, false
}

// JoinText joins token texts with single spaces
func JoinText(tokens []Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

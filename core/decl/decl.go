// Package decl parses the head of a Lean declaration. The renderer uses
// it to derive anchor ids and table-of-contents entries from the first
// code line of a definition or lemma block.
package decl

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/Lectern/core/errors"
)

// Decl is the parsed head of a declaration.
type Decl struct {
	// Keyword is the declaring keyword ("lemma", "theorem", "def", ...).
	Keyword string
	// Name is the declared name; empty for anonymous declarations such
	// as "example".
	Name string
}

// declGrammar is the participle grammar for a declaration head line.
// Examples: "lemma add_comm' (a b : ℕ) : a + b = b + a :=",
// "noncomputable def abs (x : ℝ) : ℝ :=", "example : 1 = 1 :=".
//
//nolint:govet // participle grammar tags are not standard struct tags
type declGrammar struct {
	Modifiers []string `( @("private" | "protected" | "noncomputable" | "meta") )*`
	Keyword   string   `@("lemma" | "theorem" | "def" | "definition" | "example" | "abbreviation" | "constant" | "axiom" | "instance" | "structure" | "inductive")`
	Name      string   `@Ident?`
	Rest      []string `( @Ident | @Punct )*`
}

// declLexer tokenizes a declaration line. Ident is permissive on
// purpose: Lean names may carry unicode subscripts and primes.
var declLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Punct", Pattern: `[():{}\[\],:]`},
	{Name: "Ident", Pattern: `[^\s():{}\[\],:]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var declParser = participle.MustBuild[declGrammar](
	participle.Lexer(declLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a single declaration head line.
func Parse(line string) (*Decl, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, errors.NewParse("declaration", "", "empty line")
	}
	parsed, err := declParser.ParseString("", line)
	if err != nil {
		return nil, errors.NewParse("declaration", "", err.Error())
	}
	return &Decl{
		Keyword: parsed.Keyword,
		Name:    parsed.Name,
	}, nil
}

// First parses the first non-blank line of a Lean code buffer.
func First(lean string) (*Decl, error) {
	for _, line := range strings.Split(lean, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return Parse(line)
	}
	return nil, errors.NewParse("declaration", "", "no code lines")
}

// Slug returns an HTML-safe anchor id for the declaration.
func (d *Decl) Slug() string {
	name := strings.ReplaceAll(d.Name, "'", "")
	name = strings.ReplaceAll(name, ".", "-")
	if name == "" {
		return d.Keyword
	}
	return d.Keyword + "-" + name
}

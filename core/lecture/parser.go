// Package lecture parses annotated Lean source files into a sequence of
// document nodes. The input interleaves prose annotations with ordinary
// Lean code; proofs are enriched with the tactic state reported by a
// verifier before and after every tactic line.
//
// The parser is a Mealy-style state machine driven line by line: every
// line is first offered to the matcher rules (see rules.go); if no rule
// accepts, the line is consumed according to the current mode, always
// targeting the most recently appended node. Parsing is fully
// sequential; the only blocking point is the verifier query.
package lecture

import (
	"bufio"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/Lectern/core/document"
	"github.com/FocuswithJustin/Lectern/core/errors"
)

// StateQuerier answers point queries for the verifier state at a source
// position. Implementations must be synchronous: Info returns only once
// the verifier has answered. A failure must be reported as an error, not
// as an empty state, because an empty state is a legitimate answer.
type StateQuerier interface {
	Info(file string, line, column int) (string, error)
}

// Parser drives the scan over one source file.
type Parser struct {
	path    string
	server  StateQuerier
	rules   []rule
	mode    Mode
	output  []document.Node
	lineNum int // 1-based, incremented before each line is handled
}

// New returns a parser for the named source file. The path is used both
// for error reports and as the file identity in verifier queries.
func New(path string, server StateQuerier) *Parser {
	return &Parser{
		path:   path,
		server: server,
		rules:  defaultRules(),
		mode:   ModeDefault,
	}
}

// ParseFile parses the file at path using the given verifier client.
func ParseFile(path string, server StateQuerier) ([]document.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	return New(path, server).Parse(f)
}

// Parse reads the input to the end and returns the document nodes in
// source order. Any structural error or verifier failure aborts the
// whole parse; there is no partial-document recovery.
func (p *Parser) Parse(r io.Reader) ([]document.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		p.lineNum++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if err := p.handleLine(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIO("read", p.path, err)
	}

	if p.mode != ModeDefault {
		return nil, errors.NewStructural(p.path, p.lineNum, expectedCloser(p.mode),
			"input ended inside "+p.mode.String()+" block")
	}
	return p.output, nil
}

// handleLine runs the per-line algorithm: blank-line handling first,
// then the matcher rules in registration order, then mode-driven
// consumption for lines no rule accepted.
func (p *Parser) handleLine(line string) error {
	if strings.TrimSpace(line) == "" {
		p.consumeBlank()
		return nil
	}
	for _, r := range p.rules {
		m := r.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		accepted, err := r.apply(p, m)
		if err != nil {
			return err
		}
		if accepted {
			return nil
		}
	}
	return p.consumeNormal(line)
}

// reset returns the machine to the idle state.
func (p *Parser) reset() {
	p.mode = ModeDefault
}

// append adds a node to the output sequence and makes it the target of
// subsequent consumption.
func (p *Parser) append(n document.Node) {
	p.output = append(p.output, n)
}

// last returns the most recently appended node, or nil.
func (p *Parser) last() document.Node {
	if len(p.output) == 0 {
		return nil
	}
	return p.output[len(p.output)-1]
}

// lastLemma returns the most recently appended node if it is a lemma.
func (p *Parser) lastLemma() (*document.Lemma, bool) {
	lemma, ok := p.last().(*document.Lemma)
	return lemma, ok
}

// consumeBlank handles a syntactically blank line for the current mode.
func (p *Parser) consumeBlank() {
	switch p.mode {
	case ModeText:
		// Blank lines separate paragraphs inside prose blocks.
		if text, ok := p.last().(*document.Text); ok {
			text.NewParagraph()
		}
	case ModeDefinitionLean:
		// A blank line terminates the code attached to a definition.
		p.reset()
	}
}

// consumeNormal handles a non-blank line no rule accepted. Consumption
// is a function of (mode, most recently appended node, line); buffers
// receive the line with a normalized terminator appended so their
// content round-trips line for line.
func (p *Parser) consumeNormal(line string) error {
	switch p.mode {
	case ModeText:
		if text, ok := p.last().(*document.Text); ok {
			text.LastParagraph().Append(line + "\n")
		}
	case ModeSection:
		if sec, ok := p.last().(*document.Section); ok {
			sec.AppendTitle(line + "\n")
		}
	case ModeSubSection:
		if sec, ok := p.last().(*document.SubSection); ok {
			sec.AppendTitle(line + "\n")
		}
	case ModeDefinitionText:
		if def, ok := p.last().(*document.Definition); ok {
			def.AppendText(line + "\n")
		}
	case ModeDefinitionLean:
		if def, ok := p.last().(*document.Definition); ok {
			def.AppendLean(line + "\n")
		}
	case ModeLemmaText:
		if lemma, ok := p.lastLemma(); ok {
			lemma.AppendText(line + "\n")
		}
	case ModeLemmaLean:
		if lemma, ok := p.lastLemma(); ok {
			lemma.AppendLean(line + "\n")
		}
	case ModeProofComment:
		p.mode = ModeProof
		return p.consumeTactic(line)
	case ModeProof:
		// Tactic lines between step comments extend the current step.
		// Lines before the first comment are discarded: a proof must
		// not start with a bare step.
		if lemma, ok := p.lastLemma(); ok && len(lemma.Proof.Items) > 0 {
			return p.consumeTactic(line)
		}
	default:
		// ModeDefault and ModeHeader drop the line.
	}
	return nil
}

// consumeTactic records one tactic line on the current proof step,
// querying the verifier for the state entering the line (column 1) and
// the state after consuming it (column = number of characters on the
// line; the verifier counts characters, not bytes). A query failure is
// fatal to the parse.
func (p *Parser) consumeTactic(line string) error {
	lemma, ok := p.lastLemma()
	if !ok || len(lemma.Proof.Items) == 0 {
		return errors.NewStructural(p.path, p.lineNum, "", "tactic line outside a lemma proof")
	}

	left, err := p.server.Info(p.path, p.lineNum, 1)
	if err != nil {
		return errors.NewQuery(p.path, p.lineNum, 1, err)
	}
	endCol := utf8.RuneCountInString(line)
	right, err := p.server.Info(p.path, p.lineNum, endCol)
	if err != nil {
		return errors.NewQuery(p.path, p.lineNum, endCol, err)
	}

	lemma.Proof.LastItem().AppendLine(&document.ProofLine{
		Lean:             line,
		TacticStateLeft:  left,
		TacticStateRight: right,
	})
	return nil
}

package lecture

import (
	"regexp"

	"github.com/FocuswithJustin/Lectern/core/document"
	"github.com/FocuswithJustin/Lectern/core/errors"
)

// rule pairs a line pattern with a guarded transition. A rule whose
// guard does not accept the current mode declines by returning false,
// so the engine can try the next rule or fall back to plain line
// consumption. That is what lets the shared "-/" closer serve several
// block kinds.
type rule struct {
	name    string
	pattern *regexp.Regexp
	apply   func(p *Parser, m []string) (bool, error)
}

var (
	reHeaderBegin  = regexp.MustCompile(`^\s*-- begin header\s*$`)
	reHeaderEnd    = regexp.MustCompile(`^\s*-- end header\s*$`)
	reSectionBegin = regexp.MustCompile(`^\s*/-\s*Section\s*$`)
	reSubSecBegin  = regexp.MustCompile(`^\s*/-\s*Sub-section\s*$`)
	reTextBegin    = regexp.MustCompile(`^\s*/-\s*$`)
	reBlockClose   = regexp.MustCompile(`^\s*-/\s*$`)
	reDefBegin     = regexp.MustCompile(`^\s*/-\s*Definition\s*$`)
	reLemmaBegin   = regexp.MustCompile(`^\s*/-\s*Lemma\s*$`)
	reProofBegin   = regexp.MustCompile(`^begin\s*$`)
	reProofEnd     = regexp.MustCompile(`^end\s*$`)
	reProofComment = regexp.MustCompile(`^[\s{]*-- (.*)$`)
)

// defaultRules returns the matcher rules in registration order. Order
// matters for overlapping patterns: the keyworded block openers are
// registered before the bare prose opener, and the proof comment rule
// comes last so marker comments keep their meaning inside proofs.
func defaultRules() []rule {
	return []rule{
		{name: "header-begin", pattern: reHeaderBegin, apply: headerBegin},
		{name: "header-end", pattern: reHeaderEnd, apply: headerEnd},
		{name: "section-begin", pattern: reSectionBegin, apply: sectionBegin},
		{name: "subsection-begin", pattern: reSubSecBegin, apply: subSectionBegin},
		{name: "text-begin", pattern: reTextBegin, apply: textBegin},
		{name: "block-close", pattern: reBlockClose, apply: blockClose},
		{name: "definition-begin", pattern: reDefBegin, apply: definitionBegin},
		{name: "lemma-begin", pattern: reLemmaBegin, apply: lemmaBegin},
		{name: "proof-begin", pattern: reProofBegin, apply: proofBegin},
		{name: "proof-end", pattern: reProofEnd, apply: proofEnd},
		{name: "proof-comment", pattern: reProofComment, apply: proofComment},
	}
}

func headerBegin(p *Parser, _ []string) (bool, error) {
	p.mode = ModeHeader
	return true, nil
}

func headerEnd(p *Parser, _ []string) (bool, error) {
	if p.mode != ModeHeader {
		return false, nil
	}
	p.reset()
	return true, nil
}

func sectionBegin(p *Parser, _ []string) (bool, error) {
	p.append(&document.Section{})
	p.mode = ModeSection
	return true, nil
}

func subSectionBegin(p *Parser, _ []string) (bool, error) {
	p.append(&document.SubSection{})
	p.mode = ModeSubSection
	return true, nil
}

func textBegin(p *Parser, _ []string) (bool, error) {
	text := &document.Text{}
	text.NewParagraph()
	p.append(text)
	p.mode = ModeText
	return true, nil
}

// blockClose dispatches the shared "-/" closer on the mode that opened
// the block. In the idle state a closer has nothing to close and is a
// structural error rather than a silently dropped line. In the header
// and code-reading modes the marker is left to plain consumption, since
// those regions hold raw Lean.
func blockClose(p *Parser, _ []string) (bool, error) {
	switch p.mode {
	case ModeText, ModeSection, ModeSubSection:
		p.reset()
		return true, nil
	case ModeDefinitionText:
		p.mode = ModeDefinitionLean
		return true, nil
	case ModeLemmaText:
		p.mode = ModeLemmaLean
		return true, nil
	case ModeDefault:
		return false, errors.NewStructural(p.path, p.lineNum, "", "closing marker without open block")
	default:
		return false, nil
	}
}

func definitionBegin(p *Parser, _ []string) (bool, error) {
	p.append(&document.Definition{})
	p.mode = ModeDefinitionText
	return true, nil
}

func lemmaBegin(p *Parser, _ []string) (bool, error) {
	p.append(document.NewLemma())
	p.mode = ModeLemmaText
	return true, nil
}

func proofBegin(p *Parser, _ []string) (bool, error) {
	// A proof must not start with a bare tactic line: lines before the
	// first step comment are discarded by ModeProof consumption.
	p.mode = ModeProof
	return true, nil
}

func proofEnd(p *Parser, _ []string) (bool, error) {
	if p.mode != ModeProof {
		return false, nil
	}
	p.reset()
	return true, nil
}

func proofComment(p *Parser, m []string) (bool, error) {
	var item *document.ProofItem
	switch p.mode {
	case ModeProof:
		lemma, ok := p.lastLemma()
		if !ok {
			return false, errors.NewStructural(p.path, p.lineNum, "", "proof step comment outside a lemma proof")
		}
		item = &document.ProofItem{}
		lemma.Proof.AppendItem(item)
		p.mode = ModeProofComment
	case ModeProofComment:
		lemma, ok := p.lastLemma()
		if !ok || len(lemma.Proof.Items) == 0 {
			return false, errors.NewStructural(p.path, p.lineNum, "", "proof step comment outside a lemma proof")
		}
		item = lemma.Proof.LastItem()
	default:
		return false, nil
	}
	item.AppendText(m[1])
	return true, nil
}

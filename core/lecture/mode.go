package lecture

// Mode is the parser's current expectation of what kind of content
// follows. It determines how non-marker lines are consumed and which
// close rules are allowed to fire.
type Mode int

const (
	// ModeDefault is the idle state between blocks. Unrecognized lines
	// are dropped here: they belong to the wrapped Lean source and have
	// no document-level meaning.
	ModeDefault Mode = iota
	// ModeHeader is inside a "-- begin header" region; content is discarded.
	ModeHeader
	// ModeText is inside a prose block.
	ModeText
	// ModeSection is inside a section title block.
	ModeSection
	// ModeSubSection is inside a sub-section title block.
	ModeSubSection
	// ModeDefinitionText is inside the commentary of a definition block.
	ModeDefinitionText
	// ModeDefinitionLean is reading the code lines following a definition.
	ModeDefinitionLean
	// ModeLemmaText is inside the commentary of a lemma block.
	ModeLemmaText
	// ModeLemmaLean is reading the statement lines following a lemma.
	ModeLemmaLean
	// ModeProof is inside a proof block, before or between annotated steps.
	ModeProof
	// ModeProofComment is inside a proof block, right after a step comment;
	// the next non-comment line is a tactic line attributed to that step.
	ModeProofComment
)

func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeHeader:
		return "header"
	case ModeText:
		return "text"
	case ModeSection:
		return "section"
	case ModeSubSection:
		return "subsection"
	case ModeDefinitionText:
		return "definition-text"
	case ModeDefinitionLean:
		return "definition-lean"
	case ModeLemmaText:
		return "lemma-text"
	case ModeLemmaLean:
		return "lemma-lean"
	case ModeProof:
		return "proof"
	case ModeProofComment:
		return "proof-comment"
	default:
		return "unknown"
	}
}

// expectedCloser names the input that would legally leave the mode.
// Used in structural error reports when input ends with a block open.
func expectedCloser(m Mode) string {
	switch m {
	case ModeHeader:
		return "-- end header"
	case ModeText, ModeSection, ModeSubSection, ModeDefinitionText, ModeLemmaText:
		return "-/"
	case ModeDefinitionLean:
		return "blank line"
	case ModeLemmaLean:
		return "begin"
	case ModeProof, ModeProofComment:
		return "end"
	default:
		return ""
	}
}

// Package document defines the node types a parsed lecture is made of.
// Nodes are pure data containers: the only mutation is appending, either
// to an accumulating text buffer or to an ordered child sequence, and the
// parser always targets the most recently appended node.
package document

// Node is implemented by every top-level lecture node.
type Node interface {
	// Kind returns the node's type tag ("text", "section", "lemma", ...)
	// used by renderers to pick a template.
	Kind() string
}

// Paragraph is one prose chunk inside a Text node.
type Paragraph struct {
	Content string `json:"content"`
}

// Append concatenates a line onto the paragraph.
func (p *Paragraph) Append(line string) {
	p.Content += line
}

// Text is a prose block: an ordered sequence of paragraphs.
// Blank lines in the source start a new paragraph; the last paragraph is
// always the active append target.
type Text struct {
	Paragraphs []*Paragraph `json:"paragraphs"`
}

func (t *Text) Kind() string { return "text" }

// LastParagraph returns the active append target.
func (t *Text) LastParagraph() *Paragraph {
	return t.Paragraphs[len(t.Paragraphs)-1]
}

// NewParagraph appends a fresh empty paragraph and makes it the target.
func (t *Text) NewParagraph() {
	t.Paragraphs = append(t.Paragraphs, &Paragraph{})
}

// Section is a top-level sectioning marker with an accumulating title.
type Section struct {
	Title string `json:"title"`
}

func (s *Section) Kind() string { return "section" }

// AppendTitle concatenates a line onto the section title.
func (s *Section) AppendTitle(line string) {
	s.Title += line
}

// SubSection is a second-level sectioning marker. It is a distinct node
// kind, not a specialization of Section, so renderers can tell them apart.
type SubSection struct {
	Title string `json:"title"`
}

func (s *SubSection) Kind() string { return "subsection" }

// AppendTitle concatenates a line onto the sub-section title.
func (s *SubSection) AppendTitle(line string) {
	s.Title += line
}

// Definition pairs commentary with the Lean code it explains. The Text
// buffer is filled while the annotation block is open, the Lean buffer
// after it closes, until a blank line ends the code.
type Definition struct {
	Text string `json:"text"`
	Lean string `json:"lean"`
}

func (d *Definition) Kind() string { return "definition" }

// AppendText concatenates a line onto the commentary buffer.
func (d *Definition) AppendText(line string) {
	d.Text += line
}

// AppendLean concatenates a line onto the code buffer.
func (d *Definition) AppendLean(line string) {
	d.Lean += line
}

// ProofLine is one tactic line together with the verifier-reported state
// before the line (queried at column 1) and after it (queried at the
// column equal to the number of characters on the line). It is never
// mutated once recorded.
type ProofLine struct {
	Lean             string `json:"lean"`
	TacticStateLeft  string `json:"tactic_state_left"`
	TacticStateRight string `json:"tactic_state_right"`
}

// ProofItem is one annotated proof step: the comment text introducing it
// and the tactic lines attributed to it, in source order.
type ProofItem struct {
	Text  string       `json:"text"`
	Lines []*ProofLine `json:"lines"`
}

// AppendText concatenates captured comment text onto the step.
func (i *ProofItem) AppendText(text string) {
	i.Text += text
}

// AppendLine records a tactic line for this step.
func (i *ProofItem) AppendLine(line *ProofLine) {
	i.Lines = append(i.Lines, line)
}

// Proof owns the ordered sequence of annotated steps of a lemma.
type Proof struct {
	Items []*ProofItem `json:"items"`
}

// AppendItem adds a new step to the proof.
func (p *Proof) AppendItem(item *ProofItem) {
	p.Items = append(p.Items, item)
}

// LastItem returns the most recently appended step.
func (p *Proof) LastItem() *ProofItem {
	return p.Items[len(p.Items)-1]
}

// Lemma pairs commentary and statement code like Definition and owns the
// proof that follows the statement.
type Lemma struct {
	Text  string `json:"text"`
	Lean  string `json:"lean"`
	Proof *Proof `json:"proof"`
}

func (l *Lemma) Kind() string { return "lemma" }

// NewLemma returns a lemma with an empty proof ready to receive items.
func NewLemma() *Lemma {
	return &Lemma{Proof: &Proof{}}
}

// AppendText concatenates a line onto the commentary buffer.
func (l *Lemma) AppendText(line string) {
	l.Text += line
}

// AppendLean concatenates a line onto the statement buffer.
func (l *Lemma) AppendLean(line string) {
	l.Lean += line
}

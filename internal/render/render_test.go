package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/Lectern/core/document"
	"github.com/FocuswithJustin/Lectern/core/xml"
)

func sampleNodes() []document.Node {
	text := &document.Text{Paragraphs: []*document.Paragraph{
		{Content: "Welcome to the lecture.\n"},
		{Content: "Limits first.\n"},
	}}
	section := &document.Section{Title: "Sequence limits\n"}
	def := &document.Definition{
		Text: "The limit of a sequence.\n",
		Lean: "def seq_limit (u : ℕ → ℝ) (l : ℝ) :=\n∀ ε > 0, true\n",
	}
	lemma := document.NewLemma()
	lemma.AppendText("Limits are unique.\n")
	lemma.AppendLean("lemma unique_limit : true :=\n")
	item := &document.ProofItem{Text: "Unfold the definition."}
	item.AppendLine(&document.ProofLine{
		Lean:             "  trivial,",
		TacticStateLeft:  "⊢ true",
		TacticStateRight: "goals accomplished",
	})
	lemma.Proof.AppendItem(item)
	return []document.Node{text, section, def, lemma}
}

func TestRenderPageStructure(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	page, err := r.Render("Limits", sampleNodes())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := xml.WellFormed(page); err != nil {
		t.Fatalf("page is not well-formed: %v\n%s", err, page)
	}

	doc, err := xml.Parse(page)
	if err != nil {
		t.Fatal(err)
	}

	title, err := doc.XPathFirst("//title")
	if err != nil || title == nil {
		t.Fatalf("no title element: %v", err)
	}
	if title.InnerText() != "Limits" {
		t.Errorf("title = %q", title.InnerText())
	}

	paras, err := doc.XPath("//div[@class='text']/p")
	if err != nil {
		t.Fatal(err)
	}
	if len(paras) != 2 {
		t.Errorf("expected 2 prose paragraphs, got %d", len(paras))
	}

	section, err := doc.XPathFirst("//h1[@class='section']")
	if err != nil || section == nil {
		t.Fatalf("no section heading: %v", err)
	}
	if section.InnerText() != "Sequence limits" {
		t.Errorf("section heading = %q", section.InnerText())
	}

	def, err := doc.XPathFirst("//div[@class='definition']")
	if err != nil || def == nil {
		t.Fatalf("no definition block: %v", err)
	}
	if got := def.Attr("id"); got != "def-seq_limit" {
		t.Errorf("definition id = %q, want %q", got, "def-seq_limit")
	}

	lemma, err := doc.XPathFirst("//div[@class='lemma']")
	if err != nil || lemma == nil {
		t.Fatalf("no lemma block: %v", err)
	}
	if got := lemma.Attr("id"); got != "lemma-unique_limit" {
		t.Errorf("lemma id = %q, want %q", got, "lemma-unique_limit")
	}

	if got := section.Attr("id"); got != "sequence-limits" {
		t.Errorf("section id = %q, want %q", got, "sequence-limits")
	}

	toc, err := doc.XPath("//nav[@class='toc']//a")
	if err != nil {
		t.Fatal(err)
	}
	if len(toc) != 3 {
		t.Fatalf("expected 3 toc entries, got %d", len(toc))
	}
	wantTOC := []struct{ href, label string }{
		{"#sequence-limits", "Sequence limits"},
		{"#def-seq_limit", "seq_limit"},
		{"#lemma-unique_limit", "unique_limit"},
	}
	for i, want := range wantTOC {
		if got := toc[i].Attr("href"); got != want.href {
			t.Errorf("toc[%d] href = %q, want %q", i, got, want.href)
		}
		if got := toc[i].InnerText(); got != want.label {
			t.Errorf("toc[%d] label = %q, want %q", i, got, want.label)
		}
	}

	states, err := doc.XPath("//pre[contains(@class,'tactic-state')]")
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 tactic states, got %d", len(states))
	}
	if states[0].InnerText() != "⊢ true" {
		t.Errorf("left state = %q", states[0].InnerText())
	}
	if states[1].InnerText() != "goals accomplished" {
		t.Errorf("right state = %q", states[1].InnerText())
	}
}

func TestRenderEscapesMarkup(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	nodes := []document.Node{
		&document.Text{Paragraphs: []*document.Paragraph{
			{Content: "for all ε > 0 & δ < 1\n"},
		}},
	}
	page, err := r.Render("Escaping", nodes)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := xml.WellFormed(page); err != nil {
		t.Errorf("page with markup characters is not well-formed: %v", err)
	}
}

func TestRenderToDir(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}

	extra := filepath.Join(t.TempDir(), "mathjax-config.js")
	if err := os.WriteFile(extra, []byte("window.cfg = {};\n"), 0644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(t.TempDir(), "lecture")
	opts := Options{Title: "Limits", ExtraAssets: []string{extra}}
	if err := r.RenderToDir(outDir, sampleNodes(), opts); err != nil {
		t.Fatalf("RenderToDir() error = %v", err)
	}

	for _, name := range []string{"index.html", "lecture.css", "lecture.js", "mathjax-config.js"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}

	doc, err := xml.ParseFile(filepath.Join(outDir, "index.html"))
	if err != nil {
		t.Fatalf("rendered index.html does not parse: %v", err)
	}
	if doc.Root() == nil {
		t.Error("rendered page has no root element")
	}
}

func TestNewFromDir(t *testing.T) {
	dir := t.TempDir()
	custom := `<html xmlns="http://www.w3.org/1999/xhtml"><head><title>{{.Title}}</title></head><body><p>custom</p></body></html>
`
	if err := os.WriteFile(filepath.Join(dir, "lecture.html"), []byte(custom), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := NewFromDir(dir)
	if err != nil {
		t.Fatalf("NewFromDir() error = %v", err)
	}
	page, err := r.Render("Custom", sampleNodes())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	doc, err := xml.Parse(page)
	if err != nil {
		t.Fatal(err)
	}
	body, err := doc.XPathFirst("//p")
	if err != nil || body == nil {
		t.Fatalf("custom template not used: %v", err)
	}
	if body.InnerText() != "custom" {
		t.Errorf("body = %q", body.InnerText())
	}
}

func TestTitleSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sequence limits", "sequence-limits"},
		{"  Part 2: Continuity ", "part-2-continuity"},
		{"∀∃", ""},
	}
	for _, tt := range tests {
		if got := titleSlug(tt.in); got != tt.want {
			t.Errorf("titleSlug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderToDirDefaultTitle(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(t.TempDir(), "intro")
	if err := r.RenderToDir(outDir, sampleNodes(), Options{}); err != nil {
		t.Fatalf("RenderToDir() error = %v", err)
	}
	doc, err := xml.ParseFile(filepath.Join(outDir, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	title, err := doc.XPathFirst("//title")
	if err != nil || title == nil {
		t.Fatalf("no title: %v", err)
	}
	if title.InnerText() != "intro" {
		t.Errorf("default title = %q, want %q", title.InnerText(), "intro")
	}
}

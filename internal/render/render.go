// Package render turns a parsed lecture document into a static XHTML
// page plus its css/js assets. Templates and assets ship embedded; an
// output directory is fully self-contained and can be served or packed
// as-is.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/Lectern/core/decl"
	"github.com/FocuswithJustin/Lectern/core/document"
	"github.com/FocuswithJustin/Lectern/core/errors"
	"github.com/FocuswithJustin/Lectern/core/xml"
	"github.com/FocuswithJustin/Lectern/internal/logging"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options controls a render run.
type Options struct {
	// Title is the page title; defaults to the source file name.
	Title string
	// ExtraAssets are additional files copied next to index.html.
	ExtraAssets []string
}

// Page is the template payload for one lecture.
type Page struct {
	Title  string
	Blocks []Block
	TOC    []TOCEntry
}

// TOCEntry is one table-of-contents line, linking to a block anchor.
type TOCEntry struct {
	Kind  string
	Slug  string
	Label string
}

// Block is the view of one top-level document node.
type Block struct {
	Kind       string
	Title      string
	Paragraphs []string
	Text       string
	Lean       string
	Slug       string
	Items      []Item
}

// Item is the view of one proof item.
type Item struct {
	Text  string
	Lines []Line
}

// Line is the view of one tactic line with its surrounding states.
type Line struct {
	Lean       string
	StateLeft  string
	StateRight string
}

// Renderer holds the parsed template set.
type Renderer struct {
	templates *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}
	return &Renderer{templates: tmpl}, nil
}

// NewFromDir parses templates from a user-supplied directory instead of
// the embedded set. The directory must contain lecture.html.
func NewFromDir(dir string) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(templateFuncs()).ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}
	return &Renderer{templates: tmpl}, nil
}

var cachedTemplateFuncs = template.FuncMap{
	"trim": strings.TrimSpace,
}

// templateFuncs returns the cached template helper functions.
func templateFuncs() template.FuncMap {
	return cachedTemplateFuncs
}

// BuildPage converts document nodes into the template payload.
func BuildPage(title string, nodes []document.Node) *Page {
	page := &Page{Title: title}
	for _, node := range nodes {
		switch n := node.(type) {
		case *document.Text:
			block := Block{Kind: n.Kind()}
			for _, p := range n.Paragraphs {
				if s := strings.TrimSpace(p.Content); s != "" {
					block.Paragraphs = append(block.Paragraphs, s)
				}
			}
			page.Blocks = append(page.Blocks, block)
		case *document.Section:
			title := strings.TrimSpace(n.Title)
			page.Blocks = append(page.Blocks, Block{Kind: n.Kind(), Title: title, Slug: titleSlug(title)})
		case *document.SubSection:
			title := strings.TrimSpace(n.Title)
			page.Blocks = append(page.Blocks, Block{Kind: n.Kind(), Title: title, Slug: titleSlug(title)})
		case *document.Definition:
			page.Blocks = append(page.Blocks, Block{
				Kind: n.Kind(),
				Text: strings.TrimSpace(n.Text),
				Lean: strings.TrimRight(n.Lean, "\n"),
				Slug: slugFor(n.Lean),
			})
		case *document.Lemma:
			block := Block{
				Kind: n.Kind(),
				Text: strings.TrimSpace(n.Text),
				Lean: strings.TrimRight(n.Lean, "\n"),
				Slug: slugFor(n.Lean),
			}
			for _, item := range n.Proof.Items {
				view := Item{Text: strings.TrimSpace(item.Text)}
				for _, line := range item.Lines {
					view.Lines = append(view.Lines, Line{
						Lean:       line.Lean,
						StateLeft:  line.TacticStateLeft,
						StateRight: line.TacticStateRight,
					})
				}
				block.Items = append(block.Items, view)
			}
			page.Blocks = append(page.Blocks, block)
		}
	}
	page.TOC = buildTOC(page.Blocks)
	return page
}

// buildTOC collects the anchored blocks into a table of contents.
// Blocks without an anchor are left out.
func buildTOC(blocks []Block) []TOCEntry {
	var toc []TOCEntry
	for _, b := range blocks {
		if b.Slug == "" {
			continue
		}
		label := b.Title
		if label == "" {
			d, err := decl.First(b.Lean)
			if err != nil || d.Name == "" {
				continue
			}
			label = d.Name
		}
		toc = append(toc, TOCEntry{Kind: b.Kind, Slug: b.Slug, Label: label})
	}
	return toc
}

// titleSlug derives an anchor id from a section title. Titles with no
// usable characters get no anchor.
func titleSlug(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// slugFor derives an anchor id from the first declaration line. Code
// that does not open with a recognizable declaration gets no anchor.
func slugFor(lean string) string {
	d, err := decl.First(lean)
	if err != nil {
		return ""
	}
	return d.Slug()
}

// Render produces the XHTML page for the given nodes.
func (r *Renderer) Render(title string, nodes []document.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "lecture.html", BuildPage(title, nodes)); err != nil {
		return nil, errors.Wrap(err, "failed to execute template")
	}
	return buf.Bytes(), nil
}

// RenderToDir renders the page into outDir as index.html, copies the
// embedded assets beside it, and verifies the page is well-formed.
func (r *Renderer) RenderToDir(outDir string, nodes []document.Node, opts Options) error {
	title := opts.Title
	if title == "" {
		title = filepath.Base(outDir)
	}

	logging.RenderStage("render", outDir)
	page, err := r.Render(title, nodes)
	if err != nil {
		return err
	}
	if err := xml.WellFormed(page); err != nil {
		return errors.Wrap(err, "rendered page failed well-formedness check")
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return errors.NewIO("create", outDir, err)
	}
	indexPath := filepath.Join(outDir, "index.html")
	if err := os.WriteFile(indexPath, page, 0644); err != nil {
		return errors.NewIO("write", indexPath, err)
	}

	logging.RenderStage("assets", outDir)
	if err := copyEmbeddedAssets(outDir); err != nil {
		return err
	}
	for _, asset := range opts.ExtraAssets {
		if err := copyFile(asset, filepath.Join(outDir, filepath.Base(asset))); err != nil {
			return err
		}
	}
	return nil
}

// copyEmbeddedAssets writes the embedded static files into outDir.
func copyEmbeddedAssets(outDir string) error {
	return fs.WalkDir(staticFS, "static", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := staticFS.ReadFile(path)
		if err != nil {
			return errors.NewIO("read", path, err)
		}
		dst := filepath.Join(outDir, filepath.Base(path))
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return errors.NewIO("write", dst, err)
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.NewIO("read", src, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return errors.NewIO("write", dst, err)
	}
	return nil
}

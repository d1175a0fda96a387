// Command lectern converts annotated Lean proof files into lecture
// documents. It drives the whole pipeline: resolve a Lean toolchain,
// run the verifier, parse the annotated source, and render or pack the
// result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/Lectern/core/document"
	"github.com/FocuswithJustin/Lectern/core/errors"
	"github.com/FocuswithJustin/Lectern/core/leanserver"
	"github.com/FocuswithJustin/Lectern/core/lecture"
	"github.com/FocuswithJustin/Lectern/core/toolchain"
	"github.com/FocuswithJustin/Lectern/core/xml"
	"github.com/FocuswithJustin/Lectern/internal/archive"
	"github.com/FocuswithJustin/Lectern/internal/logging"
	"github.com/FocuswithJustin/Lectern/internal/preview"
	"github.com/FocuswithJustin/Lectern/internal/render"
	"github.com/FocuswithJustin/Lectern/internal/statecache"
)

const version = "0.1.0"

// CLI defines the command-line interface for lectern.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log output format"`
	Toolchain string `name:"toolchain" short:"t" help:"Elan toolchain name (default: lean on PATH)"`
	LibPath   string `name:"lib-path" help:"Additional library path appended to LEAN_PATH" type:"path"`

	Render  RenderCmd  `cmd:"" help:"Render an annotated Lean file to a lecture page"`
	Parse   ParseCmd   `cmd:"" help:"Parse an annotated Lean file and print the document as JSON"`
	Pack    PackCmd    `cmd:"" help:"Pack a rendered lecture directory into a bundle"`
	Serve   ServeCmd   `cmd:"" help:"Serve a rendered lecture with live reload"`
	Check   CheckCmd   `cmd:"" help:"Check that a rendered page is well-formed"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// offlineQuerier answers every position with an empty state. Used when
// parsing without a verifier.
type offlineQuerier struct{}

func (offlineQuerier) Info(string, int, int) (string, error) { return "", nil }

// verifierSession bundles the running pieces a parse needs.
type verifierSession struct {
	querier lecture.StateQuerier
	cache   *statecache.Cache
	key     string
	server  *leanserver.Server
}

func (s *verifierSession) close() {
	if s.server != nil {
		s.server.Close()
	}
	if s.cache != nil {
		s.cache.Close()
	}
}

// openSession resolves the toolchain, starts the verifier, syncs the
// source file and wraps the server in the state cache.
func openSession(path, cacheDir string, noCache bool) (*verifierSession, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}

	tc, err := toolchain.Resolve(CLI.Toolchain)
	if err != nil {
		return nil, err
	}
	server, err := leanserver.Start(tc.LeanExec, tc.LeanPath(CLI.LibPath))
	if err != nil {
		return nil, err
	}
	if err := server.SyncFile(path); err != nil {
		server.Close()
		return nil, err
	}

	session := &verifierSession{querier: server, server: server, key: statecache.Key(source)}
	if noCache {
		return session, nil
	}

	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			logging.Warn("cannot locate cache directory, caching disabled", "error", err)
			return session, nil
		}
		cacheDir = filepath.Join(base, "lectern")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		server.Close()
		return nil, errors.NewIO("create", cacheDir, err)
	}
	cache, err := statecache.Open(filepath.Join(cacheDir, "states.db"))
	if err != nil {
		server.Close()
		return nil, err
	}
	session.cache = cache
	session.querier = statecache.Wrap(cache, source, server)
	return session, nil
}

// parseLecture runs the parser over the annotated source.
func parseLecture(path string, querier lecture.StateQuerier) ([]document.Node, error) {
	return lecture.ParseFile(path, querier)
}

// RenderCmd renders an annotated Lean file into a lecture directory.
type RenderCmd struct {
	Path      string   `arg:"" help:"Annotated Lean source file" type:"existingfile"`
	Out       string   `help:"Output directory (default: source name without extension)" type:"path"`
	Title     string   `help:"Page title (default: source file name)"`
	Templates string   `help:"Directory with replacement templates (default: embedded)" type:"existingdir"`
	Assets    []string `help:"Extra asset files copied next to index.html" type:"existingfile"`
	CacheDir  string   `name:"cache-dir" help:"State cache directory" type:"path"`
	NoCache   bool     `name:"no-cache" help:"Query the verifier for every position"`
}

func (c *RenderCmd) Run() error {
	outDir := c.Out
	if outDir == "" {
		outDir = strings.TrimSuffix(filepath.Base(c.Path), filepath.Ext(c.Path))
	}

	session, err := openSession(c.Path, c.CacheDir, c.NoCache)
	if err != nil {
		return err
	}
	defer session.close()

	logging.RenderStage("parse", c.Path)
	nodes, err := parseLecture(c.Path, session.querier)
	if err != nil {
		return err
	}

	var renderer *render.Renderer
	if c.Templates != "" {
		renderer, err = render.NewFromDir(c.Templates)
	} else {
		renderer, err = render.New()
	}
	if err != nil {
		return err
	}
	opts := render.Options{Title: c.Title, ExtraAssets: c.Assets}
	if err := renderer.RenderToDir(outDir, nodes, opts); err != nil {
		return err
	}

	if session.cache != nil {
		if err := session.cache.Purge(session.key); err != nil {
			logging.Warn("cache purge failed", "error", err)
		}
	}
	fmt.Printf("rendered %s -> %s\n", c.Path, outDir)
	return nil
}

// ParseCmd parses an annotated Lean file and prints the document model.
type ParseCmd struct {
	Path     string `arg:"" help:"Annotated Lean source file" type:"existingfile"`
	NoServer bool   `name:"no-server" help:"Skip verifier queries; tactic states are left empty"`
	CacheDir string `name:"cache-dir" help:"State cache directory" type:"path"`
	NoCache  bool   `name:"no-cache" help:"Query the verifier for every position"`
}

func (c *ParseCmd) Run() error {
	var querier lecture.StateQuerier = offlineQuerier{}
	if !c.NoServer {
		session, err := openSession(c.Path, c.CacheDir, c.NoCache)
		if err != nil {
			return err
		}
		defer session.close()
		querier = session.querier
	}

	nodes, err := parseLecture(c.Path, querier)
	if err != nil {
		return err
	}

	// Wrap every node with its kind so the output is self-describing.
	type taggedNode struct {
		Kind string        `json:"kind"`
		Node document.Node `json:"node"`
	}
	tagged := make([]taggedNode, len(nodes))
	for i, n := range nodes {
		tagged[i] = taggedNode{Kind: n.Kind(), Node: n}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(tagged)
}

// PackCmd packs a rendered lecture directory into a compressed bundle.
type PackCmd struct {
	Dir   string `arg:"" help:"Rendered lecture directory" type:"existingdir"`
	Out   string `help:"Bundle path (default: <dir>.tar.xz)" type:"path"`
	Title string `help:"Lecture title recorded in the bundle manifest"`
}

func (c *PackCmd) Run() error {
	out := c.Out
	if out == "" {
		out = filepath.Clean(c.Dir) + ".tar.xz"
	}

	title := c.Title
	if title == "" {
		title = filepath.Base(filepath.Clean(c.Dir))
	}
	manifest, err := json.MarshalIndent(archive.Manifest{
		Title:     title,
		Generator: "lectern " + version,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	manifestPath := filepath.Join(c.Dir, archive.ManifestName)
	if err := os.WriteFile(manifestPath, manifest, 0644); err != nil {
		return errors.NewIO("write", manifestPath, err)
	}

	if err := archive.Pack(c.Dir, out); err != nil {
		return err
	}
	fmt.Printf("packed %s -> %s\n", c.Dir, out)
	return nil
}

// ServeCmd serves a rendered lecture directory with live reload.
type ServeCmd struct {
	Dir  string `arg:"" help:"Rendered lecture directory" type:"existingdir"`
	Port int    `help:"Port to listen on" default:"8000"`
}

func (c *ServeCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := preview.NewServer(c.Dir)
	return server.ListenAndServe(ctx, fmt.Sprintf(":%d", c.Port))
}

// CheckCmd verifies that a rendered page is well-formed XHTML.
type CheckCmd struct {
	Path string `arg:"" help:"Rendered page or lecture directory" type:"path"`
}

func (c *CheckCmd) Run() error {
	path := c.Path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "index.html")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewIO("read", path, err)
	}
	if err := xml.WellFormed(data); err != nil {
		return err
	}
	fmt.Printf("%s: well-formed\n", path)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("lectern version %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("lectern"),
		kong.Description("Lectern - lecture documents from annotated Lean proofs"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), logging.ParseFormat(CLI.LogFormat))
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}

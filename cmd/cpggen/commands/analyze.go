package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cpggen/cpggen/internal/config"
	"github.com/cpggen/cpggen/internal/log"
	"github.com/cpggen/cpggen/internal/scanner"
	"github.com/cpggen/cpggen/pkg/anchor"
	"github.com/cpggen/cpggen/pkg/computegraph"
	"github.com/cpggen/cpggen/pkg/dot"
	"github.com/cpggen/cpggen/pkg/frontend"
	"github.com/cpggen/cpggen/pkg/graphset"
	"github.com/cpggen/cpggen/pkg/icfg"
	"github.com/cpggen/cpggen/pkg/patternmatch"
	"github.com/cpggen/cpggen/pkg/pdg"
	"github.com/cpggen/cpggen/pkg/query"
)

// analyzeCmd runs the full pipeline over one or more translation units.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <source files or directories...>",
	Short: "Analyze C/C++ sources and build compute graphs",
	Long: `Runs the full pipeline over each translation unit: parse, build the
ICFG and PDG, find anchor expressions, build a compute graph per anchor,
then merge, deduplicate, and rank the surviving graphs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := analyzeOptions{}
		opts.Verbose, _ = cmd.Flags().GetBool("verbose")
		opts.DumpGraphs, _ = cmd.Flags().GetBool("dump-graphs")
		opts.Visualize, _ = cmd.Flags().GetBool("visualize")
		opts.TestPatterns, _ = cmd.Flags().GetBool("test-patterns")
		opts.OutputDir, _ = cmd.Flags().GetString("output-dir")
		opts.Function, _ = cmd.Flags().GetString("function")
		opts.MaxDepth, _ = cmd.Flags().GetInt("max-depth")
		opts.BF16Demo, _ = cmd.Flags().GetBool("bf16-demo")
		return runAnalyze(args, opts)
	},
}

type analyzeOptions struct {
	Verbose      bool
	DumpGraphs   bool
	Visualize    bool
	TestPatterns bool
	OutputDir    string
	Function     string
	MaxDepth     int
	BF16Demo     bool
}

func init() {
	analyzeCmd.Flags().Bool("verbose", false, "Enable debug-level logging and deep dumps")
	analyzeCmd.Flags().Bool("dump-graphs", false, "Print a summary and a full dump of each surviving graph")
	analyzeCmd.Flags().Bool("visualize", false, "Emit DOT files for every graph, ICFG, and PDG")
	analyzeCmd.Flags().Bool("test-patterns", false, "Run the registered rewrite patterns on every graph")
	analyzeCmd.Flags().String("output-dir", "", "Directory for DOT and export files (created if absent)")
	analyzeCmd.Flags().String("function", "", "Restrict analysis to one function")
	analyzeCmd.Flags().Int("max-depth", 0, "Override backward/forward trace depth caps")
	analyzeCmd.Flags().Bool("bf16-demo", false, "Build and dump the hand-constructed BF16 demo graph")
}

func runAnalyze(args []string, opts analyzeOptions) error {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	logger := log.Default()
	if opts.Verbose || cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}

	if opts.BF16Demo {
		return runBF16Demo(cfg, opts, logger)
	}

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "error: no input files")
		return fmt.Errorf("no input files")
	}

	files, err := expandSources(args, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "error: no C/C++ translation units found")
		return fmt.Errorf("no translation units")
	}

	limits := computegraph.Limits{
		MaxExprDepth:          cfg.MaxExprDepth,
		MaxBackwardDepth:      cfg.MaxBackwardDepth,
		MaxForwardDepth:       cfg.MaxForwardDepth,
		MaxCallDepth:          cfg.MaxCallDepth,
		EnableInterprocedural: true,
	}
	if opts.MaxDepth > 0 {
		limits.MaxBackwardDepth = opts.MaxDepth
		limits.MaxForwardDepth = opts.MaxDepth
	}

	for _, path := range files {
		if err := analyzeTU(path, cfg, limits, opts, logger); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return err
		}
	}
	return nil
}

// expandSources resolves positional arguments: files are taken as-is,
// directories are scanned for translation units.
func expandSources(args []string, cfg *config.Config) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		scanOpts := scanner.DefaultOptions()
		scanOpts.IgnoreFileName = cfg.IgnoreFileName
		found, err := scanner.ScanWithOptions(arg, scanOpts)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", arg, err)
		}
		for _, f := range found {
			if f.Language == "" {
				continue
			}
			files = append(files, f.FullPath)
		}
	}
	return files, nil
}

func analyzeTU(path string, cfg *config.Config, limits computegraph.Limits, opts analyzeOptions, logger log.Logger) error {
	logger.Info(fmt.Sprintf("analyzing %s", path))

	tu, err := frontend.Parse(path)
	if err != nil {
		return err
	}
	defer tu.Close()

	funcs := tu.Funcs
	if opts.Function != "" {
		funcs = nil
		for _, fn := range tu.Funcs {
			if fn.Name == opts.Function || fn.QualifiedName == opts.Function {
				funcs = append(funcs, fn)
			}
		}
		if len(funcs) == 0 {
			return fmt.Errorf("function %q not found in %s", opts.Function, path)
		}
	}

	icfgGraph := icfg.Build(tu.Funcs)
	pdgSet := pdg.BuildSet(tu.Funcs, cfg.FixedPointCap)
	engine := query.New(tu.Funcs, icfgGraph, pdgSet)

	finder := anchor.NewFinder()
	anchors := finder.FilterAndRank(finder.FindAllAnchors(funcs), cfg.AnchorCap)
	logger.Debug(fmt.Sprintf("found %d anchors", len(anchors)))

	builder := computegraph.New(icfgGraph, engine, limits)
	set := graphset.New()
	for _, a := range anchors {
		set.Add(builder.BuildFromAnchor(a))
	}

	set.MergeOverlapping()
	set.Deduplicate()
	set.SortByScore()

	printSummary(path, funcs, anchors, set)

	if opts.DumpGraphs {
		dumpGraphs(set)
	}
	if opts.TestPatterns {
		testPatterns(set, logger)
	}
	if opts.Visualize {
		if err := writeVisualizations(path, cfg.OutputDir, funcs, icfgGraph, pdgSet, set); err != nil {
			return err
		}
	}
	return nil
}

// printSummary mirrors the per-TU statistics block: anchor count, surviving
// graphs, node/edge totals, and a per-function breakdown.
func printSummary(path string, funcs []*frontend.Func, anchors []anchor.Point, set *graphset.Set) {
	totalNodes, totalEdges := 0, 0
	perFunc := map[string]int{}
	for _, g := range set.Graphs() {
		totalNodes += len(g.Nodes())
		totalEdges += len(g.Edges())
		if g.AnchorFunc != nil {
			perFunc[g.AnchorFunc.QualifiedName]++
		}
	}

	fmt.Printf("=== %s ===\n", path)
	fmt.Printf("Functions analyzed:  %d\n", len(funcs))
	fmt.Printf("Anchors found:       %d\n", len(anchors))
	fmt.Printf("Surviving graphs:    %d\n", set.Len())
	fmt.Printf("Total nodes:         %d\n", totalNodes)
	fmt.Printf("Total edges:         %d\n", totalEdges)
	for _, fn := range funcs {
		if n := perFunc[fn.QualifiedName]; n > 0 {
			fmt.Printf("  %-30s %d graph(s)\n", fn.QualifiedName, n)
		}
	}
}

// graphDump is the JSON shape --dump-graphs prints per surviving graph.
type graphDump struct {
	Func     string     `json:"func"`
	Line     int        `json:"line"`
	Score    int        `json:"score"`
	Template bool       `json:"template,omitempty"`
	Nodes    []nodeDump `json:"nodes"`
	Edges    []edgeDump `json:"edges"`
}

type nodeDump struct {
	ID     int    `json:"id"`
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
	Op     string `json:"op,omitempty"`
	Line   int    `json:"line"`
	Text   string `json:"text,omitempty"`
	Anchor bool   `json:"anchor,omitempty"`
}

type edgeDump struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Kind  string `json:"kind"`
	Label string `json:"label,omitempty"`
}

func dumpGraphs(set *graphset.Set) {
	for i, g := range set.Graphs() {
		d := graphDump{Line: g.AnchorLine, Score: g.Score, Template: g.Template}
		if g.AnchorFunc != nil {
			d.Func = g.AnchorFunc.QualifiedName
		}
		for _, n := range g.Nodes() {
			d.Nodes = append(d.Nodes, nodeDump{
				ID: int(n.ID), Kind: n.Kind.String(), Name: n.Name,
				Op: n.OpCode.String(), Line: n.SourceLine, Text: n.SourceText,
				Anchor: n.IsAnchor,
			})
		}
		for _, e := range g.Edges() {
			d.Edges = append(d.Edges, edgeDump{
				From: int(e.From), To: int(e.To), Kind: e.Kind.String(), Label: e.Label,
			})
		}
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			continue
		}
		fmt.Printf("--- graph %d ---\n%s\n", i+1, string(data))
	}
}

func testPatterns(set *graphset.Set, logger log.Logger) {
	m := patternmatch.New()
	m.Register(patternmatch.MulAddPattern())
	m.Register(patternmatch.ReductionPattern())

	for i, g := range set.Graphs() {
		for _, name := range m.Names() {
			matches := m.FindMatches(g, name)
			if len(matches) == 0 {
				continue
			}
			fmt.Printf("graph %d: pattern %q matched %d time(s)\n", i+1, name, len(matches))
			for _, b := range matches {
				logger.Debug(fmt.Sprintf("  bindings: %v", b))
			}
		}
	}
}

func writeVisualizations(path, outDir string, funcs []*frontend.Func, g *icfg.Graph, p *pdg.Set, set *graphset.Set) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", outDir, err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	for i, cg := range set.Graphs() {
		out := filepath.Join(outDir, fmt.Sprintf("%s_cg_%d.dot", base, i+1))
		if err := os.WriteFile(out, []byte(dot.ComputeGraph(cg)), 0644); err != nil {
			return err
		}
	}
	for _, fn := range funcs {
		out := filepath.Join(outDir, fmt.Sprintf("%s_icfg_%s.dot", base, safeName(fn.QualifiedName)))
		if err := os.WriteFile(out, []byte(dot.ICFG(g, fn)), 0644); err != nil {
			return err
		}
		if fp, ok := p.Funcs[fn.QualifiedName]; ok {
			out := filepath.Join(outDir, fmt.Sprintf("%s_pdg_%s.dot", base, safeName(fn.QualifiedName)))
			if err := os.WriteFile(out, []byte(dot.PDG(fp)), 0644); err != nil {
				return err
			}
		}
	}
	return nil
}

func safeName(name string) string {
	return strings.NewReplacer("::", "_", "/", "_", " ", "_").Replace(name)
}

func runBF16Demo(cfg *config.Config, opts analyzeOptions, logger log.Logger) error {
	g := computegraph.BF16Demo()
	logger.Info(fmt.Sprintf("built BF16 demo graph: %d nodes, %d edges", len(g.Nodes()), len(g.Edges())))

	set := graphset.New()
	set.Add(g)
	if opts.DumpGraphs || opts.Verbose {
		dumpGraphs(set)
	}
	if opts.Visualize {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("creating output dir %s: %w", cfg.OutputDir, err)
		}
		out := filepath.Join(cfg.OutputDir, "bf16_demo.dot")
		if err := os.WriteFile(out, []byte(dot.ComputeGraph(g)), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", out)
	}
	return nil
}

package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/sdeconv/api"
	"github.com/agentic-research/sdeconv/internal/record"
	"github.com/agentic-research/sdeconv/internal/reshape"
	"github.com/agentic-research/sdeconv/internal/sink"
	"github.com/agentic-research/sdeconv/internal/table"
)

// Options control how documents are turned into tables.
type Options struct {
	// Keyed treats every mapping root as an id -> record collection.
	Keyed bool
	// FoldLocales keeps English text only; see table.Shaper.
	FoldLocales bool
	// Exclude lists columns dropped from every table.
	Exclude []string
	// Selectors maps a document file name to a JSONPath expression whose
	// matches become that document's records.
	Selectors map[string]string
	// SkipDirs lists directory names or paths never descended into.
	SkipDirs []string
	// Stats enables column_stats.json.
	Stats bool
}

// Result is the outcome of a run.
type Result struct {
	Summary api.Summary
	Schema  api.SchemaMap
	Stats   api.ColumnStats
	// Errors holds one ParseError or WriteError per problem, in order.
	Errors []error
}

// Engine converts YAML documents read from In into CSV files written to
// Out. Every table also goes to each of Sinks.
type Engine struct {
	In      billy.Filesystem
	Out     billy.Filesystem
	Options Options
	Sinks   []sink.TableWriter
	Logger  *slog.Logger

	csv       *sink.CSVWriter
	selectors map[string]*record.Selector
	stems     map[string]string // output stem -> source document
}

// NewEngine validates opts and returns an engine. Invalid selectors are
// reported as a ConfigError.
func NewEngine(in, out billy.Filesystem, opts Options) (*Engine, error) {
	e := &Engine{
		In:        in,
		Out:       out,
		Options:   opts,
		Logger:    slog.Default(),
		csv:       sink.NewCSVWriter(out),
		selectors: make(map[string]*record.Selector, len(opts.Selectors)),
	}
	for file, expr := range opts.Selectors {
		sel, err := record.NewSelector(expr)
		if err != nil {
			return nil, &ConfigError{Msg: "selector for " + file, Err: err}
		}
		e.selectors[file] = sel
	}
	return e, nil
}

// Run converts every document found at root. Only configuration problems
// are returned as errors; per-document failures are collected in the
// result.
func (e *Engine) Run(root string) (*Result, error) {
	docs, err := Discover(e.In, root, e.Options.SkipDirs)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, &ConfigError{Msg: root, Err: ErrNoDocuments}
	}

	res := &Result{
		Summary: api.Summary{Documents: len(docs)},
		Schema:  api.SchemaMap{},
	}
	if e.Options.Stats {
		res.Stats = api.ColumnStats{}
	}
	e.stems = make(map[string]string, len(docs))

	for _, doc := range docs {
		e.ingestFile(root, doc, res)
	}

	if err := sink.WriteJSON(e.Out, sink.SchemaMapFile, res.Schema); err != nil {
		e.record(res, &WriteError{Path: sink.SchemaMapFile, Err: err})
	}
	if e.Options.Stats {
		if err := sink.WriteJSON(e.Out, sink.StatsFile, res.Stats); err != nil {
			e.record(res, &WriteError{Path: sink.StatsFile, Err: err})
		}
	}
	if len(res.Errors) > 0 {
		if err := sink.WriteErrorLog(e.Out, sink.ErrorLogFile, res.Errors); err != nil {
			e.Logger.Error("write error log", "error", err)
		}
	}
	return res, nil
}

func (e *Engine) ingestFile(root, doc string, res *Result) {
	log := e.Logger.With("file", doc)

	tables, err := e.load(root, doc)
	if err != nil {
		res.Summary.Skipped++
		log.Warn("skipping document", "error", err)
		e.record(res, &ParseError{Path: doc, Err: err})
		return
	}

	for _, t := range tables {
		if err := e.write(t); err != nil {
			res.Summary.Failed++
			log.Error("write failed", "table", t.Name, "error", err)
			e.record(res, &WriteError{Path: t.Name, Err: err})
			return
		}
		res.Schema.Add(t.Name, t.Columns.Names())
		if res.Stats != nil {
			res.Stats[t.Name] = t.Columns.Fill()
		}
		res.Summary.Tables++
		log.Debug("wrote table", "table", t.Name, "rows", len(t.Rows), "columns", t.Columns.Len())
	}
	res.Summary.Converted++
	log.Info("converted", "tables", len(tables))
}

func (e *Engine) record(res *Result, err error) {
	res.Errors = append(res.Errors, err)
}

// load reads, parses and shapes one document into its output tables.
func (e *Engine) load(root, doc string) ([]*table.Table, error) {
	data, err := util.ReadFile(e.In, doc)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	roots, err := record.Decode(data)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, ErrEmptyDocument
	}

	base := path.Base(filepath.ToSlash(doc))
	stem := e.stem(root, doc)

	if r, ok := reshape.Lookup(base); ok {
		tables, err := r.Reshape(stem, record.Concat(roots))
		if err != nil {
			return nil, fmt.Errorf("reshape %s: %w", r.Name(), err)
		}
		return e.exclude(tables), nil
	}

	var recs []record.Value
	sel := e.selectors[base]
	for _, rt := range roots {
		if sel == nil {
			recs = append(recs, record.Records(rt, e.Options.Keyed)...)
			continue
		}
		matched, err := sel.Select(rt)
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", sel, err)
		}
		recs = append(recs, matched...)
	}

	rows := table.Shaper{
		FoldLocales: e.Options.FoldLocales,
		Exclude:     e.Options.Exclude,
	}.Apply(record.FlattenAll(recs))

	return []*table.Table{table.New(stem+".csv", rows)}, nil
}

// exclude drops excluded columns from reshaped tables, keeping their fixed
// headers otherwise intact.
func (e *Engine) exclude(tables []*table.Table) []*table.Table {
	if len(e.Options.Exclude) == 0 {
		return tables
	}
	shaper := table.Shaper{Exclude: e.Options.Exclude}
	out := make([]*table.Table, len(tables))
	for i, t := range tables {
		cols := slices.DeleteFunc(t.Columns.Names(), func(c string) bool {
			return slices.Contains(e.Options.Exclude, c)
		})
		out[i] = table.NewWithColumns(t.Name, cols, shaper.Apply(t.Rows))
	}
	return out
}

// stem picks the output base name for doc. Documents sharing a file name
// fall back to their path relative to root, joined with underscores.
func (e *Engine) stem(root, doc string) string {
	base := path.Base(filepath.ToSlash(doc))
	stem := strings.TrimSuffix(base, path.Ext(base))

	if prev, taken := e.stems[stem]; taken {
		rel, err := filepath.Rel(root, doc)
		if err != nil {
			rel = doc
		}
		rel = filepath.ToSlash(rel)
		alt := strings.ReplaceAll(strings.TrimSuffix(rel, path.Ext(rel)), "/", "_")
		for i := 2; e.stems[alt] != ""; i++ {
			alt = strings.ReplaceAll(strings.TrimSuffix(rel, path.Ext(rel)), "/", "_") + "_" + strconv.Itoa(i)
		}
		e.Logger.Warn("output name collision", "file", doc, "previous", prev, "output", alt+".csv")
		stem = alt
	}
	e.stems[stem] = doc
	return stem
}

// write sends t to the CSV output and then to every extra sink. When a
// sink fails the CSV is removed again so that every CSV left in the output
// is listed in the schema map.
func (e *Engine) write(t *table.Table) error {
	if err := e.csv.WriteTable(t); err != nil {
		return err
	}
	var errs []error
	for _, s := range e.Sinks {
		if err := s.WriteTable(t); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if err := e.Out.Remove(t.Name); err != nil {
		errs = append(errs, fmt.Errorf("remove %s: %w", t.Name, err))
	}
	return errors.Join(errs...)
}

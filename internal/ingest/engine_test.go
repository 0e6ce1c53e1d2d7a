package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/sdeconv/internal/record"
	"github.com/agentic-research/sdeconv/internal/sink"
	"github.com/agentic-research/sdeconv/internal/table"
)

func writeFiles(t *testing.T, fs billy.Filesystem, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
}

func readCSV(t *testing.T, fs billy.Filesystem, name string) [][]string {
	t.Helper()
	data, err := util.ReadFile(fs, name)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func readSchema(t *testing.T, fs billy.Filesystem) map[string][]string {
	t.Helper()
	data, err := util.ReadFile(fs, sink.SchemaMapFile)
	require.NoError(t, err)
	var schema map[string][]string
	require.NoError(t, json.Unmarshal(data, &schema))
	return schema
}

func newEngine(t *testing.T, in, out billy.Filesystem, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(in, out, opts)
	require.NoError(t, err)
	return e
}

func TestEngine_ConvertsTreeAndSkipsInvalid(t *testing.T) {
	in, out := memfs.New(), memfs.New()
	writeFiles(t, in, map[string]string{
		"sde/siblings.yaml":     "- {a: 1}\n- {a: 1, b: 2}\n",
		"sde/nested/record.yml": `{"a": 1, "b": {"c": 2, "d": [3, 4]}}`,
		"sde/broken.yaml":       "a: [1, 2\nb: :\n",
		"sde/notes.txt":         "not yaml",
	})

	res, err := newEngine(t, in, out, Options{}).Run("sde")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Summary.Documents)
	assert.Equal(t, 2, res.Summary.Converted)
	assert.Equal(t, 1, res.Summary.Skipped)
	assert.Equal(t, 0, res.Summary.Failed)
	assert.Equal(t, 2, res.Summary.Tables)

	require.Len(t, res.Errors, 1)
	var perr *ParseError
	require.True(t, errors.As(res.Errors[0], &perr))
	assert.Equal(t, "sde/broken.yaml", perr.Path)

	assert.Equal(t, [][]string{
		{"a", "b"},
		{"1", ""},
		{"1", "2"},
	}, readCSV(t, out, "siblings.csv"))

	assert.Equal(t, [][]string{
		{"a", "b.c", "b.d.0", "b.d.1"},
		{"1", "2", "3", "4"},
	}, readCSV(t, out, "record.csv"))

	schema := readSchema(t, out)
	assert.Equal(t, map[string][]string{
		"siblings.csv": {"a", "b"},
		"record.csv":   {"a", "b.c", "b.d.0", "b.d.1"},
	}, schema)

	_, err = out.Stat("broken.csv")
	assert.Error(t, err)

	log, err := util.ReadFile(out, sink.ErrorLogFile)
	require.NoError(t, err)
	assert.Contains(t, string(log), "sde/broken.yaml")
}

func TestEngine_SchemaHasNoPhantomColumns(t *testing.T) {
	in, out := memfs.New(), memfs.New()
	writeFiles(t, in, map[string]string{
		"sde/mixed.yaml": `
- {id: 1, tags: [], extra: ~, name: {en: One}}
- {id: 2, meta: {}, name: {en: Two, de: Zwei}}
- {id: 3, note: ""}
`,
		"sde/blank.yaml": "- a: 1\n  b: ''\n- a: 2\n  b: ''\n",
	})

	_, err := newEngine(t, in, out, Options{FoldLocales: true}).Run("sde")
	require.NoError(t, err)

	records := readCSV(t, out, "mixed.csv")
	header := records[0]
	assert.Equal(t, readSchema(t, out)["mixed.csv"], header)

	for j, col := range header {
		populated := false
		for _, r := range records[1:] {
			if r[j] != "" {
				populated = true
			}
		}
		assert.True(t, populated, "column %s has no populated field", col)
	}
	assert.Equal(t, []string{"id", "name"}, header)

	assert.Equal(t, [][]string{{"a"}, {"1"}, {"2"}}, readCSV(t, out, "blank.csv"))
	assert.Equal(t, []string{"a"}, readSchema(t, out)["blank.csv"])
}

func TestEngine_SingleFile(t *testing.T) {
	in, out := memfs.New(), memfs.New()
	writeFiles(t, in, map[string]string{
		"sde/types.yaml": "34:\n  groupID: 18\n  name:\n    en: Tritanium\n    de: Tritanium\n",
	})

	res, err := newEngine(t, in, out, Options{FoldLocales: true}).Run("sde/types.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Converted)

	assert.Equal(t, [][]string{
		{"root_id", "groupID", "name"},
		{"34", "18", "Tritanium"},
	}, readCSV(t, out, "types.csv"))
}

func TestEngine_ConfigErrors(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		_, err := newEngine(t, memfs.New(), memfs.New(), Options{}).Run("nope")
		var cerr *ConfigError
		require.True(t, errors.As(err, &cerr))
	})

	t.Run("no yaml files", func(t *testing.T) {
		in := memfs.New()
		writeFiles(t, in, map[string]string{"sde/readme.md": "hi"})
		_, err := newEngine(t, in, memfs.New(), Options{}).Run("sde")
		require.ErrorIs(t, err, ErrNoDocuments)
	})

	t.Run("single non-yaml file", func(t *testing.T) {
		in := memfs.New()
		writeFiles(t, in, map[string]string{"sde/readme.md": "hi"})
		_, err := newEngine(t, in, memfs.New(), Options{}).Run("sde/readme.md")
		require.ErrorIs(t, err, ErrNoDocuments)
	})

	t.Run("bad selector", func(t *testing.T) {
		_, err := NewEngine(memfs.New(), memfs.New(), Options{Selectors: map[string]string{"a.yaml": "$["}})
		var cerr *ConfigError
		require.True(t, errors.As(err, &cerr))
	})
}

func TestEngine_EmptyDocumentIsSkipped(t *testing.T) {
	in, out := memfs.New(), memfs.New()
	writeFiles(t, in, map[string]string{
		"sde/empty.yaml": "# nothing here\n",
		"sde/ok.yaml":    "a: 1\n",
	})

	res, err := newEngine(t, in, out, Options{}).Run("sde")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Skipped)
	assert.Equal(t, 1, res.Summary.Converted)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrEmptyDocument)
}

func TestEngine_NameCollision(t *testing.T) {
	in, out := memfs.New(), memfs.New()
	writeFiles(t, in, map[string]string{
		"sde/a/names.yaml": "- {x: 1}\n",
		"sde/b/names.yaml": "- {y: 2}\n",
	})

	res, err := newEngine(t, in, out, Options{}).Run("sde")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.Converted)

	assert.Equal(t, [][]string{{"x"}, {"1"}}, readCSV(t, out, "names.csv"))
	assert.Equal(t, [][]string{{"y"}, {"2"}}, readCSV(t, out, "b_names.csv"))
}

func TestDiscover_SkipDirs(t *testing.T) {
	in := memfs.New()
	writeFiles(t, in, map[string]string{
		"sde/keep.yaml":                  "a: 1\n",
		"sde/universe/region.yaml":       "a: 2\n",
		"sde/converted_output/old.yaml":  "a: 3\n",
		"sde/deep/universe/region2.yaml": "a: 4\n",
	})

	docs, err := Discover(in, "sde", []string{"universe", "sde/converted_output"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sde/keep.yaml"}, docs)
}

func TestEngine_Selector(t *testing.T) {
	in, out := memfs.New(), memfs.New()
	writeFiles(t, in, map[string]string{
		"sde/graphics.yaml": "meta: {v: 1}\nitems:\n  - {id: 1, file: a.png}\n  - {id: 2}\n",
	})

	e := newEngine(t, in, out, Options{Selectors: map[string]string{"graphics.yaml": "$.items[*]"}})
	_, err := e.Run("sde")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"id", "file"},
		{"1", "a.png"},
		{"2", ""},
	}, readCSV(t, out, "graphics.csv"))
}

func TestEngine_Exclude(t *testing.T) {
	in, out := memfs.New(), memfs.New()
	writeFiles(t, in, map[string]string{
		"sde/groups.yaml": "- {id: 1, iconID: 5, name: x}\n",
		"sde/blueprints.yaml": `
681:
  activities:
    manufacturing:
      materials: [{quantity: 86, typeID: 38}]
      products: [{quantity: 1, typeID: 165}]
`,
	})

	res, err := newEngine(t, in, out, Options{Exclude: []string{"iconID", "quantity"}}).Run("sde")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.Converted)
	assert.Equal(t, 4, res.Summary.Tables)

	assert.Equal(t, [][]string{{"id", "name"}, {"1", "x"}}, readCSV(t, out, "groups.csv"))
	assert.Equal(t, [][]string{
		{"BlueprintTypeID", "activityID", "materialTypeID", "ProductTypeID", "ProductQuantity"},
		{"681", "1", "38", "165", "1"},
	}, readCSV(t, out, "blueprints.csv"))

	schema := readSchema(t, out)
	assert.Contains(t, schema, "blueprints_manufacturing.csv")
	assert.Contains(t, schema, "blueprints_products.csv")
}

func TestEngine_Stats(t *testing.T) {
	in, out := memfs.New(), memfs.New()
	writeFiles(t, in, map[string]string{"sde/s.yaml": "- {a: 1}\n- {a: 2, b: 3}\n"})

	res, err := newEngine(t, in, out, Options{Stats: true}).Run("sde")
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"a": 2, "b": 1}, res.Stats["s.csv"])

	data, err := util.ReadFile(out, sink.StatsFile)
	require.NoError(t, err)
	var stats map[string]map[string]uint64
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, uint64(1), stats["s.csv"]["b"])
}

type failingSink struct{ fail string }

func (f failingSink) WriteTable(t *table.Table) error {
	if t.Name == f.fail {
		return errors.New("disk full")
	}
	return nil
}

func TestEngine_WriteFailureContinues(t *testing.T) {
	in, out := memfs.New(), memfs.New()
	writeFiles(t, in, map[string]string{
		"sde/a.yaml": "a: 1\n",
		"sde/b.yaml": "b: 1\n",
		"sde/c.yaml": "c: 1\n",
	})

	e := newEngine(t, in, out, Options{})
	e.Sinks = append(e.Sinks, failingSink{fail: "b.csv"})

	res, err := e.Run("sde")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.Converted)
	assert.Equal(t, 1, res.Summary.Failed)

	require.Len(t, res.Errors, 1)
	var werr *WriteError
	require.True(t, errors.As(res.Errors[0], &werr))
	assert.Equal(t, "b.csv", werr.Path)

	schema := readSchema(t, out)
	assert.Contains(t, schema, "a.csv")
	assert.Contains(t, schema, "c.csv")
	assert.NotContains(t, schema, "b.csv")

	_, err = out.Stat("b.csv")
	assert.Error(t, err, "a table rejected by a sink is not left behind")
	_, err = out.Stat("a.csv")
	assert.NoError(t, err)
}

func TestEngine_SingleColumnGapsSurvive(t *testing.T) {
	in, out := memfs.New(), memfs.New()
	writeFiles(t, in, map[string]string{"sde/x.yaml": "- a: 1\n- a: null\n- a: 3\n"})

	_, err := newEngine(t, in, out, Options{}).Run("sde")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"1"}, {""}, {"3"}}, readCSV(t, out, "x.csv"))
}

func TestEngine_AliasCycleIsSkipped(t *testing.T) {
	in, out := memfs.New(), memfs.New()
	writeFiles(t, in, map[string]string{
		"sde/cycle.yaml": "a: &x [1, *x]\n",
		"sde/ok.yaml":    "- {id: 1}\n",
	})

	res, err := newEngine(t, in, out, Options{}).Run("sde")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Converted)
	assert.Equal(t, 1, res.Summary.Skipped)

	require.Len(t, res.Errors, 1)
	var perr *ParseError
	require.True(t, errors.As(res.Errors[0], &perr))
	assert.Equal(t, "sde/cycle.yaml", perr.Path)
	assert.ErrorIs(t, res.Errors[0], record.ErrAliasCycle)

	assert.Equal(t, [][]string{{"id"}, {"1"}}, readCSV(t, out, "ok.csv"))
}

package engine

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"datascout/internal/config"
	"datascout/internal/diag"
	"datascout/internal/transformer"
	"datascout/internal/transformer/cleaning"
)

func generate(t *testing.T, e *Engine, p config.Pipeline) string {
	t.Helper()
	src, err := e.Generate(context.Background(), p, diag.New())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "main.go", src, parser.AllErrors); err != nil {
		t.Fatalf("generated source does not parse: %v\n%s", err, src)
	}
	return string(src)
}

/*
TestGenerate_Dispatch emits one block per step using the primitive that matches
its descriptor flags.
*/
func TestGenerate_Dispatch(t *testing.T) {
	t.Parallel()

	p := pipeline("csv",
		step("math-add", config.Options{"fields": []any{"a", "b"}, "output": "c"}),
		step("filter-is", config.Options{"field": "c", "search": "3"}),
		step("array-explode", config.Options{"field": "l"}),
		step("groupby", config.Options{"fields": []any{"a"}, "aggs": []any{map[string]any{"field": "c", "agg": "sum"}}}))
	p.DataSource.Kwargs = config.Options{"filename": "in.csv"}
	p.UseSample = true

	src := generate(t, New(catalog(t)), p)
	for _, want := range []string{
		"// Code generated by scout export. DO NOT EDIT.",
		`datasource.Load(ctx, "csv", options("{\"filename\":\"in.csv\"}"), datasource.Request{})`,
		"// Step 1: Sum a, b",
		`construct(2, "filter-is"`,
		"Filter: true",
		"transformer.DropRejected(out.Rows)",
		"transformer.ApplyFlatten(ctx, inst.(transformer.Flattener), rows)",
		"transformer.ApplyGlobal(ctx, inst.(transformer.Global), frame.Materialize(cols, rows))",
		"return rows, frame.Converge(cols, rows)",
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("generated source lacks %q:\n%s", want, src)
		}
	}
	if strings.Contains(src, `"datascout/internal/join"`) {
		t.Fatal("join is imported without a join source")
	}
	if i, j := strings.Index(src, "Step 1"), strings.Index(src, "Step 4"); i < 0 || j < i {
		t.Fatal("steps are out of order")
	}
}

func TestGenerate_Join(t *testing.T) {
	t.Parallel()

	p := config.Pipeline{DataSource: config.DataSource{Source: config.JoinSource, Kwargs: config.Options{
		"left": map[string]any{
			"data_source": map[string]any{"source": "csv", "kwargs": map[string]any{"filename": "a.csv"}},
			"pipeline":    []any{map[string]any{"transformation": "format-uppercase", "kwargs": map[string]any{"fields": []any{"n"}}}},
		},
		"right":    map[string]any{"source": "csv", "kwargs": map[string]any{"filename": "b.csv"}},
		"on_left":  []any{"id"},
		"on_right": []any{"id"},
		"how":      "left",
	}}}
	src := generate(t, New(catalog(t)), p)
	for _, want := range []string{
		`"datascout/internal/join"`,
		"left, leftCols := pipeline1(ctx)",
		"right, rightCols := pipeline2(ctx)",
		`join.Side{Rows: left, Columns: leftCols, On: []string{"id"}}`,
		`join.How("left")`,
		"func pipeline2(ctx context.Context) ([]records.Record, []string) {",
		`construct(1, "format-uppercase"`,
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("generated source lacks %q:\n%s", want, src)
		}
	}
}

// TestGenerate_Unresolved fails even when the engine tolerates unknown steps.
func TestGenerate_Unresolved(t *testing.T) {
	t.Parallel()

	e := New(catalog(t), WithTolerateUnresolved(true))
	_, err := e.Generate(context.Background(), pipeline("csv", step("nope", nil)), diag.New())
	var ue *UnresolvedTransformationError
	if !errors.As(err, &ue) || ue.Index != 1 {
		t.Fatalf("err = %v, want unresolved step 1", err)
	}
}

func TestGenerate_MissingParameter(t *testing.T) {
	t.Parallel()

	_, err := New(catalog(t)).Generate(context.Background(), pipeline("csv", step("math-add", config.Options{})), nil)
	var se *StepError
	if !errors.As(err, &se) || se.Index != 1 || !errors.Is(err, transformer.ErrMissingParameter) {
		t.Fatalf("err = %v, want missing parameter at step 1", err)
	}
}

func TestGenerate_Extensions(t *testing.T) {
	t.Parallel()

	c := catalog(t)
	if err := c.Install(cleaning.Extension()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	src := generate(t, New(c), pipeline("csv"))
	if !strings.Contains(src, `_ "datascout/internal/transformer/cleaning"`) ||
		!strings.Contains(src, `transformer.Default.Load("cleaning")`) {
		t.Fatalf("extension is not reproduced:\n%s", src)
	}
}

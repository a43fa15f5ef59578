package filter

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func mustSpec(t *testing.T, industry, location, funding []string, minSim *float64) Spec {
	t.Helper()
	s, err := NewSpec(industry, location, funding, minSim)
	if err != nil {
		t.Fatalf("NewSpec: %v", err)
	}
	return s
}

func TestCompile_Empty(t *testing.T) {
	c := Compile(Spec{})
	if !c.IsEmpty() {
		t.Fatal("expected empty compiled filter")
	}
	if len(c.Params()) != 0 {
		t.Errorf("expected no params, got %v", c.Params())
	}
}

func TestCompile_OnePredicatePerDimension(t *testing.T) {
	s := mustSpec(t,
		[]string{"fintech", "ai", "healthtech"},
		[]string{"Berlin", "London"},
		[]string{"Seed"},
		floatPtr(0.5),
	)
	c := Compile(s)

	want := []Predicate{
		{Column: ColumnIndustry, Op: OpAnyOf},
		{Column: ColumnLocation, Op: OpAnyOf},
		{Column: ColumnFundingStage, Op: OpAnyOf},
		{Column: ColumnDistance, Op: OpAtMost},
	}
	if !reflect.DeepEqual(c.Predicates(), want) {
		t.Fatalf("predicates = %+v, want %+v", c.Predicates(), want)
	}
	if !reflect.DeepEqual(c.Params()[0], []string{"fintech", "ai", "healthtech"}) {
		t.Errorf("industry param = %v", c.Params()[0])
	}
	if !reflect.DeepEqual(c.Params()[1], []string{"Berlin", "London"}) {
		t.Errorf("location param = %v", c.Params()[1])
	}
}

func TestCompile_PredicateCountEqualsParamCount(t *testing.T) {
	sets := [][]string{nil, {"a"}, {"a", "b"}}
	sims := []*float64{nil, floatPtr(0), floatPtr(0.8), floatPtr(1)}

	for _, ind := range sets {
		for _, loc := range sets {
			for _, fund := range sets {
				for _, sim := range sims {
					c := Compile(mustSpec(t, ind, loc, fund, sim))
					if len(c.Predicates()) != len(c.Params()) {
						t.Fatalf("predicates %d != params %d for %v/%v/%v/%v",
							len(c.Predicates()), len(c.Params()), ind, loc, fund, sim)
					}
					for _, p := range c.Predicates() {
						if strings.Count(string(p.Op), Placeholder) != 1 {
							t.Fatalf("predicate %+v must hold exactly one placeholder", p)
						}
					}
				}
			}
		}
	}
}

func TestCompile_MinSimilarityBecomesDistanceCeiling(t *testing.T) {
	c := Compile(mustSpec(t, nil, nil, nil, floatPtr(0.8)))

	if len(c.Predicates()) != 1 {
		t.Fatalf("expected 1 predicate, got %d", len(c.Predicates()))
	}
	p := c.Predicates()[0]
	if p.Column != ColumnDistance || p.Op != OpAtMost {
		t.Fatalf("unexpected predicate %+v", p)
	}
	ceiling, ok := c.Params()[0].(float64)
	if !ok {
		t.Fatalf("expected float64 param, got %T", c.Params()[0])
	}
	if math.Abs(ceiling-0.2) > 1e-9 {
		t.Fatalf("distance ceiling = %v, want 0.2", ceiling)
	}

	// Records with similarity >= 0.8 pass, lower ones are rejected.
	for _, sim := range []float64{0.95, 0.8, 0.79, 0.1} {
		distance := 1 - sim
		passes := distance <= ceiling+1e-12
		if passes != (sim >= 0.8) {
			t.Errorf("similarity %v: passes=%v", sim, passes)
		}
	}
}

func TestCompile_ParamsDoNotAliasSpec(t *testing.T) {
	s := mustSpec(t, []string{"ai"}, nil, nil, nil)
	c := Compile(s)
	c.Params()[0].([]string)[0] = "mutated"
	if s.Industry()[0] != "ai" {
		t.Error("compiled params must not alias the spec")
	}
}

func TestPredicate_Template(t *testing.T) {
	p := Predicate{Column: ColumnIndustry, Op: OpAnyOf}
	if got := p.Template("industry"); got != "industry = ANY(?)" {
		t.Errorf("Template = %q", got)
	}
	p = Predicate{Column: ColumnDistance, Op: OpAtMost}
	if got := p.Template("(embedding <=> $1::vector)"); got != "(embedding <=> $1::vector) <= ?" {
		t.Errorf("Template = %q", got)
	}
}

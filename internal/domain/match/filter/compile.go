package filter

// Placeholder is the parameter marker in predicate templates. The query
// builder rewrites each marker to a positional index when binding.
const Placeholder = "?"

// Column names as stored in the corpus table.
const (
	ColumnIndustry     = "industry"
	ColumnLocation     = "location"
	ColumnFundingStage = "latest_funding"
	// ColumnDistance is a pseudo-column: the store substitutes its own
	// distance expression for the query vector.
	ColumnDistance = "distance"
)

// Op is a comparison template applied to a column. It holds exactly one Placeholder.
type Op string

const (
	// OpAnyOf matches when the column equals any element of an array parameter.
	OpAnyOf Op = "= ANY(" + Placeholder + ")"
	// OpAtMost matches when the column is less than or equal to the parameter.
	OpAtMost Op = "<= " + Placeholder
)

// Predicate is a single compiled condition with one unbound parameter.
type Predicate struct {
	Column string
	Op     Op
}

// Template renders the predicate with columnExpr in place of the column.
func (p Predicate) Template(columnExpr string) string {
	return columnExpr + " " + string(p.Op)
}

// Compiled is the output of Compile: predicates and their parameters in
// the same order. Params[i] binds the placeholder of Predicates[i].
type Compiled struct {
	predicates []Predicate
	params     []any
}

// Predicates returns the compiled predicates.
func (c Compiled) Predicates() []Predicate { return c.predicates }

// Params returns the parameters in predicate order.
func (c Compiled) Params() []any { return c.params }

// IsEmpty reports whether no predicate was produced.
func (c Compiled) IsEmpty() bool { return len(c.predicates) == 0 }

// Compile turns a validated Spec into predicates. Each non-empty set becomes
// one "column = ANY(?)" predicate bound to the whole set, so predicate count
// follows filter dimensions, not cardinality. minSimilarity becomes a
// distance ceiling of 1 - minSimilarity; this is the only similarity to
// distance conversion in the codebase.
func Compile(s Spec) Compiled {
	var c Compiled
	c.addSet(ColumnIndustry, s.industry)
	c.addSet(ColumnLocation, s.location)
	c.addSet(ColumnFundingStage, s.fundingStage)
	if s.minSimilarity != nil {
		c.add(Predicate{Column: ColumnDistance, Op: OpAtMost}, MaxDistance(*s.minSimilarity))
	}
	return c
}

// MaxDistance converts a similarity floor into a distance ceiling.
func MaxDistance(minSimilarity float64) float64 {
	return 1 - minSimilarity
}

func (c *Compiled) addSet(column string, values []string) {
	if len(values) == 0 {
		return
	}
	set := make([]string, len(values))
	copy(set, values)
	c.add(Predicate{Column: column, Op: OpAnyOf}, set)
}

func (c *Compiled) add(p Predicate, param any) {
	c.predicates = append(c.predicates, p)
	c.params = append(c.params, param)
}

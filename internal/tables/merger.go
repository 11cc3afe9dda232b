package tables

import (
	"sort"

	"github.com/tablewise/pdf-tables/internal/domain"
	"github.com/tablewise/pdf-tables/internal/observability"
)

// MergePolicy decides whether the next fragment continues the current
// accumulated table. Policies are pluggable so a different continuation
// heuristic can be substituted without touching the sweep.
type MergePolicy interface {
	ShouldMerge(current *Accumulated, next *TableFragment) bool
}

// Accumulated is the in-progress merge target: the first fragment's
// identity plus every row absorbed so far. LastPage advances as
// continuation fragments are absorbed.
type Accumulated struct {
	Filename string
	Table    *Table
	LastPage int
}

// HeaderContinuation merges a fragment into the current table iff the
// fragment sits on the page immediately after the last absorbed one and
// repeats the exact same ordered header. A table split by a page break
// typically repeats its header verbatim on the following page; the
// page-continuity check guards against stitching unrelated tables
// separated by intervening pages.
type HeaderContinuation struct{}

// ShouldMerge implements MergePolicy.
func (HeaderContinuation) ShouldMerge(current *Accumulated, next *TableFragment) bool {
	if next.Page != current.LastPage+1 {
		return false
	}
	if next.Table.ColumnCount() != current.Table.ColumnCount() {
		return false
	}
	return current.Table.HeaderEquals(next.Table)
}

// Merger stitches per-page table fragments into coherent tables.
type Merger struct {
	policy MergePolicy
	log    *observability.Logger
}

// NewMerger creates a merger with the header-continuation policy.
func NewMerger(log *observability.Logger) *Merger {
	return NewMergerWithPolicy(HeaderContinuation{}, log)
}

// NewMergerWithPolicy creates a merger with a custom policy.
func NewMergerWithPolicy(policy MergePolicy, log *observability.Logger) *Merger {
	if log == nil {
		log = observability.Nop()
	}
	return &Merger{policy: policy, log: log}
}

// Merge combines fragments that are logical continuations of one
// another. Fragments whose filename or CSV cannot be parsed are
// dropped (best effort, never aborts the batch). The input order only
// breaks ties between fragments on the same page; pages themselves are
// ordered by the number embedded in each filename.
func (m *Merger) Merge(fragments []domain.Fragment) []domain.MergedTable {
	parsed := make([]*TableFragment, 0, len(fragments))
	for _, f := range fragments {
		tf, err := ParseFragment(f)
		if err != nil {
			m.log.Warn().Str("fragment", f.Filename).Err(err).Msg("dropping unparseable fragment")
			continue
		}
		parsed = append(parsed, tf)
	}
	if len(parsed) == 0 {
		return nil
	}

	sort.SliceStable(parsed, func(a, b int) bool { return parsed[a].Page < parsed[b].Page })

	var results []domain.MergedTable
	current := accumulate(parsed[0])

	for _, next := range parsed[1:] {
		if m.policy.ShouldMerge(current, next) {
			current.Table.Append(next.Table)
			current.LastPage = next.Page
			continue
		}
		results = append(results, current.finish())
		current = accumulate(next)
	}
	results = append(results, current.finish())

	m.log.Info().
		Int("fragments", len(parsed)).
		Int("merged", len(results)).
		Msg("cross-page merge complete")

	return results
}

// accumulate starts a new merge target from a fragment. The fragment's
// table is copied so merging never mutates parsed input.
func accumulate(tf *TableFragment) *Accumulated {
	rows := make([][]string, len(tf.Table.Rows))
	copy(rows, tf.Table.Rows)
	return &Accumulated{
		Filename: tf.Filename,
		Table:    &Table{Header: tf.Table.Header, Rows: rows},
		LastPage: tf.Page,
	}
}

func (a *Accumulated) finish() domain.MergedTable {
	return domain.MergedTable{Filename: a.Filename, CSV: a.Table.ToCSV()}
}

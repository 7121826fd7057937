package core

import (
	"strings"

	"github.com/JonMunkholm/shipload/internal/source"
)

// JoinOptions controls InnerJoin.
type JoinOptions struct {
	// LeftTag and RightTag suffix column names carried by both sides.
	LeftTag  string
	RightTag string

	// RejectDuplicateKeys turns a key repeated within one side into a
	// SourceError instead of producing every matching pair.
	RejectDuplicateKeys bool
}

// DefaultJoinOptions returns the permissive defaults with _x/_y tags.
func DefaultJoinOptions() JoinOptions {
	return JoinOptions{LeftTag: "_x", RightTag: "_y"}
}

// JoinStats summarises one join.
type JoinStats struct {
	LeftRows       int `json:"left_rows"`
	RightRows      int `json:"right_rows"`
	Matched        int `json:"matched"`
	UnmatchedLeft  int `json:"unmatched_left"`
	UnmatchedRight int `json:"unmatched_right"`
	DuplicateKeys  int `json:"duplicate_keys"` // distinct keys repeated within either side
}

// JoinResult is the output of InnerJoin.
type JoinResult struct {
	Name  string // "left+right", used as the source name of joined records
	Key   string
	Rows  []JoinedRow
	Stats JoinStats

	layout *joinLayout
}

// Columns returns the union of both sides' columns. Colliding names are
// tagged; the key column appears once.
func (r *JoinResult) Columns() []string {
	return r.layout.columns
}

// Has reports whether col resolves to a column of either side.
func (r *JoinResult) Has(col string) bool {
	col = source.NormalizeHeader(col)
	if _, ok := r.layout.left[col]; ok {
		return true
	}
	if _, ok := r.layout.right[col]; ok {
		return true
	}
	_, _, ok := r.layout.untag(col)
	return ok
}

// joinLayout is shared by every row of one JoinResult.
type joinLayout struct {
	key      string
	leftTag  string
	rightTag string
	left     map[string]struct{}
	right    map[string]struct{}
	collide  map[string]struct{}
	columns  []string
}

func newJoinLayout(left, right *source.Table, key string, opts JoinOptions) *joinLayout {
	l := &joinLayout{
		key:      key,
		leftTag:  opts.LeftTag,
		rightTag: opts.RightTag,
		left:     make(map[string]struct{}),
		right:    make(map[string]struct{}),
		collide:  make(map[string]struct{}),
	}
	for col := range left.Index {
		l.left[col] = struct{}{}
	}
	for col := range right.Index {
		l.right[col] = struct{}{}
		if _, ok := l.left[col]; ok && col != key {
			l.collide[col] = struct{}{}
		}
	}

	for _, col := range left.Columns() {
		if _, ok := l.collide[col]; ok {
			col += l.leftTag
		}
		l.columns = append(l.columns, col)
	}
	for _, col := range right.Columns() {
		if col == key {
			continue
		}
		if _, ok := l.collide[col]; ok {
			col += l.rightTag
		}
		l.columns = append(l.columns, col)
	}
	return l
}

// untag splits a tagged column name into its base name and side.
func (l *joinLayout) untag(col string) (base string, leftSide bool, ok bool) {
	if b, found := strings.CutSuffix(col, l.leftTag); found {
		if _, c := l.collide[b]; c {
			return b, true, true
		}
	}
	if b, found := strings.CutSuffix(col, l.rightTag); found {
		if _, c := l.collide[b]; c {
			return b, false, true
		}
	}
	return "", false, false
}

// JoinedRow is one matching (left, right) pair.
type JoinedRow struct {
	left   source.Row
	right  source.Row
	layout *joinLayout
}

// Left returns the row from the left table.
func (r JoinedRow) Left() source.Row { return r.left }

// Right returns the row from the right table.
func (r JoinedRow) Right() source.Row { return r.right }

// Key returns the shared key value.
func (r JoinedRow) Key() string { return r.left.Get(r.layout.key) }

// Line is the left row's line, used to locate errors.
func (r JoinedRow) Line() int { return r.left.Line }

// Get resolves col against both sides.
//
// A tagged name (product_x) addresses one side explicitly. A plain name
// carried by only one side returns that side's value. A plain name carried
// by both returns the left value, or the right value when the left is blank.
func (r JoinedRow) Get(col string) string {
	col = source.NormalizeHeader(col)
	l := r.layout

	if col == l.key {
		return r.left.Get(col)
	}
	if base, leftSide, ok := l.untag(col); ok {
		if leftSide {
			return r.left.Get(base)
		}
		return r.right.Get(base)
	}

	_, inLeft := l.left[col]
	_, inRight := l.right[col]
	switch {
	case inLeft && inRight:
		if v := r.left.Get(col); v != "" {
			return v
		}
		return r.right.Get(col)
	case inLeft:
		return r.left.Get(col)
	case inRight:
		return r.right.Get(col)
	}
	return ""
}

// InnerJoin joins left and right on key with relational inner-join
// semantics: one output row per matching pair, left input order first and
// right input order within a key. Blank keys never match.
//
// When a key repeats, every pair is produced and Stats.DuplicateKeys counts
// the repeated keys, unless opts.RejectDuplicateKeys is set.
func InnerJoin(left, right *source.Table, key string, opts JoinOptions) (*JoinResult, error) {
	key = source.NormalizeHeader(key)
	if opts.LeftTag == "" && opts.RightTag == "" {
		def := DefaultJoinOptions()
		opts.LeftTag, opts.RightTag = def.LeftTag, def.RightTag
	}

	for _, t := range []*source.Table{left, right} {
		if !t.Has(key) {
			return nil, &SourceError{Source: t.Name, Column: key, Err: ErrMissingColumn}
		}
	}

	res := &JoinResult{
		Name:   left.Name + "+" + right.Name,
		Key:    key,
		layout: newJoinLayout(left, right, key, opts),
	}
	res.Stats.LeftRows = left.Len()
	res.Stats.RightRows = right.Len()

	dupes := make(map[string]struct{})

	// Build on the right side.
	index := make(map[string][]int, right.Len())
	for i, row := range right.Rows {
		k := row.Get(key)
		if k == "" {
			continue
		}
		if _, seen := index[k]; seen {
			if opts.RejectDuplicateKeys {
				return nil, &SourceError{Source: right.Name, Line: row.Line, Column: key, Err: ErrDuplicateKey}
			}
			dupes[k] = struct{}{}
		}
		index[k] = append(index[k], i)
	}

	// Probe with the left side.
	leftSeen := make(map[string]struct{}, left.Len())
	matchedRight := make(map[string]struct{}, len(index))
	for _, row := range left.Rows {
		k := row.Get(key)
		if k == "" {
			res.Stats.UnmatchedLeft++
			continue
		}
		if _, seen := leftSeen[k]; seen {
			if opts.RejectDuplicateKeys {
				return nil, &SourceError{Source: left.Name, Line: row.Line, Column: key, Err: ErrDuplicateKey}
			}
			dupes[k] = struct{}{}
		}
		leftSeen[k] = struct{}{}

		matches, ok := index[k]
		if !ok {
			res.Stats.UnmatchedLeft++
			continue
		}
		matchedRight[k] = struct{}{}
		for _, ri := range matches {
			res.Rows = append(res.Rows, JoinedRow{left: row, right: right.Rows[ri], layout: res.layout})
		}
	}

	for _, row := range right.Rows {
		if _, ok := matchedRight[row.Get(key)]; !ok {
			res.Stats.UnmatchedRight++
		}
	}
	res.Stats.Matched = len(res.Rows)
	res.Stats.DuplicateKeys = len(dupes)

	return res, nil
}

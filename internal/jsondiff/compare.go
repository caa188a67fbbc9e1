package jsondiff

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Verdict is the outcome of comparing one leaf.
type Verdict int

const (
	Match Verdict = iota
	Mismatch
)

func (v Verdict) String() string {
	if v == Match {
		return "match"
	}
	return "mismatch"
}

// Symbol renders the verdict the way the comparison table shows it.
func (v Verdict) Symbol() string {
	if v == Match {
		return "✔"
	}
	return "✘"
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	switch string(text) {
	case "match":
		*v = Match
	case "mismatch":
		*v = Mismatch
	default:
		return fmt.Errorf("jsondiff: unknown verdict %q", text)
	}
	return nil
}

// Entry is the comparison of one reference path.
type Entry struct {
	Path      string
	Reference any
	Candidate any // Missing when the candidate lacks the path
	Verdict   Verdict
}

type entryJSON struct {
	Path      string  `json:"path"`
	Reference any     `json:"reference"`
	Candidate any     `json:"candidate"`
	Missing   bool    `json:"missing,omitempty"`
	Verdict   Verdict `json:"verdict"`
}

// MarshalJSON encodes the entry, flagging a missing candidate explicitly
// since Missing itself encodes as null.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Path:      e.Path,
		Reference: e.Reference,
		Candidate: e.Candidate,
		Missing:   IsMissing(e.Candidate),
		Verdict:   e.Verdict,
	})
}

// Result is the ordered outcome of Compare.
type Result struct {
	Separator string
	Entries   []Entry
	index     map[string]int
}

// Summary counts verdicts.
type Summary struct {
	Total      int `json:"total"`
	Matches    int `json:"matches"`
	Mismatches int `json:"mismatches"`
	Missing    int `json:"missing"`
}

// Compare flattens both documents and returns a verdict for every path of
// the reference, in the reference's order. The candidate is only probed by
// lookup.
func Compare(reference, candidate any, opts ...Option) *Result {
	o := buildOptions(opts)
	ref := Flatten(reference, opts...)
	cand := Flatten(candidate, opts...)

	res := &Result{
		Separator: o.separator,
		Entries:   make([]Entry, 0, len(ref.Paths)),
		index:     make(map[string]int, len(ref.Paths)),
	}
	for _, path := range ref.Paths {
		rv := ref.Leaves[path]
		cv, ok := cand.Leaves[path]
		if !ok {
			cv = Missing
		}
		verdict := Mismatch
		if Equal(rv, cv) {
			verdict = Match
		}
		res.index[path] = len(res.Entries)
		res.Entries = append(res.Entries, Entry{
			Path:      path,
			Reference: rv,
			Candidate: cv,
			Verdict:   verdict,
		})
	}
	return res
}

// Len returns the number of compared paths.
func (r *Result) Len() int { return len(r.Entries) }

// Paths returns the compared paths in order.
func (r *Result) Paths() []string {
	paths := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		paths[i] = e.Path
	}
	return paths
}

// Verdict returns the verdict recorded for path. Results built by Compare
// look the path up by index; others fall back to a scan. Verdict never
// mutates r, so a Result can be shared between goroutines.
func (r *Result) Verdict(path string) (Verdict, bool) {
	if r.index != nil {
		if i, ok := r.index[path]; ok {
			return r.Entries[i].Verdict, true
		}
		return Mismatch, false
	}
	for _, e := range r.Entries {
		if e.Path == path {
			return e.Verdict, true
		}
	}
	return Mismatch, false
}

// Matched reports whether every path matched.
func (r *Result) Matched() bool {
	for _, e := range r.Entries {
		if e.Verdict != Match {
			return false
		}
	}
	return true
}

// Summary counts the verdicts.
func (r *Result) Summary() Summary {
	s := Summary{Total: len(r.Entries)}
	for _, e := range r.Entries {
		if e.Verdict == Match {
			s.Matches++
		} else {
			s.Mismatches++
		}
		if IsMissing(e.Candidate) {
			s.Missing++
		}
	}
	return s
}

// Row is one line of the full comparison table. Missing is set when the
// candidate lacks the path; Candidate then encodes as null.
type Row struct {
	Path      string  `json:"path"`
	Reference any     `json:"reference"`
	Candidate any     `json:"candidate"`
	Missing   bool    `json:"missing,omitempty"`
	Verdict   Verdict `json:"verdict"`
}

// MismatchRow is one line of the mismatches-only table.
type MismatchRow struct {
	Path      string `json:"path"`
	Reference any    `json:"reference"`
	Candidate any    `json:"candidate"`
	Missing   bool   `json:"missing,omitempty"`
}

// Table projects the result to (path, reference, candidate, verdict) rows.
func (r *Result) Table() []Row {
	rows := make([]Row, len(r.Entries))
	for i, e := range r.Entries {
		rows[i] = Row{
			Path:      e.Path,
			Reference: e.Reference,
			Candidate: e.Candidate,
			Missing:   IsMissing(e.Candidate),
			Verdict:   e.Verdict,
		}
	}
	return rows
}

// Mismatches projects the mismatched entries to (path, reference, candidate)
// rows, keeping order.
func (r *Result) Mismatches() []MismatchRow {
	var rows []MismatchRow
	for _, e := range r.Entries {
		if e.Verdict == Mismatch {
			rows = append(rows, MismatchRow{
				Path:      e.Path,
				Reference: e.Reference,
				Candidate: e.Candidate,
				Missing:   IsMissing(e.Candidate),
			})
		}
	}
	return rows
}

type resultJSON struct {
	Separator string  `json:"separator"`
	Summary   Summary `json:"summary"`
	Entries   []Entry `json:"entries"`
}

// MarshalJSON encodes the entries in order together with a summary.
func (r *Result) MarshalJSON() ([]byte, error) {
	entries := r.Entries
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(resultJSON{Separator: r.Separator, Summary: r.Summary(), Entries: entries})
}

// Equal applies the leaf equality rule: strings compare case-insensitively,
// numbers compare by exact value, anything else must match in kind and value.
// Missing equals nothing, not even itself.
func Equal(a, b any) bool {
	if IsMissing(a) || IsMissing(b) {
		return false
	}
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case "null":
		return true
	case "boolean":
		return a.(bool) == b.(bool)
	case "string":
		return strings.EqualFold(a.(string), b.(string))
	case "number":
		ra, okA := toRat(a)
		rb, okB := toRat(b)
		return okA && okB && ra.Cmp(rb) == 0
	case "array":
		xa, xb := asArray(a), asArray(b)
		if len(xa) != len(xb) {
			return false
		}
		for i := range xa {
			if !Equal(xa[i], xb[i]) {
				return false
			}
		}
		return true
	case "object":
		oa, ob := asObject(a), asObject(b)
		if len(oa) != len(ob) {
			return false
		}
		for _, m := range oa {
			bv, ok := ob.Get(m.Key)
			if !ok || !Equal(m.Value, bv) {
				return false
			}
		}
		return true
	}
	return false
}

func toRat(v any) (*big.Rat, bool) {
	switch n := v.(type) {
	case Number:
		return n.Rat()
	case json.Number:
		return new(big.Rat).SetString(string(n))
	case float64:
		return new(big.Rat).SetString(strconv.FormatFloat(n, 'g', -1, 64))
	case float32:
		return new(big.Rat).SetString(strconv.FormatFloat(float64(n), 'g', -1, 32))
	case int:
		return new(big.Rat).SetInt64(int64(n)), true
	case int64:
		return new(big.Rat).SetInt64(n), true
	case int32:
		return new(big.Rat).SetInt64(int64(n)), true
	}
	return nil, false
}

func asArray(v any) Array {
	switch x := v.(type) {
	case Array:
		return x
	case []any:
		return Array(x)
	}
	return nil
}

func asObject(v any) Object {
	switch x := v.(type) {
	case Object:
		return x
	case map[string]any:
		return objectFromMap(x)
	}
	return nil
}

// FormatValue renders a leaf for tabular output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case missing:
		return x.String()
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case Number:
		return string(x)
	case Object, Array, map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

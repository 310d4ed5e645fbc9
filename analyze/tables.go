package analyze

import (
	"sort"
	"strconv"

	"github.com/emirpasic/gods/sets/treeset"

	"github.com/nuchi/sublime-from-cfg/grammar"
)

// LookaheadEntry is one row of a lookahead table: the regex to match, and the
// indices (into the owning rule's production list) it selects among.
type LookaheadEntry struct {
	Regex   string
	Indices []int
}

// LookaheadTable is a nonterminal's lookahead table for one lane (active or
// passive), already in emission order: by descending per-terminal "sort"
// option (default 0), then by the entry's index tuple, then by regex text.
type LookaheadTable []LookaheadEntry

// NPTable returns nt's active-lane lookahead table.
func (t *Tables) NPTable(nt grammar.Nonterminal) LookaheadTable {
	return t.npTable[grammar.NP(nt).Key()]
}

// PTable returns nt's passive-lane lookahead table.
func (t *Tables) PTable(nt grammar.Nonterminal) LookaheadTable {
	return t.pTable[grammar.NP(nt).Key()]
}

// build populates npTable, pTable and sortTable from the already-computed
// FOLLOW sets.
func (t *Tables) build(a *analysis) error {
	if err := t.collectSortTable(); err != nil {
		return err
	}

	t.npTable = map[string]LookaheadTable{}
	t.pTable = map[string]LookaheadTable{}

	for _, head := range t.g.Nonterminals() {
		firstSets, err := a.firstOfSymbol(head)
		if err != nil {
			return err
		}
		follow := t.follow[head.Key()]
		np, p := genTable(firstSets, follow)
		t.npTable[head.Key()] = t.sortEntries(np)
		t.pTable[head.Key()] = t.sortEntries(p)
	}
	return nil
}

// collectSortTable scans every terminal in the grammar for a "sort: N"
// option, recording the highest-precedence integer seen per regex.
func (t *Tables) collectSortTable() error {
	t.sortTable = map[string]int{}
	for _, head := range t.g.Nonterminals() {
		alt, _ := t.g.Lookup(head)
		for _, prod := range alt.Productions {
			for _, sym := range prod.Symbols() {
				term, ok := sym.(grammar.Terminal)
				if !ok {
					continue
				}
				v, ok := term.OptionKV()["sort"]
				if !ok {
					continue
				}
				n, err := strconv.Atoi(v)
				if err != nil {
					return grammar.NewGrammarError(`"sort" option must be an integer, found %q`, v)
				}
				if old, seen := t.sortTable[term.Regex]; !seen || n > old {
					t.sortTable[term.Regex] = n
				}
			}
		}
	}
	return nil
}

// genTable splits a nonterminal's per-production FIRST sets (epsilon entries
// resolved against its FOLLOW set) into active and passive lookahead tables,
// keyed by regex.
func genTable(firstSets []*treeset.Set, follow *treeset.Set) (np, p map[string]map[int]bool) {
	np = map[string]map[int]bool{}
	p = map[string]map[int]bool{}

	for i, fs := range firstSets {
		effective := fs
		if fs.Contains(nullTerm) {
			effective = newTermSet()
			for _, v := range fs.Values() {
				if lt := v.(lookaheadTerm); !lt.IsNull {
					effective.Add(lt)
				}
			}
			if follow != nil {
				for _, v := range follow.Values() {
					if lt := v.(lookaheadTerm); !lt.IsNull {
						effective.Add(lt)
					}
				}
			}
		}
		for _, v := range effective.Values() {
			lt := v.(lookaheadTerm)
			dst := np
			if lt.Passive {
				dst = p
			}
			set, ok := dst[lt.Regex]
			if !ok {
				set = map[int]bool{}
				dst[lt.Regex] = set
			}
			set[i] = true
		}
	}
	return np, p
}

// sortEntries flattens and orders a regex->indices map into a LookaheadTable:
// by descending "sort" option (higher-priority patterns are tried first),
// then ascending by index tuple, then ascending by regex text.
func (t *Tables) sortEntries(tbl map[string]map[int]bool) LookaheadTable {
	entries := make(LookaheadTable, 0, len(tbl))
	for regex, idxSet := range tbl {
		idxs := make([]int, 0, len(idxSet))
		for i := range idxSet {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)
		entries = append(entries, LookaheadEntry{Regex: regex, Indices: idxs})
	}
	sort.Slice(entries, func(i, j int) bool {
		si, sj := t.sortTable[entries[i].Regex], t.sortTable[entries[j].Regex]
		if si != sj {
			return si > sj
		}
		if c := compareIntSlices(entries[i].Indices, entries[j].Indices); c != 0 {
			return c < 0
		}
		return entries[i].Regex < entries[j].Regex
	})
	return entries
}

func compareIntSlices(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

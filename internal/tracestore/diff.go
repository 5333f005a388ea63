package tracestore

import (
	"fmt"
	"strings"

	"github.com/funvibe/dvi/internal/surface"
)

type ChangeKind int

const (
	Removed ChangeKind = iota
	Added
)

func (k ChangeKind) String() string {
	if k == Added {
		return "+"
	}
	return "-"
}

// Change is one call present on only one side. Index is the position in
// the side the call belongs to.
type Change struct {
	Kind  ChangeKind
	Index int
	Call  surface.Call
}

func (c Change) String() string {
	return fmt.Sprintf("%s%d %s", c.Kind, c.Index, c.Call)
}

// maxDiffCells bounds the edit table; longer traces are compared
// position by position.
const maxDiffCells = 1 << 22

// Diff returns the calls that differ between a and b as a shortest edit
// script. Identical traces give no changes.
func Diff(a, b []surface.Call) []Change {
	// common prefix and suffix never enter the table
	pre := 0
	for pre < len(a) && pre < len(b) && equal(a[pre], b[pre]) {
		pre++
	}
	suf := 0
	for suf < len(a)-pre && suf < len(b)-pre && equal(a[len(a)-1-suf], b[len(b)-1-suf]) {
		suf++
	}
	ma, mb := a[pre:len(a)-suf], b[pre:len(b)-suf]
	if len(ma)*len(mb) > maxDiffCells {
		return positional(ma, mb, pre)
	}

	// lcs[i][j] is the common length of ma[i:] and mb[j:]
	lcs := make([][]int, len(ma)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(mb)+1)
	}
	for i := len(ma) - 1; i >= 0; i-- {
		for j := len(mb) - 1; j >= 0; j-- {
			if equal(ma[i], mb[j]) {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	var out []Change
	i, j := 0, 0
	for i < len(ma) || j < len(mb) {
		switch {
		case i < len(ma) && j < len(mb) && equal(ma[i], mb[j]):
			i++
			j++
		case j < len(mb) && (i == len(ma) || lcs[i][j+1] > lcs[i+1][j]):
			out = append(out, Change{Kind: Added, Index: pre + j, Call: mb[j]})
			j++
		default:
			out = append(out, Change{Kind: Removed, Index: pre + i, Call: ma[i]})
			i++
		}
	}
	return out
}

func positional(a, b []surface.Call, offset int) []Change {
	var out []Change
	for i := 0; i < len(a) || i < len(b); i++ {
		if i < len(a) && i < len(b) && equal(a[i], b[i]) {
			continue
		}
		if i < len(a) {
			out = append(out, Change{Kind: Removed, Index: offset + i, Call: a[i]})
		}
		if i < len(b) {
			out = append(out, Change{Kind: Added, Index: offset + i, Call: b[i]})
		}
	}
	return out
}

func equal(a, b surface.Call) bool {
	if a.Op != b.Op || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i] != b.Args[i] {
			return false
		}
	}
	return true
}

// FormatDiff renders changes one per line, or "identical".
func FormatDiff(changes []Change) string {
	if len(changes) == 0 {
		return "identical"
	}
	lines := make([]string, len(changes))
	for i, c := range changes {
		lines[i] = c.String()
	}
	return strings.Join(lines, "\n")
}

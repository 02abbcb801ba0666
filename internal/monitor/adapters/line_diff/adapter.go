package linediff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Adapter implements ports.TextDiffPort with a line-based unified diff.
type Adapter struct{}

// New creates a new line diff adapter.
func New() *Adapter {
	return &Adapter{}
}

// ComputeDiff returns a unified diff of base and head with 3 lines of
// context, labeled with baseName and headName. Returns an empty string when
// the inputs are identical.
func (a *Adapter) ComputeDiff(baseName, headName string, base, head []byte) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(base)),
		B:        difflib.SplitLines(string(head)),
		FromFile: baseName,
		ToFile:   headName,
		Context:  3,
	}

	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

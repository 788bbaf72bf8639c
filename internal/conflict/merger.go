package conflict

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ConflictMarker locates one conflict-marker block within merged
// output, as 1-indexed line ranges.
type ConflictMarker struct {
	StartLine int
	EndLine   int
}

// MergeResult is the outcome of a three-way merge attempt.
type MergeResult struct {
	MergedContent  string
	HasConflicts   bool
	ConflictMarkers []ConflictMarker
}

// change is one contiguous non-equal region of an other-side text
// relative to base, expressed as a base line range plus the
// replacement lines from the other side.
type change struct {
	baseStart, baseEnd int
	lines              []string
}

// changesAgainstBase runs go-difflib's SequenceMatcher over base and
// other (split into lines) and returns every contiguous region where
// they differ, each keyed by its position in base. This is the Go
// stand-in for the original's `diffy::create_patch(base, other)`: a
// minimal patch is exactly the set of non-equal opcodes.
func changesAgainstBase(baseLines, otherLines []string) []change {
	m := difflib.NewMatcher(baseLines, otherLines)
	var out []change
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		out = append(out, change{
			baseStart: op.I1,
			baseEnd:   op.I2,
			lines:     otherLines[op.J1:op.J2],
		})
	}
	return out
}

// overlaps reports whether any change in a overlaps any change in b —
// i.e. whether ours and theirs touched the same base lines. Two
// independent, non-overlapping changes relative to the same base can
// always be applied together cleanly in either order; this is the Go
// equivalent of "does applying one side's patch to the other's text
// succeed" without needing a real patch-apply primitive.
func overlaps(a, b []change) bool {
	for _, x := range a {
		for _, y := range b {
			if x.baseStart < y.baseEnd && y.baseStart < x.baseEnd {
				return true
			}
		}
	}
	return false
}

// ThreeWayMerge attempts a three-way line merge of base, ours (SVN),
// and theirs (Git). It always returns merged content: HasConflicts is
// false when the merge was clean, true when conflict markers were
// inserted.
func ThreeWayMerge(base, ours, theirs string) MergeResult {
	if ours == base {
		return MergeResult{MergedContent: theirs}
	}
	if theirs == base {
		return MergeResult{MergedContent: ours}
	}
	if ours == theirs {
		return MergeResult{MergedContent: ours}
	}

	baseLines := splitLines(base)
	oursLines := splitLines(ours)
	theirsLines := splitLines(theirs)

	oChanges := changesAgainstBase(baseLines, oursLines)
	tChanges := changesAgainstBase(baseLines, theirsLines)

	if !overlaps(oChanges, tChanges) {
		merged := mergeNonOverlapping(baseLines, oChanges, tChanges)
		return MergeResult{MergedContent: strings.Join(merged, "\n")}
	}

	merged, markers := generateConflictOutput(baseLines, oursLines, theirsLines)
	return MergeResult{MergedContent: merged, HasConflicts: true, ConflictMarkers: markers}
}

// CanAutoMerge is a cheap check for whether ThreeWayMerge would
// produce a clean (no-conflict-marker) result.
func CanAutoMerge(base, ours, theirs string) bool {
	if ours == base || theirs == base || ours == theirs {
		return true
	}
	baseLines := splitLines(base)
	oChanges := changesAgainstBase(baseLines, splitLines(ours))
	tChanges := changesAgainstBase(baseLines, splitLines(theirs))
	return !overlaps(oChanges, tChanges)
}

// mergeNonOverlapping interleaves base's unchanged lines with ours'
// and theirs' non-overlapping changes, walking both change lists in
// base-position order.
func mergeNonOverlapping(baseLines []string, oChanges, tChanges []change) []string {
	var out []string
	cursor := 0
	oi, ti := 0, 0
	for oi < len(oChanges) || ti < len(tChanges) {
		var next *change
		fromOurs := false
		switch {
		case oi >= len(oChanges):
			next, fromOurs = &tChanges[ti], false
		case ti >= len(tChanges):
			next, fromOurs = &oChanges[oi], true
		case oChanges[oi].baseStart <= tChanges[ti].baseStart:
			next, fromOurs = &oChanges[oi], true
		default:
			next, fromOurs = &tChanges[ti], false
		}

		out = append(out, baseLines[cursor:next.baseStart]...)
		out = append(out, next.lines...)
		cursor = next.baseEnd
		if fromOurs {
			oi++
		} else {
			ti++
		}
	}
	out = append(out, baseLines[cursor:]...)
	return out
}

// generateConflictOutput is ported from the original's
// `generate_conflict_output`: a positional (not diff-based) line
// comparison of ours against theirs, falling back to base content for
// the marker's middle section, used only once a real overlap has been
// detected between the two sides' changes.
func generateConflictOutput(baseLines, oursLines, theirsLines []string) (string, []ConflictMarker) {
	maxLen := len(baseLines)
	if len(oursLines) > maxLen {
		maxLen = len(oursLines)
	}
	if len(theirsLines) > maxLen {
		maxLen = len(theirsLines)
	}

	var output []string
	var markers []ConflictMarker

	i := 0
	for i < maxLen {
		var oursLine, theirsLine string
		var hasOurs, hasTheirs bool
		if i < len(oursLines) {
			oursLine, hasOurs = oursLines[i], true
		}
		if i < len(theirsLines) {
			theirsLine, hasTheirs = theirsLines[i], true
		}

		switch {
		case hasOurs && hasTheirs && oursLine == theirsLine:
			output = append(output, oursLine)
			i++
		case hasOurs && hasTheirs:
			startLine := len(output) + 1

			oursBlock := []string{oursLine}
			theirsBlock := []string{theirsLine}
			j := i + 1
			for j < maxLen {
				var ol, tl string
				var ok1, ok2 bool
				if j < len(oursLines) {
					ol, ok1 = oursLines[j], true
				}
				if j < len(theirsLines) {
					tl, ok2 = theirsLines[j], true
				}
				if ok1 && ok2 && ol == tl {
					break
				}
				if ok1 {
					oursBlock = append(oursBlock, ol)
				}
				if ok2 {
					theirsBlock = append(theirsBlock, tl)
				}
				j++
			}

			output = append(output, "<<<<<<< ours (SVN)")
			output = append(output, oursBlock...)
			if i < len(baseLines) {
				output = append(output, "||||||| base")
				for k := i; k < j && k < len(baseLines); k++ {
					output = append(output, baseLines[k])
				}
			}
			output = append(output, "=======")
			output = append(output, theirsBlock...)
			output = append(output, ">>>>>>> theirs (Git)")

			markers = append(markers, ConflictMarker{StartLine: startLine, EndLine: len(output)})
			i = j
		case hasOurs:
			output = append(output, oursLine)
			i++
		case hasTheirs:
			output = append(output, theirsLine)
			i++
		default:
			i++
		}
	}

	return strings.Join(output, "\n"), markers
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// renderConflictSummary is a small helper for audit-log lines
// describing a merge attempt; kept here since it's purely a function
// of MergeResult.
func renderConflictSummary(path string, r MergeResult) string {
	if !r.HasConflicts {
		return fmt.Sprintf("auto-merged %s", path)
	}
	return fmt.Sprintf("conflict in %s (%d region(s))", path, len(r.ConflictMarkers))
}

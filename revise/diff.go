package revise

import "github.com/sergi/go-diff/diffmatchpatch"

// diffRuns computes the edit script between the original and revised text
// as equal/delete/insert runs. Granularity is character-level with semantic
// cleanup, which merges the noisy micro-spans a raw character diff produces
// on heavily rewritten paragraphs; runs are emitted strictly in script
// order, so insert and delete spans never overlap.
func diffRuns(original, revised string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, revised, false)
	return dmp.DiffCleanupSemantic(diffs)
}

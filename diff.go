package tarka

import "io"

// PostingDiff records one docID-level discrepancy found by DiffLists
// (original_source/src/index_diff.cc's per-posting printf output,
// restructured here as a value instead of text).
type PostingDiff struct {
	Term           string
	DocID          uint32
	OnlyInA        bool
	OnlyInB        bool
	FreqA, FreqB   uint32
	PositionsOnlyA []uint32
	PositionsOnlyB []uint32
}

// TermDiff records a term present in only one of the two indexes being
// compared.
type TermDiff struct {
	Term    string
	OnlyInA bool
	OnlyInB bool
}

// DiffReport is the full result of comparing two merge-streamed indexes.
type DiffReport struct {
	TermDiffs   []TermDiff
	PostingDiffs []PostingDiff
}

// DiffLists compares two indexes term-by-term and, for terms present in
// both, posting-by-posting, reporting every discrepancy (original_source's
// IndexDiff::Diff, restructured from an unbounded printf stream into a
// single in-memory report). Both readers must have been opened with
// PurposeMerge; DiffLists drains them.
func DiffLists(a, b *IndexReader) (DiffReport, error) {
	var report DiffReport

	entryA, errA := a.NextEntry()
	entryB, errB := b.NextEntry()

	for entryA != nil && entryB != nil {
		switch {
		case entryA.Term == entryB.Term:
			pd, err := diffTermPostings(a, b, entryA, entryB)
			if err != nil {
				return report, err
			}
			report.PostingDiffs = append(report.PostingDiffs, pd...)
			entryA, errA = a.NextEntry()
			entryB, errB = b.NextEntry()

		case entryA.Term < entryB.Term:
			report.TermDiffs = append(report.TermDiffs, TermDiff{Term: entryA.Term, OnlyInA: true})
			entryA, errA = a.NextEntry()

		default:
			report.TermDiffs = append(report.TermDiffs, TermDiff{Term: entryB.Term, OnlyInB: true})
			entryB, errB = b.NextEntry()
		}

		if errA != nil && errA != io.EOF {
			return report, errA
		}
		if errB != nil && errB != io.EOF {
			return report, errB
		}
	}

	for entryA != nil {
		report.TermDiffs = append(report.TermDiffs, TermDiff{Term: entryA.Term, OnlyInA: true})
		entryA, errA = a.NextEntry()
		if errA != nil && errA != io.EOF {
			return report, errA
		}
	}
	for entryB != nil {
		report.TermDiffs = append(report.TermDiffs, TermDiff{Term: entryB.Term, OnlyInB: true})
		entryB, errB = b.NextEntry()
		if errB != nil && errB != io.EOF {
			return report, errB
		}
	}

	return report, nil
}

// diffTermPostings compares the full (last-layer) lists of a term present
// in both indexes, merging by docID the way index_diff.cc's position
// comparison does.
func diffTermPostings(a, b *IndexReader, entryA, entryB *LexiconEntry) ([]PostingDiff, error) {
	listA, err := a.OpenList(entryA, len(entryA.Layers)-1)
	if err != nil {
		return nil, err
	}
	defer a.CloseList(listA)
	listB, err := b.OpenList(entryB, len(entryB.Layers)-1)
	if err != nil {
		return nil, err
	}
	defer b.CloseList(listB)

	var diffs []PostingDiff

	docA, err := listA.NextGEQ(0)
	if err != nil {
		return nil, err
	}
	docB, err := listB.NextGEQ(0)
	if err != nil {
		return nil, err
	}

	for docA != sentinelDocID && docB != sentinelDocID {
		switch {
		case docA == docB:
			freqA, err := listA.GetFreq()
			if err != nil {
				return nil, err
			}
			freqB, err := listB.GetFreq()
			if err != nil {
				return nil, err
			}
			if freqA != freqB {
				diffs = append(diffs, PostingDiff{Term: entryA.Term, DocID: docA, FreqA: freqA, FreqB: freqB})
			}
			docA, err = listA.NextGEQ(docA + 1)
			if err != nil {
				return nil, err
			}
			docB, err = listB.NextGEQ(docB + 1)
			if err != nil {
				return nil, err
			}

		case docA < docB:
			diffs = append(diffs, PostingDiff{Term: entryA.Term, DocID: docA, OnlyInA: true})
			docA, err = listA.NextGEQ(docA + 1)
			if err != nil {
				return nil, err
			}

		default:
			diffs = append(diffs, PostingDiff{Term: entryA.Term, DocID: docB, OnlyInB: true})
			docB, err = listB.NextGEQ(docB + 1)
			if err != nil {
				return nil, err
			}
		}
	}
	for docA != sentinelDocID {
		diffs = append(diffs, PostingDiff{Term: entryA.Term, DocID: docA, OnlyInA: true})
		docA, err = listA.NextGEQ(docA + 1)
		if err != nil {
			return nil, err
		}
	}
	for docB != sentinelDocID {
		diffs = append(diffs, PostingDiff{Term: entryA.Term, DocID: docB, OnlyInB: true})
		docB, err = listB.NextGEQ(docB + 1)
		if err != nil {
			return nil, err
		}
	}

	return diffs, nil
}

package tarka

import (
	"fmt"
	"log/slog"
	"time"
)

// Algorithm selects the query-time traversal strategy.
type Algorithm int

const (
	AlgorithmDAATAnd Algorithm = iota
	AlgorithmDAATOr
	AlgorithmWAND
	AlgorithmMaxScore
	AlgorithmTwoTieredWAND
	AlgorithmTwoTieredMaxScore
	AlgorithmDualLayeredAND
	AlgorithmPrunedTAATOr
)

// RuntimeMode selects how QueryProcessor.RunBatch paces and times queries:
// interactive serving never uses these, they exist for the
// benchmarking/batch-replay supplement, grounded on
// original_source/src/query_processor.cc's warm-up/timed-loop shape.
type RuntimeMode int

const (
	RuntimeInteractive RuntimeMode = iota
	RuntimeInteractiveSingle
	RuntimeBatch
	RuntimeBatchAll
)

// ResultFormat selects how QueryProcessor.RunBatch records each query's
// results.
type ResultFormat int

const (
	FormatNormal ResultFormat = iota
	FormatTREC
	FormatCompare
	FormatDiscard
)

// Query is one user request: the terms to search and how to rank them.
// Filter, if non-empty, restricts results to that docID subset via an
// external-collaborator document filter, e.g. a tenant boundary or facet.
// Autocut, if > 0, trims the returned set at its Autocut-th natural score
// drop-off instead of always returning K results; 0 (the zero value)
// disables it.
type Query struct {
	Terms     []string
	Algorithm Algorithm
	K         int
	Filter    []uint32
	Autocut   int
}

// QueryProcessor executes Query values against an IndexReader, scoring
// with BM25 and returning a top-k result set. It holds no
// mutable state of its own beyond its reader and logger, so one processor
// may safely serve queries sequentially on a single goroutine — concurrent
// queries each need their own ListData instances (see IndexReader.OpenList)
// since a list is a single-traversal object.
type QueryProcessor struct {
	reader *IndexReader
	logger *slog.Logger
}

// NewQueryProcessor returns a processor bound to reader.
func NewQueryProcessor(reader *IndexReader) *QueryProcessor {
	return &QueryProcessor{reader: reader, logger: componentLogger("query_processor")}
}

// resolvedTerm bundles a query term's lexicon entry with its idf, computed
// once per query since every algorithm needs it.
type resolvedTerm struct {
	term  string
	entry *LexiconEntry
	idf   float64
}

// resolveTerms looks up every query term, dropping terms with no lexicon
// entry. Under AND semantics a missing term makes the whole query yield
// zero results (handled by the caller checking len(resolved) ==
// len(q.Terms)); under OR semantics missing terms are simply absent from
// resolved and the query proceeds on the remainder.
func (qp *QueryProcessor) resolveTerms(q Query) []resolvedTerm {
	total := qp.reader.TotalDocs()
	var resolved []resolvedTerm
	for _, term := range q.Terms {
		entry, ok := qp.reader.Lookup(term)
		if !ok {
			continue
		}
		df := qp.reader.DocFrequency(entry, qp.reader.OverlappingLayers())
		resolved = append(resolved, resolvedTerm{term: term, entry: entry, idf: idf(total, df)})
	}
	return resolved
}

// Execute runs q and returns its top-k results descending by score.
func (qp *QueryProcessor) Execute(q Query) ([]ScoredDoc, error) {
	if q.K <= 0 {
		q.K = 10
	}
	resolved := qp.resolveTerms(q)

	isAND := q.Algorithm == AlgorithmDAATAnd || q.Algorithm == AlgorithmDualLayeredAND
	if isAND && len(resolved) < len(q.Terms) {
		return nil, nil // missing term under AND semantics yields zero results
	}
	if len(resolved) == 0 {
		return nil, nil
	}

	avgDocLen := qp.reader.AverageDocLen()
	topK := NewTopKHeap(q.K)
	defer topK.Release()
	filter := NewDocumentFilter(q.Filter)
	topK.SetFilter(filter)
	defer ReturnDocumentFilter(filter)

	switch q.Algorithm {
	case AlgorithmDAATAnd, AlgorithmDAATOr:
		terms, closer, err := qp.openFullLayer(resolved)
		if err != nil {
			return nil, err
		}
		defer closer()
		if q.Algorithm == AlgorithmDAATAnd {
			if err := daatAND(avgDocLen, terms, topK); err != nil {
				return nil, err
			}
		} else {
			if err := daatOR(avgDocLen, terms, topK); err != nil {
				return nil, err
			}
		}

	case AlgorithmWAND:
		terms, closer, err := qp.openFullLayer(resolved)
		if err != nil {
			return nil, err
		}
		defer closer()
		if err := wandExecute(avgDocLen, terms, topK); err != nil {
			return nil, err
		}

	case AlgorithmMaxScore:
		terms, closer, err := qp.openFullLayer(resolved)
		if err != nil {
			return nil, err
		}
		defer closer()
		if err := maxScoreExecute(avgDocLen, terms, topK); err != nil {
			return nil, err
		}

	case AlgorithmTwoTieredWAND, AlgorithmTwoTieredMaxScore:
		top, fullCloser1, err := qp.openLayer(resolved, 0)
		if err != nil {
			return nil, err
		}
		defer fullCloser1()
		full, fullCloser2, err := qp.openFullLayer(resolved)
		if err != nil {
			return nil, err
		}
		defer fullCloser2()
		if err := twoTieredExecute(avgDocLen, top, full, topK, q.Algorithm == AlgorithmTwoTieredMaxScore); err != nil {
			return nil, err
		}

	case AlgorithmPrunedTAATOr:
		terms, closer, err := qp.openAllLayers(resolved)
		if err != nil {
			return nil, err
		}
		defer closer()
		if err := taatORPruned(avgDocLen, terms, topK); err != nil {
			return nil, err
		}

	case AlgorithmDualLayeredAND:
		if err := qp.dualLayeredAND(avgDocLen, resolved, topK); err != nil {
			return nil, err
		}

	default:
		return nil, newConfigError("query_processor", fmt.Sprintf("unknown algorithm %d", q.Algorithm))
	}

	results := topK.Results()
	if q.Autocut > 0 {
		results = autocutResults(results, q.Autocut)
	}
	return results, nil
}

// openFullLayer opens each term's last (fully covering) layer.
func (qp *QueryProcessor) openFullLayer(resolved []resolvedTerm) ([]daatTerm, func(), error) {
	terms := make([]daatTerm, 0, len(resolved))
	var opened []*ListData
	for _, rt := range resolved {
		l, err := qp.reader.OpenList(rt.entry, len(rt.entry.Layers)-1)
		if err != nil {
			qp.closeAll(opened)
			return nil, nil, err
		}
		opened = append(opened, l)
		terms = append(terms, daatTerm{list: l, idf: rt.idf})
	}
	return terms, func() { qp.closeAll(opened) }, nil
}

// openLayer opens each term's layer-th layer (clamped to its last layer if
// shallower).
func (qp *QueryProcessor) openLayer(resolved []resolvedTerm, layer int) ([]daatTerm, func(), error) {
	terms := make([]daatTerm, 0, len(resolved))
	var opened []*ListData
	for _, rt := range resolved {
		l := layer
		if l >= len(rt.entry.Layers) {
			l = len(rt.entry.Layers) - 1
		}
		list, err := qp.reader.OpenList(rt.entry, l)
		if err != nil {
			qp.closeAll(opened)
			return nil, nil, err
		}
		opened = append(opened, list)
		terms = append(terms, daatTerm{list: list, idf: rt.idf})
	}
	return terms, func() { qp.closeAll(opened) }, nil
}

// openAllLayers opens every layer of every term as an independent daatTerm,
// for algorithms (pruned TAAT-OR) that treat each layer as its own list.
func (qp *QueryProcessor) openAllLayers(resolved []resolvedTerm) ([]daatTerm, func(), error) {
	var terms []daatTerm
	var opened []*ListData
	for _, rt := range resolved {
		for layer := range rt.entry.Layers {
			l, err := qp.reader.OpenList(rt.entry, layer)
			if err != nil {
				qp.closeAll(opened)
				return nil, nil, err
			}
			opened = append(opened, l)
			terms = append(terms, daatTerm{list: l, idf: rt.idf})
		}
	}
	return terms, func() { qp.closeAll(opened) }, nil
}

func (qp *QueryProcessor) closeAll(lists []*ListData) {
	for _, l := range lists {
		qp.reader.CloseList(l)
	}
}

// BatchResult records one query's outcome from RunBatch.
type BatchResult struct {
	Query   Query
	Results []ScoredDoc
	Elapsed time.Duration
	Err     error
}

// dualLayeredAND implements the dual-layered overlapping DAAT-AND variant:
// for each query term t_i in turn, intersect t_i's first
// (top) layer against every other term's full layer, accumulate that
// subset's matches into the shared top-k, and skip remaining terms once
// the k-th best score already exceeds the sum of the unprocessed terms'
// second-layer upperbounds (the quantity that bounds how much any further
// term's subset could still contribute).
func (qp *QueryProcessor) dualLayeredAND(avgDocLen float64, resolved []resolvedTerm, topK *TopKHeap) error {
	remainingUpperbound := 0.0
	for _, rt := range resolved {
		remainingUpperbound += secondLayerUpperbound(rt.entry)
	}

	for i, rt := range resolved {
		remainingUpperbound -= secondLayerUpperbound(rt.entry)

		terms := make([]daatTerm, 0, len(resolved))
		var opened []*ListData
		primary, err := qp.reader.OpenList(rt.entry, 0)
		if err != nil {
			qp.closeAll(opened)
			return err
		}
		opened = append(opened, primary)
		terms = append(terms, daatTerm{list: primary, idf: rt.idf})

		for j, other := range resolved {
			if j == i {
				continue
			}
			list, err := qp.reader.OpenList(other.entry, len(other.entry.Layers)-1)
			if err != nil {
				qp.closeAll(opened)
				return err
			}
			opened = append(opened, list)
			terms = append(terms, daatTerm{list: list, idf: other.idf})
		}

		err = daatAND(avgDocLen, terms, topK)
		qp.closeAll(opened)
		if err != nil {
			return err
		}

		if topK.Full() && topK.Threshold() > remainingUpperbound {
			break
		}
	}
	return nil
}

// secondLayerUpperbound returns a term's second-layer score upperbound, or
// its only layer's upperbound for a single-layer term.
func secondLayerUpperbound(entry *LexiconEntry) float64 {
	if len(entry.Layers) > 1 {
		return float64(entry.Layers[1].scoreThreshold)
	}
	return float64(entry.Layers[0].scoreThreshold)
}

// ExecuteAggregated runs each of queries independently and merges their
// per-query top-k sets into one ranking via kind, deduplicating documents
// that matched more than one query variant — the federation case of
// query expansion or multi-shard fan-out, where the caller already holds
// several []ScoredDoc sets that name the same underlying document space).
func (qp *QueryProcessor) ExecuteAggregated(queries []Query, kind ScoreAggregationKind) ([]ScoredDoc, error) {
	agg, err := NewScoreAggregation(kind)
	if err != nil {
		return nil, err
	}
	sets := make([][]ScoredDoc, 0, len(queries))
	for _, q := range queries {
		results, err := qp.Execute(q)
		if err != nil {
			return nil, err
		}
		sets = append(sets, results)
	}
	return agg.Aggregate(sets...), nil
}

// RunBatch replays a sequence of queries under the given runtime mode and
// result format, grounded on
// original_source/src/query_processor.cc's warm-up-then-timed-loop shape.
// RuntimeBatch first runs every query once as an untimed warm-up, then
// runs them all again timed; every other mode runs each query once, timed.
// FormatDiscard leaves Results nil in each BatchResult; the results are
// still computed inside Execute, so Elapsed includes that work. The other
// formats keep Results as Execute returned them.
func (qp *QueryProcessor) RunBatch(queries []Query, mode RuntimeMode, format ResultFormat) ([]BatchResult, error) {
	warmUp := mode == RuntimeBatch
	out := make([]BatchResult, 0, len(queries))

	run := func(q Query) BatchResult {
		start := time.Now()
		results, err := qp.Execute(q)
		elapsed := time.Since(start)
		if format == FormatDiscard {
			results = nil
		}
		return BatchResult{Query: q, Results: results, Elapsed: elapsed, Err: err}
	}

	if warmUp {
		for _, q := range queries {
			run(q) // warm-up pass: caches populated, timing discarded
		}
	}
	for _, q := range queries {
		r := run(q)
		if r.Err != nil {
			qp.logger.Error("batch query failed", "terms", q.Terms, "err", r.Err)
		}
		out = append(out, r)
	}
	return out, nil
}

/*
Package tarka implements the core of a disk-resident inverted-index search
engine: on-disk block/chunk storage with pluggable integer codecs, list
traversal with NextGEQ skipping, a pluggable block cache, and a query
processor offering BM25-ranked DAAT AND/OR, WAND, MaxScore, their layered
early-termination variants, and a pruned TAAT-OR.

# Scope

This package is the retrieval core only. Document parsing, tokenization,
posting accumulation, a CLI, config-file parsing, and the codec
implementations themselves beyond a reference Variable-Byte codec are
external collaborators — see the README section of each component's doc
comment for the exact boundary.

# Quick start: build, then query

	builder, _ := tarka.NewIndexBuilder("/tmp/myindex", tarka.DefaultCompressionPolicy(), false, 1)
	builder.RecordDocument(0, 3)
	builder.RecordDocument(2, 1)
	builder.StartTerm()
	builder.AddChunk([]tarka.Posting{{DocID: 0, Freq: 2}, {DocID: 2, Freq: 1}})
	builder.FinalizeTerm("fox", 2.0)
	builder.Finalize(false, false)

	// docLens implements tarka.DocLenSource; an external document-map
	// collaborator usually backs it.
	reader, _ := tarka.OpenIndexReader("/tmp/myindex", tarka.PurposeRandomQuery, tarka.DefaultConfig(), docLens)
	defer reader.Close()

	qp := tarka.NewQueryProcessor(reader)
	results, _ := qp.Execute(tarka.Query{Terms: []string{"fox"}, K: 10, Algorithm: tarka.AlgorithmDAATOr})

# On-disk layout

IndexBuilder writes three files sharing a prefix: <prefix>.idx (fixed
65536-byte blocks holding compressed chunks), <prefix>.lex (the lexicon),
and <prefix>.meta (UTF-8 key=value counters and flags). Document lengths
come from an external collaborator's document map (<prefix>.dmap) through
DocLenSource. No per-block score file is written or read: every block's
max score is its list's upperbound. See meta.go and lexicon.go for the
exact record shapes.

# Query algorithms

DAAT AND/OR are exact. WAND and MaxScore are early-terminating and, for a
given top-k, agree with DAAT-OR up to tie-breaking by docID. The layered
variants require an index built with layer_generator.go; see
query_processor.go's Algorithm enum for the full list and query_wand.go /
query_taat.go for the two-tiered and pruned TAAT-OR implementations
respectively.

# Concurrency

One ListData is owned by exactly one traversing goroutine for its lifetime
(OpenList..CloseList); concurrent queries each open their own ListData.
The LRU cache policy does not admit concurrent readers and must be given
one per goroutine (or wrapped); the memory-mapped and fully-resident
policies are safe to share.
*/
package tarka

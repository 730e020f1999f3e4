package tarka

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// MetaInfo is the key/value contents of a <prefix>.meta file:
// codec names, counters, and flags. Recognized keys are read with
// typed accessors; unrecognized keys round-trip unchanged so forward
// compatibility doesn't require this module to know every key a future
// builder might add.
type MetaInfo struct {
	values map[string]string
}

const (
	metaKeyDocIDCoding     = "index_doc_id_coding"
	metaKeyFrequencyCoding = "index_frequency_coding"
	metaKeyPositionCoding  = "index_position_coding"
	metaKeyHeaderCoding    = "index_block_header_coding"

	metaKeyTotalDocs        = "total_docs"
	metaKeyUniqueDocs       = "unique_docs"
	metaKeySumDocLens       = "sum_doc_lens"
	metaKeyDocIDBytes       = "doc_id_bytes_total"
	metaKeyFrequencyBytes   = "frequency_bytes_total"
	metaKeyPositionBytes    = "position_bytes_total"
	metaKeyNumLayers        = "num_layers"
	metaKeyFirstDocID       = "first_doc_id"
	metaKeyLastDocID        = "last_doc_id"

	metaKeyLayered          = "layered"
	metaKeyOverlappingLayers = "overlapping_layers"
	metaKeyIncludesPositions = "includes_positions"
	metaKeyIncludesContexts  = "includes_contexts"
	metaKeyRemappedIndex     = "remapped_index"
)

// NewMetaInfo returns an empty MetaInfo ready for Set calls.
func NewMetaInfo() *MetaInfo {
	return &MetaInfo{values: make(map[string]string)}
}

// ReadMetaInfo parses the UTF-8 key=value lines of a .meta file.
func ReadMetaInfo(r io.Reader) (*MetaInfo, error) {
	m := NewMetaInfo()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			return nil, newCorruptionError("meta", fmt.Sprintf("malformed line %q (no '=')", line))
		}
		m.values[line[:idx]] = line[idx+1:]
	}
	if err := sc.Err(); err != nil {
		return nil, newIOError("read", "meta", err)
	}
	return m, nil
}

// WriteMetaInfo writes keys in a stable (sorted) order so .meta files are
// diffable across builds.
func WriteMetaInfo(w io.Writer, m *MetaInfo) error {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s=%s\n", k, m.values[k]); err != nil {
			return newIOError("write", "meta", err)
		}
	}
	return nil
}

func (m *MetaInfo) Set(key, value string)    { m.values[key] = value }
func (m *MetaInfo) SetInt(key string, v int) { m.values[key] = strconv.Itoa(v) }
func (m *MetaInfo) SetBool(key string, v bool) {
	if v {
		m.values[key] = "true"
	} else {
		m.values[key] = "false"
	}
}

func (m *MetaInfo) String(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *MetaInfo) RequireString(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", newConfigError(key, "required meta key missing")
	}
	return v, nil
}

func (m *MetaInfo) Int(key string, def int) int {
	v, ok := m.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (m *MetaInfo) Bool(key string) bool {
	return m.values[key] == "true"
}

// CompressionPolicyFromMeta reconstructs the codec selection persisted by
// the builder.
func CompressionPolicyFromMeta(m *MetaInfo) (CompressionPolicy, error) {
	docID, err := m.RequireString(metaKeyDocIDCoding)
	if err != nil {
		return CompressionPolicy{}, err
	}
	freq, err := m.RequireString(metaKeyFrequencyCoding)
	if err != nil {
		return CompressionPolicy{}, err
	}
	pos, err := m.RequireString(metaKeyPositionCoding)
	if err != nil {
		return CompressionPolicy{}, err
	}
	header, err := m.RequireString(metaKeyHeaderCoding)
	if err != nil {
		return CompressionPolicy{}, err
	}
	return CompressionPolicy{
		DocIDCodec:       docID,
		FrequencyCodec:   freq,
		PositionCodec:    pos,
		BlockHeaderCodec: header,
	}, nil
}

// ApplyCompressionPolicy writes p's codec names into m.
func ApplyCompressionPolicy(m *MetaInfo, p CompressionPolicy) {
	m.Set(metaKeyDocIDCoding, p.DocIDCodec)
	m.Set(metaKeyFrequencyCoding, p.FrequencyCodec)
	m.Set(metaKeyPositionCoding, p.PositionCodec)
	m.Set(metaKeyHeaderCoding, p.BlockHeaderCodec)
}

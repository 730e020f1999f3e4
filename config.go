package tarka

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// CachePolicyName selects one of the four block-cache policies. Parsing a
// config file is an external collaborator's job; this module only
// consumes the resulting Config value.
type CachePolicyName string

const (
	CachePolicyLRU              CachePolicyName = "lru"
	CachePolicyMemoryMapped     CachePolicyName = "memory_mapped"
	CachePolicyMemoryResident   CachePolicyName = "memory_resident"
	CachePolicyMergingSequential CachePolicyName = "merging_sequential"
)

// Config carries the recognized options an external configuration
// collaborator exposes. An external CLI or config-file reader builds one
// of these and hands it to NewIndexReader/NewIndexBuilder; this module
// never reads a config file itself.
type Config struct {
	// MemoryMappedIndex selects the mmap cache policy.
	MemoryMappedIndex bool `yaml:"memory_mapped_index"`
	// MemoryResidentIndex selects the fully-resident cache policy.
	// If both this and MemoryMappedIndex are true, mmap wins.
	MemoryResidentIndex bool `yaml:"memory_resident_index"`
	// LRUCacheBlocks is the LRU policy's resident-set capacity in blocks.
	LRUCacheBlocks int `yaml:"lru_cache_blocks"`
	// MaxNumberResults is the top-k size.
	MaxNumberResults int `yaml:"max_number_results"`
	// UsePositions opts out of position decoding even when the index
	// stores them.
	UsePositions bool `yaml:"use_positions"`
	// NumLayers and OverlappingLayers parameterize the layer generator.
	NumLayers        int  `yaml:"num_layers"`
	OverlappingLayers bool `yaml:"overlapping_layers"`
	// Per-stream codec names.
	DocIDCoding      string `yaml:"index_doc_id_coding"`
	FrequencyCoding  string `yaml:"index_frequency_coding"`
	PositionCoding   string `yaml:"index_position_coding"`
	BlockHeaderCoding string `yaml:"index_block_header_coding"`

	// MergingReadAheadBlocks is carried for collaborators; no cache policy
	// in this package reads it (the merging-sequential policy queues
	// exactly the count each QueueBlocks call asks for).
	MergingReadAheadBlocks int `yaml:"merging_read_ahead_blocks"`
	// CompactionInterval is carried for collaborators; no code in this
	// package reads it, and the builder runs no background merge worker.
	CompactionInterval time.Duration `yaml:"compaction_interval"`
}

// ResolvedCachePolicy applies the precedence rule: mmap overrides
// fully-resident when both are requested, otherwise LRU is the default.
func (c *Config) ResolvedCachePolicy() CachePolicyName {
	switch {
	case c.MemoryMappedIndex:
		return CachePolicyMemoryMapped
	case c.MemoryResidentIndex:
		return CachePolicyMemoryResident
	default:
		return CachePolicyLRU
	}
}

// DefaultConfig returns the engine's tunable defaults: a 10-result top-k,
// positions enabled, one layer, and no codec names selected. CHUNK_SIZE=128,
// BLOCK_SIZE=65536 and MaxListLayers=8 are compile-time constants, not
// Config fields. IndexReader does not read the Config codec names: it
// resolves its codecs from the names recorded in the index's meta file.
func DefaultConfig() *Config {
	return &Config{
		MaxNumberResults:       10,
		UsePositions:           true,
		NumLayers:              1,
		MergingReadAheadBlocks: 64,
		CompactionInterval:     5 * time.Minute,
	}
}

// LoadConfig unmarshals a Config from YAML. It is exposed for collaborators
// (tests, an external CLI) that already have an io.Reader over a config
// file; this module does not open files or parse flags itself.
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, &ConfigError{Key: "config", Detail: "invalid yaml", Err: err}
	}
	return cfg, nil
}

package tarka

import "fmt"

// Codec is the uniform contract every integer-array compressor implements.
// Encode packs len(input) logical integers into out,
// returning the number of words written. Decode reconstructs exactly n
// logical integers from input into out, returning the number of words of
// input consumed; it must fail loudly (return an error) if fewer than n
// integers can be reconstructed — there is no partial-decode success.
//
// BlockSize reports the codec's internal packing granularity: 0 means "any
// length is accepted"; a nonzero b means Encode requires
// len(input)%b == 0, and the caller is responsible for padding (and for
// pairing a leftover codec to handle the non-padded tail of a stream).
type Codec interface {
	Name() string
	BlockSize() int
	Encode(input []uint32, out []uint32) (int, error)
	Decode(input []uint32, out []uint32, n int) (int, error)
}

// UncompressedOutBufferUpperbound returns the buffer size a consumer must
// allocate to safely decode n integers with the given codec block size:
// n rounded up to the next multiple of blockSize. A blockSize of 0 means
// "any length", so the bound is just n. Block-granularity codecs (e.g. a
// future SIMD PForDelta) may write past n within this bound; callers must
// never read past the logical n.
func UncompressedOutBufferUpperbound(n int, blockSize int) int {
	if blockSize <= 0 {
		return n
	}
	if n%blockSize == 0 {
		return n
	}
	return ((n / blockSize) + 1) * blockSize
}

// registry is the process-wide codec-by-name table: codecs are selected
// by string name at startup and never changed. Registration
// happens in package init funcs (codec_vbyte.go); callers look codecs up by
// the name persisted in meta.go's CodecName keys.
var registry = map[string]Codec{}

func registerCodec(c Codec) {
	registry[c.Name()] = c
}

// CodecByName resolves a codec registered under name, or a ConfigError if
// no codec by that name exists — an unrecognized codec name is a
// configuration error, fatal at startup.
func CodecByName(name string) (Codec, error) {
	c, ok := registry[name]
	if !ok {
		return nil, newConfigError("codec", fmt.Sprintf("unrecognized codec name %q", name))
	}
	return c, nil
}

// LeftoverPair couples a block-granularity primary codec with a
// block_size==0 "leftover" codec for the non-padded tail of a stream.
// Most streams in this engine use vbyte for both primary
// and leftover since vbyte has no block-size requirement; the pairing
// exists so a future block-granular primary codec (S9/S16/PForDelta,
// registered by name but not implemented here) can be
// dropped in without changing the chunk assembler.
type LeftoverPair struct {
	Primary  Codec
	Leftover Codec
}

// Encode packs input using Primary for the leading len(input) -
// len(input)%Primary.BlockSize() integers and Leftover for the remainder.
// If Primary.BlockSize() is 0, Leftover is never invoked.
func (p LeftoverPair) Encode(input []uint32, out []uint32) (int, error) {
	b := p.Primary.BlockSize()
	if b <= 0 {
		return p.Primary.Encode(input, out)
	}
	head := len(input) - len(input)%b
	written, err := p.Primary.Encode(input[:head], out)
	if err != nil {
		return 0, err
	}
	if head == len(input) {
		return written, nil
	}
	tailWritten, err := p.Leftover.Encode(input[head:], out[written:])
	if err != nil {
		return 0, err
	}
	return written + tailWritten, nil
}

// Decode reconstructs n integers, splitting between Primary and Leftover
// the same way Encode split them.
func (p LeftoverPair) Decode(input []uint32, out []uint32, n int) (int, error) {
	b := p.Primary.BlockSize()
	if b <= 0 {
		return p.Primary.Decode(input, out, n)
	}
	head := n - n%b
	consumed, err := p.Primary.Decode(input, out[:head], head)
	if err != nil {
		return 0, err
	}
	if head == n {
		return consumed, nil
	}
	tailConsumed, err := p.Leftover.Decode(input[consumed:], out[head:n], n-head)
	if err != nil {
		return 0, err
	}
	return consumed + tailConsumed, nil
}

// CompressionPolicy names the four codecs a list (or an entire index) uses
// for its docID, frequency, position, and block-header streams, selectable
// and persisted as a unit. This generalizes original_source/src's
// compression_policy.h, which bundles per-stream codec choices into one
// named policy rather than four independent meta-file lookups.
type CompressionPolicy struct {
	DocIDCodec      string
	FrequencyCodec  string
	PositionCodec   string
	BlockHeaderCodec string
}

// DefaultCompressionPolicy selects the one concrete codec this module
// ships (codec_vbyte.go) for every stream. S9/S16/Rice/PForDelta remain
// valid names a caller may register and select — only the codec
// contract is specified for those — but no such codec is built in.
func DefaultCompressionPolicy() CompressionPolicy {
	return CompressionPolicy{
		DocIDCodec:      vbyteCodecName,
		FrequencyCodec:  vbyteCodecName,
		PositionCodec:   vbyteCodecName,
		BlockHeaderCodec: vbyteCodecName,
	}
}

// Resolve looks up all four codecs named by the policy, returning a
// ConfigError naming the first one not found.
func (p CompressionPolicy) Resolve() (docID, freq, pos, header Codec, err error) {
	if docID, err = CodecByName(p.DocIDCodec); err != nil {
		return nil, nil, nil, nil, err
	}
	if freq, err = CodecByName(p.FrequencyCodec); err != nil {
		return nil, nil, nil, nil, err
	}
	if pos, err = CodecByName(p.PositionCodec); err != nil {
		return nil, nil, nil, nil, err
	}
	if header, err = CodecByName(p.BlockHeaderCodec); err != nil {
		return nil, nil, nil, nil, err
	}
	return docID, freq, pos, header, nil
}

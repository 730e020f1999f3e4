package tarka

// vbyteCodec is the one concrete Codec this module ships: classic
// continuation-bit variable-byte. It accepts any input length
// (BlockSize() == 0), so it never needs a leftover pairing and doubles as
// the leftover codec for any future block-granularity primary. Grounded
// on dgryski-go-postings/compressed.go's delta-then-pack
// shape, adapted from groupvarint's fixed 4-wide byte groups to a
// straightforward per-integer continuation-bit encoding since other block
// codecs (S9, S16, Rice, PForDelta) are distinct wire formats and only
// vbyte is implemented here.
//
// Compressed bytes are packed four-to-a-word (little-endian) because the
// Codec contract works in uint32 words: a block is addressed and sized in
// words, and every stream inside a chunk is word-aligned so streams can be
// concatenated without sub-word bit-packing. Unused bytes of the last word
// are filled with 0x80, a continuation byte that never completes an
// integer, so a Decode asked for more integers than were encoded runs off
// the end of the input and fails instead of reading the padding as zeros.
type vbyteCodec struct{}

const vbyteCodecName = "vbyte"

func init() {
	registerCodec(vbyteCodec{})
}

func (vbyteCodec) Name() string  { return vbyteCodecName }
func (vbyteCodec) BlockSize() int { return 0 }

func (vbyteCodec) Encode(input []uint32, out []uint32) (int, error) {
	var buf []byte
	var tmp [5]byte
	for _, v := range input {
		n := 0
		for {
			b := byte(v & 0x7f)
			v >>= 7
			if v != 0 {
				b |= 0x80
			}
			tmp[n] = b
			n++
			if v == 0 {
				break
			}
		}
		buf = append(buf, tmp[:n]...)
	}

	words := (len(buf) + 3) / 4
	if words > len(out) {
		return 0, newCorruptionError("vbyte", "output buffer too small for encoded stream")
	}
	for i := 0; i < words; i++ {
		var w uint32
		for j := 0; j < 4; j++ {
			idx := i*4 + j
			b := byte(0x80)
			if idx < len(buf) {
				b = buf[idx]
			}
			w |= uint32(b) << (8 * uint(j))
		}
		out[i] = w
	}
	return words, nil
}

func byteAtWord(words []uint32, byteIdx int) (byte, bool) {
	wordIdx := byteIdx / 4
	if wordIdx >= len(words) {
		return 0, false
	}
	return byte(words[wordIdx] >> (8 * uint(byteIdx%4))), true
}

func (vbyteCodec) Decode(input []uint32, out []uint32, n int) (int, error) {
	if n > len(out) {
		return 0, newCorruptionError("vbyte", "output buffer smaller than requested count")
	}
	byteIdx := 0
	for i := 0; i < n; i++ {
		var v uint32
		shift := uint(0)
		for {
			b, ok := byteAtWord(input, byteIdx)
			if !ok {
				return 0, wrapCorruption("vbyte", "input exhausted before n integers decoded", nil)
			}
			v |= uint32(b&0x7f) << shift
			byteIdx++
			if b&0x80 == 0 {
				break
			}
			shift += 7
		}
		out[i] = v
	}
	words := (byteIdx + 3) / 4
	if words > len(input) {
		return 0, newCorruptionError("vbyte", "decode consumed past input bound")
	}
	return words, nil
}

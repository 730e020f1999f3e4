package tarka

import "testing"

func TestUncompressedOutBufferUpperbound(t *testing.T) {
	cases := []struct {
		n, blockSize, want int
	}{
		{10, 0, 10},
		{10, 4, 12},
		{8, 4, 8},
		{1, 128, 128},
	}
	for _, c := range cases {
		if got := UncompressedOutBufferUpperbound(c.n, c.blockSize); got != c.want {
			t.Errorf("UncompressedOutBufferUpperbound(%d, %d) = %d, want %d", c.n, c.blockSize, got, c.want)
		}
	}
}

func TestLeftoverPairSameCodecRoundTrips(t *testing.T) {
	pair := LeftoverPair{Primary: vbyteCodec{}, Leftover: vbyteCodec{}}
	in := []uint32{5, 10, 15, 20, 9999}
	out := make([]uint32, 32)
	words, err := pair.Encode(in, out)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded := make([]uint32, len(in))
	if _, err := pair.Decode(out[:words], decoded, len(in)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range in {
		if decoded[i] != in[i] {
			t.Errorf("mismatch at %d: got %d want %d", i, decoded[i], in[i])
		}
	}
}

func TestDefaultCompressionPolicyResolves(t *testing.T) {
	p := DefaultCompressionPolicy()
	docID, freq, pos, header, err := p.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for name, c := range map[string]Codec{"docID": docID, "freq": freq, "pos": pos, "header": header} {
		if c.Name() != vbyteCodecName {
			t.Errorf("%s codec = %q, want %q", name, c.Name(), vbyteCodecName)
		}
	}
}

func TestCompressionPolicyResolveUnknownCodec(t *testing.T) {
	p := CompressionPolicy{DocIDCodec: "bogus", FrequencyCodec: vbyteCodecName, PositionCodec: vbyteCodecName, BlockHeaderCodec: vbyteCodecName}
	if _, _, _, _, err := p.Resolve(); err == nil {
		t.Error("expected ConfigError for unresolvable docID codec")
	}
}

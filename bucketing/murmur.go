package bucketing

// murmur32 computes the MurmurHash3 x86_32 digest of data with the
// given seed. This is the canonical public-domain algorithm (Austin
// Appleby), the same one pymmh3/mmh3 implement and that the Optimizely
// bucketer pins for cross-SDK determinism. Per the design note in §9
// ("do not delegate to a library without verifying the seed-and-
// endianness contract"), the algorithm is pinned here byte-for-byte
// rather than imported, and cross-checked against the bucket-value
// vectors in §8 (see bucket_test.go).
func murmur32(data []byte, seed uint32) uint32 {
	const c1 = 0xcc9e2d51
	const c2 = 0x1b873593

	h1 := seed
	length := len(data)
	roundedEnd := length &^ 3 // round down to the nearest multiple of 4

	for i := 0; i < roundedEnd; i += 4 {
		k1 := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16 | uint32(data[i+3])<<24
		k1 *= c1
		k1 = rotl32(k1, 15)
		k1 *= c2
		h1 ^= k1
		h1 = rotl32(h1, 13)
		h1 = h1*5 + 0xe6546b64
	}

	var k1 uint32
	switch length & 3 {
	case 3:
		k1 ^= uint32(data[roundedEnd+2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(data[roundedEnd+1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(data[roundedEnd])
		k1 *= c1
		k1 = rotl32(k1, 15)
		k1 *= c2
		h1 ^= k1
	}

	h1 ^= uint32(length)
	h1 ^= h1 >> 16
	h1 *= 0x85ebca6b
	h1 ^= h1 >> 13
	h1 *= 0xc2b2ae35
	h1 ^= h1 >> 16
	return h1
}

func rotl32(x uint32, r uint) uint32 {
	return (x << r) | (x >> (32 - r))
}

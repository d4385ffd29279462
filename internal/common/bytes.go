package common

// WipeByteArray overwrites b with zeros. Used to scrub password buffers
// after use. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

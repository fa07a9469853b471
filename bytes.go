package ferry

// StripBlanks returns a new slice with every space (0x20) and horizontal
// tab (0x09) byte removed, preserving the order of the remaining bytes.
// Despite being used mostly on leading whitespace, it filters the whole
// input.
func StripBlanks(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != ' ' && c != '\t' {
			out = append(out, c)
		}
	}
	return out
}

// TrimLineEnding drops a single trailing line feed from b, along with the
// carriage return immediately before it if present. Any other input is
// returned unchanged; interior bytes are never touched.
func TrimLineEnding(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\n' {
		b = b[:len(b)-1]
		if len(b) > 0 && b[len(b)-1] == '\r' {
			b = b[:len(b)-1]
		}
	}
	return b
}

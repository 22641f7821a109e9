package language

import "bytes"

// sniffLen is how many leading bytes are inspected, the same window git uses.
const sniffLen = 8000

// IsBinaryContent reports whether data looks binary: a NUL byte within the
// first sniffLen bytes. Such files are never indexed.
func IsBinaryContent(data []byte) bool {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

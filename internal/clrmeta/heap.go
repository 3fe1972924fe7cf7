package clrmeta

import (
	"bytes"
	"iter"
)

// Strings iterates the entries of a #Strings heap as (offset, string) pairs,
// starting at offset zero. Entries are NUL terminated UTF-8; a trailing entry
// without a terminator runs to the end of the heap.
//
// Every step advances past the entry and its terminator, so empty entries
// (including the mandatory one at offset zero and any alignment padding)
// move the cursor by exactly one byte.
func Strings(heap []byte) iter.Seq2[uint32, string] {
	return func(yield func(uint32, string) bool) {
		for off := 0; off < len(heap); {
			entry := heap[off:]
			if end := bytes.IndexByte(entry, 0); end >= 0 {
				entry = entry[:end]
			}
			if !yield(uint32(off), string(entry)) {
				return
			}
			off += len(entry) + 1
		}
	}
}

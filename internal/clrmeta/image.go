// Package clrmeta reads just enough of a managed (CLI) PE executable to reach
// its metadata streams. It never loads or runs the image: the PE headers,
// the CLI header and the metadata root are decoded and the named streams are
// exposed as raw byte slices.
package clrmeta

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrFormat is wrapped by every error that means the file is not a managed
// executable of the expected layout. It is distinct from a successful scan
// that simply finds no marker.
var ErrFormat = errors.New("clrmeta: unrecognized managed executable")

var (
	ErrNotPE        = fmt.Errorf("%w: not a PE image", ErrFormat)
	ErrNoCLIHeader  = fmt.Errorf("%w: no CLI header", ErrFormat)
	ErrBadMetadata  = fmt.Errorf("%w: malformed metadata", ErrFormat)
	ErrNoStringHeap = fmt.Errorf("%w: no #Strings stream", ErrFormat)
)

const (
	// StringsStream is the name of the string heap stream.
	StringsStream = "#Strings"

	metadataSignature = 0x424A5342 // "BSJB"
	cliHeaderMinLen   = 16         // cb, runtime version, MetaData directory
	maxStreamName     = 32
)

var le = binary.LittleEndian

// Stream is one entry of the metadata stream directory. Offset is relative
// to the start of the metadata root.
type Stream struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Image is an opened managed executable.
type Image struct {
	// RuntimeVersion is the version string stored in the metadata root,
	// e.g. "v4.0.30319".
	RuntimeVersion string
	Streams        []Stream

	root   []byte
	closer io.Closer
}

// Open opens the executable at path and decodes its metadata directory.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("clrmeta: open: %w", err)
	}

	img, err := NewImage(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	img.closer = f
	return img, nil
}

// NewImage decodes the metadata directory of the executable read from r.
func NewImage(r io.ReaderAt) (*Image, error) {
	pf, err := pe.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPE, err)
	}

	dir, ok := comDescriptor(pf)
	if !ok || dir.VirtualAddress == 0 || dir.Size < cliHeaderMinLen {
		return nil, ErrNoCLIHeader
	}

	hdr, err := readRVA(pf, dir.VirtualAddress, cliHeaderMinLen)
	if err != nil {
		return nil, fmt.Errorf("%w: CLI header: %v", ErrNoCLIHeader, err)
	}

	mdRVA := le.Uint32(hdr[8:])
	mdSize := le.Uint32(hdr[12:])
	if mdRVA == 0 || mdSize < 20 {
		return nil, fmt.Errorf("%w: empty metadata directory", ErrBadMetadata)
	}

	root, err := readRVA(pf, mdRVA, mdSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMetadata, err)
	}

	img := &Image{root: root}
	if err := img.parseRoot(); err != nil {
		return nil, err
	}
	return img, nil
}

// Close releases the underlying file, if Open created one.
func (img *Image) Close() error {
	if img.closer != nil {
		return img.closer.Close()
	}
	return nil
}

// Stream returns the content of the named metadata stream.
func (img *Image) Stream(name string) ([]byte, bool) {
	for _, s := range img.Streams {
		if s.Name == name {
			return img.root[s.Offset : s.Offset+s.Size], true
		}
	}
	return nil, false
}

// StringHeap returns the #Strings stream.
func (img *Image) StringHeap() ([]byte, error) {
	heap, ok := img.Stream(StringsStream)
	if !ok {
		return nil, ErrNoStringHeap
	}
	return heap, nil
}

// parseRoot decodes the metadata root header and its stream directory.
//
// Layout (ECMA-335 II.24.2.1): signature u32, major u16, minor u16,
// reserved u32, length u32, version [length]byte, flags u16, streams u16,
// then per stream: offset u32, size u32, NUL terminated name padded to 4.
func (img *Image) parseRoot() error {
	root := img.root
	if len(root) < 16 || le.Uint32(root) != metadataSignature {
		return fmt.Errorf("%w: bad metadata signature", ErrBadMetadata)
	}

	vlen := int(le.Uint32(root[12:]))
	pos := 16 + vlen
	if vlen < 0 || pos+4 > len(root) {
		return fmt.Errorf("%w: version length %d out of range", ErrBadMetadata, vlen)
	}
	img.RuntimeVersion = string(bytes.TrimRight(root[16:pos], "\x00"))

	n := int(le.Uint16(root[pos+2:]))
	pos += 4

	img.Streams = make([]Stream, 0, n)
	for i := 0; i < n; i++ {
		if pos+8 > len(root) {
			return fmt.Errorf("%w: stream header %d truncated", ErrBadMetadata, i)
		}
		s := Stream{
			Offset: le.Uint32(root[pos:]),
			Size:   le.Uint32(root[pos+4:]),
		}
		pos += 8

		limit := min(pos+maxStreamName, len(root))
		end := bytes.IndexByte(root[pos:limit], 0)
		if end < 0 {
			return fmt.Errorf("%w: stream name %d unterminated", ErrBadMetadata, i)
		}
		s.Name = string(root[pos : pos+end])
		pos += align4(end + 1)

		if uint64(s.Offset)+uint64(s.Size) > uint64(len(root)) {
			return fmt.Errorf("%w: stream %s exceeds metadata", ErrBadMetadata, s.Name)
		}
		img.Streams = append(img.Streams, s)
	}
	return nil
}

func comDescriptor(pf *pe.File) (pe.DataDirectory, bool) {
	const idx = pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR
	switch oh := pf.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes > idx {
			return oh.DataDirectory[idx], true
		}
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes > idx {
			return oh.DataDirectory[idx], true
		}
	}
	return pe.DataDirectory{}, false
}

// readRVA reads size bytes at the relative virtual address rva, mapped
// through the section table. The range must lie within the section's raw
// data; sizes come from untrusted headers and are never used to allocate
// more than the file holds.
func readRVA(pf *pe.File, rva, size uint32) ([]byte, error) {
	for _, s := range pf.Sections {
		span := max(s.VirtualSize, s.Size)
		if rva < s.VirtualAddress || rva-s.VirtualAddress >= span {
			continue
		}
		off := rva - s.VirtualAddress
		if uint64(off)+uint64(size) > uint64(s.Size) {
			return nil, fmt.Errorf("rva %#x+%d beyond raw data of section %s", rva, size, s.Name)
		}
		buf := make([]byte, size)
		if _, err := s.ReadAt(buf, int64(off)); err != nil {
			return nil, fmt.Errorf("read section %s: %w", s.Name, err)
		}
		return buf, nil
	}
	return nil, fmt.Errorf("rva %#x not mapped by any section", rva)
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// Package clrmetatest builds small synthetic managed executables for tests.
//
// The images are valid enough for debug/pe and clrmeta: a single .text
// section holding a CLI header and a metadata root with the usual five
// streams. They contain no code.
package clrmetatest

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

const (
	peOffset     = 0x80
	rawOffset    = 0x200
	sectionRVA   = 0x2000
	fileAlign    = 0x200
	sectionAlign = 0x2000
	cliHeaderLen = 72
	runtime      = "v4.0.30319"
)

var le = binary.LittleEndian

// Options controls the shape of a built image.
type Options struct {
	// Heap is the raw #Strings stream. Use Heap to build one from entries.
	Heap []byte
	// OmitCLIHeader leaves the COM descriptor directory empty, as in a
	// native executable.
	OmitCLIHeader bool
	// OmitStringHeap drops the #Strings stream from the metadata root.
	OmitStringHeap bool
	// BadSignature corrupts the metadata root signature.
	BadSignature bool
}

// Heap builds a #Strings stream: the mandatory empty entry followed by each
// entry NUL terminated.
func Heap(entries ...string) []byte {
	var b bytes.Buffer
	b.WriteByte(0)
	for _, e := range entries {
		b.WriteString(e)
		b.WriteByte(0)
	}
	return b.Bytes()
}

// Image returns an executable whose string heap holds entries.
func Image(entries ...string) []byte {
	return Build(Options{Heap: Heap(entries...)})
}

// Write stores data as name inside dir and returns the path.
func Write(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Build assembles a PE32 image according to opts.
func Build(opts Options) []byte {
	meta := metadataRoot(opts)

	var text bytes.Buffer
	cli := make([]byte, cliHeaderLen)
	le.PutUint32(cli[0:], cliHeaderLen)
	le.PutUint16(cli[4:], 2)
	le.PutUint16(cli[6:], 5)
	le.PutUint32(cli[8:], sectionRVA+cliHeaderLen)
	le.PutUint32(cli[12:], uint32(len(meta)))
	le.PutUint32(cli[16:], 1) // COMIMAGE_FLAGS_ILONLY
	text.Write(cli)
	text.Write(meta)
	raw := pad(text.Bytes(), fileAlign)

	var out bytes.Buffer
	dos := make([]byte, peOffset)
	dos[0], dos[1] = 'M', 'Z'
	le.PutUint32(dos[0x3c:], peOffset)
	out.Write(dos)
	out.WriteString("PE\x00\x00")

	fh := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_I386,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(pe.OptionalHeader32{})),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_32BIT_MACHINE,
	}
	mustWrite(&out, fh)

	oh := pe.OptionalHeader32{
		Magic:                 0x10b,
		BaseOfCode:            sectionRVA,
		ImageBase:             0x400000,
		SectionAlignment:      sectionAlign,
		FileAlignment:         fileAlign,
		MajorSubsystemVersion: 4,
		SizeOfImage:           sectionRVA + uint32(len(pad(raw, sectionAlign))),
		SizeOfHeaders:         rawOffset,
		Subsystem:             pe.IMAGE_SUBSYSTEM_WINDOWS_CUI,
		NumberOfRvaAndSizes:   16,
	}
	if !opts.OmitCLIHeader {
		oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR] = pe.DataDirectory{
			VirtualAddress: sectionRVA,
			Size:           cliHeaderLen,
		}
	}
	mustWrite(&out, oh)

	var name [8]uint8
	copy(name[:], ".text")
	mustWrite(&out, pe.SectionHeader32{
		Name:             name,
		VirtualSize:      uint32(text.Len()),
		VirtualAddress:   sectionRVA,
		SizeOfRawData:    uint32(len(raw)),
		PointerToRawData: rawOffset,
		Characteristics:  pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_EXECUTE | pe.IMAGE_SCN_MEM_READ,
	})

	out.Write(make([]byte, rawOffset-out.Len()))
	out.Write(raw)
	return out.Bytes()
}

type stream struct {
	name string
	data []byte
}

func metadataRoot(opts Options) []byte {
	heap := opts.Heap
	if heap == nil {
		heap = Heap()
	}

	streams := []stream{{name: "#~", data: make([]byte, 24)}}
	if !opts.OmitStringHeap {
		streams = append(streams, stream{name: "#Strings", data: pad(heap, 4)})
	}
	streams = append(streams,
		stream{name: "#US", data: pad([]byte{0}, 4)},
		stream{name: "#GUID", data: make([]byte, 16)},
		stream{name: "#Blob", data: pad([]byte{0}, 4)},
	)

	version := pad([]byte(runtime+"\x00"), 4)
	headerLen := 16 + len(version) + 4
	for _, s := range streams {
		headerLen += 8 + len(pad([]byte(s.name+"\x00"), 4))
	}

	var b bytes.Buffer
	sig := uint32(0x424A5342)
	if opts.BadSignature {
		sig = 0xDEADBEEF
	}
	mustWrite(&b, sig)
	mustWrite(&b, uint16(1))
	mustWrite(&b, uint16(1))
	mustWrite(&b, uint32(0))
	mustWrite(&b, uint32(len(version)))
	b.Write(version)
	mustWrite(&b, uint16(0))
	mustWrite(&b, uint16(len(streams)))

	offset := headerLen
	for _, s := range streams {
		mustWrite(&b, uint32(offset))
		mustWrite(&b, uint32(len(s.data)))
		b.Write(pad([]byte(s.name+"\x00"), 4))
		offset += len(s.data)
	}
	for _, s := range streams {
		b.Write(s.data)
	}
	return b.Bytes()
}

func pad(b []byte, align int) []byte {
	n := (len(b) + align - 1) / align * align
	if n == len(b) {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func mustWrite(b *bytes.Buffer, v any) {
	if err := binary.Write(b, le, v); err != nil {
		panic(err)
	}
}

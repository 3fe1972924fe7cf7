package clrmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type entry struct {
	off uint32
	s   string
}

func collect(heap []byte) []entry {
	var out []entry
	for off, s := range Strings(heap) {
		out = append(out, entry{off, s})
	}
	return out
}

func TestStrings_Offsets(t *testing.T) {
	heap := []byte("\x00Celeste\x00Monocle\x00")

	assert.Equal(t, []entry{
		{0, ""},
		{1, "Celeste"},
		{9, "Monocle"},
	}, collect(heap))
}

func TestStrings_ZeroLengthEntriesAdvance(t *testing.T) {
	heap := []byte("\x00\x00\x00Player\x00\x00\x00")

	got := collect(heap)
	assert.Equal(t, []entry{
		{0, ""}, {1, ""}, {2, ""},
		{3, "Player"},
		{10, ""}, {11, ""},
	}, got)
}

func TestStrings_AllZero(t *testing.T) {
	heap := make([]byte, 64)

	got := collect(heap)
	assert.Len(t, got, 64)
	for i, e := range got {
		assert.Equal(t, uint32(i), e.off)
		assert.Empty(t, e.s)
	}
}

func TestStrings_UnterminatedTail(t *testing.T) {
	heap := []byte("\x00Level\x00EverestBuild12")

	assert.Equal(t, []entry{
		{0, ""},
		{1, "Level"},
		{7, "EverestBuild12"},
	}, collect(heap))
}

func TestStrings_Empty(t *testing.T) {
	assert.Empty(t, collect(nil))
}

func TestStrings_StopsEarly(t *testing.T) {
	heap := []byte("\x00a\x00b\x00c\x00")

	var seen []string
	for _, s := range Strings(heap) {
		seen = append(seen, s)
		if s == "a" {
			break
		}
	}
	assert.Equal(t, []string{"", "a"}, seen)
}

func TestStrings_MultibyteEntries(t *testing.T) {
	heap := []byte("\x00Céleste\x00EverestBuild7\x00")

	got := collect(heap)
	assert.Equal(t, "Céleste", got[1].s)
	assert.Equal(t, entry{10, "EverestBuild7"}, got[2])
}

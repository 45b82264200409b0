package mots

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1F47E/go-trackreel/pkg/rle"
)

const sampleTracks = `0 1 1 4 6 5132:0
0 10000 10 4 6 :0b
2 2002 2 4 6 <4
`

func TestParseTracks(t *testing.T) {
	frames, err := ParseTracks(strings.NewReader(sampleTracks), "0002.txt")
	require.NoError(t, err)

	want := map[int][]Observation{
		0: {
			{TrackID: 1, ClassID: 1, Mask: rle.Mask{Height: 4, Width: 6, Counts: "5132:0"}},
			{TrackID: 10000, ClassID: 10, Mask: rle.Mask{Height: 4, Width: 6, Counts: ":0b"}},
		},
		2: {
			{TrackID: 2002, ClassID: 2, Mask: rle.Mask{Height: 4, Width: 6, Counts: "<4"}},
		},
	}
	if diff := cmp.Diff(want, frames); diff != "" {
		t.Errorf("ParseTracks mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTracksBadLine(t *testing.T) {
	_, err := ParseTracks(strings.NewReader("0 1 1 4 6 5132:0\n0 x 1 4 6 5\n"), "bad.txt")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 2, perr.Line)
	assert.Equal(t, "bad.txt", perr.File)

	_, err = ParseTracks(strings.NewReader("0 1 1 4 6\n"), "short.txt")
	assert.True(t, errors.As(err, &perr))
}

func TestSequence(t *testing.T) {
	frames, err := ParseTracks(strings.NewReader("3 5 1 10 20 :0\n1 2 2 480 640 :0\n"), "x")
	require.NoError(t, err)
	seq := &Sequence{ID: "0001", Frames: frames, MaxFrame: 3}

	h, w, ok := seq.ImageSize()
	require.True(t, ok)
	assert.Equal(t, 480, h)
	assert.Equal(t, 640, w)

	assert.Empty(t, seq.Observations(0))
	assert.Len(t, seq.Observations(3), 1)

	empty := &Sequence{Frames: map[int][]Observation{0: nil}}
	_, _, ok = empty.ImageSize()
	assert.False(t, ok)
}

func TestParseSeqmap(t *testing.T) {
	in := "2 empty 000000 000599\n\n5 empty 000000 000836\n11 empty 0 899\n"
	ids, maxFrames, err := ParseSeqmap(strings.NewReader(in), "train.seqmap")
	require.NoError(t, err)
	assert.Equal(t, []string{"0002", "0005", "0011"}, ids)
	assert.Equal(t, map[string]int{"0002": 599, "0005": 836, "0011": 899}, maxFrames)

	_, _, err = ParseSeqmap(strings.NewReader("2 empty 0\n"), "short.seqmap")
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestLoadSequences(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002.txt"), []byte(sampleTracks), 0644))

	seqs, err := LoadSequences(dir, []string{"0002"})
	require.NoError(t, err)
	require.Contains(t, seqs, "0002")
	assert.Equal(t, 2, seqs["0002"].MaxFrame)
	assert.Len(t, seqs["0002"].Frames[0], 2)

	_, err = LoadSequences(dir, []string{"0009"})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

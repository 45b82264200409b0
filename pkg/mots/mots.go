// Package mots reads MOTS tracking results and sequence maps.
//
// A track file has one observation per line:
//
//	<frame> <track_id> <class_id> <height> <width> <rle counts>
//
// A seqmap has one sequence per line:
//
//	<seq> <unused> <first frame> <last frame>
package mots

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/1F47E/go-trackreel/pkg/logger"
	"github.com/1F47E/go-trackreel/pkg/rle"
)

var log = logger.Log

// Observation is one object in one frame.
type Observation struct {
	TrackID int
	ClassID int
	Mask    rle.Mask
}

type Sequence struct {
	ID       string
	Frames   map[int][]Observation
	MaxFrame int
}

// Observations returns the frame's list, nil when the frame has no entry.
func (s *Sequence) Observations(frame int) []Observation {
	return s.Frames[frame]
}

// ImageSize is the mask size of the first observation of the lowest
// annotated frame.
func (s *Sequence) ImageSize() (height, width int, ok bool) {
	frames := make([]int, 0, len(s.Frames))
	for f, objs := range s.Frames {
		if len(objs) > 0 {
			frames = append(frames, f)
		}
	}
	if len(frames) == 0 {
		return 0, 0, false
	}
	sort.Ints(frames)
	m := s.Frames[frames[0]][0].Mask
	return m.Height, m.Width, true
}

// ParseError points at the offending line.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseTracks reads a track file. name is only used in errors.
func ParseTracks(r io.Reader, name string) (map[int][]Observation, error) {
	frames := make(map[int][]Observation)
	sc := bufio.NewScanner(r)
	// rle strings of large masks exceed the default token size
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 6 {
			return nil, &ParseError{File: name, Line: line, Err: fmt.Errorf("expected 6 fields, got %d", len(fields))}
		}
		ints, err := atois(fields[:5])
		if err != nil {
			return nil, &ParseError{File: name, Line: line, Err: err}
		}
		frame := ints[0]
		frames[frame] = append(frames[frame], Observation{
			TrackID: ints[1],
			ClassID: ints[2],
			Mask:    rle.Mask{Height: ints[3], Width: ints[4], Counts: fields[5]},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return frames, nil
}

// LoadSequences reads <dir>/<id>.txt for every id. MaxFrame is left at the
// highest annotated frame; callers override it from the seqmap.
func LoadSequences(dir string, ids []string) (map[string]*Sequence, error) {
	out := make(map[string]*Sequence, len(ids))
	for _, id := range ids {
		path := filepath.Join(dir, id+".txt")
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open tracks for %s: %w", id, err)
		}
		frames, err := ParseTracks(f, path)
		f.Close()
		if err != nil {
			return nil, err
		}
		seq := &Sequence{ID: id, Frames: frames, MaxFrame: -1}
		for t := range frames {
			if t > seq.MaxFrame {
				seq.MaxFrame = t
			}
		}
		log.WithField("scope", "mots").Debugf("loaded %s: %d annotated frames", id, len(frames))
		out[id] = seq
	}
	return out, nil
}

// ParseSeqmap returns sequence ids in file order and their last frame index.
func ParseSeqmap(r io.Reader, name string) ([]string, map[string]int, error) {
	var ids []string
	maxFrames := make(map[string]int)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 4 {
			return nil, nil, &ParseError{File: name, Line: line, Err: fmt.Errorf("expected 4 fields, got %d", len(fields))}
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, nil, &ParseError{File: name, Line: line, Err: err}
		}
		last, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, nil, &ParseError{File: name, Line: line, Err: err}
		}
		id := fmt.Sprintf("%04d", n)
		if _, dup := maxFrames[id]; !dup {
			ids = append(ids, id)
		}
		maxFrames[id] = last
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", name, err)
	}
	return ids, maxFrames, nil
}

func LoadSeqmap(path string) ([]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open seqmap: %w", err)
	}
	defer f.Close()
	return ParseSeqmap(f, path)
}

func atois(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, s := range fields {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

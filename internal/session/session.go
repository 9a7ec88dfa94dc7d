// Package session persists calculated signatures between the request that
// computes them and later scoring requests.
package session

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/inodb/seqsig/internal/alignment"
	"github.com/inodb/seqsig/internal/gn"
	"github.com/inodb/seqsig/internal/matrix"
	"github.com/inodb/seqsig/internal/signature"
)

// ErrNotFound is returned when no session exists for an ID.
var ErrNotFound = errors.New("session not found")

// Cache manages gob-serialized sessions on a filesystem:
//
//	{dir}/{id}.gob       (serialized signature.SessionData)
//	{dir}/{id}.gob.meta  (creation time and summary)
type Cache struct {
	fs  afero.Fs
	dir string
}

// NewCache creates a session cache in dir on fs.
func NewCache(fs afero.Fs, dir string) *Cache {
	return &Cache{fs: fs, dir: dir}
}

func (c *Cache) gobPath(id string) string {
	return filepath.Join(c.dir, id+".gob")
}

func (c *Cache) metaPath(id string) string {
	return filepath.Join(c.dir, id+".gob.meta")
}

// record is the gob wire form of signature.SessionData.
type record struct {
	Positions  map[string]map[string][]gn.Position
	Difference map[string][][]int
	Schemes    []gn.Scheme
	Segments   []alignment.Segment
	ProteinSet []string
}

func toRecord(d signature.SessionData) record {
	r := record{
		Positions:  d.Positions,
		Difference: make(map[string][][]int, len(d.Difference)),
		Schemes:    d.Schemes,
		Segments:   d.Segments,
		ProteinSet: d.ProteinSet,
	}
	for seg, m := range d.Difference {
		r.Difference[seg] = m.Rows()
	}
	return r
}

func (r record) sessionData() (signature.SessionData, error) {
	d := signature.SessionData{
		Positions:  signature.Positions(r.Positions),
		Difference: make(map[string]*matrix.Int, len(r.Difference)),
		Schemes:    r.Schemes,
		Segments:   r.Segments,
		ProteinSet: r.ProteinSet,
	}
	for _, seg := range r.Segments {
		rows, ok := r.Difference[seg.Name]
		if !ok {
			return signature.SessionData{}, fmt.Errorf("segment %s has no difference matrix", seg.Name)
		}
		m, err := matrixFromRows(rows, len(seg.Positions))
		if err != nil {
			return signature.SessionData{}, fmt.Errorf("segment %s: %w", seg.Name, err)
		}
		d.Difference[seg.Name] = m
	}
	return d, nil
}

// matrixFromRows restores a matrix; gob drops the column count of
// zero-width rows, so it is taken from the segment.
func matrixFromRows(rows [][]int, cols int) (*matrix.Int, error) {
	if cols == 0 {
		return matrix.New(len(rows), 0), nil
	}
	return matrix.FromRows(rows)
}

// Save writes a session and returns its new ID.
func (c *Cache) Save(d signature.SessionData) (string, error) {
	if err := c.fs.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}

	id := uuid.NewString()
	f, err := c.fs.Create(c.gobPath(id))
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(toRecord(d)); err != nil {
		f.Close()
		c.fs.Remove(c.gobPath(id))
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close session: %w", err)
	}

	if err := c.writeMeta(id, d); err != nil {
		return "", fmt.Errorf("write session metadata: %w", err)
	}
	return id, nil
}

// Load reads a session.
func (c *Cache) Load(id string) (signature.SessionData, error) {
	if _, err := uuid.Parse(id); err != nil {
		return signature.SessionData{}, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	f, err := c.fs.Open(c.gobPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return signature.SessionData{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return signature.SessionData{}, fmt.Errorf("open session: %w", err)
	}
	defer f.Close()

	var r record
	if err := gob.NewDecoder(f).Decode(&r); err != nil {
		return signature.SessionData{}, fmt.Errorf("decode session: %w", err)
	}
	return r.sessionData()
}

// Meta returns the metadata recorded with a session.
func (c *Cache) Meta(id string) (map[string]string, error) {
	data, err := afero.ReadFile(c.fs, c.metaPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}

// Clear removes a session's files.
func (c *Cache) Clear(id string) error {
	var err error
	for _, p := range []string{c.gobPath(id), c.metaPath(id)} {
		if rerr := c.fs.Remove(p); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			err = multierr.Append(err, rerr)
		}
	}
	return err
}

func (c *Cache) writeMeta(id string, d signature.SessionData) error {
	segments := make([]string, len(d.Segments))
	positions := 0
	for i, s := range d.Segments {
		segments[i] = s.Name
		positions += len(s.Positions)
	}
	lines := []string{
		"id=" + id,
		"segments=" + strings.Join(segments, ","),
		"positions=" + strconv.Itoa(positions),
		"proteins=" + strconv.Itoa(len(d.ProteinSet)),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return afero.WriteFile(c.fs, c.metaPath(id), []byte(strings.Join(lines, "\n")), 0644)
}

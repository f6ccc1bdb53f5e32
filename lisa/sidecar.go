package lisa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sidecar is the plain-text .cfg file Inovesa writes next to an archive:
// one key=value pair per line.
type Sidecar struct {
	Path  string
	lines []string
}

// SidecarPath returns the .cfg path belonging to an archive path.
func SidecarPath(archive string) string {
	return strings.TrimSuffix(archive, filepath.Ext(archive)) + ".cfg"
}

// ReadSidecar reads the sidecar of the archive at path. A missing file is
// not an error: the returned sidecar is empty.
func ReadSidecar(archive string) (*Sidecar, error) {
	p := SidecarPath(archive)
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return &Sidecar{Path: p}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sidecar: %w", err)
	}
	defer f.Close()
	s, err := parseSidecar(f)
	if err != nil {
		return nil, fmt.Errorf("reading sidecar %s: %w", p, err)
	}
	s.Path = p
	return s, nil
}

func parseSidecar(r io.Reader) (*Sidecar, error) {
	s := &Sidecar{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s.lines = append(s.lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Float returns the value of the first line starting with key. ok is false
// when no line matches; a matching line whose value is not a number is an
// error.
func (s *Sidecar) Float(key string) (v float64, ok bool, err error) {
	if s == nil {
		return 0, false, nil
	}
	for _, line := range s.lines {
		if !strings.HasPrefix(line, key) {
			continue
		}
		_, val, found := strings.Cut(line, "=")
		if !found {
			return 0, false, fmt.Errorf("sidecar line %q has no '='", line)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false, fmt.Errorf("sidecar value of %s: %w", key, err)
		}
		return f, true, nil
	}
	return 0, false, nil
}

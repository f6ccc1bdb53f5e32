package storage

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-inovesa/internal/binary"
	"github.com/robert-malhotra/go-inovesa/internal/format"
)

// Pipeline decodes chunks written through a filter pipeline.
type Pipeline struct {
	filters []format.Filter
}

// NewPipeline validates the filters and returns a pipeline. Optional filters
// that cannot be decoded are skipped; mandatory ones are an error. Skipped
// filters keep their position so per-chunk masks still line up.
func NewPipeline(filters []format.Filter) (*Pipeline, error) {
	p := &Pipeline{filters: filters}
	for _, f := range filters {
		if !decodable(f) && !f.Optional {
			return nil, fmt.Errorf("%w: filter %d (%s)", format.ErrUnsupported, f.ID, filterName(f))
		}
	}
	return p, nil
}

func decodable(f format.Filter) bool {
	switch f.ID {
	case format.FilterDeflate, format.FilterShuffle, format.FilterFletcher32:
		return true
	}
	return false
}

// Names returns the names of the filters the pipeline undoes.
func (p *Pipeline) Names() []string {
	if p == nil {
		return nil
	}
	var names []string
	for _, f := range p.filters {
		if decodable(f) {
			names = append(names, filterName(f))
		}
	}
	return names
}

func filterName(f format.Filter) string {
	if f.Name != "" {
		return f.Name
	}
	switch f.ID {
	case format.FilterDeflate:
		return "deflate"
	case format.FilterShuffle:
		return "shuffle"
	case format.FilterFletcher32:
		return "fletcher32"
	case format.FilterSZip:
		return "szip"
	case format.FilterNBit:
		return "n-bit"
	case format.FilterScale:
		return "scale-offset"
	}
	return "unknown"
}

// Empty reports whether the pipeline has nothing to undo.
func (p *Pipeline) Empty() bool { return len(p.Names()) == 0 }

// Decode undoes the pipeline on one chunk. Filters are undone last to first;
// bit i of mask marks filter i as not applied to this chunk.
func (p *Pipeline) Decode(chunk []byte, mask uint32, elemSize int) ([]byte, error) {
	if p.Empty() {
		return chunk, nil
	}
	data := chunk
	for i := len(p.filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		switch f := p.filters[i]; f.ID {
		case format.FilterDeflate:
			data, err = inflate(data)
		case format.FilterShuffle:
			size := elemSize
			if len(f.Params) > 0 && f.Params[0] > 0 {
				size = int(f.Params[0])
			}
			data = unshuffle(data, size)
		case format.FilterFletcher32:
			data, err = checkFletcher32(data)
		}
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return out, nil
}

// unshuffle regroups bytes that the shuffle filter stored by significance.
func unshuffle(data []byte, size int) []byte {
	if size <= 1 {
		return data
	}
	n := len(data) / size
	if n == 0 {
		return data
	}
	out := make([]byte, len(data))
	for b := 0; b < size; b++ {
		plane := data[b*n : (b+1)*n]
		for i, v := range plane {
			out[i*size+b] = v
		}
	}
	// Trailing bytes that do not form a whole element are stored unshuffled.
	copy(out[n*size:], data[n*size:])
	return out
}

func checkFletcher32(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("fletcher32: chunk of %d bytes has no checksum", len(data))
	}
	body, tail := data[:len(data)-4], data[len(data)-4:]
	sum := binpkg.Fletcher32(body)
	// Older library versions wrote the checksum with the opposite byte order.
	if sum != binary.LittleEndian.Uint32(tail) && sum != binary.BigEndian.Uint32(tail) {
		return nil, fmt.Errorf("fletcher32: checksum mismatch (computed %#08x)", sum)
	}
	return body, nil
}

package hdf5

import (
	"fmt"
	"os"
	"sync"

	"github.com/robert-malhotra/go-inovesa/internal/binary"
	"github.com/robert-malhotra/go-inovesa/internal/format"
)

// File represents an open HDF5 file. It is safe for concurrent use.
type File struct {
	path   string
	file   *os.File
	size   int64
	reader *binary.Reader
	sb     *format.Superblock
	root   *Group

	mu      sync.Mutex
	closed  bool
	headers map[uint64]*format.Header
	links   map[uint64][]link
	gheaps  map[uint64]*format.GlobalHeap
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	osf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	info, err := osf.Stat()
	if err != nil {
		osf.Close()
		return nil, fmt.Errorf("opening file: %w", err)
	}
	if info.IsDir() {
		osf.Close()
		return nil, fmt.Errorf("opening file: %s is a directory", path)
	}

	sb, _, err := format.FindSuperblock(osf)
	if err != nil {
		osf.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	reader, err := binary.NewReader(osf).Configure(sb.Base, sb.OffsetSize, sb.LengthSize)
	if err != nil {
		osf.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	f := &File{
		path:    path,
		file:    osf,
		size:    info.Size(),
		reader:  reader,
		sb:      sb,
		headers: make(map[uint64]*format.Header),
		links:   make(map[uint64][]link),
		gheaps:  make(map[uint64]*format.GlobalHeap),
	}

	hdr, err := f.header(sb.Root)
	if err != nil {
		osf.Close()
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	f.root = &Group{object: object{file: f, path: "/", hdr: hdr}}
	return f, nil
}

// Close closes the file. Closing twice is not an error.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.headers, f.links, f.gheaps = nil, nil, nil
	return f.file.Close()
}

func (f *File) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Path returns the path the file was opened with.
func (f *File) Path() string { return f.path }

// Size returns the file size in bytes.
func (f *File) Size() int64 { return f.size }

// Version returns the superblock version.
func (f *File) Version() int { return int(f.sb.Version) }

// Root returns the root group.
func (f *File) Root() *Group { return f.root }

// Get resolves an absolute path to a group or dataset.
func (f *File) Get(path string) (Object, error) {
	if f.isClosed() {
		return nil, ErrClosed
	}
	return f.root.Get(path)
}

// OpenGroup opens the group at path.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.isClosed() {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens the dataset at path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.isClosed() {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

// GetAttr returns the attribute addressed by an attribute path such as
// "/Info/Parameters@BunchCurrent".
func (f *File) GetAttr(path string) (*Attribute, error) {
	objectPath, name, err := ParseAttrPath(path)
	if err != nil {
		return nil, err
	}
	obj, err := f.Get(objectPath)
	if err != nil {
		return nil, err
	}
	return obj.Attr(name)
}

// ReadAttr reads the value of the attribute addressed by path.
func (f *File) ReadAttr(path string) (any, error) {
	a, err := f.GetAttr(path)
	if err != nil {
		return nil, err
	}
	return a.Value()
}

// header returns the parsed object header at addr, reading it once.
func (f *File) header(addr uint64) (*format.Header, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if h, ok := f.headers[addr]; ok {
		f.mu.Unlock()
		return h, nil
	}
	f.mu.Unlock()

	h, err := format.ReadHeader(f.reader, addr)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headers != nil {
		f.headers[addr] = h
	}
	return h, nil
}

// globalHeap returns the global heap collection at addr, reading it once.
func (f *File) globalHeap(addr uint64) (*format.GlobalHeap, error) {
	f.mu.Lock()
	if h, ok := f.gheaps[addr]; ok {
		f.mu.Unlock()
		return h, nil
	}
	f.mu.Unlock()

	h, err := format.ReadGlobalHeap(f.reader, addr)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gheaps != nil {
		f.gheaps[addr] = h
	}
	return h, nil
}

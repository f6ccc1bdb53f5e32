package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/go-inovesa/internal/format"
	"github.com/robert-malhotra/go-inovesa/internal/storage"
)

// Dataset represents an HDF5 dataset.
type Dataset struct {
	object
	space    *format.Dataspace
	dtype    *format.Datatype
	layout   *format.Layout
	pipeline *storage.Pipeline
}

func newDataset(obj object) (*Dataset, error) {
	r := obj.file.reader
	ds := &Dataset{object: obj}

	m, ok := obj.hdr.Find(format.MsgDataspace)
	if !ok {
		return nil, fmt.Errorf("dataset has no dataspace")
	}
	var err error
	if ds.space, err = format.DecodeDataspace(r.Decoder(m.Data)); err != nil {
		return nil, err
	}

	if m, ok = obj.hdr.Find(format.MsgDatatype); !ok {
		return nil, fmt.Errorf("dataset has no datatype")
	}
	if m.Flags&format.MsgFlagShared != 0 {
		return nil, fmt.Errorf("%w: committed datatype", ErrUnsupported)
	}
	if ds.dtype, err = format.DecodeDatatype(r.Decoder(m.Data)); err != nil {
		return nil, err
	}

	m, _ = obj.hdr.Find(format.MsgLayout)
	if ds.layout, err = format.DecodeLayout(r.Decoder(m.Data)); err != nil {
		return nil, err
	}

	var filters []format.Filter
	if m, ok := obj.hdr.Find(format.MsgFilters); ok {
		if filters, err = format.DecodeFilters(r.Decoder(m.Data)); err != nil {
			return nil, err
		}
	}
	if ds.pipeline, err = storage.NewPipeline(filters); err != nil {
		return nil, err
	}
	return ds, nil
}

// Shape returns the dataset dimensions. A scalar dataset has an empty shape.
func (ds *Dataset) Shape() []int {
	shape := make([]int, len(ds.space.Dims))
	for i, d := range ds.space.Dims {
		shape[i] = int(d)
	}
	return shape
}

// Len returns the total number of elements.
func (ds *Dataset) Len() int { return int(ds.space.Elements()) }

// Class returns the name of the datatype class, such as "float" or "string".
func (ds *Dataset) Class() string { return ds.dtype.Class.String() }

// ElemSize returns the size in bytes of one element.
func (ds *Dataset) ElemSize() int { return ds.dtype.Size }

// Numeric reports whether the dataset can be read with ReadFloat64.
func (ds *Dataset) Numeric() bool {
	base, _ := flatten(ds.dtype)
	return base.Numeric()
}

// Chunked reports whether the dataset uses chunked storage.
func (ds *Dataset) Chunked() bool { return ds.layout.Class == format.LayoutChunked }

// Filters returns the names of the filters applied to the dataset's chunks.
func (ds *Dataset) Filters() []string { return ds.pipeline.Names() }

func (ds *Dataset) raw() ([]byte, error) {
	if ds.file.isClosed() {
		return nil, ErrClosed
	}
	if ds.space.Null {
		return nil, nil
	}
	b, err := storage.Read(ds.file.reader, storage.Dataset{
		Dims:     ds.storageDims(),
		ElemSize: ds.dtype.Size,
		Layout:   ds.layout,
		Pipeline: ds.pipeline,
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ds.path, err)
	}
	return b, nil
}

// storageDims returns the dataspace dimensions, or a single element for a
// scalar dataset.
func (ds *Dataset) storageDims() []uint64 {
	if len(ds.space.Dims) == 0 {
		return []uint64{1}
	}
	return ds.space.Dims
}

// ReadFloat64 reads every element as float64 in row-major order.
func (ds *Dataset) ReadFloat64() ([]float64, error) {
	raw, err := ds.raw()
	if err != nil {
		return nil, err
	}
	v, err := decodeFloat64s(raw, ds.dtype)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ds.path, err)
	}
	return v, nil
}

// ReadInt64 reads every element of an integer dataset.
func (ds *Dataset) ReadInt64() ([]int64, error) {
	raw, err := ds.raw()
	if err != nil {
		return nil, err
	}
	v, err := decodeInt64s(raw, ds.dtype)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ds.path, err)
	}
	return v, nil
}

// ReadStrings reads every element of a string dataset.
func (ds *Dataset) ReadStrings() ([]string, error) {
	raw, err := ds.raw()
	if err != nil {
		return nil, err
	}
	v, err := ds.file.decodeStrings(raw, ds.dtype)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ds.path, err)
	}
	return v, nil
}

// Read reads the dataset into a []float64, []int64 or []string.
func (ds *Dataset) Read() (any, error) {
	raw, err := ds.raw()
	if err != nil {
		return nil, err
	}
	v, err := ds.file.decodeValue(raw, ds.dtype)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ds.path, err)
	}
	return v, nil
}

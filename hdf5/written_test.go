package hdf5

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/robert-malhotra/go-inovesa/hdf5/hdf5test"
)

// openWritten writes f to a temporary file and opens it.
func openWritten(t *testing.T, w *hdf5test.File) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "written.h5")
	if err := w.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func writtenFile() *hdf5test.File {
	values := []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5}
	return hdf5test.New().
		Group("/", map[string]any{"title": "written"}).
		Group("/Info", map[string]any{"Inovesa_v": []int64{1, 0, 0}, "Meter": 0.001}).
		Dataset("/Info/AxisValues_z", []int{3}, []float64{-1, 0, 1}, map[string]any{"Meter": 0.002}).
		Dataset("/Data/contiguous", []int{2, 3}, values, nil).
		Dataset("/Data/compact", []int{4}, []int32{-1, 0, 1, 2}, nil, hdf5test.Compact()).
		Dataset("/Data/filtered", []int{2, 3}, values, nil,
			hdf5test.Chunked(hdf5test.Shuffle, hdf5test.Deflate(6), hdf5test.Fletcher32)).
		Dataset("/Data/single", []int{3}, []float32{1, 2, 3}, nil, hdf5test.Chunked()).
		Dataset("/Data/names", []int{2}, []string{"ab", "c"}, nil).
		Dataset("/Data/scalar", nil, 42.0, nil).
		SoftLink("/Data/alias", "/Info/AxisValues_z")
}

func TestWrittenVersion(t *testing.T) {
	f := openWritten(t, writtenFile())
	if f.Version() != 2 {
		t.Errorf("expected superblock v2, got %d", f.Version())
	}
	v, err := f.ReadAttr("/@title")
	if err != nil {
		t.Fatalf("ReadAttr failed: %v", err)
	}
	if v != "written" {
		t.Errorf("unexpected title %#v", v)
	}
}

func TestWrittenLayouts(t *testing.T) {
	f := openWritten(t, writtenFile())
	want := []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5}

	for _, name := range []string{"contiguous", "filtered"} {
		t.Run(name, func(t *testing.T) {
			ds, err := f.OpenDataset("/Data/" + name)
			if err != nil {
				t.Fatalf("OpenDataset failed: %v", err)
			}
			if !slices.Equal(ds.Shape(), []int{2, 3}) {
				t.Errorf("unexpected shape %v", ds.Shape())
			}
			got, err := ds.ReadFloat64()
			if err != nil {
				t.Fatalf("ReadFloat64 failed: %v", err)
			}
			if !slices.Equal(got, want) {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	}

	ds, err := f.OpenDataset("/Data/filtered")
	if err != nil {
		t.Fatal(err)
	}
	if !ds.Chunked() {
		t.Error("filtered dataset is not chunked")
	}
	if got := ds.Filters(); !slices.Equal(got, []string{"shuffle", "deflate", "fletcher32"}) {
		t.Errorf("unexpected filters %v", got)
	}

	ds, err = f.OpenDataset("/Data/single")
	if err != nil {
		t.Fatal(err)
	}
	floats, err := ds.ReadFloat64()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(floats, []float64{1, 2, 3}) || ds.ElemSize() != 4 {
		t.Errorf("unexpected float32 values %v", floats)
	}

	ds, err = f.OpenDataset("/Data/compact")
	if err != nil {
		t.Fatal(err)
	}
	ints, err := ds.ReadInt64()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ints, []int64{-1, 0, 1, 2}) {
		t.Errorf("unexpected compact values %v", ints)
	}
}

func TestWrittenScalarAndStrings(t *testing.T) {
	f := openWritten(t, writtenFile())

	ds, err := f.OpenDataset("/Data/scalar")
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Shape()) != 0 || ds.Len() != 1 {
		t.Errorf("unexpected scalar shape %v", ds.Shape())
	}
	got, err := ds.ReadFloat64()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []float64{42}) {
		t.Errorf("unexpected scalar %v", got)
	}

	ds, err = f.OpenDataset("/Data/names")
	if err != nil {
		t.Fatal(err)
	}
	names, err := ds.ReadStrings()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(names, []string{"ab", "c"}) {
		t.Errorf("unexpected strings %q", names)
	}
}

func TestWrittenAttributes(t *testing.T) {
	f := openWritten(t, writtenFile())

	v, err := f.ReadAttr("/Info@Inovesa_v")
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := v.([]int64); !ok || !slices.Equal(got, []int64{1, 0, 0}) {
		t.Errorf("unexpected version attribute %#v", v)
	}

	a, err := f.GetAttr("/Info/AxisValues_z@Meter")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Scalar() {
		t.Errorf("expected scalar attribute, shape %v", a.Shape())
	}
	m, err := a.Float64()
	if err != nil {
		t.Fatal(err)
	}
	if m != 0.002 {
		t.Errorf("unexpected factor %v", m)
	}

	if _, err := f.GetAttr("/Info@Missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWrittenUnreadableAttribute(t *testing.T) {
	w := hdf5test.New().Group("/Info", map[string]any{"blob": hdf5test.Opaque{1, 2, 3}, "ok": 1.0})
	f := openWritten(t, w)

	a, err := f.GetAttr("/Info@blob")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Value(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if v, err := f.ReadAttr("/Info@ok"); err != nil || v != 1.0 {
		t.Errorf("unexpected value %#v, %v", v, err)
	}
}

func TestWrittenSoftLinkAndWalk(t *testing.T) {
	f := openWritten(t, writtenFile())

	ds, err := f.OpenDataset("/Data/alias")
	if err != nil {
		t.Fatalf("OpenDataset through soft link failed: %v", err)
	}
	got, err := ds.ReadFloat64()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []float64{-1, 0, 1}) {
		t.Errorf("unexpected values %v", got)
	}

	var paths []string
	err = Walk(f.Root(), func(p string, obj Object, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	want := []string{"/", "/Data", "/Data/alias", "/Data/compact", "/Data/contiguous", "/Data/filtered",
		"/Data/names", "/Data/scalar", "/Data/single", "/Info", "/Info/AxisValues_z"}
	if !slices.Equal(paths, want) {
		t.Errorf("expected %v, got %v", want, paths)
	}
}

// Package storage assembles the raw bytes of a dataset from its layout.
//
// Compact data is taken from the object header, contiguous data is read in
// one piece, and chunked data is gathered chunk by chunk from a single chunk,
// an implicit index, or a version 1 or 2 B-tree, clipping edge chunks to
// the dataset extent.
//
// # Filters
//
// A [Pipeline] undoes the filters of a chunk last to first, skipping those
// masked out for that chunk:
//
//   - deflate (zlib)
//   - shuffle
//   - fletcher32, accepting either byte order of the stored checksum
//
// Other optional filters are skipped; any other mandatory filter makes
// [NewPipeline] fail with format.ErrUnsupported.
//
// # Usage
//
//	p, err := storage.NewPipeline(filters)
//	raw, err := storage.Read(reader, storage.Dataset{
//		Dims: dims, ElemSize: size, Layout: layout, Pipeline: p,
//	})
package storage

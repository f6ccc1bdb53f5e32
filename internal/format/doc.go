// Package format decodes the on-disk structures of an HDF5 file.
//
// Each structure lives in its own file and is decoded independently of the
// others, so the hdf5 package can pick only what it needs:
//
//	superblock.go  superblock versions 0 to 3, located by [FindSuperblock]
//	header.go      object headers v1 and v2, continuation blocks followed
//	dataspace.go   dataspace messages
//	datatype.go    datatype messages (numbers, strings, arrays, enums)
//	layout.go      data layout and filter pipeline messages
//	link.go        link, link info and symbol table messages
//	attribute.go   attribute and attribute info messages
//	heap.go        local and global heaps
//	btree.go       version 1 B-trees (group nodes and chunk index)
//	btree2.go      version 2 B-trees (chunk index of v4 layouts)
//
// # Usage
//
// Find the superblock, then read the root object header:
//
//	sb, at, err := format.FindSuperblock(f)
//	hdr, err := format.ReadHeader(reader, sb.Root)
//
// Messages come back undecoded; pick one by type and decode it:
//
//	m, ok := hdr.Find(format.MsgLayout)
//	layout, err := format.DecodeLayout(reader.Decoder(m.Data))
//
// Checksums of version 2 structures are not verified.
//
// # Errors
//
//   - [ErrNoSignature]: no superblock found
//   - [ErrUnsupportedVersion]: a structure version this package cannot read
//   - [ErrBadSignature]: a structure without its expected signature
//   - [ErrUnsupported]: a valid feature outside the supported subset
package format

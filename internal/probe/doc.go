// File: internal/probe/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package probe samples where a worker runs and renders that observation as a
// fixed-width record.
//
// Every record occupies exactly Capacity bytes regardless of its text length:
// shorter text is zero-padded and longer text is truncated. A participant keeps
// its records in a Buffer, one slot per worker index, so concurrent workers
// write disjoint slices and the buffer can be shipped as a single contiguous
// payload.
package probe

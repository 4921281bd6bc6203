// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp carries collective frames between participants over plain TCP.
// Each connection is a Session: a CBOR stream in both directions whose blocking
// reads and writes honour a context. The coordinator listens, every other
// participant dials it once during bootstrap.
package tcp

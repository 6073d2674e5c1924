package assetkit

import (
	"github.com/meigma/assetkit/archive"
	"github.com/meigma/assetkit/chunk"
	"github.com/meigma/assetkit/grid"
)

// --- Re-exports from archive ---

// Archive provides access to the entries of one archive.
type Archive = archive.Archive

// Entry combines the content and data records of one archive entry.
type Entry = archive.Entry

// Keys is the key pair that seeds the archive keystream.
type Keys = archive.Keys

// Profile is a named key pair and name charset.
type Profile = archive.Profile

// KeyRing is a named set of profiles.
type KeyRing = archive.KeyRing

// ByteSource provides random access to archive bytes.
type ByteSource = archive.ByteSource

// --- Re-exports from chunk ---

// Scene is a decoded chunk stream.
type Scene = chunk.Scene

// Object is a named scene node.
type Object = chunk.Object

// --- Re-exports from grid ---

// Grid is a decoded collision grid.
type Grid = grid.Grid

// Package assetkit reads the resource files of a legacy 3D game engine.
//
// Three decoders live in subpackages and can be used on their own:
//   - [archive] opens encrypted, compressed resource archives
//   - [chunk] decodes tagged chunk trees into scenes of named objects
//   - [grid] decodes spatial collision grids
//
// This package ties them to the filesystem and adds optional caching of
// extracted entries.
//
// # Quick Start
//
// Open an archive with a known key pair and extract an entry:
//
//	af, err := assetkit.OpenArchiveFile("world.res",
//	    archive.WithKeys(0x1A2B3C4D, 0x5E6F7081),
//	)
//	if err != nil {
//	    return err
//	}
//	defer af.Close()
//
//	i, ok := af.Lookup(`scenes\town.scn`)
//	if !ok {
//	    return fs.ErrNotExist
//	}
//	data, err := af.ExtractFile(i)
//	if err != nil {
//	    return err
//	}
//	scene, err := chunk.Decode(data, chunk.SceneFormat)
//
// Key pairs differ between game releases. Keep them in a YAML key ring and
// select a profile explicitly:
//
//	kr, err := archive.LoadKeyRing("keys.yaml")
//	p, ok := kr.Profile("retail")
//	af, err := assetkit.OpenArchiveFile("world.res", archive.WithProfile(p))
//
// # Caching
//
// Wrap a loaded archive to keep extracted entries in a [cache.Cache]:
//
//	mem, _ := memory.New()
//	dc, _ := disk.New("/var/cache/assetkit")
//	ca, err := assetkit.NewCachedArchive(af.Archive, cache.NewTiered(mem, dc))
//
// # Errors
//
// All decoders share four error kinds, matched with errors.Is:
// [ErrBadMagic], [ErrTruncated], [ErrCorruptStream] and [ErrOutOfRange].
// Failures scoped to one archive entry, chunk subtree or grid cell are
// reported as [EntryError], [ChunkError] or [CellError] and do not stop
// the rest of the file from being read.
package assetkit

package main

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/assetkit"
	"github.com/meigma/assetkit/cache"
	"github.com/meigma/assetkit/cache/disk"
	"github.com/meigma/assetkit/cache/memory"
	"github.com/meigma/assetkit/internal/sink"
)

type extractFlags struct {
	outDir    string
	jobs      int
	cacheDir  string
	overwrite bool
}

func newExtractCmd(a *app) *cobra.Command {
	var f extractFlags
	cmd := &cobra.Command{
		Use:   "extract ARCHIVE",
		Short: "Extract every archive entry into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.extract(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.outDir, "output", "o", "", "output directory")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", runtime.NumCPU(), "parallel extractions")
	cmd.Flags().StringVar(&f.cacheDir, "cache-dir", "", "persistent entry cache directory")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "replace existing files")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) newCache(dir string) (cache.Cache, func() error, error) {
	mem, err := memory.New()
	if err != nil {
		return nil, nil, err
	}
	if dir == "" {
		return mem, func() error { return nil }, nil
	}
	dc, err := disk.New(dir)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewTiered(mem, dc), dc.Close, nil
}

//nolint:gocritic // hugeParam acceptable for flag struct in CLI tool
func (a *app) extract(cmd *cobra.Command, path string, f extractFlags) error {
	opts, err := a.archiveOptions()
	if err != nil {
		return err
	}
	af, err := assetkit.OpenArchiveFile(path, opts...)
	if err != nil {
		return err
	}
	defer af.Close()

	c, closeCache, err := a.newCache(f.cacheDir)
	if err != nil {
		return err
	}
	defer closeCache() //nolint:errcheck // cache close errors are non-fatal

	ca, err := assetkit.NewCachedArchive(af.Archive, c, assetkit.WithCacheLogger(a.log()))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.outDir, 0o755); err != nil { //nolint:gosec // output tree is meant to be readable
		return err
	}
	out := sink.New(f.outDir, sink.WithOverwrite(f.overwrite))

	var (
		mu     sync.Mutex
		failed int
	)
	report := func(i int, name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed++
		fmt.Fprintf(cmd.ErrOrStderr(), "entry %d (%s): %v\n", i, name, err)
	}

	var g errgroup.Group
	g.SetLimit(max(f.jobs, 1))
	for i, e := range ca.Entries() {
		g.Go(func() error {
			if e.Err != nil {
				report(i, e.Name, e.Err)
				return nil
			}
			if err := writeEntry(ca, out, i, e.Name); err != nil {
				report(i, e.Name, err)
				return nil
			}
			a.log().Debug("extracted", "index", i, "name", e.Name, "size", e.Size)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if failed > 0 {
		a.log().Error("extract finished with failures", "failed", failed, "entries", ca.FileCount())
		return errFailures
	}
	return nil
}

func writeEntry(ca *assetkit.CachedArchive, out *sink.FileSink, i int, name string) error {
	rel, err := assetkit.EntryPath(name)
	if err != nil {
		return err
	}
	data, err := ca.ExtractFile(i)
	if err != nil {
		return err
	}
	return out.Write(rel, data)
}

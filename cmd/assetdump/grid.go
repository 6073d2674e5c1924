package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/meigma/assetkit"
	"github.com/meigma/assetkit/grid"
)

func newGridCmd(a *app) *cobra.Command {
	var cell string
	cmd := &cobra.Command{
		Use:   "grid FILE",
		Short: "Decode a collision grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := assetkit.DecodeGridFile(args[0], grid.WithLogger(a.log()))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cell != "" {
				var x, y int
				if _, err := fmt.Sscanf(cell, "%d,%d", &x, &y); err != nil {
					return fmt.Errorf("--cell %q: want x,y", cell)
				}
				return dumpCell(out, g, x, y)
			}

			h := g.Header
			fmt.Fprintf(out, "bounds: %v .. %v\n", h.Min, h.Max)
			fmt.Fprintf(out, "cells: %dx%d of %v\n", h.Width, h.Height, h.CellSize)
			for k := range grid.Kind(grid.NumKinds) {
				fmt.Fprintf(out, "%-9s %d\n", k.String()+":", g.Len(k))
			}
			fmt.Fprintf(out, "links: %d\n", len(g.Links))
			for _, err := range g.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			}
			if len(g.Errors) > 0 {
				return errFailures
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cell, "cell", "", "dump the primitives of cell x,y")
	return cmd
}

func dumpCell(out io.Writer, g *grid.Grid, x, y int) error {
	c, err := g.Cell(x, y)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "cell %d,%d height=%g refs=%d\n", x, y, c.Height, c.Count)
	if c.Err != nil {
		fmt.Fprintf(out, "error: %v\n", c.Err)
		return errFailures
	}
	prims, err := g.Query(x, y)
	if err != nil {
		return err
	}
	for _, p := range prims {
		line := fmt.Sprintf("  %v %+v", p.Kind(), p)
		if link, ok := g.Link(p); ok {
			line += " link=" + link
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

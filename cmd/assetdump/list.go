package main

import (
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/meigma/assetkit"
)

func newListCmd(a *app) *cobra.Command {
	var withDigest bool
	cmd := &cobra.Command{
		Use:   "list ARCHIVE",
		Short: "List archive entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.archiveOptions()
			if err != nil {
				return err
			}
			af, err := assetkit.OpenArchiveFile(args[0], opts...)
			if err != nil {
				return err
			}
			defer af.Close()

			out := cmd.OutOrStdout()
			failed := 0
			for i, e := range af.Entries() {
				if e.Err != nil {
					failed++
					fmt.Fprintf(out, "%5d  error: %v\n", i, e.Err)
					continue
				}
				line := fmt.Sprintf("%5d  %10d  %4d  %s", i, e.Size, e.BlockCount, e.Name)
				if withDigest {
					data, err := af.ExtractFile(i)
					if err != nil {
						failed++
						fmt.Fprintf(out, "%s  error: %v\n", line, err)
						continue
					}
					line += "  " + digest.FromBytes(data).String()
				}
				fmt.Fprintln(out, line)
			}
			if failed > 0 {
				a.log().Error("list finished with failures", "failed", failed, "entries", af.FileCount())
				return errFailures
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withDigest, "digest", false, "extract each entry and print its sha256 digest")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/assetkit"
	"github.com/meigma/assetkit/chunk"
)

func newSceneCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "scene FILE",
		Short: "Decode a chunk scene or placement file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := chunk.FormatByName(format)
			if err != nil {
				return err
			}
			scene, err := assetkit.DecodeSceneFile(args[0], f, chunk.WithLogger(a.log()))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := scene.World
			if w.Has(chunk.WorldViewDistance) {
				fmt.Fprintf(out, "view distance: %g\n", w.ViewDistance)
			}
			if w.Has(chunk.WorldFieldOfView) {
				fmt.Fprintf(out, "field of view: %g\n", w.FieldOfView)
			}
			if w.Has(chunk.WorldClipPlanes) {
				fmt.Fprintf(out, "clip planes: %g %g\n", w.NearClip, w.FarClip)
			}
			if w.Has(chunk.WorldAmbient) {
				fmt.Fprintf(out, "ambient: %g %g %g\n", w.Ambient[0], w.Ambient[1], w.Ambient[2])
			}
			for _, name := range scene.Names() {
				o := scene.Objects[name]
				fmt.Fprintf(out, "object %q model=%q parent=%q pos=%v rot=%v scale=%v flags=%#x lights=%d\n",
					o.Name, o.Model, o.Parent, o.Position, o.Rotation, o.Scale, o.Flags, len(o.Lights))
			}
			for _, err := range scene.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			}
			if len(scene.Errors) > 0 {
				return errFailures
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", chunk.SceneFormat.Name, "chunk format: scene or placement")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/tactiboard/internal/renderer"
	"github.com/ivlev/tactiboard/internal/scene"
)

var (
	renderOut      string
	renderSelected string
)

var renderCmd = &cobra.Command{
	Use:   "render <scene.json>",
	Short: "Render a scene to a standalone SVG",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderOut, "output", "o", "", "SVG file (default: next to the scene)")
	renderCmd.Flags().StringVar(&renderSelected, "selected", "", "Object id to highlight")
}

func runRender(cmd *cobra.Command, args []string) error {
	doc, err := scene.ReadFile(args[0])
	if err != nil {
		return err
	}

	surface := renderer.Render(doc.Normalized(), renderer.Options{
		Selected:        renderSelected,
		ArrowHeadLength: cli.cfg.Editor.ArrowHeadLength,
	})
	svg, err := surface.Serialize()
	if err != nil {
		return err
	}

	out := renderOut
	if out == "" {
		out = withExt(args[0], ".svg")
	}
	if err := os.WriteFile(out, svg, 0644); err != nil {
		return err
	}
	fmt.Printf("[+++] %d elements: %s\n", len(surface.Elements()), out)
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/tactiboard/internal/engine"
	"github.com/ivlev/tactiboard/internal/scene"
	"github.com/ivlev/tactiboard/internal/share"
	"github.com/ivlev/tactiboard/internal/system"
)

var (
	exportOut      string
	exportSceneOut string
	exportQR       string
	exportRetries  int
)

var exportCmd = &cobra.Command{
	Use:   "export [scene.json]",
	Short: "Rasterize a scene to PNG, upload it and update the scene",
	Long: `Runs the export pipeline on a scene: the scene is rendered, rasterized
to the configured size, attached to the document as an inline image and,
when storage is configured, uploaded. A failed upload keeps the inline
image and is reported as a warning.

Without an argument the most recently changed scene in scenes/ is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "PNG file (default: next to the scene)")
	exportCmd.Flags().StringVar(&exportSceneOut, "scene-out", "", "Where to write the updated scene (default: in place)")
	exportCmd.Flags().StringVar(&exportQR, "qr", "", "Also write a QR code for the uploaded image")
	exportCmd.Flags().IntVar(&exportRetries, "retries", 1, "Retries of a failed stage")
}

// exportWithRetry runs the pipeline and retries the failed stage up to
// retries times.
func exportWithRetry(cmd *cobra.Command, p *engine.Pipeline, id string, doc scene.Document, retries int) (scene.Document, engine.Status) {
	out, st := p.Export(cmd.Context(), id, doc)
	for i := 1; i <= retries && st.Stage == engine.StageError; i++ {
		fmt.Printf("[!] %s, retrying from %s (%d/%d)\n", st, st.Failed, i, retries)
		retried, rst, err := p.Retry(cmd.Context())
		if err != nil {
			break
		}
		out, st = retried, rst
	}
	return out, st
}

func runExport(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		latest, err := system.FindLatestScene("scenes")
		if err != nil {
			return fmt.Errorf("%w, pass a scene file or put one in scenes/", err)
		}
		path = latest
		fmt.Printf("[*] Selected scene: %s\n", path)
	}

	doc, err := scene.ReadFile(path)
	if err != nil {
		return err
	}

	p, err := cli.pipeline()
	if err != nil {
		return err
	}

	start := time.Now()
	fmt.Printf("[*] Exporting %s (%dx%d, %s)\n", path, cli.cfg.Export.Width, cli.cfg.Export.Height, cli.cfg.Export.Rasterizer)
	out, st := exportWithRetry(cmd, p, sceneID(path), doc, exportRetries)
	printStatus(st)
	if st.Err != nil {
		return st.Err
	}

	pngPath := exportOut
	if pngPath == "" {
		pngPath = withExt(path, ".png")
	}
	if err := os.WriteFile(pngPath, p.Raster(), 0644); err != nil {
		return err
	}
	sceneOut := exportSceneOut
	if sceneOut == "" {
		sceneOut = path
	}
	if err := scene.WriteFile(out, sceneOut); err != nil {
		return err
	}

	if exportQR != "" {
		url, err := share.WriteQRCode(out, share.DefaultSize, exportQR)
		switch {
		case errors.Is(err, share.ErrNoRemoteRaster):
			fmt.Println("[!] No uploaded image, QR code skipped")
		case err != nil:
			return err
		default:
			fmt.Printf("[*] QR code for %s: %s\n", url, exportQR)
		}
	}

	if cli.cfg.Export.ShowStats {
		printMemory()
	}
	fmt.Printf("[+++] Done in %.2fs: %s\n", time.Since(start).Seconds(), pngPath)
	if out.RenderedImageURL != "" {
		fmt.Printf("[+++] Uploaded: %s\n", out.RenderedImageURL)
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/tactiboard/internal/engine"
	"github.com/ivlev/tactiboard/internal/system"
)

const benchmarkLog = "benchmarks.log"

var (
	batchOut     string
	batchWorkers int
)

var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Export every scene in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVarP(&batchOut, "output", "o", "output", "Directory for PNGs and updated scenes")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Concurrent exports (default: export.workers)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := "scenes"
	if len(args) > 0 {
		dir = args[0]
	}
	files, err := system.FindSceneFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no scene files in %s", dir)
	}

	r, err := cli.rasterizer()
	if err != nil {
		return err
	}
	u, err := cli.uploader()
	if err != nil {
		return err
	}
	workers := batchWorkers
	if workers <= 0 {
		workers = cli.cfg.Export.Workers
	}

	fmt.Printf("[*] Exporting %d scenes from %s with %d workers\n", len(files), dir, workers)
	b := &engine.Batch{
		Rasterizer: r,
		Uploader:   u,
		Resolver:   cli.resolver,
		Settings:   cli.exportSettings(),
		Workers:    workers,
		OutDir:     batchOut,
		Logger:     cli.log,
		Progress:   os.Stdout,
	}

	start := time.Now()
	results, err := b.Run(cmd.Context(), files)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("[!] %s: %v\n", res.Path, res.Err)
		}
	}

	report := engine.NewReport(buildVersion, cli.cfg.Export.Rasterizer, time.Since(start), results)
	if cli.cfg.Export.ShowStats {
		report.Print(os.Stdout)
		if err := report.AppendLog(benchmarkLog, dir); err != nil {
			cli.log.Sugar().Warnf("benchmark log: %v", err)
		}
	}

	ok, degraded, failed := report.Counts()
	fmt.Printf("[+++] Exported %d, without upload %d, failed %d: %s\n", ok, degraded, failed, batchOut)
	if failed > 0 {
		return fmt.Errorf("%d of %d scenes failed", failed, len(files))
	}
	return nil
}

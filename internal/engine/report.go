package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/tactiboard/internal/system"
)

// Report summarizes a batch run.
type Report struct {
	Build      string
	Total      time.Duration
	Results    []BatchResult
	Memory     system.MemoryStats
	Rasterizer string
}

func NewReport(build, rasterizer string, total time.Duration, results []BatchResult) Report {
	return Report{
		Build:      build,
		Total:      total,
		Results:    results,
		Memory:     system.ReadMemoryStats(),
		Rasterizer: rasterizer,
	}
}

// Counts returns how many scenes were exported cleanly, degraded (no
// upload) and failed.
func (r Report) Counts() (ok, degraded, failed int) {
	for _, res := range r.Results {
		switch {
		case res.Err != nil:
			failed++
		case res.Status.Degraded():
			degraded++
		default:
			ok++
		}
	}
	return ok, degraded, failed
}

func (r Report) scenesPerSecond() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(len(r.Results)) / r.Total.Seconds()
}

// Print writes the performance report block.
func (r Report) Print(w io.Writer) {
	ok, degraded, failed := r.Counts()
	var work time.Duration
	var bytes int
	for _, res := range r.Results {
		work += res.Duration
		bytes += res.Bytes
	}

	fmt.Fprintf(w,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Rasterizer: %s\n"+
			"Scenes: %d (ok %d, degraded %d, failed %d)\n"+
			"Total Time: %.2fs\n"+
			"Export Time (sum): %.2fs\n"+
			"Raster Output: %.2f MiB\n"+
			"Throughput: %.2f scenes/s\n"+
			"Heap: %.1f MiB | RSS: %.1f MiB | GC: %d\n"+
			"Host Memory Used: %.1f%%\n"+
			"----------------------------\n",
		r.Build, r.Rasterizer,
		len(r.Results), ok, degraded, failed,
		r.Total.Seconds(), work.Seconds(),
		system.MiB(uint64(bytes)),
		r.scenesPerSecond(),
		system.MiB(r.Memory.HeapAlloc), system.MiB(r.Memory.ProcessRSS), r.Memory.NumGC,
		r.Memory.HostUsedPct,
	)
}

// AppendLog adds a one-line summary to the benchmark log at path.
func (r Report) AppendLog(path string, input string) error {
	ok, degraded, failed := r.Counts()
	line := fmt.Sprintf("[%s] Build: %s | Input: %s | Scenes: %d | OK: %d | Degraded: %d | Failed: %d | Total: %.2fs | Rate: %.2f/s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		r.Build,
		filepath.Base(input),
		len(r.Results), ok, degraded, failed,
		r.Total.Seconds(),
		r.scenesPerSecond(),
	)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}

package system

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// MemoryStats - снимок потребления памяти процессом и системой.
type MemoryStats struct {
	ProcessRSS    uint64
	HeapAlloc     uint64
	NumGC         uint32
	HostUsedPct   float64
	HostTotal     uint64
	HostAvailable uint64
}

// ReadMemoryStats снимает показатели памяти. Если платформа не отдает
// данные по системе или процессу, поля остаются нулевыми.
func ReadMemoryStats() MemoryStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats := MemoryStats{HeapAlloc: ms.HeapAlloc, NumGC: ms.NumGC}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.HostUsedPct = vm.UsedPercent
		stats.HostTotal = vm.Total
		stats.HostAvailable = vm.Available
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfo(); err == nil {
			stats.ProcessRSS = info.RSS
		}
	}
	return stats
}

// MiB переводит байты в мегабайты для отчета.
func MiB(b uint64) float64 {
	return float64(b) / (1 << 20)
}

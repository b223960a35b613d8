package debug

import (
	"log/slog"
	"runtime"
	rdebug "runtime/debug"
)

const bytesPerMiB = 1 << 20

// Checkpointer is a memory-pressure hint issued by long traversals. It is best
// effort and has no effect on output.
type Checkpointer interface {
	Checkpoint()
}

// Nop is a Checkpointer that does nothing.
type Nop struct{}

func (Nop) Checkpoint() {}

// Memory returns freed heap to the OS on every checkpoint and logs the heap size.
type Memory struct {
	log          *slog.Logger
	count        int64
	lastMemStats runtime.MemStats
}

// NewMemory returns a Memory checkpointer logging to log.
func NewMemory(log *slog.Logger) *Memory {
	return &Memory{log: log}
}

// Checkpoint runs a collection, releases unused memory and logs heap usage.
// Not safe for concurrent use.
func (m *Memory) Checkpoint() {
	m.count++
	rdebug.FreeOSMemory()
	runtime.ReadMemStats(&m.lastMemStats)
	m.log.Debug("memory checkpoint",
		"n", m.count,
		"heap_mib", m.lastMemStats.HeapAlloc/bytesPerMiB,
		"sys_mib", m.lastMemStats.Sys/bytesPerMiB,
		"gc", m.lastMemStats.NumGC)
}

// Count returns the number of checkpoints taken.
func (m *Memory) Count() int64 {
	return m.count
}

// HeapMiB returns the heap allocation seen at the last checkpoint.
func (m *Memory) HeapMiB() uint64 {
	return m.lastMemStats.HeapAlloc / bytesPerMiB
}

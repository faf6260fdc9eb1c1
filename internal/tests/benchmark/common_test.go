package benchmark

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/statesnap/internal/storage/snapshot"
)

// StateSizes defines the number of tasks per benchmark state.
var StateSizes = []int{1000, 10000, 50000}

// SmallStateSizes for quick benchmarks.
var SmallStateSizes = []int{100, 1000}

// benchState mimics a workflow state: a set of tasks with a few string fields.
type benchState struct {
	Tasks map[string]benchTask
}

type benchTask struct {
	Key      string
	Worker   string
	State    string
	Attempts int
	Updated  time.Time
}

func init() {
	snapshot.RegisterType(&benchState{})
}

func newTaskKey() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, _ := ulid.New(ulid.Timestamp(time.Now()), entropy)
	return "task-" + strings.ToLower(id.String())
}

// newState builds a state with count tasks spread over 16 workers.
func newState(count int) *benchState {
	s := &benchState{Tasks: make(map[string]benchTask, count)}
	for i := 0; i < count; i++ {
		key := newTaskKey()
		s.Tasks[key] = benchTask{
			Key:      key,
			Worker:   fmt.Sprintf("worker-%02d", i%16),
			State:    []string{"pending", "running", "done"}[i%3],
			Attempts: i % 4,
			Updated:  time.Now(),
		}
	}
	return s
}

// payload returns n bytes of moderately compressible text.
func payload(n int) []byte {
	var sb strings.Builder
	for sb.Len() < n {
		fmt.Fprintf(&sb, "task-%08d worker-%02d state=running attempts=%d\n", sb.Len(), sb.Len()%16, sb.Len()%4)
	}
	return []byte(sb.String()[:n])
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithStateSizes runs a benchmark function with various state sizes.
func runWithStateSizes(b *testing.B, sizes []int, benchFn func(b *testing.B, count int)) {
	for _, count := range sizes {
		b.Run(fmt.Sprintf("tasks_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}

func codecLabel(id string) string {
	if id == "" {
		return "raw"
	}
	return id
}

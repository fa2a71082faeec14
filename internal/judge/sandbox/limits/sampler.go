package limits

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/process"
)

const (
	SamplerHeap = "heap"
	SamplerRSS  = "rss"
)

// Sampler reports current memory usage in bytes.
type Sampler interface {
	Sample() (uint64, error)
}

// NewSampler builds the sampler named by kind. An empty kind selects heap.
func NewSampler(kind string) (Sampler, error) {
	switch kind {
	case "", SamplerHeap:
		return HeapSampler{}, nil
	case SamplerRSS:
		return NewRSSSampler()
	default:
		return nil, fmt.Errorf("unknown memory sampler %q", kind)
	}
}

// HeapSampler reads the Go heap bytes in use.
type HeapSampler struct{}

func (HeapSampler) Sample() (uint64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc, nil
}

// RSSSampler reads the resident set size of this process.
type RSSSampler struct {
	proc *process.Process
}

// NewRSSSampler attaches to the current process.
func NewRSSSampler() (*RSSSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open process: %w", err)
	}
	return &RSSSampler{proc: proc}, nil
}

func (s *RSSSampler) Sample() (uint64, error) {
	info, err := s.proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}

type zeroSampler struct{}

func (zeroSampler) Sample() (uint64, error) { return 0, nil }

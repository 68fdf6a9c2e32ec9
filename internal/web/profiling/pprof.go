// Package profiling mounts the pprof handlers and a runtime stats endpoint.
//
// The endpoints expose goroutine stacks and heap contents. Mount them only
// behind a superuser check.
package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// Config holds profiling configuration
type Config struct {
	// Path is the URL prefix (default "/debug")
	Path string

	// BlockRate and MutexFraction turn on the block and mutex profiles
	// when positive
	BlockRate     int
	MutexFraction int
}

// DefaultConfig returns the profiling defaults
func DefaultConfig() Config {
	return Config{Path: "/debug"}
}

// Routes registers <path>/pprof/* and <path>/stats on r
func Routes(r chi.Router, cfg Config) {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	if cfg.BlockRate > 0 {
		runtime.SetBlockProfileRate(cfg.BlockRate)
	}
	if cfg.MutexFraction > 0 {
		runtime.SetMutexProfileFraction(cfg.MutexFraction)
	}

	r.Route(cfg.Path, func(r chi.Router) {
		r.Get("/stats", StatsHandler)
		r.Route("/pprof", func(r chi.Router) {
			r.HandleFunc("/", pprof.Index)
			r.HandleFunc("/cmdline", pprof.Cmdline)
			r.HandleFunc("/profile", pprof.Profile)
			r.HandleFunc("/symbol", pprof.Symbol)
			r.HandleFunc("/trace", pprof.Trace)
			for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
				r.Handle("/"+name, pprof.Handler(name))
			}
		})
	})
}

// Stats is a snapshot of the Go runtime
type Stats struct {
	GoVersion    string `json:"go_version"`
	Goroutines   int    `json:"goroutines"`
	CPUs         int    `json:"cpus"`
	HeapAlloc    uint64 `json:"heap_alloc_bytes"`
	HeapObjects  uint64 `json:"heap_objects"`
	TotalAlloc   uint64 `json:"total_alloc_bytes"`
	Sys          uint64 `json:"sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
	PauseTotalNs uint64 `json:"gc_pause_total_ns"`
}

// RuntimeStats reads the current runtime statistics
func RuntimeStats() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Stats{
		GoVersion:    runtime.Version(),
		Goroutines:   runtime.NumGoroutine(),
		CPUs:         runtime.NumCPU(),
		HeapAlloc:    m.HeapAlloc,
		HeapObjects:  m.HeapObjects,
		TotalAlloc:   m.TotalAlloc,
		Sys:          m.Sys,
		NumGC:        m.NumGC,
		PauseTotalNs: m.PauseTotalNs,
	}
}

// StatsHandler serves RuntimeStats as JSON
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	response.OK(w, RuntimeStats())
}

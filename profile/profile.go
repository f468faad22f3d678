package profile

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// ErrStarted indicates a second call to [Profiler.Start].
var ErrStarted = errors.New("profiler already started")

// Profiler records the profiles named by a [Config].
//
// Create instances with [Config.NewProfiler].
type Profiler struct {
	cpuFile   *os.File
	traceFile *os.File
	cfg       Config
	started   bool
}

// Run starts profiling, calls fn and stops profiling. Errors from fn and
// from writing profiles are joined.
func (p *Profiler) Run(fn func() error) error {
	err := p.Start()
	if err != nil {
		return err
	}

	return errors.Join(fn(), p.Stop())
}

// Start begins CPU profiling and tracing when enabled. The memory profile
// rate is only changed when a heap or allocs profile is requested.
func (p *Profiler) Start() error {
	if p.started {
		return ErrStarted
	}

	p.started = true

	if p.cfg.MemProfileRate > 0 && (p.cfg.HeapProfile != "" || p.cfg.AllocsProfile != "") {
		runtime.MemProfileRate = p.cfg.MemProfileRate
	}

	if p.cfg.CPUProfile != "" {
		f, err := os.Create(p.cfg.CPUProfile) //nolint:gosec // Profile path from CLI flag is expected.
		if err != nil {
			return fmt.Errorf("creating CPU profile: %w", err)
		}

		err = pprof.StartCPUProfile(f)
		if err != nil {
			return errors.Join(fmt.Errorf("starting CPU profile: %w", err), f.Close())
		}

		p.cpuFile = f
	}

	if p.cfg.Trace != "" {
		f, err := os.Create(p.cfg.Trace) //nolint:gosec // Trace path from CLI flag is expected.
		if err != nil {
			return errors.Join(fmt.Errorf("creating trace: %w", err), p.stopCPU())
		}

		err = trace.Start(f)
		if err != nil {
			return errors.Join(fmt.Errorf("starting trace: %w", err), f.Close(), p.stopCPU())
		}

		p.traceFile = f
	}

	return nil
}

// Stop ends CPU profiling and tracing and writes the snapshot profiles.
// Stop is a no-op on a profiler that was not started.
func (p *Profiler) Stop() error {
	if !p.started {
		return nil
	}

	p.started = false

	var errs []error

	if p.traceFile != nil {
		trace.Stop()
		errs = append(errs, p.traceFile.Close())
		p.traceFile = nil
	}

	errs = append(errs, p.stopCPU())

	for _, snap := range []struct{ name, path string }{
		{"heap", p.cfg.HeapProfile},
		{"allocs", p.cfg.AllocsProfile},
	} {
		if snap.path == "" {
			continue
		}

		errs = append(errs, writeProfile(snap.name, snap.path))
	}

	return errors.Join(errs...)
}

func (p *Profiler) stopCPU() error {
	if p.cpuFile == nil {
		return nil
	}

	pprof.StopCPUProfile()

	err := p.cpuFile.Close()
	p.cpuFile = nil

	if err != nil {
		return fmt.Errorf("closing CPU profile: %w", err)
	}

	return nil
}

func writeProfile(name, path string) (err error) {
	prof := pprof.Lookup(name)
	if prof == nil {
		return fmt.Errorf("unknown profile: %s", name)
	}

	if name == "heap" {
		runtime.GC()
	}

	f, err := os.Create(path) //nolint:gosec // Profile path from CLI flag is expected.
	if err != nil {
		return fmt.Errorf("creating %s profile: %w", name, err)
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	err = prof.WriteTo(f, 0)
	if err != nil {
		return fmt.Errorf("writing %s profile: %w", name, err)
	}

	return nil
}

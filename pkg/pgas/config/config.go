// Package config reads the environment variables that steer a PGAS
// process at startup: symmetric heap size, preallocated context count,
// default algorithm choice per collective class, and diagnostic
// verbosity. Byte-size values use alecthomas/units so an operator can
// write "256MiB" instead of a raw byte count, the way the teacher's
// own CLI tooling parses sizes. Names follow OpenSHMEM's SHMEM_*
// environment convention (spec.md §7) rather than an invented prefix.
package config

import (
	"os"
	"strconv"

	"github.com/alecthomas/units"

	"github.com/jabolina/go-pgas/pkg/pgas/collectives"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/alltoall"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/barrier"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/broadcast"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/collect"
	"github.com/jabolina/go-pgas/pkg/pgas/collectives/reduce"
	"github.com/jabolina/go-pgas/pkg/pgas/types"
)

const (
	envHeapSize   = "SHMEM_SYMMETRIC_SIZE"
	envPrealloc   = "SHMEM_PREALLOC_CONTEXTS"
	envBarrier    = "SHMEM_BARRIER_ALGORITHM"
	envBroadcast  = "SHMEM_BROADCAST_ALGORITHM"
	envCollect    = "SHMEM_COLLECT_ALGORITHM"
	envAllToAll   = "SHMEM_ALLTOALL_ALGORITHM"
	envReduce     = "SHMEM_REDUCE_ALGORITHM"
	envDebug      = "SHMEM_DEBUG"
	envInfo       = "SHMEM_INFO"
	envVersion    = "SHMEM_VERSION"

	defaultHeapSize = 64 << 20 // 64MiB
)

// Config is a process's tunables, read once at Init.
type Config struct {
	HeapSize         uint64
	PreallocContexts int
	Debug            bool
	Info             bool
	PrintVersion     bool
	Algorithm        map[types.CollectiveClass]string
}

// FromEnv reads Config from the process environment, falling back to a
// fixed per-class algorithm name (the same ones collectives.Default
// sets as class defaults) for any algorithm not named. Every named
// algorithm is checked against registry immediately, so a typo in
// e.g. SHMEM_BARRIER_ALGORITHM fails fast at startup instead of at the
// first collective call that needs it.
func FromEnv(registry *collectives.Registry) (*Config, *types.Fault) {
	cfg := &Config{HeapSize: defaultHeapSize, Algorithm: map[types.CollectiveClass]string{}}

	if v := os.Getenv(envHeapSize); v != "" {
		size, err := units.ParseBase2Bytes(v)
		if err != nil {
			return nil, types.NewFaultf(types.AllocFailure, "config", "invalid %s=%q: %v", envHeapSize, v, err)
		}
		if size <= 0 {
			return nil, types.NewFaultf(types.AllocFailure, "config", "%s must be positive, got %q", envHeapSize, v)
		}
		cfg.HeapSize = uint64(size)
	}

	if v := os.Getenv(envPrealloc); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, types.NewFaultf(types.AllocFailure, "config", "invalid %s=%q: %v", envPrealloc, v, err)
		}
		if n < 0 {
			return nil, types.NewFaultf(types.AllocFailure, "config", "%s must not be negative, got %q", envPrealloc, v)
		}
		cfg.PreallocContexts = n
	}

	if v := os.Getenv(envDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, types.NewFaultf(types.AllocFailure, "config", "invalid %s=%q: %v", envDebug, v, err)
		}
		cfg.Debug = b
	}

	if v := os.Getenv(envInfo); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, types.NewFaultf(types.AllocFailure, "config", "invalid %s=%q: %v", envInfo, v, err)
		}
		cfg.Info = b
	}

	if v := os.Getenv(envVersion); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, types.NewFaultf(types.AllocFailure, "config", "invalid %s=%q: %v", envVersion, v, err)
		}
		cfg.PrintVersion = b
	}

	if fault := setAlgo(cfg, registry, types.ClassBarrier, envBarrier, barrier.Dissemination); fault != nil {
		return nil, fault
	}
	if fault := setAlgo(cfg, registry, types.ClassBroadcast, envBroadcast, broadcast.CompleteTree); fault != nil {
		return nil, fault
	}
	if fault := setAlgo(cfg, registry, types.ClassCollect, envCollect, collect.Ring); fault != nil {
		return nil, fault
	}
	if fault := setAlgo(cfg, registry, types.ClassAllToAll, envAllToAll, alltoall.ShiftExchangeCounter); fault != nil {
		return nil, fault
	}
	if fault := setAlgo(cfg, registry, types.ClassReduce, envReduce, reduce.Binomial); fault != nil {
		return nil, fault
	}

	return cfg, nil
}

func setAlgo(cfg *Config, registry *collectives.Registry, class types.CollectiveClass, env, fallback string) *types.Fault {
	name := os.Getenv(env)
	if name == "" {
		name = fallback
	}
	if registry != nil {
		if fault := validateAlgo(registry, class, name); fault != nil {
			return types.NewFaultf(types.AlgorithmUnsupported, "config", "%s=%q: %v", env, name, fault)
		}
	}
	cfg.Algorithm[class] = name
	return nil
}

// validateAlgo looks name up in registry's table for class, returning
// the AlgorithmUnsupported fault the registry itself would raise on
// first use if this check were skipped.
func validateAlgo(registry *collectives.Registry, class types.CollectiveClass, name string) *types.Fault {
	switch class {
	case types.ClassBarrier:
		_, fault := registry.Barrier(name)
		return fault
	case types.ClassBroadcast:
		_, fault := registry.Broadcast(name)
		return fault
	case types.ClassCollect:
		_, fault := registry.Collect(name)
		return fault
	case types.ClassAllToAll:
		_, fault := registry.AllToAll(name)
		return fault
	case types.ClassReduce:
		_, fault := registry.Reduce(name)
		return fault
	default:
		return nil
	}
}

// Package system probes the host: locating the ffmpeg toolchain, raising
// file-descriptor limits and sizing worker pools from the actual hardware.
package system

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// FindFFmpeg locates the ffmpeg binary, honoring the FFMPEG_PATH override.
func FindFFmpeg() (string, error) {
	return findTool("ffmpeg", "FFMPEG_PATH")
}

// FindFFprobe locates the ffprobe binary, honoring the FFPROBE_PATH override.
func FindFFprobe() (string, error) {
	return findTool("ffprobe", "FFPROBE_PATH")
}

func findTool(name, envKey string) (string, error) {
	if p := os.Getenv(envKey); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s=%s: %w", envKey, p, err)
		}
		return p, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH (set %s to override): %w", name, envKey, err)
	}
	return path, nil
}

// InitResourceLimits raises the open-file limit; a preload batch can hold a
// descriptor per in-flight asset fetch.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn().Err(err).Msg("could not read file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn().Err(err).Msg("could not raise file limit")
	}
}

// DecodeWorkers sizes the preload/decode pool. Each worker may hold a
// decoded bitmap plus a PCM buffer, so the count is bounded by available
// memory (roughly 512 MB per worker) as well as CPU count.
func DecodeWorkers() int {
	workers, err := cpu.Counts(true)
	if err != nil || workers < 1 {
		workers = 4
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		byMem := int(vm.Available / (512 << 20))
		if byMem < 1 {
			byMem = 1
		}
		if byMem < workers {
			workers = byMem
		}
	}

	if workers > 16 {
		workers = 16
	}
	return workers
}

package launcher

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// RunningIn returns the pids of processes whose executable lives in dir.
// Processes that cannot be inspected are skipped.
func RunningIn(ctx context.Context, dir string) ([]int32, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	var pids []int32
	for _, p := range procs {
		exe, err := p.ExeWithContext(ctx)
		if err != nil || exe == "" {
			continue
		}
		if within(dir, exe) {
			pids = append(pids, p.Pid)
		}
	}
	return pids, nil
}

// IsRunning reports whether any process runs from dir.
func IsRunning(ctx context.Context, dir string) (bool, error) {
	pids, err := RunningIn(ctx, dir)
	return len(pids) > 0, err
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

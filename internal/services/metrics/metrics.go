package metrics

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/socialgrab/downorc/internal/kv"
	"github.com/socialgrab/downorc/internal/utils"
)

const (
	updateInterval = 30 * time.Second
	metricsTTL     = 60 * time.Second
)

// Sampler is the background system-metrics publisher (§6 "system:*"
// config-store keys), a supplemented feature against the original
// system_metrics.py collector.
type Sampler struct {
	store   *kv.Store
	tmpPath string
}

func New(store *kv.Store, tmpPath string) *Sampler {
	return &Sampler{store: store, tmpPath: tmpPath}
}

// Run samples and publishes every updateInterval until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	s.sampleOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(ctx)
		}
	}
}

func (s *Sampler) sampleOnce(ctx context.Context) {
	cpuPercent, err := cpuPercent()
	if err != nil {
		utils.LogWarn(ctx, "metrics: cpu sample failed", utils.Fields{"error": err.Error()})
	} else {
		s.publish(ctx, kv.SystemCPUPercentKey, formatPercent(cpuPercent))
	}

	ramPercent, err := ramPercent()
	if err != nil {
		utils.LogWarn(ctx, "metrics: ram sample failed", utils.Fields{"error": err.Error()})
	} else {
		s.publish(ctx, kv.SystemRAMPercentKey, formatPercent(ramPercent))
	}

	diskPercent, err := diskPercent("/")
	if err != nil {
		utils.LogWarn(ctx, "metrics: disk sample failed", utils.Fields{"error": err.Error()})
	} else {
		s.publish(ctx, kv.SystemDiskPercentKey, formatPercent(diskPercent))
	}

	tmpUsed := dirSize(s.tmpPath)
	s.publish(ctx, kv.SystemTmpUsedBytesKey, formatInt(tmpUsed))
}

func (s *Sampler) publish(ctx context.Context, key, value string) {
	if err := s.store.Set(ctx, key, value, metricsTTL); err != nil {
		utils.LogWarn(ctx, "metrics: publish failed", utils.Fields{"key": key, "error": err.Error()})
	}
}

func dirSize(root string) int64 {
	var total int64
	_ = filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

func diskPercent(path string) (float64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bfree * uint64(stat.Bsize)
	if total == 0 {
		return 0, nil
	}
	used := total - free
	return float64(used) / float64(total) * 100, nil
}

package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/paulasmuth/brokerd/utils/log"
)

// Setter is an interface for prometheus metrics to improve unit-testability.
type Setter interface {
	Set(m float64)
}

// StartDiskUsageMonitor measures the total size of all regular files under
// rootDir at each interval and publishes it through s.
func StartDiskUsageMonitor(s Setter, rootDir string, interval time.Duration) {
	s.Set(float64(diskUsage(rootDir)))

	t := time.NewTicker(interval)
	for range t.C {
		s.Set(float64(diskUsage(rootDir)))
	}
}

func diskUsage(path string) int64 {
	var totalSize int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		log.Error("get the disk usage of the directory for monitoring %s: %v", path, err)
	}
	return totalSize
}

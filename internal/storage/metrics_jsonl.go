package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"poolEngine/internal/model"
)

// MetricsJsonlStorage appends window metrics to a JSONL file.
type MetricsJsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewMetricsJsonlStorage(path string) *MetricsJsonlStorage {
	return &MetricsJsonlStorage{path: path}
}

// PutMetricsBatch appends a batch of window metrics as JSON lines.
func (s *MetricsJsonlStorage) PutMetricsBatch(metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, m := range metrics {
		line, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal metrics: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

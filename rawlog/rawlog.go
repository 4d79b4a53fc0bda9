// Package rawlog persists raw vendor responses to disk for later
// inspection. It sits behind the tracker's ResponseLogger hook, so the core
// never touches the filesystem and a write failure never disturbs job
// tracking.
package rawlog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

type Logger struct {
	dir     string
	nowFunc func() time.Time
}

func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("rawlog: create %s: %w", dir, err)
	}
	return &Logger{dir: dir, nowFunc: time.Now}, nil
}

func (l *Logger) LogSubmit(raw []byte) {
	l.write(fmt.Sprintf("submit_%d.json", l.nowFunc().UnixMilli()), raw)
}

func (l *Logger) LogQuery(jobID string, raw []byte) {
	l.write(fmt.Sprintf("query_%s_%d.json", jobID, l.nowFunc().UnixMilli()), raw)
}

func (l *Logger) write(name string, raw []byte) {
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		log.Printf("[RawLog] Failed to write %s: %v", path, err)
	}
}

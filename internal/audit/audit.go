// Package audit records system operations to an append-only log file.
// Auditing is best effort: a failure to write never fails the operation
// being audited.
package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"`
	Details   string    `json:"details"`
}

// Logger appends audit lines to <dir>/system.log. Safe for concurrent
// use.
type Logger struct {
	mu   sync.Mutex
	path string
}

// New prepares a logger writing under dir. The directory is created if
// missing; if that fails the logger still works, dropping file writes.
func New(dir string) *Logger {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[AUDIT] cannot create log directory %s: %v", dir, err)
	}
	return &Logger{path: filepath.Join(dir, "system.log")}
}

// Log records a successful operation.
func (l *Logger) Log(operation, details string) {
	l.write(Event{Timestamp: time.Now(), Operation: operation, Status: "SUCCESS", Details: details})
}

// LogError records a failed operation together with its error.
func (l *Logger) LogError(operation string, err error) {
	l.write(Event{Timestamp: time.Now(), Operation: operation, Status: "FAILED", Details: err.Error()})
}

func (l *Logger) write(e Event) {
	data, _ := json.Marshal(e)
	log.Printf("AUDIT: %s", data)

	line := fmt.Sprintf("%s - %s - %s\n", e.Timestamp.Format(timestampLayout), e.Operation, e.Details)

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	f.WriteString(line)
}

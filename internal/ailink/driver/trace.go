package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// TraceEntry is one provider call as written to the trace file.
type TraceEntry struct {
	Time      time.Time       `json:"time"`
	Provider  string          `json:"provider"`
	Prompt    string          `json:"prompt,omitempty"`
	Model     string          `json:"model,omitempty"`
	Endpoint  string          `json:"endpoint"`
	Request   json.RawMessage `json:"request,omitempty"`
	Status    int             `json:"status,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
	Error     string          `json:"error,omitempty"`
	LatencyMs int64           `json:"latency_ms"`
}

type traceFile struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

var activeTrace atomic.Pointer[traceFile]

// EnableTracing appends one JSON line per provider call to path until the
// returned stop func runs. Enabling again switches to the new file.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- path comes from --trace
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	tf := &traceFile{f: f, enc: json.NewEncoder(f)}
	if prev := activeTrace.Swap(tf); prev != nil {
		prev.close()
	}
	return func() {
		if activeTrace.CompareAndSwap(tf, nil) {
			tf.close()
		}
	}, nil
}

// Trace writes entry when tracing is enabled.
func Trace(entry TraceEntry) {
	tf := activeTrace.Load()
	if tf == nil {
		return
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	if tf.f != nil {
		_ = tf.enc.Encode(entry)
	}
}

func (tf *traceFile) close() {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	if tf.f != nil {
		_ = tf.f.Close()
		tf.f = nil
	}
}

package proximity

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DEFAULT_PUSH_LIMIT is max accepted body size of pushed configuration
const DEFAULT_PUSH_LIMIT = 8 << 20

// PushSource accepts configurations over HTTP. Only the latest one is kept: stale pushes are superseded.
type PushSource struct {
	mu      sync.Mutex
	latest  *Configuration
	pending bool
}

// NewPushSource returns empty push source
func NewPushSource() *PushSource {
	return &PushSource{}
}

// Push stores configuration as the latest one
func (src *PushSource) Push(cfg *Configuration) {
	src.mu.Lock()
	defer src.mu.Unlock()
	src.latest = cfg
	src.pending = true
}

// Poll implements ConfigurationSource
func (src *PushSource) Poll(ctx context.Context) (*Configuration, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.latest == nil {
		return nil, false, nil
	}
	changed := src.pending
	src.pending = false
	return src.latest, changed, nil
}

// Routes mounts POST /configuration handler
func (src *PushSource) Routes(r chi.Router) {
	r.Post("/configuration", src.handlePush)
}

func (src *PushSource) handlePush(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, DEFAULT_PUSH_LIMIT))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cfg, err := ParseConfiguration(data)
	if err != nil {
		zap.L().Warn("rejected pushed configuration", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	src.Push(cfg)
	w.WriteHeader(http.StatusAccepted)
}

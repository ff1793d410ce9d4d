package devkit

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/goliatone/go-onboard/core"
)

// RecordingRenderer captures every view it renders. The output is the JSON
// encoding of the view, which is enough for transport-level assertions.
type RecordingRenderer struct {
	mu    sync.Mutex
	views []core.View
}

func NewRecordingRenderer() *RecordingRenderer {
	return &RecordingRenderer{}
}

func (r *RecordingRenderer) Render(_ context.Context, view core.View) ([]byte, string, error) {
	r.mu.Lock()
	r.views = append(r.views, view)
	r.mu.Unlock()

	body, err := json.Marshal(view)
	if err != nil {
		return nil, "", err
	}
	return body, "application/json; charset=utf-8", nil
}

func (r *RecordingRenderer) Views() []core.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.View(nil), r.views...)
}

var _ core.Renderer = (*RecordingRenderer)(nil)

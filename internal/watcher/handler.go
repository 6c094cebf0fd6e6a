package watcher

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/silabo/internal/pipeline"
)

// PipelineHandler runs the syllabus pipeline for changed files, drops the
// course of removed ones and then rewrites the run outputs.
type PipelineHandler struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
	mu       sync.Mutex // serializes output refreshes
}

// NewPipelineHandler returns a Handler backed by p. logger may be nil.
func NewPipelineHandler(p *pipeline.Pipeline, logger *zap.Logger) *PipelineHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineHandler{pipeline: p, logger: logger}
}

func (h *PipelineHandler) Changed(ctx context.Context, path string) {
	res := h.pipeline.ProcessFile(ctx, path)
	if res.Failure != nil || res.Skipped {
		return
	}
	h.refresh(ctx)
}

func (h *PipelineHandler) Removed(ctx context.Context, path string) {
	key, err := h.pipeline.Remove(ctx, path)
	if err != nil {
		h.logger.Error("failed to remove course", zap.String("path", path), zap.Error(err))
		return
	}
	if key != "" {
		h.refresh(ctx)
	}
}

func (h *PipelineHandler) refresh(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.pipeline.RefreshOutputs(ctx); err != nil {
		h.logger.Error("failed to refresh outputs", zap.Error(err))
	}
}

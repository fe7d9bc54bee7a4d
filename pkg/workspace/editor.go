package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// DefaultEditDebounce is used when no idle period is configured.
const DefaultEditDebounce = 800 * time.Millisecond

// ContentEditor buffers typed section content and commits it through the
// store after the edit goes idle.
type ContentEditor struct {
	ctx       context.Context
	store     *Store
	delay     time.Duration
	afterFunc AfterFunc
	logger    *zap.Logger

	mu      sync.Mutex
	buffers map[uuid.UUID]*Debouncer[string]
}

// NewContentEditor creates an editor. A zero delay uses DefaultEditDebounce
// and a nil afterFunc the wall clock.
func NewContentEditor(ctx context.Context, store *Store, delay time.Duration, afterFunc AfterFunc, logger *zap.Logger) *ContentEditor {
	if delay <= 0 {
		delay = DefaultEditDebounce
	}
	return &ContentEditor{
		ctx:       ctx,
		store:     store,
		delay:     delay,
		afterFunc: afterFunc,
		logger:    logger.Named("editor"),
		buffers:   make(map[uuid.UUID]*Debouncer[string]),
	}
}

// Edit buffers the full content of a section. The section must be in the
// mirror; a placeholder id from CreateSection works before and after the
// create settles.
func (e *ContentEditor) Edit(sectionID uuid.UUID, content string) error {
	if _, ok := e.store.Section(sectionID); !ok {
		return fmt.Errorf("section %s: %w", sectionID, apperrors.ErrNotFound)
	}
	e.buffer(sectionID).Set(content)
	return nil
}

// Flush commits a section's buffered content now, e.g. when navigating away.
func (e *ContentEditor) Flush(sectionID uuid.UUID) {
	e.mu.Lock()
	d, ok := e.buffers[sectionID]
	e.mu.Unlock()
	if ok {
		d.Flush()
	}
}

// FlushAll commits every buffered section.
func (e *ContentEditor) FlushAll() {
	e.mu.Lock()
	pending := make([]*Debouncer[string], 0, len(e.buffers))
	for _, d := range e.buffers {
		pending = append(pending, d)
	}
	e.mu.Unlock()

	for _, d := range pending {
		d.Flush()
	}
}

// Discard drops every buffered edit without committing.
func (e *ContentEditor) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, d := range e.buffers {
		d.Stop()
		delete(e.buffers, id)
	}
}

func (e *ContentEditor) buffer(sectionID uuid.UUID) *Debouncer[string] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.buffers[sectionID]; ok {
		return d
	}
	d := NewDebouncer(e.delay, e.afterFunc, func(content string) {
		e.commit(sectionID, content)
	})
	e.buffers[sectionID] = d
	return d
}

func (e *ContentEditor) commit(sectionID uuid.UUID, content string) {
	if err := e.store.UpdateSection(e.ctx, sectionID, models.SectionPatch{Content: &content}); err != nil {
		// The section left the mirror while the edit was buffered.
		e.logger.Warn("Dropping edit for missing section",
			zap.String("section_id", sectionID.String()),
			zap.Error(err))
	}
}

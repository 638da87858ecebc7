package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tagframe/models"
)

// DefaultDebounce is how long the Syncer waits for more shapes before saving.
const DefaultDebounce = 500 * time.Millisecond

var ErrUnsaved = errors.New("annotation has not been saved yet")

// API is the part of the server the Syncer talks to. *client.Client
// implements it.
type API interface {
	ListAnnotations(ctx context.Context, imageID uint) ([]models.Annotation, error)
	SaveAnnotations(ctx context.Context, imageID uint, items []models.Annotation) ([]models.Annotation, error)
	UpdateAnnotationLabel(ctx context.Context, id uint, labelID *uint) (*models.Annotation, error)
	DeleteAnnotation(ctx context.Context, id uint) error
}

type SyncerOption func(*Syncer)

func WithDebounce(d time.Duration) SyncerOption {
	return func(s *Syncer) { s.delay = d }
}

func WithContext(ctx context.Context) SyncerOption {
	return func(s *Syncer) { s.ctx = ctx }
}

// Syncer keeps the displayed annotation list of one image in step with the
// server. Changes show up locally at once; new shapes are batched over a
// debounce window and saved in one call; a failed request undoes only its
// own change. After every request the list is refetched, unless a newer
// request has been dispatched since.
//
// Network calls are serialized. Edits from other editors of the same image
// are overwritten by whoever saves last.
type Syncer struct {
	api      API
	imageID  uint
	notifier Notifier
	delay    time.Duration
	ctx      context.Context

	// The displayed list is base followed by saving and pending. base holds
	// saved annotations, saving the batch of the request in flight, pending
	// the shapes of the open debounce window.
	mu         sync.Mutex
	base       []models.Annotation
	saving     []models.Annotation
	pending    []models.Annotation
	timer      *time.Timer
	generation uint64
	listeners  []func()

	inflight sync.Mutex
	wg       sync.WaitGroup
}

func NewSyncer(api API, imageID uint, notifier Notifier, opts ...SyncerOption) *Syncer {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	s := &Syncer{
		api:      api,
		imageID:  imageID,
		notifier: notifier,
		delay:    DefaultDebounce,
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func clone(list []models.Annotation) []models.Annotation {
	return append([]models.Annotation(nil), list...)
}

// OnInvalidate registers fn to run after every settled request, e.g. to
// reload label usage statistics. fn runs after the request lock is
// released, so it may call back into the Syncer.
func (s *Syncer) OnInvalidate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Annotations returns a copy of the displayed list.
func (s *Syncer) Annotations() []models.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.Annotation, 0, len(s.base)+len(s.saving)+len(s.pending))
	list = append(list, s.base...)
	list = append(list, s.saving...)
	return append(list, s.pending...)
}

// Load replaces the saved part of the displayed list with the server's.
func (s *Syncer) Load(ctx context.Context) error {
	list, err := s.api.ListAnnotations(ctx, s.imageID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.base = list
	s.mu.Unlock()
	return nil
}

// Queue shows annotation right away and schedules it for saving. Calls
// within one debounce window end up in the same save request, in order.
func (s *Syncer) Queue(annotation models.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, annotation)

	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.wg.Add(1)
	s.timer = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.flush()
	})
}

// Flush saves the pending window now instead of waiting for the timer.
func (s *Syncer) Flush() {
	s.stopTimer()
	s.flush()
}

// Close saves anything pending and waits for requests started by the timer.
func (s *Syncer) Close() {
	s.Flush()
	s.wg.Wait()
}

func (s *Syncer) stopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.timer = nil
}

func (s *Syncer) flush() {
	s.inflight.Lock()

	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	if len(batch) == 0 {
		s.mu.Unlock()
		s.inflight.Unlock()
		return
	}
	s.saving = batch
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	_, err := s.api.SaveAnnotations(s.ctx, s.imageID, batch)

	s.mu.Lock()
	s.saving = nil
	if err == nil {
		// Shown as saved until the refetch brings their ids.
		s.base = append(s.base, batch...)
	}
	s.mu.Unlock()
	if err != nil {
		s.notifier.Error(fmt.Errorf("save %d annotation(s): %w", len(batch), err))
	}

	s.reconcile(gen)
	s.inflight.Unlock()
	s.notify()
}

// Delete removes the annotation locally and on the server.
func (s *Syncer) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrUnsaved
	}

	s.mu.Lock()
	index := -1
	var removed models.Annotation
	for i, a := range s.base {
		if a.ID == id {
			index, removed = i, a
			s.base = append(clone(s.base[:i]), s.base[i+1:]...)
			break
		}
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.inflight.Lock()
	err := s.api.DeleteAnnotation(ctx, id)
	if err != nil {
		if index >= 0 {
			s.restore(index, removed)
		}
		err = fmt.Errorf("delete annotation %d: %w", id, err)
		s.notifier.Error(err)
	}
	s.reconcile(gen)
	s.inflight.Unlock()
	s.notify()
	return err
}

// restore puts a removed annotation back at its old index unless a refetch
// already brought it back.
func (s *Syncer) restore(index int, annotation models.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.base {
		if a.ID == annotation.ID {
			return
		}
	}
	if index > len(s.base) {
		index = len(s.base)
	}
	base := make([]models.Annotation, 0, len(s.base)+1)
	base = append(base, s.base[:index]...)
	base = append(base, annotation)
	s.base = append(base, s.base[index:]...)
}

// UpdateLabel reassigns the annotation's label locally and on the server.
func (s *Syncer) UpdateLabel(ctx context.Context, id uint, labelID *uint) error {
	if id == 0 {
		return ErrUnsaved
	}

	s.mu.Lock()
	var previous *models.Annotation
	s.base = clone(s.base)
	for i := range s.base {
		if s.base[i].ID == id {
			old := s.base[i]
			previous = &old
			s.base[i].LabelID = labelID
			s.base[i].Label = nil
		}
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.inflight.Lock()
	_, err := s.api.UpdateAnnotationLabel(ctx, id, labelID)
	if err != nil {
		if previous != nil {
			s.relabel(id, previous.LabelID, previous.Label)
		}
		err = fmt.Errorf("relabel annotation %d: %w", id, err)
		s.notifier.Error(err)
	}
	s.reconcile(gen)
	s.inflight.Unlock()
	s.notify()
	return err
}

func (s *Syncer) relabel(id uint, labelID *uint, label *models.Label) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = clone(s.base)
	for i := range s.base {
		if s.base[i].ID == id {
			s.base[i].LabelID = labelID
			s.base[i].Label = label
		}
	}
}

// reconcile refetches the saved list. The result is dropped when a newer
// request was dispatched in the meantime, since it may predate that request.
func (s *Syncer) reconcile(gen uint64) {
	fresh, err := s.api.ListAnnotations(s.ctx, s.imageID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil && gen == s.generation {
		s.base = fresh
	}
}

func (s *Syncer) notify() {
	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

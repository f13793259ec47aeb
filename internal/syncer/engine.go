// Package syncer reconciles local edits against the room's source of
// truth. Keystrokes hit in-memory state immediately, get pushed over the
// realtime side channel, and are persisted as one coalesced patch per
// debounce window with at most one save in flight.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cwrk-planet/codeshare/internal/access"
	"github.com/cwrk-planet/codeshare/internal/domain"
	"github.com/cwrk-planet/codeshare/internal/realtime"
)

const (
	DefaultDebounceWindow = 1000 * time.Millisecond
	DefaultBackoffBase    = 1 * time.Second
	DefaultBackoffCap     = 30 * time.Second
)

// Channel — то, что движку нужно от realtime-границы. Nil для guest
// сессий: у них нет push-канала.
type Channel interface {
	SendEdit(content string)
	Edits() <-chan realtime.Edit
}

type Options struct {
	DebounceWindow time.Duration
	BackoffBase    time.Duration
	BackoffCap     time.Duration

	// Notify surfaces persist failures as non-blocking notifications.
	Notify func(err error)
	// OnApply fires after a remote edit or a save lands in local state.
	OnApply func(room domain.Room)
}

type saveResult struct {
	room *domain.Room
	err  error
}

type Engine struct {
	store    Store
	ch       Channel
	role     domain.Role
	identity string
	opts     Options

	mu       sync.Mutex
	state    State
	room     domain.Room
	gen      uint64 // bumped on every local edit
	savedGen uint64 // gen captured by the in-flight save
	dirty    bool
	inFlight bool
	buffered *realtime.Edit
	lastSeq  map[string]uint64

	backoff *backoff.ExponentialBackOff // loop-owned

	kick     chan struct{}
	saveDone chan saveResult
}

func New(store Store, ch Channel, room domain.Room, role domain.Role, identity string, opts Options) *Engine {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = DefaultBackoffCap
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.BackoffBase
	b.MaxInterval = opts.BackoffCap
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // retry as long as the session is open
	b.Reset()

	return &Engine{
		store:    store,
		ch:       ch,
		role:     role,
		identity: identity,
		opts:     opts,
		state:    StateLoading,
		room:     room,
		lastSeq:  make(map[string]uint64),
		backoff:  b,
		kick:     make(chan struct{}, 1),
		saveDone: make(chan saveResult, 1),
	}
}

// Run owns all mutation ordering: debounce expiry, save completion and
// inbound remote edits are serialized here. Blocks until ctx is
// cancelled; an in-flight save may finish afterwards but its result is
// discarded.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.state = StateReady
	e.mu.Unlock()

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	defer timer.Stop()

	var editsCh <-chan realtime.Edit
	if e.ch != nil {
		editsCh = e.ch.Edits()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.kick:
			resetTimer(timer, e.opts.DebounceWindow)
		case <-timer.C:
			e.startSave(ctx)
		case res := <-e.saveDone:
			if delay, retry := e.finishSave(ctx, res); retry {
				resetTimer(timer, delay)
			}
		case ed, ok := <-editsCh:
			if !ok {
				editsCh = nil
				continue
			}
			e.applyRemote(ed)
		}
	}
}

// Edit applies a keystroke to in-memory state with zero latency and
// schedules the debounced persist. Read-only roles are a local no-op:
// nothing ever reaches the store.
func (e *Engine) Edit(content string) {
	if !access.CanWrite(e.role) {
		slog.Debug("edit ignored: read-only role", "room", e.roomID(), "role", e.role)
		return
	}

	e.mu.Lock()
	e.room.Content = content
	e.markDirtyLocked()
	e.mu.Unlock()

	if e.ch != nil {
		e.ch.SendEdit(content)
	}
	e.scheduleSave()
}

func (e *Engine) SetName(name string) {
	e.setField(func(r *domain.Room) { r.Name = name })
}

func (e *Engine) SetLanguage(lang string) {
	e.setField(func(r *domain.Room) { r.Language = domain.NormalizeLanguage(lang) })
}

func (e *Engine) SetTheme(theme string) {
	e.setField(func(r *domain.Room) { r.Theme = domain.NormalizeTheme(theme) })
}

func (e *Engine) setField(apply func(*domain.Room)) {
	if !access.CanWrite(e.role) {
		return
	}
	e.mu.Lock()
	apply(&e.room)
	e.markDirtyLocked()
	e.mu.Unlock()
	e.scheduleSave()
}

// Snapshot returns a copy of the current room state.
func (e *Engine) Snapshot() domain.Room {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Role() domain.Role { return e.role }

func (e *Engine) markDirtyLocked() {
	e.gen++
	e.dirty = true
}

func (e *Engine) scheduleSave() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// startSave issues exactly one coalesced persist call carrying the
// latest mutable fields, however many edits landed inside the window.
func (e *Engine) startSave(ctx context.Context) {
	e.mu.Lock()
	if !e.dirty || e.inFlight {
		e.mu.Unlock()
		return
	}
	e.inFlight = true
	e.savedGen = e.gen
	e.state = StateSaving
	id := e.room.ID
	patch := domain.RoomPatch{
		Name:     domain.StringPtr(e.room.Name),
		Content:  domain.StringPtr(e.room.Content),
		Language: domain.StringPtr(e.room.Language),
		Theme:    domain.StringPtr(e.room.Theme),
	}
	e.mu.Unlock()

	go func() {
		room, err := e.store.SaveRoom(ctx, id, patch)
		select {
		case e.saveDone <- saveResult{room: room, err: err}:
		case <-ctx.Done():
		}
	}()
}

// finishSave returns a retry delay when the save failed. Content is
// never lost: dirty stays set until a save carrying the latest gen
// succeeds.
func (e *Engine) finishSave(ctx context.Context, res saveResult) (time.Duration, bool) {
	e.mu.Lock()
	e.inFlight = false

	if res.err != nil {
		e.state = StateError
		notify := e.opts.Notify
		e.mu.Unlock()

		slog.Warn("save failed, will retry", "err", res.err)
		if notify != nil {
			notify(res.err)
		}
		return e.backoff.NextBackOff(), true
	}

	e.backoff.Reset()
	if res.room != nil {
		e.room.LastEdited = res.room.LastEdited
	}

	if e.gen != e.savedGen {
		// edits landed while the save was in flight: one follow-up,
		// not a drop and not a concurrent second call
		e.mu.Unlock()
		e.startSave(ctx)
		return 0, false
	}

	e.dirty = false
	e.state = StateReady
	apply := e.takeBufferedLocked()
	e.mu.Unlock()

	if apply != nil {
		apply()
	}
	return 0, false
}

// applyRemote reconciles an inbound edit: own echoes and stale sequence
// numbers are dropped; anything arriving while a local edit is pending
// is buffered so the user's keystrokes are not visually reverted
// mid-save.
func (e *Engine) applyRemote(ed realtime.Edit) {
	e.mu.Lock()
	if ed.Sender != "" && ed.Sender == e.identity {
		e.mu.Unlock()
		return
	}
	if ed.Seq != 0 {
		if last, ok := e.lastSeq[ed.Sender]; ok && ed.Seq <= last {
			e.mu.Unlock()
			return
		}
		e.lastSeq[ed.Sender] = ed.Seq
	}

	if e.dirty || e.inFlight {
		buf := ed
		e.buffered = &buf
		e.mu.Unlock()
		return
	}

	e.room.Content = ed.Content
	room := e.snapshotLocked()
	onApply := e.opts.OnApply
	e.mu.Unlock()

	if onApply != nil {
		onApply(room)
	}
}

func (e *Engine) takeBufferedLocked() func() {
	if e.buffered == nil || e.dirty || e.inFlight {
		return nil
	}
	ed := *e.buffered
	e.buffered = nil
	e.room.Content = ed.Content
	room := e.snapshotLocked()
	onApply := e.opts.OnApply

	return func() {
		if onApply != nil {
			onApply(room)
		}
	}
}

func (e *Engine) snapshotLocked() domain.Room {
	room := e.room
	room.Members = append([]domain.Member(nil), e.room.Members...)
	return room
}

func (e *Engine) roomID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room.ID
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}

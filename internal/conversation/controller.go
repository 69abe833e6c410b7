// Package conversation drives one chat session against the kit backend.
//
// A Controller owns the turn history. Each submission is sent in its own
// goroutine, classified, and dispatched to a Renderer; at most one
// submission is in flight at a time.
package conversation

import (
	"context"
	"errors"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"kitlab/internal/backend"
	"kitlab/internal/kit"
	"kitlab/internal/logging"
)

const (
	// ConnectionLostMessage is shown when a request fails for any reason.
	ConnectionLostMessage = "Lab connection lost. Try refreshing?"
	// CouldNotDisplayMessage is shown for a reply with nothing renderable.
	CouldNotDisplayMessage = "Sorry, that response could not be displayed."
	// DefaultKitTitle stands in for a kit without a title in the lead-in.
	DefaultKitTitle = "Kit"
)

var (
	// ErrEmptyInput is returned for blank submissions. Nothing changes.
	ErrEmptyInput = errors.New("conversation: empty input")
	// ErrBusy is returned while another submission is in flight. The caller
	// should keep the user's text.
	ErrBusy = errors.New("conversation: request in flight")
)

// Generator sends one generation request and returns the raw reply body.
// *backend.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req kit.GenerationRequest) ([]byte, error)
}

// Renderer is the view a controller writes to. *render.Transcript satisfies it.
type Renderer interface {
	RenderMessage(role kit.Role, markup string)
	RenderClarification(questions []string)
	RenderKit(k kit.FinalKit)
	RenderComparison(c kit.Comparison)
}

// Refresher reloads the persisted kit list after a reply was shown.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs fn after delay.
type Scheduler func(delay time.Duration, fn func())

// AfterFunc schedules with time.AfterFunc.
func AfterFunc(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}

// Options configures a Controller. The zero value is usable and shows
// replies without delay.
type Options struct {
	// ResponseDelay is the cosmetic pause between a reply arriving and it
	// being shown.
	ResponseDelay time.Duration

	// IntentKeywords mark a submission as a new build request, which resets
	// the history. Nil means kit.DefaultIntentKeywords.
	IntentKeywords []string

	// KeepStaleResponses shows replies that arrive after Supersede.
	KeepStaleResponses bool

	// Scheduler defaults to AfterFunc.
	Scheduler Scheduler

	// Refresher is optional.
	Refresher Refresher

	// OnStateChange, if set, is called outside the lock on every transition.
	OnStateChange func(State)
}

// Controller is the conversation state machine.
type Controller struct {
	gen  Generator
	view Renderer
	opts Options

	// gate admits one submission at a time.
	gate *semaphore.Weighted

	mu      sync.Mutex
	history kit.History
	state   State
	seq     uint64
}

// New creates an idle controller with an empty history.
func New(gen Generator, view Renderer, opts Options) *Controller {
	if opts.ResponseDelay < 0 {
		opts.ResponseDelay = 0
	}
	if opts.IntentKeywords == nil {
		opts.IntentKeywords = kit.DefaultIntentKeywords
	}
	if opts.Scheduler == nil {
		opts.Scheduler = AfterFunc
	}
	logging.Session("controller created (delay=%s keywords=%v)", opts.ResponseDelay, opts.IntentKeywords)
	return &Controller{
		gen:  gen,
		view: view,
		opts: opts,
		gate: semaphore.NewWeighted(1),
	}
}

// Submission tracks one request from send to dispatch.
type Submission struct {
	// ID is sent to the backend as X-Request-ID.
	ID string
	// Text is the trimmed user input.
	Text string

	seq     uint64
	done    chan struct{}
	outcome Outcome
}

// Done is closed once the submission has settled.
func (s *Submission) Done() <-chan struct{} { return s.done }

// Outcome returns Pending until Done is closed.
func (s *Submission) Outcome() Outcome {
	select {
	case <-s.done:
		return s.outcome
	default:
		return Pending
	}
}

// Wait blocks until the submission settles or ctx ends.
func (s *Submission) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		return s.outcome, nil
	case <-ctx.Done():
		return Pending, ctx.Err()
	}
}

// Submit starts a request for input. On success the user turn is already
// rendered and recorded, and the caller should clear its input. The reply is
// handled in the background; use the returned Submission to wait for it.
func (c *Controller) Submit(ctx context.Context, input string) (*Submission, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if !c.gate.TryAcquire(1) {
		logging.SessionDebug("submission rejected: busy")
		return nil, ErrBusy
	}

	sub := &Submission{ID: uuid.NewString(), Text: text, done: make(chan struct{})}

	c.mu.Lock()
	if kit.IsBuildIntent(text, c.opts.IntentKeywords) {
		logging.SessionDebug("build intent detected, history reset (had %d turns)", c.history.Len())
		c.history.Reset()
	}
	c.history.Append(kit.Turn{Role: kit.RoleUser, Content: text})
	c.view.RenderMessage(kit.RoleUser, html.EscapeString(text))
	c.seq++
	sub.seq = c.seq
	req := kit.GenerationRequest{Style: text, History: c.history.Turns()}
	c.state = Submitting
	c.mu.Unlock()

	c.notify(Submitting)
	logging.Session("submission %s sent (seq=%d turns=%d)", sub.ID, sub.seq, len(req.History))

	go c.run(backend.WithRequestID(ctx, sub.ID), sub, req)
	return sub, nil
}

func (c *Controller) run(ctx context.Context, sub *Submission, req kit.GenerationRequest) {
	raw, err := c.gen.Generate(ctx, req)
	if err != nil {
		logging.SessionWarn("submission %s failed: %v", sub.ID, err)
		c.settle(ctx, sub, func() Outcome {
			c.view.RenderMessage(kit.RoleAI, ConnectionLostMessage)
			return RequestFailed
		})
		return
	}

	payload := kit.Classify(raw)
	logging.SessionDebug("submission %s classified as %s", sub.ID, payload.Kind())
	c.opts.Scheduler(c.opts.ResponseDelay, func() {
		c.settle(ctx, sub, func() Outcome { return c.dispatch(payload) })
	})
}

// settle applies the reply under the lock, unless the submission went stale,
// then releases the gate and refreshes the sidebar after a success.
func (c *Controller) settle(ctx context.Context, sub *Submission, apply func() Outcome) {
	c.mu.Lock()
	var out Outcome
	if sub.seq != c.seq && !c.opts.KeepStaleResponses {
		out = Discarded
	} else {
		out = apply()
	}
	c.state = Idle
	c.mu.Unlock()

	c.gate.Release(1)
	c.notify(Idle)
	logging.Session("submission %s settled: %s", sub.ID, out)

	if out.Succeeded() && c.opts.Refresher != nil {
		if err := c.opts.Refresher.Refresh(ctx); err != nil {
			logging.SessionWarn("sidebar refresh after %s failed: %v", sub.ID, err)
		}
	}

	sub.outcome = out
	close(sub.done)
}

// dispatch must be called with mu held.
func (c *Controller) dispatch(p kit.Payload) Outcome {
	switch v := p.(type) {
	case kit.Questions:
		c.view.RenderClarification(v.Questions)
		c.history.Append(kit.Turn{Role: kit.RoleAI, Content: kit.JoinQuestions(v.Questions)})
		return QuestionsReceived
	case kit.FinalKit:
		c.view.RenderMessage(kit.RoleAI, html.EscapeString(LeadIn(v)))
		c.view.RenderKit(v)
		c.history.Reset()
		return KitReceived
	case kit.Comparison:
		c.view.RenderComparison(v)
		return ComparisonReceived
	case kit.Fallback:
		msg := CouldNotDisplayMessage
		if v.HasResponse {
			msg = v.Response
		}
		c.view.RenderMessage(kit.RoleAI, html.EscapeString(msg))
		return Fallback
	}
	c.view.RenderMessage(kit.RoleAI, CouldNotDisplayMessage)
	return Fallback
}

// LeadIn is the message shown ahead of a kit.
func LeadIn(k kit.FinalKit) string {
	if s := strings.TrimSpace(k.Summary); s != "" {
		return k.Summary
	}
	title := k.Title
	if strings.TrimSpace(title) == "" {
		title = DefaultKitTitle
	}
	return "I've assembled your " + title + ":"
}

// Supersede marks any in-flight reply as stale. The history sidebar calls
// it when it replaces the view with a saved kit.
func (c *Controller) Supersede() {
	c.mu.Lock()
	c.seq++
	inFlight := c.state == Submitting
	c.mu.Unlock()
	if inFlight {
		logging.SessionDebug("in-flight submission superseded")
	}
}

// Reset starts a fresh conversation: history is emptied and any in-flight
// reply is superseded. The view is left to the caller.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.history.Reset()
	c.seq++
	c.mu.Unlock()
	logging.Session("conversation reset")
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns a copy of the turn history.
func (c *Controller) History() []kit.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Turns()
}

func (c *Controller) notify(s State) {
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}

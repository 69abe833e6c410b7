// Package render maps conversation data to transcript artifacts.
//
// A Formatter is a set of pure functions producing one artifact body per
// call. A Transcript is the append-only view those bodies land in; it is the
// only rendering surface the conversation controller and the history
// sidebar touch.
package render

import (
	"strings"
	"sync"

	"kitlab/internal/kit"
	"kitlab/internal/logging"
)

// ArtifactKind tags what produced an artifact.
type ArtifactKind int

const (
	ArtifactMessage ArtifactKind = iota
	ArtifactClarification
	ArtifactKit
	ArtifactComparison
)

// Artifact is one rendered entry of the transcript.
type Artifact struct {
	Kind ArtifactKind
	Role kit.Role
	Body string

	source interface{}
}

// Formatter turns domain data into artifact bodies. Implementations must be
// pure: no I/O and no shared mutable state.
type Formatter interface {
	Message(role kit.Role, markup string) string
	Clarification(questions []string) string
	Kit(k kit.FinalKit) string
	Comparison(c kit.Comparison) string
}

type messageSource struct {
	role   kit.Role
	markup string
}

// Transcript is the rendered chat view. It is safe for concurrent use.
type Transcript struct {
	mu        sync.Mutex
	formatter Formatter
	artifacts []Artifact
	onChange  func()
}

// NewTranscript creates an empty transcript. onChange, if non-nil, runs
// after every render or clear and plays the role of scroll-to-end.
func NewTranscript(f Formatter, onChange func()) *Transcript {
	return &Transcript{formatter: f, onChange: onChange}
}

// RenderMessage appends a chat bubble. markup is trusted: callers escape
// plain text before passing it in.
func (t *Transcript) RenderMessage(role kit.Role, markup string) {
	t.append(Artifact{Kind: ArtifactMessage, Role: role, source: messageSource{role, markup}})
}

// RenderClarification appends one ai bubble listing every question in order.
func (t *Transcript) RenderClarification(questions []string) {
	qs := make([]string, len(questions))
	copy(qs, questions)
	t.append(Artifact{Kind: ArtifactClarification, Role: kit.RoleAI, source: qs})
}

// RenderKit appends a single artifact holding every section of the kit.
func (t *Transcript) RenderKit(k kit.FinalKit) {
	t.append(Artifact{Kind: ArtifactKit, Role: kit.RoleAI, source: k})
}

// RenderComparison appends a comparison card.
func (t *Transcript) RenderComparison(c kit.Comparison) {
	t.append(Artifact{Kind: ArtifactComparison, Role: kit.RoleAI, source: c})
}

// Clear removes every artifact. Conversation history is not affected.
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.artifacts = nil
	t.mu.Unlock()
	logging.RenderDebug("transcript cleared")
	t.changed()
}

// SetFormatter swaps the formatter and re-renders every artifact, e.g. after
// a terminal resize.
func (t *Transcript) SetFormatter(f Formatter) {
	t.mu.Lock()
	t.formatter = f
	for i := range t.artifacts {
		t.artifacts[i].Body = t.format(t.artifacts[i])
	}
	t.mu.Unlock()
	t.changed()
}

// Artifacts returns a snapshot of the transcript in render order.
func (t *Transcript) Artifacts() []Artifact {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Artifact, len(t.artifacts))
	copy(out, t.artifacts)
	return out
}

// Len returns the number of artifacts.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.artifacts)
}

// String joins every artifact body with newlines.
func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	bodies := make([]string, len(t.artifacts))
	for i, a := range t.artifacts {
		bodies[i] = a.Body
	}
	return strings.Join(bodies, "\n")
}

func (t *Transcript) append(a Artifact) {
	t.mu.Lock()
	a.Body = t.format(a)
	t.artifacts = append(t.artifacts, a)
	n := len(t.artifacts)
	t.mu.Unlock()

	logging.RenderDebug("artifact %d appended (kind=%d role=%s)", n, a.Kind, a.Role)
	t.changed()
}

// format must be called with mu held.
func (t *Transcript) format(a Artifact) string {
	if t.formatter == nil {
		return ""
	}
	switch src := a.source.(type) {
	case messageSource:
		return t.formatter.Message(src.role, src.markup)
	case []string:
		return t.formatter.Clarification(src)
	case kit.FinalKit:
		return t.formatter.Kit(src)
	case kit.Comparison:
		return t.formatter.Comparison(src)
	}
	return a.Body
}

func (t *Transcript) changed() {
	if t.onChange != nil {
		t.onChange()
	}
}

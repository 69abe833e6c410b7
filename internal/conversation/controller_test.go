package conversation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"kitlab/internal/backend"
	"kitlab/internal/backend/backendtest"
	"kitlab/internal/kit"
	"kitlab/internal/render"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// call is one recorded view operation.
type call struct {
	Op   string
	Role kit.Role
	Text string
	N    int
}

type fakeView struct {
	mu    sync.Mutex
	calls []call
}

func (v *fakeView) record(c call) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, c)
}

func (v *fakeView) RenderMessage(role kit.Role, markup string) {
	v.record(call{Op: "message", Role: role, Text: markup})
}

func (v *fakeView) RenderClarification(qs []string) {
	v.record(call{Op: "clarification", Role: kit.RoleAI, Text: strings.Join(qs, "|"), N: len(qs)})
}

func (v *fakeView) RenderKit(k kit.FinalKit) {
	v.record(call{Op: "kit", Role: kit.RoleAI, Text: k.Title, N: len(k.Sections)})
}

func (v *fakeView) RenderComparison(c kit.Comparison) {
	v.record(call{Op: "comparison", Role: kit.RoleAI, Text: c.Name})
}

func (v *fakeView) Calls() []call {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]call, len(v.calls))
	copy(out, v.calls)
	return out
}

type countingRefresher struct {
	n   atomic.Int32
	err error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.n.Add(1)
	return r.err
}

func immediate(_ time.Duration, fn func()) { fn() }

type harness struct {
	ctrl    *Controller
	view    *fakeView
	refresh *countingRefresher
	srv     *backendtest.Server
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)

	h := &harness{view: &fakeView{}, refresh: &countingRefresher{}, srv: srv}
	opts := Options{Scheduler: immediate, Refresher: h.refresh}
	for _, m := range mutate {
		m(&opts)
	}
	client := backend.NewClient(backend.Config{BaseURL: srv.BaseURL(), Timeout: 5 * time.Second})
	h.ctrl = New(client, h.view, opts)
	return h
}

func (h *harness) submit(t *testing.T, text string) Outcome {
	t.Helper()
	sub, err := h.ctrl.Submit(context.Background(), text)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := sub.Wait(ctx)
	require.NoError(t, err)
	return out
}

func TestSubmit_EmptyInputIsNoop(t *testing.T) {
	h := newHarness(t)

	for _, in := range []string{"", "   ", "\n\t"} {
		sub, err := h.ctrl.Submit(context.Background(), in)
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Nil(t, sub)
	}

	assert.Empty(t, h.view.Calls())
	assert.Empty(t, h.ctrl.History())
	assert.Equal(t, Idle, h.ctrl.State())
	assert.Empty(t, h.srv.Requests())
}

func TestSubmit_CampingClarification(t *testing.T) {
	h := newHarness(t)
	h.srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["Budget?","Group size?"]}`)

	out := h.submit(t, "  Find me a camping kit  ")
	assert.Equal(t, QuestionsReceived, out)

	want := []call{
		{Op: "message", Role: kit.RoleUser, Text: "Find me a camping kit"},
		{Op: "clarification", Role: kit.RoleAI, Text: "Budget?|Group size?", N: 2},
	}
	if diff := cmp.Diff(want, h.view.Calls()); diff != "" {
		t.Errorf("view calls mismatch (-want +got):\n%s", diff)
	}

	wantHistory := []kit.Turn{
		{Role: kit.RoleUser, Content: "Find me a camping kit"},
		{Role: kit.RoleAI, Content: "Budget? Group size?"},
	}
	if diff := cmp.Diff(wantHistory, h.ctrl.History()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	reqs := h.srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Find me a camping kit", reqs[0].Style)
	assert.Len(t, reqs[0].History, 1)
	assert.EqualValues(t, 1, h.refresh.n.Load())
	assert.Equal(t, Idle, h.ctrl.State())
}

func TestSubmit_FollowUpCarriesHistory(t *testing.T) {
	h := newHarness(t)
	h.srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["Budget?"]}`)
	h.srv.QueueGenerate(http.StatusOK, `{"type":"questions","questions":["Season?"]}`)

	h.submit(t, "Find me a camping kit")
	h.submit(t, "about 200 dollars")

	reqs := h.srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, []kit.Turn{
		{Role: kit.RoleUser, Content: "Find me a camping kit"},
		{Role: kit.RoleAI, Content: "Budget?"},
		{Role: kit.RoleUser, Content: "about 200 dollars"},
	}, reqs[1].History)
	assert.Len(t, h.ctrl.History(), 4)
}

func TestSubmit_IntentResetsHistory(t *testing.T) {
	h := newHarness(t)
	h.srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["Budget?"]}`)
	h.srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["Size?"]}`)
	h.srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["Color?"]}`)

	h.submit(t, "I need a tent")
	h.submit(t, "cheap please")
	require.Len(t, h.ctrl.History(), 4)

	h.submit(t, "Actually, BUILD me a climbing setup")

	reqs := h.srv.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, []kit.Turn{{Role: kit.RoleUser, Content: "Actually, BUILD me a climbing setup"}}, reqs[2].History)
	assert.Len(t, h.ctrl.History(), 2)
}

func TestSubmit_SectionsWithoutTypeRenderKit(t *testing.T) {
	h := newHarness(t)
	h.srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["Budget?"]}`)
	h.srv.QueueGenerate(http.StatusOK,
		`{"sections":[{"name":"Shelter","items":[{"name":"Tent","price":"120"}]}]}`)

	h.submit(t, "Find me a camping kit")
	out := h.submit(t, "under 300")
	assert.Equal(t, KitReceived, out)

	calls := h.view.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, call{Op: "message", Role: kit.RoleAI, Text: "I&#39;ve assembled your Kit:"}, calls[3])
	assert.Equal(t, call{Op: "kit", Role: kit.RoleAI, N: 1}, calls[4])

	assert.Empty(t, h.ctrl.History())
	assert.EqualValues(t, 2, h.refresh.n.Load())
}

func TestSubmit_KitLeadInUsesSummary(t *testing.T) {
	h := newHarness(t)
	h.srv.QueueGenerate(http.StatusOK,
		`{"type":"final_kit","kit_title":"Alpine","summary":"Here is your alpine setup.","sections":[]}`)

	assert.Equal(t, KitReceived, h.submit(t, "build an alpine kit"))
	calls := h.view.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "Here is your alpine setup.", calls[1].Text)
	assert.Equal(t, "Alpine", calls[2].Text)
}

func TestSubmit_Comparison(t *testing.T) {
	h := newHarness(t)
	h.srv.QueueGenerate(http.StatusOK,
		`{"type":"comparison","name":"Trail Runner","price":"89","pros":["light"],"cons":["narrow"]}`)

	assert.Equal(t, ComparisonReceived, h.submit(t, "compare the trail runner"))
	calls := h.view.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, call{Op: "comparison", Role: kit.RoleAI, Text: "Trail Runner"}, calls[1])
	assert.Equal(t, []kit.Turn{{Role: kit.RoleUser, Content: "compare the trail runner"}}, h.ctrl.History())
	assert.EqualValues(t, 1, h.refresh.n.Load())
}

func TestSubmit_Fallback(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"response", `{"response":"Try asking about gear."}`, "Try asking about gear."},
		{"escaped", `{"response":"<script>x</script>"}`, "&lt;script&gt;x&lt;/script&gt;"},
		{"unknown type", `{"type":"poem"}`, CouldNotDisplayMessage},
		{"array", `[1,2]`, CouldNotDisplayMessage},
		{"null sections", `{"sections":null}`, CouldNotDisplayMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.srv.QueueGenerate(http.StatusOK, tt.body)

			assert.Equal(t, Fallback, h.submit(t, "hello"))
			calls := h.view.Calls()
			require.Len(t, calls, 2)
			assert.Equal(t, call{Op: "message", Role: kit.RoleAI, Text: tt.want}, calls[1])
			assert.Len(t, h.ctrl.History(), 1)
		})
	}
}

func TestSubmit_ServerErrorApologizes(t *testing.T) {
	h := newHarness(t)
	h.srv.QueueGenerate(http.StatusInternalServerError, `{"type":"questions","data":["x"]}`)

	assert.Equal(t, RequestFailed, h.submit(t, "hello"))
	calls := h.view.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, call{Op: "message", Role: kit.RoleAI, Text: ConnectionLostMessage}, calls[1])
	assert.Equal(t, []kit.Turn{{Role: kit.RoleUser, Content: "hello"}}, h.ctrl.History())
	assert.EqualValues(t, 0, h.refresh.n.Load())
}

func TestSubmit_NetworkDown(t *testing.T) {
	srv := backendtest.New()
	url := srv.BaseURL()
	srv.Close()

	view := &fakeView{}
	refresh := &countingRefresher{}
	client := backend.NewClient(backend.Config{BaseURL: url, Timeout: 2 * time.Second})
	ctrl := New(client, view, Options{Scheduler: immediate, Refresher: refresh})

	sub, err := ctrl.Submit(context.Background(), "Find me a camping kit")
	require.NoError(t, err)
	out, err := sub.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RequestFailed, out)
	assert.Equal(t, []call{
		{Op: "message", Role: kit.RoleUser, Text: "Find me a camping kit"},
		{Op: "message", Role: kit.RoleAI, Text: ConnectionLostMessage},
	}, view.Calls())
	assert.Equal(t, []kit.Turn{{Role: kit.RoleUser, Content: "Find me a camping kit"}}, ctrl.History())
	assert.EqualValues(t, 0, refresh.n.Load())
}

func TestSubmit_RejectsWhileInFlight(t *testing.T) {
	h := newHarness(t)
	release := h.srv.Hold()
	defer release()

	sub, err := h.ctrl.Submit(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, Submitting, h.ctrl.State())
	assert.Equal(t, Pending, sub.Outcome())

	second, err := h.ctrl.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Nil(t, second)
	assert.Len(t, h.view.Calls(), 1)
	assert.Len(t, h.ctrl.History(), 1)

	release()
	out, err := sub.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Fallback, out)

	third, err := h.ctrl.Submit(context.Background(), "third")
	require.NoError(t, err)
	_, err = third.Wait(context.Background())
	require.NoError(t, err)
	assert.Len(t, h.srv.Requests(), 2)
}

func TestSubmit_UserTextEscaped(t *testing.T) {
	h := newHarness(t)
	h.submit(t, `<img src=x onerror="alert(1)">`)

	calls := h.view.Calls()
	require.NotEmpty(t, calls)
	assert.NotContains(t, calls[0].Text, "<img")
	assert.Equal(t, `<img src=x onerror="alert(1)">`, h.ctrl.History()[0].Content)
}

func TestSupersede_DiscardsStaleReply(t *testing.T) {
	h := newHarness(t)
	h.srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["Budget?"]}`)
	release := h.srv.Hold()
	defer release()

	sub, err := h.ctrl.Submit(context.Background(), "Find me a camping kit")
	require.NoError(t, err)
	h.ctrl.Supersede()
	release()

	out, err := sub.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Discarded, out)
	assert.Len(t, h.view.Calls(), 1)
	assert.Len(t, h.ctrl.History(), 1)
	assert.EqualValues(t, 0, h.refresh.n.Load())
	assert.Equal(t, Idle, h.ctrl.State())
}

func TestSupersede_KeepStaleResponses(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.KeepStaleResponses = true })
	h.srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["Budget?"]}`)
	release := h.srv.Hold()
	defer release()

	sub, err := h.ctrl.Submit(context.Background(), "Find me a camping kit")
	require.NoError(t, err)
	h.ctrl.Supersede()
	release()

	out, err := sub.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, QuestionsReceived, out)
	assert.Len(t, h.ctrl.History(), 2)
}

func TestReset(t *testing.T) {
	h := newHarness(t)
	h.srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["Budget?"]}`)
	h.submit(t, "hello")
	require.Len(t, h.ctrl.History(), 2)

	h.ctrl.Reset()
	assert.Empty(t, h.ctrl.History())
}

func TestOnStateChange(t *testing.T) {
	var mu sync.Mutex
	var states []State
	h := newHarness(t, func(o *Options) {
		o.OnStateChange = func(s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		}
	})

	h.submit(t, "hello")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Submitting, Idle}, states)
}

func TestRefreshErrorDoesNotFailSubmission(t *testing.T) {
	h := newHarness(t)
	h.refresh.err = errors.New("history down")
	assert.Equal(t, Fallback, h.submit(t, "hello"))
}

func TestDefaultSchedulerDelaysDispatch(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	view := &fakeView{}
	client := backend.NewClient(backend.Config{BaseURL: srv.BaseURL(), Timeout: 5 * time.Second})
	ctrl := New(client, view, Options{ResponseDelay: 20 * time.Millisecond})

	start := time.Now()
	sub, err := ctrl.Submit(context.Background(), "hello")
	require.NoError(t, err)
	out, err := sub.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Fallback, out)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWaitHonorsContext(t *testing.T) {
	h := newHarness(t)
	release := h.srv.Hold()

	sub, err := h.ctrl.Submit(context.Background(), "hello")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := sub.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Pending, out)

	release()
	_, err = sub.Wait(context.Background())
	require.NoError(t, err)
}

func TestCampingScenarioRendersMarkup(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["Budget?","Group size?","Season?"]}`)

	tr := render.NewTranscript(render.HTMLFormatter{}, nil)
	client := backend.NewClient(backend.Config{BaseURL: srv.BaseURL(), Timeout: 5 * time.Second})
	ctrl := New(client, tr, Options{Scheduler: immediate})

	sub, err := ctrl.Submit(context.Background(), "Find me a camping kit")
	require.NoError(t, err)
	_, err = sub.Wait(context.Background())
	require.NoError(t, err)

	arts := tr.Artifacts()
	require.Len(t, arts, 2)
	assert.Contains(t, arts[0].Body, "msg-user")
	assert.Equal(t, 3, strings.Count(arts[1].Body, "<li>"))
}

func TestLeadIn(t *testing.T) {
	tests := []struct {
		kit  kit.FinalKit
		want string
	}{
		{kit.FinalKit{}, "I've assembled your Kit:"},
		{kit.FinalKit{Title: "Camping"}, "I've assembled your Camping:"},
		{kit.FinalKit{Title: "Camping", Summary: "All set."}, "All set."},
		{kit.FinalKit{Summary: "  "}, "I've assembled your Kit:"},
	}
	for _, tt := range tests {
		if got := LeadIn(tt.kit); got != tt.want {
			t.Errorf("LeadIn(%+v) = %q, want %q", tt.kit, got, tt.want)
		}
	}
}

func TestScenario_CampingQuestionsHistory(t *testing.T) {
	h := newHarness(t)
	h.srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["What's your budget?","Indoor or outdoor?"]}`)

	h.submit(t, "Find me a camping kit")

	assert.Equal(t, []kit.Turn{
		{Role: kit.RoleUser, Content: "Find me a camping kit"},
		{Role: kit.RoleAI, Content: "What's your budget? Indoor or outdoor?"},
	}, h.ctrl.History())
}

func TestScenario_EssentialsKitRendersPrice(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.QueueGenerate(http.StatusOK, `{"type":"questions","data":["Budget?"]}`)
	srv.QueueGenerate(http.StatusOK, `{"sections":[{"name":"Essentials","items":[{"name":"Tent","price":"120"}]}]}`)

	tr := render.NewTranscript(render.HTMLFormatter{}, nil)
	client := backend.NewClient(backend.Config{BaseURL: srv.BaseURL(), Timeout: 5 * time.Second})
	ctrl := New(client, tr, Options{Scheduler: immediate})

	for _, text := range []string{"Find me a camping kit", "about 300"} {
		sub, err := ctrl.Submit(context.Background(), text)
		require.NoError(t, err)
		_, err = sub.Wait(context.Background())
		require.NoError(t, err)
	}

	arts := tr.Artifacts()
	require.Len(t, arts, 5)
	assert.Equal(t, render.ArtifactKit, arts[4].Kind)
	assert.Contains(t, arts[4].Body, "Essentials")
	assert.Contains(t, arts[4].Body, "$120")
	assert.Empty(t, ctrl.History())
}

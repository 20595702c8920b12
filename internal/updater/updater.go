// Package updater orchestrates the relevance pipeline for one session:
// analyze, detect change, synthesize queries, retrieve, score, format,
// inject. It owns all per-session state and the gating that keeps updates
// rare enough to be useful.
package updater

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lazypower/salience/internal/analysis"
	"github.com/lazypower/salience/internal/config"
	"github.com/lazypower/salience/internal/format"
	"github.com/lazypower/salience/internal/memstore"
	"github.com/lazypower/salience/internal/metrics"
	"github.com/lazypower/salience/internal/project"
	"github.com/lazypower/salience/internal/query"
	"github.com/lazypower/salience/internal/scoring"
	"github.com/lazypower/salience/internal/track"
)

// Gate and failure reasons returned in Result.Reason.
const (
	ReasonRateLimited     = "rate_limited"
	ReasonInsufficient    = "insufficient_change"
	ReasonNoQueries       = "no_actionable_queries"
	ReasonNoMemories      = "no_relevant_memories"
	ReasonNoHighRelevance = "no_high_relevance_memories"
	ReasonSessionCap      = "session_memory_cap"
	ReasonSkippedByUser   = "skipped_by_user"
	ReasonReset           = "reset"
	ReasonCancelled       = "cancelled"
	reasonProcessed       = "processed"
)

// Override tokens the user can drop into a prompt.
const (
	skipToken     = "#skip"
	rememberToken = "#remember"
)

// selectionThreshold is the minimum relevance for injection.
const selectionThreshold = 0.3

// conversationWeightBias is the conversation-relevance weight used during
// dynamic updates, heavier than the profile default because the trigger is
// the conversation itself.
const conversationWeightBias = 0.35

// Result is the structured outcome of one ProcessConversationUpdate call.
type Result struct {
	Processed              bool     `json:"processed"`
	Reason                 string   `json:"reason,omitempty"`
	UpdateCount            int      `json:"update_count,omitempty"`
	MemoriesInjected       int      `json:"memories_injected,omitempty"`
	SignificanceScore      float64  `json:"significance_score,omitempty"`
	Topics                 []string `json:"topics,omitempty"`
	HasConversationContext bool     `json:"has_conversation_context,omitempty"`
	HasCrossSessionContext bool     `json:"has_cross_session_context,omitempty"`
}

// Stats is a point-in-time snapshot of session state.
type Stats struct {
	UpdateCount    int       `json:"update_count"`
	MemoriesLoaded int       `json:"memories_loaded"`
	LastUpdateAt   time.Time `json:"last_update_at"`
	HasAnalysis    bool      `json:"has_analysis"`
}

// Retriever fetches memories for one query, excluding known hashes. It never
// fails: degraded calls return nil.
type Retriever interface {
	Retrieve(ctx context.Context, q query.Query, excludeHashes map[string]struct{}) []memstore.Memory
}

// Tracker serves recent-session summaries for cross-session context.
type Tracker interface {
	ConversationContext(project string, opts track.ContextOptions) ([]track.SessionSummary, error)
}

// Injector delivers the formatted artifact to the host. Called at most once
// per successful update; errors are swallowed and hashes stay committed, so
// the same memories are never offered twice.
type Injector func(ctx context.Context, text string) error

// Options tunes the gating and selection behavior.
type Options struct {
	UpdateCooldown        time.Duration
	Debounce              time.Duration
	UpdateThreshold       float64
	MaxUpdatesPerSession  int
	MaxMemoriesPerUpdate  int
	MaxMemoriesPerSession int // 0 = uncapped
	DecayRate             float64
	WeightOverrides       map[string]float64
}

// DefaultOptions mirrors the documented defaults.
func DefaultOptions() Options {
	return Options{
		UpdateCooldown:       30 * time.Second,
		Debounce:             5 * time.Second,
		UpdateThreshold:      0.3,
		MaxUpdatesPerSession: 10,
		MaxMemoriesPerUpdate: 3,
		DecayRate:            scoring.DefaultDecayRate,
	}
}

// OptionsFromConfig maps the loaded configuration onto updater Options.
func OptionsFromConfig(cfg config.Config) Options {
	tc := cfg.Hooks.TopicChange
	opts := DefaultOptions()
	if tc.CooldownMS > 0 {
		opts.UpdateCooldown = time.Duration(tc.CooldownMS) * time.Millisecond
	}
	opts.Debounce = time.Duration(tc.DebounceMS) * time.Millisecond
	if tc.MinSignificanceScore > 0 {
		opts.UpdateThreshold = tc.MinSignificanceScore
	}
	if tc.MaxUpdatesPerSession > 0 {
		opts.MaxUpdatesPerSession = tc.MaxUpdatesPerSession
	}
	if tc.MaxMemoriesPerUpdate > 0 {
		opts.MaxMemoriesPerUpdate = tc.MaxMemoriesPerUpdate
	}
	opts.MaxMemoriesPerSession = cfg.MemoryService.MaxMemoriesPerSession
	if cfg.Scoring.DecayRate > 0 {
		opts.DecayRate = cfg.Scoring.DecayRate
	}
	if len(cfg.Scoring.WeightOverrides) > 0 {
		opts.WeightOverrides = cfg.Scoring.WeightOverrides
	}
	return opts
}

// Updater is the per-session orchestrator. Safe for concurrent use: calls
// landing inside one debounce window coalesce into a single pipeline pass
// whose result every caller receives.
type Updater struct {
	project project.Profile
	store   Retriever
	inject  Injector
	opts    Options

	tracker Tracker
	log     zerolog.Logger
	met     *metrics.Metrics
	now     func() time.Time

	mu            sync.Mutex
	lastAnalysis  *analysis.Analysis
	lastUpdateAt  time.Time
	updateCount   int
	loadedHashes  map[string]struct{}
	injectedTotal int
	generation    int

	timer        *time.Timer
	pendingText  string
	pendingForce bool
	waiters      []chan Result
}

// New creates an Updater for one session.
func New(proj project.Profile, store Retriever, inject Injector, opts Options) *Updater {
	if opts.MaxMemoriesPerUpdate <= 0 {
		opts.MaxMemoriesPerUpdate = 3
	}
	if opts.UpdateThreshold <= 0 {
		opts.UpdateThreshold = 0.3
	}
	return &Updater{
		project:      proj,
		store:        store,
		inject:       inject,
		opts:         opts,
		log:          zerolog.Nop(),
		now:          time.Now,
		loadedHashes: make(map[string]struct{}),
	}
}

// SetTracker enables cross-session context.
func (u *Updater) SetTracker(t Tracker) { u.tracker = t }

// SetLogger replaces the no-op logger.
func (u *Updater) SetLogger(l zerolog.Logger) { u.log = l }

// SetMetrics attaches pipeline metrics.
func (u *Updater) SetMetrics(m *metrics.Metrics) { u.met = m }

// SetClock replaces the time source (tests).
func (u *Updater) SetClock(now func() time.Time) { u.now = now }

// ProcessConversationUpdate runs the gated pipeline for one turn of
// conversation text. It blocks through the debounce window; concurrent calls
// within the window collapse to the most recent text and all receive the
// same Result.
func (u *Updater) ProcessConversationUpdate(ctx context.Context, text string) Result {
	lower := strings.ToLower(text)
	if strings.Contains(lower, skipToken) {
		return u.skip(ReasonSkippedByUser)
	}
	force := strings.Contains(lower, rememberToken)

	u.mu.Lock()
	now := u.now()
	if !u.lastUpdateAt.IsZero() && now.Sub(u.lastUpdateAt) < u.opts.UpdateCooldown {
		u.mu.Unlock()
		return u.skip(ReasonRateLimited)
	}
	if u.opts.MaxUpdatesPerSession > 0 && u.updateCount >= u.opts.MaxUpdatesPerSession {
		u.mu.Unlock()
		return u.skip(ReasonRateLimited)
	}

	if u.opts.Debounce <= 0 {
		gen := u.generation
		u.mu.Unlock()
		return u.run(ctx, text, force, gen)
	}

	// Debouncing: only the last call in the window runs; everyone waits for
	// its outcome.
	ch := make(chan Result, 1)
	u.waiters = append(u.waiters, ch)
	u.pendingText = text
	u.pendingForce = force
	gen := u.generation
	if u.timer != nil {
		u.timer.Stop()
	}
	u.timer = time.AfterFunc(u.opts.Debounce, func() { u.fire(gen) })
	u.mu.Unlock()

	select {
	case r := <-ch:
		return r
	case <-ctx.Done():
		return Result{Processed: false, Reason: ReasonCancelled}
	}
}

// fire runs the debounced pass and broadcasts its result. A fired timer
// cannot be stopped, so a window that was already serviced can leave a
// leftover callback behind; it finds no waiters and must do nothing.
func (u *Updater) fire(gen int) {
	u.mu.Lock()
	waiters := u.waiters
	u.waiters = nil
	u.timer = nil
	text := u.pendingText
	force := u.pendingForce
	u.pendingText = ""
	u.pendingForce = false
	stale := gen != u.generation
	u.mu.Unlock()

	if len(waiters) == 0 {
		return
	}
	if stale {
		broadcast(waiters, Result{Processed: false, Reason: ReasonReset})
		return
	}

	res := u.run(context.Background(), text, force, gen)
	broadcast(waiters, res)
}

func broadcast(waiters []chan Result, r Result) {
	for _, ch := range waiters {
		ch <- r
	}
}

// run executes one pipeline pass. gen guards against state that was reset
// while retrieval was in flight: a stale generation discards its results.
func (u *Updater) run(ctx context.Context, text string, force bool, gen int) Result {
	started := time.Now()

	current := analysis.Analyze(text, analysis.DefaultOptions())

	u.mu.Lock()
	previous := u.lastAnalysis
	u.mu.Unlock()

	change := analysis.DetectTopicChanges(previous, current)
	if !force && (!change.HasTopicShift || change.SignificanceScore < u.opts.UpdateThreshold) {
		u.commitAnalysis(current, gen)
		return u.skipScored(ReasonInsufficient, change.SignificanceScore)
	}

	queries := query.GenerateMemoryQueries(current, change, u.project)
	if len(queries) == 0 {
		return u.skipScored(ReasonNoQueries, change.SignificanceScore)
	}

	u.mu.Lock()
	exclude := make(map[string]struct{}, len(u.loadedHashes))
	for h := range u.loadedHashes {
		exclude[h] = struct{}{}
	}
	budget := u.opts.MaxMemoriesPerUpdate
	if u.opts.MaxMemoriesPerSession > 0 {
		remaining := u.opts.MaxMemoriesPerSession - u.injectedTotal
		if remaining < budget {
			budget = remaining
		}
	}
	u.mu.Unlock()

	if budget <= 0 {
		return u.skipScored(ReasonSessionCap, change.SignificanceScore)
	}

	// Queries go out sequentially in descending weight order; results keep
	// arrival order and are deduplicated by hash within the batch.
	seen := make(map[string]struct{})
	var memories []memstore.Memory
	for _, q := range queries {
		for _, m := range u.store.Retrieve(ctx, q, exclude) {
			if _, dup := seen[m.ContentHash]; dup {
				continue
			}
			seen[m.ContentHash] = struct{}{}
			memories = append(memories, m)
		}
	}
	if len(memories) == 0 {
		return u.skipScored(ReasonNoMemories, change.SignificanceScore)
	}

	scorer := scoring.NewScorer(u.project, &current)
	if u.opts.DecayRate > 0 {
		scorer.DecayRate = u.opts.DecayRate
	}
	scorer.Weights = scoring.DefaultWeights(true).
		Merge(map[string]float64{scoring.WeightConversationRelevance: conversationWeightBias}).
		Merge(u.opts.WeightOverrides)

	scored := scorer.ScoreMemoryRelevance(memories)
	var selected []scoring.Scored
	for _, sm := range scored {
		if len(selected) >= budget {
			break
		}
		if sm.RelevanceScore > selectionThreshold {
			selected = append(selected, sm)
		}
	}
	if len(selected) == 0 {
		return u.skipScored(ReasonNoHighRelevance, change.SignificanceScore)
	}

	var sessions []track.SessionSummary
	if u.tracker != nil {
		var err error
		sessions, err = u.tracker.ConversationContext(u.project.Name, track.ContextOptions{
			MaxPreviousSessions: 2,
			MaxDaysBack:         3,
		})
		if err != nil {
			u.log.Debug().Err(err).Msg("cross-session context unavailable")
			sessions = nil
		}
	}

	blob := format.RenderInjection(selected, current, change, sessions, u.now())

	// Hashes commit after formatting and before injection: a failed injector
	// still prevents re-offering the same memories this session.
	u.mu.Lock()
	if gen != u.generation {
		u.mu.Unlock()
		return Result{Processed: false, Reason: ReasonReset}
	}
	for _, sm := range selected {
		u.loadedHashes[sm.ContentHash] = struct{}{}
	}
	u.mu.Unlock()

	if u.inject != nil && blob != "" {
		if err := u.inject(ctx, blob); err != nil {
			u.log.Warn().Err(err).Msg("injection failed; memories stay committed")
		}
	}

	u.mu.Lock()
	if gen != u.generation {
		u.mu.Unlock()
		return Result{Processed: false, Reason: ReasonReset}
	}
	a := current
	u.lastAnalysis = &a
	u.lastUpdateAt = u.now()
	u.updateCount++
	u.injectedTotal += len(selected)
	count := u.updateCount
	u.mu.Unlock()

	topics := make([]string, len(current.Topics))
	for i, t := range current.Topics {
		topics[i] = t.Name
	}

	u.met.RecordUpdate(reasonProcessed)
	u.met.RecordInjected(len(selected))
	u.met.ObservePipeline(time.Since(started).Seconds())
	u.log.Info().
		Int("memories", len(selected)).
		Float64("significance", change.SignificanceScore).
		Strs("topics", topics).
		Msg("memory context injected")

	return Result{
		Processed:              true,
		UpdateCount:            count,
		MemoriesInjected:       len(selected),
		SignificanceScore:      change.SignificanceScore,
		Topics:                 topics,
		HasConversationContext: true,
		HasCrossSessionContext: len(sessions) > 0,
	}
}

// commitAnalysis records the latest analysis so the next delta is computed
// against it, even when the update itself was gated.
func (u *Updater) commitAnalysis(a analysis.Analysis, gen int) {
	u.mu.Lock()
	if gen == u.generation {
		u.lastAnalysis = &a
	}
	u.mu.Unlock()
}

func (u *Updater) skip(reason string) Result {
	u.met.RecordUpdate(reason)
	u.log.Debug().Str("reason", reason).Msg("update skipped")
	return Result{Processed: false, Reason: reason}
}

func (u *Updater) skipScored(reason string, significance float64) Result {
	u.met.RecordUpdate(reason)
	u.log.Debug().Str("reason", reason).Float64("significance", significance).Msg("update skipped")
	return Result{Processed: false, Reason: reason, SignificanceScore: significance}
}

// Reset clears all session state: pending debounce, analyses, hashes, and
// counters. In-flight retrievals discard their results via the generation
// counter.
func (u *Updater) Reset() {
	u.mu.Lock()
	u.generation++
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
	waiters := u.waiters
	u.waiters = nil
	u.pendingText = ""
	u.pendingForce = false
	u.lastAnalysis = nil
	u.lastUpdateAt = time.Time{}
	u.updateCount = 0
	u.injectedTotal = 0
	u.loadedHashes = make(map[string]struct{})
	u.mu.Unlock()

	broadcast(waiters, Result{Processed: false, Reason: ReasonReset})
}

// Stats snapshots the session counters.
func (u *Updater) Stats() Stats {
	u.mu.Lock()
	defer u.mu.Unlock()
	return Stats{
		UpdateCount:    u.updateCount,
		MemoriesLoaded: len(u.loadedHashes),
		LastUpdateAt:   u.lastUpdateAt,
		HasAnalysis:    u.lastAnalysis != nil,
	}
}

// InjectedTotal reports how many memories were injected this session.
func (u *Updater) InjectedTotal() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.injectedTotal
}

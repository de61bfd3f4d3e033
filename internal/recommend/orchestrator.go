// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// statusWriteTimeout bounds status restoration after a canceled run.
const statusWriteTimeout = 5 * time.Second

// OrchestratorConfig wires an Orchestrator.
type OrchestratorConfig struct {
	// Registry supplies the plugins of each stage. Required.
	Registry *Registry

	// Weights are the per-plugin combine weights.
	Weights Weights

	// Combiner reduces scores. Defaults to WeightedAverage(Weights).
	Combiner Combiner

	// Reasons builds candidate reasons. Defaults to DefaultReasonTemplates().
	Reasons ReasonTemplates

	// Profiles resolves user profiles. Required.
	Profiles ProfileProvider

	// Statuses persists status records. Required.
	Statuses StatusStore

	// Lists persists current recommendation lists. Required.
	Lists ListStore

	// History records presented recommendations. Optional.
	History HistoryStore

	// Retention controls whether history is written.
	Retention Retention

	// Locker is the in-flight set. Defaults to a new Locker.
	Locker *Locker

	// Observer receives instrumentation events. Optional.
	Observer Observer

	// Logger is the component logger.
	Logger zerolog.Logger

	// Debug logs per-stage timings at info level.
	Debug bool

	// Timeout bounds a single run. Zero disables the deadline.
	Timeout time.Duration

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Orchestrator runs the pipeline for one user at a time per user.
// It is safe for concurrent use.
type Orchestrator struct {
	registry  *Registry
	weights   Weights
	combiner  Combiner
	reasons   ReasonTemplates
	profiles  ProfileProvider
	statuses  StatusStore
	lists     ListStore
	history   HistoryStore
	retention Retention
	locks     *Locker
	observer  Observer
	logger    zerolog.Logger
	debug     bool
	timeout   time.Duration
	now       func() time.Time
}

// NewOrchestrator validates the configuration and creates an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("orchestrator: registry is required")
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("orchestrator: profile provider is required")
	}
	if cfg.Statuses == nil || cfg.Lists == nil {
		return nil, fmt.Errorf("orchestrator: status and list stores are required")
	}
	if cfg.Combiner == nil {
		cfg.Combiner = WeightedAverage(cfg.Weights)
	}
	if cfg.Reasons == (ReasonTemplates{}) {
		cfg.Reasons = DefaultReasonTemplates()
	}
	if err := cfg.Reasons.Validate(); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	if cfg.Locker == nil {
		cfg.Locker = NewLocker()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Orchestrator{
		registry:  cfg.Registry,
		weights:   cfg.Weights,
		combiner:  cfg.Combiner,
		reasons:   cfg.Reasons,
		profiles:  cfg.Profiles,
		statuses:  cfg.Statuses,
		lists:     cfg.Lists,
		history:   cfg.History,
		retention: cfg.Retention,
		locks:     cfg.Locker,
		observer:  cfg.Observer,
		logger:    cfg.Logger.With().Str("component", "recommend_orchestrator").Logger(),
		debug:     cfg.Debug,
		timeout:   cfg.Timeout,
		now:       cfg.Clock,
	}, nil
}

// Registry returns the plugin registry.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Locker returns the in-flight set.
func (o *Orchestrator) Locker() *Locker { return o.locks }

// Run executes the full pipeline for a user and returns the ranked list.
//
// On success the list replaces the user's current list and the status
// becomes Ready. On failure a *PipelineError is returned, the previously
// stored list is left untouched and the status reverts to its pre-run
// state. ErrRunInProgress is returned when the user already has a run in
// flight.
func (o *Orchestrator) Run(ctx context.Context, userID int) ([]Recommendation, error) {
	token, ok := o.locks.TryAcquire(userID)
	if !ok {
		return nil, ErrRunInProgress
	}
	defer o.locks.Release(userID, token)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	r := &run{
		o:       o,
		userID:  userID,
		runID:   token,
		started: o.now(),
		last:    StatusQueued,
		skipped: make(map[string]bool),
		timings: make(map[Stage]time.Duration),
		logger: o.logger.With().
			Int("user_id", userID).
			Str("run_id", token).
			Logger(),
	}
	return r.execute(ctx)
}

// run holds the state of one pipeline execution.
type run struct {
	o       *Orchestrator
	userID  int
	runID   string
	started time.Time
	prior   UserStatus
	last    Status
	skipped map[string]bool
	timings map[Stage]time.Duration
	logger  zerolog.Logger
}

func (r *run) execute(ctx context.Context) ([]Recommendation, error) {
	o := r.o

	if _, err := o.statuses.UpdateStatus(ctx, r.userID, func(s *UserStatus, exists bool) {
		if !exists {
			*s = NewUserStatus(r.userID, r.started)
		}
		r.prior = *s
		s.Attempted = r.started
	}); err != nil {
		o.observer.RunFinished("error", time.Since(r.started), 0)
		return nil, &PipelineError{UserID: r.userID, LastStage: StatusQueued, Err: fmt.Errorf("load status: %w", err)}
	}

	profile, err := o.profiles.Profile(ctx, r.userID)
	if err != nil {
		return nil, r.fail(ctx, fmt.Errorf("resolve profile: %w", err))
	}
	if profile == nil {
		profile = &Profile{}
	}
	profile.UserID = r.userID

	r.checkConfig()
	set := NewCandidateSet(r.userID)

	err = r.stage(ctx, StageGenerate, func(p Plugin) error {
		generated, err := p.(Generator).Generate(ctx, profile)
		if err != nil {
			return err
		}
		set.Merge(generated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.stage(ctx, StageAlter, func(p Plugin) error {
		return p.(Alterer).Alter(ctx, set, profile)
	})
	if err != nil {
		return nil, err
	}

	err = r.stage(ctx, StageScore, func(p Plugin) error {
		return p.(Scorer).Score(ctx, set, profile)
	})
	if err != nil {
		return nil, err
	}

	var ranked []*Candidate
	err = r.stage(ctx, StageCombine, func(Plugin) error {
		ranked = o.combine(set)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.stage(ctx, StageRerank, func(p Plugin) error {
		out, err := p.(Reranker).Rerank(ctx, ranked, profile)
		if err != nil {
			return err
		}
		ranked = dedupe(out)
		o.fillReasons(ranked)
		sortRanked(ranked)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.finish(ctx, toRecommendations(ranked))
}

// checkConfig excludes plugins whose settings fail validation.
func (r *run) checkConfig() {
	for _, p := range r.o.registry.Plugins() {
		checker, ok := p.(ConfigChecker)
		if !ok {
			continue
		}
		if err := checker.CheckConfig(); err != nil {
			r.skip(p.ID(), StageGenerate, &PluginConfigurationError{PluginID: p.ID(), Err: err})
		}
	}
}

func (r *run) skip(pluginID string, stage Stage, err error) {
	r.skipped[pluginID] = true
	r.o.observer.PluginFailed(pluginID, stage, KindConfiguration)
	r.logger.Warn().
		Err(err).
		Str("plugin", pluginID).
		Str("stage", string(stage)).
		Msg("Skipping misconfigured recommendation plugin for this run")
}

// stage moves the status to the stage and runs fn for each applicable
// plugin in order, or once with a nil plugin for the combine stage.
// Configuration errors skip the plugin. Any other error aborts the run.
func (r *run) stage(ctx context.Context, stage Stage, fn func(Plugin) error) error {
	if err := ctx.Err(); err != nil {
		return r.fail(ctx, err)
	}
	if err := r.setStatus(ctx, stage.Status()); err != nil {
		return r.fail(ctx, fmt.Errorf("update status: %w", err))
	}
	r.logger.Debug().Str("stage", string(stage)).Msg("Entering pipeline stage")

	start := time.Now()
	if stage == StageCombine {
		if err := fn(nil); err != nil {
			return r.fail(ctx, err)
		}
	} else {
		for _, p := range r.o.registry.ForStage(stage) {
			if r.skipped[p.ID()] {
				continue
			}
			if err := fn(p); err != nil {
				var confErr *PluginConfigurationError
				if errors.As(err, &confErr) {
					r.skip(p.ID(), stage, err)
					continue
				}
				r.o.observer.PluginFailed(p.ID(), stage, ErrorKind(err))
				return r.fail(ctx, fmt.Errorf("plugin %s at %s: %w", p.ID(), stage, err))
			}
			if err := ctx.Err(); err != nil {
				return r.fail(ctx, err)
			}
		}
	}

	elapsed := time.Since(start)
	r.timings[stage] = elapsed
	r.o.observer.StageFinished(stage, elapsed)
	r.last = stage.Status()
	return nil
}

func (r *run) setStatus(ctx context.Context, status Status) error {
	_, err := r.o.statuses.UpdateStatus(ctx, r.userID, func(s *UserStatus, exists bool) {
		if !exists {
			*s = NewUserStatus(r.userID, r.started)
		}
		s.Status = status
	})
	return err
}

// fail restores the pre-run status and wraps err in a PipelineError.
func (r *run) fail(ctx context.Context, err error) error {
	o := r.o
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	_, werr := o.statuses.UpdateStatus(writeCtx, r.userID, func(s *UserStatus, exists bool) {
		restored := r.prior
		restored.Attempted = r.started
		restored.LastError = err.Error()
		if exists {
			restored.Priority = s.Priority
			restored.Requested = s.Requested
		}
		if restored.Status.InProgress() || restored.Requested.After(r.started) {
			restored.Status = StatusQueued
		}
		*s = restored
	})
	if werr != nil {
		r.logger.Error().Err(werr).Msg("Failed to restore recommendation status after aborted run")
	}

	kind := ErrorKind(err)
	o.observer.RunFinished("error", time.Since(r.started), 0)
	r.logger.Warn().
		Err(err).
		Str("kind", kind).
		Str("last_stage", string(r.last)).
		Msg("Recommendation run aborted")

	return &PipelineError{UserID: r.userID, LastStage: r.last, Err: err}
}

// finish swaps the new list in, marks the user Ready and writes history.
func (r *run) finish(ctx context.Context, recs []Recommendation) ([]Recommendation, error) {
	o := r.o
	finished := o.now()

	list := RecommendationList{
		UserID:    r.userID,
		RunID:     r.runID,
		StartedAt: r.started,
		CreatedAt: finished,
		Items:     recs,
	}
	if err := o.lists.SwapList(ctx, list); err != nil {
		if errors.Is(err, ErrStaleWrite) {
			r.logger.Debug().Msg("Discarding recommendations of superseded run")
			o.observer.RunFinished("superseded", time.Since(r.started), 0)
			if _, serr := o.statuses.UpdateStatus(ctx, r.userID, func(s *UserStatus, _ bool) {
				if s.Requested.After(r.started) {
					s.Status = StatusQueued
				} else {
					s.Status = StatusReady
				}
			}); serr != nil {
				r.logger.Error().Err(serr).Msg("Failed to update status of superseded run")
			}
			current, _, cerr := o.lists.CurrentList(ctx, r.userID)
			if cerr != nil {
				return nil, &PipelineError{UserID: r.userID, LastStage: r.last, Err: cerr}
			}
			return current.Items, nil
		}
		return nil, r.fail(ctx, fmt.Errorf("store recommendations: %w", err))
	}

	duration := finished.Sub(r.started)
	_, err := o.statuses.UpdateStatus(ctx, r.userID, func(s *UserStatus, exists bool) {
		if !exists {
			*s = NewUserStatus(r.userID, r.started)
		}
		s.Updated = finished
		s.Duration = duration
		s.Retrieved = len(recs)
		s.LastError = ""
		if s.Requested.After(r.started) {
			s.Status = StatusQueued
			return
		}
		s.Status = StatusReady
		s.Priority = 0
	})
	if err != nil {
		// The list is already live; the next pass recomputes it.
		r.logger.Error().Err(err).Msg("Failed to mark recommendations ready")
	}

	r.writeHistory(ctx, recs, finished)

	o.observer.RunFinished("success", duration, len(recs))
	event := r.logger.Debug()
	if o.debug {
		event = r.logger.Info()
		for stage, d := range r.timings {
			event = event.Dur(string(stage), d)
		}
	}
	event.
		Int("retrieved", len(recs)).
		Dur("duration", duration).
		Msg("Recommendation run complete")

	return recs, nil
}

func (r *run) writeHistory(ctx context.Context, recs []Recommendation, at time.Time) {
	o := r.o
	if o.history == nil || !o.retention.Records() || len(recs) == 0 {
		return
	}
	entries := make([]HistoryEntry, len(recs))
	for i, rec := range recs {
		entries[i] = HistoryEntry{
			UserID:    r.userID,
			ContentID: rec.ContentID,
			Score:     rec.Score,
			Reason:    rec.Reason,
			RunID:     r.runID,
			Timestamp: at,
		}
	}
	if err := o.history.AppendHistory(ctx, entries); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to record recommendation history")
		return
	}
	o.observer.HistoryWritten(len(entries))
}

// combine computes the combined score of every candidate, drops candidates
// without ready scores, and returns the rest ordered by descending score.
func (o *Orchestrator) combine(set *CandidateSet) []*Candidate {
	ranked := make([]*Candidate, 0, set.Len())
	for _, c := range set.All() {
		scores := c.ReadyScores()
		value, ok := o.combiner.Combine(scores)
		if !ok {
			continue
		}
		c.Combined = value
		if c.Reason == "" {
			c.Reason = o.reasons.Compose(scores, o.weights)
		}
		ranked = append(ranked, c)
	}
	sortRanked(ranked)
	return ranked
}

// fillReasons composes a reason for candidates injected without one.
func (o *Orchestrator) fillReasons(ranked []*Candidate) {
	for _, c := range ranked {
		if c.Reason == "" {
			c.Reason = o.reasons.Compose(c.ReadyScores(), o.weights)
		}
	}
}

// Rerank applies the rerank stage to an already stored list without
// persisting the result. It is used when serving lists with rerank on load.
func (o *Orchestrator) Rerank(ctx context.Context, userID int, recs []Recommendation) ([]Recommendation, error) {
	rerankers := o.registry.ForStage(StageRerank)
	if len(rerankers) == 0 || len(recs) == 0 {
		return recs, nil
	}
	profile, err := o.profiles.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}
	if profile == nil {
		profile = &Profile{}
	}
	profile.UserID = userID

	ranked := make([]*Candidate, len(recs))
	for i, rec := range recs {
		c := NewCandidate(userID, rec.ContentID)
		c.Combined = rec.Score
		c.Reason = rec.Reason
		ranked[i] = c
	}
	for _, p := range rerankers {
		if checker, ok := p.(ConfigChecker); ok && checker.CheckConfig() != nil {
			continue
		}
		out, err := p.(Reranker).Rerank(ctx, ranked, profile)
		if err != nil {
			var confErr *PluginConfigurationError
			if errors.As(err, &confErr) {
				continue
			}
			return nil, fmt.Errorf("plugin %s at %s: %w", p.ID(), StageRerank, err)
		}
		ranked = dedupe(out)
		o.fillReasons(ranked)
		sortRanked(ranked)
	}
	return toRecommendations(ranked), nil
}

// sortRanked orders candidates by descending combined score. Equal scores
// keep their relative order.
func sortRanked(ranked []*Candidate) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Combined > ranked[j].Combined
	})
}

// dedupe keeps the highest-scored candidate per content item.
func dedupe(ranked []*Candidate) []*Candidate {
	best := make(map[int]int, len(ranked))
	out := make([]*Candidate, 0, len(ranked))
	for _, c := range ranked {
		if c == nil {
			continue
		}
		if i, ok := best[c.ContentID]; ok {
			if c.Combined > out[i].Combined {
				out[i] = c
			}
			continue
		}
		best[c.ContentID] = len(out)
		out = append(out, c)
	}
	return out
}

func toRecommendations(ranked []*Candidate) []Recommendation {
	recs := make([]Recommendation, len(ranked))
	for i, c := range ranked {
		recs[i] = Recommendation{ContentID: c.ContentID, Score: c.Combined, Reason: c.Reason}
	}
	return recs
}

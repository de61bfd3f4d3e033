// Wayfinder - Personalized Learning Content Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package recommend

// ScoreStatus tells whether a Score takes part in combining.
type ScoreStatus string

const (
	// ScoreProcessing marks a score staged for later finalization.
	ScoreProcessing ScoreStatus = "processing"
	// ScoreReady marks a final score.
	ScoreReady ScoreStatus = "ready"
)

// Score is one plugin's opinion of a candidate.
type Score struct {
	PluginID string      `json:"plugin_id"`
	Value    float64     `json:"value"`
	Status   ScoreStatus `json:"status"`
	Reason   string      `json:"reason,omitempty"`
}

// Ready reports whether the score is final.
func (s Score) Ready() bool {
	return s.Status == ScoreReady
}

// Candidate pairs a user with a content item for the duration of one run.
// Scores are kept in plugin insertion order.
type Candidate struct {
	UserID    int
	ContentID int

	// Combined is the ranking value set by the combine stage or a reranker.
	Combined float64

	// Reason is the human-readable explanation for the recommendation.
	Reason string

	scores map[string]*Score
	order  []string
}

// NewCandidate creates an empty candidate.
func NewCandidate(userID, contentID int) *Candidate {
	return &Candidate{
		UserID:    userID,
		ContentID: contentID,
		scores:    make(map[string]*Score),
	}
}

// Stage records a processing score for a plugin.
func (c *Candidate) Stage(pluginID string, value float64, reason string) {
	c.put(Score{PluginID: pluginID, Value: value, Status: ScoreProcessing, Reason: reason})
}

// SetScore records a ready score for a plugin.
func (c *Candidate) SetScore(pluginID string, value float64, reason string) {
	c.put(Score{PluginID: pluginID, Value: value, Status: ScoreReady, Reason: reason})
}

// put inserts or merges a score. An existing score for the plugin keeps the
// larger value, and a ready status is never downgraded to processing.
func (c *Candidate) put(s Score) {
	cur, ok := c.scores[s.PluginID]
	if !ok {
		score := s
		c.scores[s.PluginID] = &score
		c.order = append(c.order, s.PluginID)
		return
	}
	if s.Value > cur.Value {
		cur.Value = s.Value
		if s.Reason != "" {
			cur.Reason = s.Reason
		}
	}
	if s.Status == ScoreReady {
		cur.Status = ScoreReady
	}
}

// Finalize promotes a staged score to ready. It returns false when the
// plugin has no score on the candidate.
func (c *Candidate) Finalize(pluginID string) bool {
	s, ok := c.scores[pluginID]
	if !ok {
		return false
	}
	s.Status = ScoreReady
	return true
}

// Score returns the plugin's score.
func (c *Candidate) Score(pluginID string) (Score, bool) {
	s, ok := c.scores[pluginID]
	if !ok {
		return Score{}, false
	}
	return *s, true
}

// RemoveScore drops the plugin's score.
func (c *Candidate) RemoveScore(pluginID string) {
	if _, ok := c.scores[pluginID]; !ok {
		return
	}
	delete(c.scores, pluginID)
	for i, id := range c.order {
		if id == pluginID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// ClearScores drops every score.
func (c *Candidate) ClearScores() {
	c.scores = make(map[string]*Score)
	c.order = nil
}

// Scores returns all scores in insertion order.
func (c *Candidate) Scores() []Score {
	out := make([]Score, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.scores[id])
	}
	return out
}

// ReadyScores returns the ready scores in insertion order.
func (c *Candidate) ReadyScores() []Score {
	out := make([]Score, 0, len(c.order))
	for _, id := range c.order {
		if s := c.scores[id]; s.Ready() {
			out = append(out, *s)
		}
	}
	return out
}

// merge folds another candidate's scores into c.
func (c *Candidate) merge(other *Candidate) {
	for _, id := range other.order {
		c.put(*other.scores[id])
	}
	if other.Combined > c.Combined {
		c.Combined = other.Combined
	}
	if c.Reason == "" {
		c.Reason = other.Reason
	}
}

// CandidateSet holds at most one Candidate per content item for a single
// user, in insertion order. It is not safe for concurrent use.
type CandidateSet struct {
	userID int
	items  map[int]*Candidate
	order  []int
}

// NewCandidateSet creates an empty set for a user.
func NewCandidateSet(userID int) *CandidateSet {
	return &CandidateSet{
		userID: userID,
		items:  make(map[int]*Candidate),
	}
}

// UserID returns the owner of the set.
func (s *CandidateSet) UserID() int {
	return s.userID
}

// Add returns the candidate for a content item, creating it when absent.
// The boolean is true when the candidate was created.
func (s *CandidateSet) Add(contentID int) (*Candidate, bool) {
	if c, ok := s.items[contentID]; ok {
		return c, false
	}
	c := NewCandidate(s.userID, contentID)
	s.items[contentID] = c
	s.order = append(s.order, contentID)
	return c, true
}

// Get returns the candidate for a content item.
func (s *CandidateSet) Get(contentID int) (*Candidate, bool) {
	c, ok := s.items[contentID]
	return c, ok
}

// Contains reports whether the set has a candidate for the content item.
func (s *CandidateSet) Contains(contentID int) bool {
	_, ok := s.items[contentID]
	return ok
}

// Remove deletes the candidate for a content item.
func (s *CandidateSet) Remove(contentID int) {
	if _, ok := s.items[contentID]; !ok {
		return
	}
	delete(s.items, contentID)
	for i, id := range s.order {
		if id == contentID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of candidates.
func (s *CandidateSet) Len() int {
	return len(s.order)
}

// IDs returns the content IDs in insertion order.
func (s *CandidateSet) IDs() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// All returns the candidates in insertion order.
func (s *CandidateSet) All() []*Candidate {
	out := make([]*Candidate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Merge folds another set into s. Candidates already present keep the
// maximum score per plugin. Candidates of other users are ignored.
func (s *CandidateSet) Merge(other *CandidateSet) {
	if other == nil || other.userID != s.userID {
		return
	}
	for _, id := range other.order {
		c, _ := s.Add(id)
		c.merge(other.items[id])
	}
}

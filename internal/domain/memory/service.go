package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trusio/internal/adapters/kafka"
	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

// Publisher emits memory-update events. Nil disables publishing.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Options bounds memory retention and focus derivation.
type Options struct {
	// MaxInsights caps retained insights per user; older rows are pruned.
	MaxInsights int
	// FocusWindow is how many recent insights vote on the current focus.
	FocusWindow int
	// HistoryLimit caps how many insights a full-history profile returns.
	HistoryLimit int
}

// Service provides the durable per-user memory used to personalize routing
// and responses.
type Service struct {
	repo      Repository
	opts      Options
	publisher Publisher
	log       *logger.Logger
}

// NewService constructs a memory service.
func NewService(repo Repository, opts Options) *Service {
	if opts.MaxInsights <= 0 {
		opts.MaxInsights = 50
	}
	if opts.FocusWindow <= 0 {
		opts.FocusWindow = 10
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	return &Service{repo: repo, opts: opts, log: logger.Get().With("component", "memory")}
}

// SetPublisher enables memory-update events for downstream consumers.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// StorePreference upserts a preference by key. Last write wins.
func (s *Service) StorePreference(ctx context.Context, userID, key, value, category string, confidence float64) error {
	if userID == "" || key == "" {
		return errors.ErrInvalidInput
	}
	if confidence < 0 || confidence > 1 {
		return errors.NewValidationError("confidence", "must be within [0,1]", confidence)
	}

	pref := &Preference{
		UserID:     userID,
		Key:        key,
		Value:      value,
		Category:   category,
		Confidence: confidence,
		UpdatedAt:  time.Now(),
	}
	if err := s.repo.UpsertPreference(ctx, pref); err != nil {
		return errors.Wrap(err, "upsert preference")
	}
	s.publishUpdate(ctx, userID, "preference", key)
	return nil
}

// StoreInsight appends an insight and prunes retention beyond the cap.
func (s *Service) StoreInsight(ctx context.Context, userID, agentName, content, category string, confidence float64) error {
	if userID == "" || content == "" {
		return errors.ErrInvalidInput
	}
	if confidence < 0 || confidence > 1 {
		return errors.NewValidationError("confidence", "must be within [0,1]", confidence)
	}

	insight := &Insight{
		ID:         uuid.New(),
		UserID:     userID,
		AgentName:  agentName,
		Content:    content,
		Category:   category,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.InsertInsight(ctx, insight); err != nil {
		return errors.Wrap(err, "insert insight")
	}

	pruned, err := s.repo.PruneInsights(ctx, userID, s.opts.MaxInsights)
	if err != nil {
		// Retention overflow is tolerable; the next write retries the prune.
		s.log.Warnf("prune insights for %s: %v", userID, err)
	} else if pruned > 0 {
		s.log.Debugf("pruned %d insights for %s", pruned, userID)
	}
	s.publishUpdate(ctx, userID, "insight", category)
	return nil
}

func (s *Service) publishUpdate(ctx context.Context, userID, kind, key string) {
	if s.publisher == nil {
		return
	}
	event := map[string]interface{}{
		"userId":    userID,
		"kind":      kind,
		"key":       key,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.Publish(ctx, kafka.TopicMemoryUpdated, userID, event); err != nil {
		s.log.Warnf("publish memory update: %v", err)
	}
}

// GetProfile assembles the user's memory profile. A nil profile with a nil
// error signals a new user, not a failure.
func (s *Service) GetProfile(ctx context.Context, userID string, includeHistory bool) (*Profile, error) {
	if userID == "" {
		return nil, errors.ErrInvalidInput
	}

	prefs, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get preferences")
	}

	limit := s.opts.FocusWindow
	if includeHistory {
		limit = s.opts.HistoryLimit
	}
	insights, err := s.repo.GetRecentInsights(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "get insights")
	}

	if len(prefs) == 0 && len(insights) == 0 {
		return nil, nil
	}

	profile := &Profile{
		UserID:      userID,
		Preferences: make(map[string]Preference, len(prefs)),
		Insights:    insights,
	}
	for _, p := range prefs {
		profile.Preferences[p.Key] = p
	}
	profile.CurrentFocus = s.deriveFocus(insights)

	return profile, nil
}

// GetContextualRecommendations derives advisory suggestions from the profile.
// The output never mutates state.
func (s *Service) GetContextualRecommendations(ctx context.Context, userID, focus string, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 5
	}

	profile, err := s.GetProfile(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}

	if focus == "" {
		focus = profile.CurrentFocus
	}

	recs := make([]Recommendation, 0, limit)
	for _, insight := range profile.Insights {
		if focus != "" && insight.Category != focus {
			continue
		}
		recs = append(recs, Recommendation{
			Text:       insight.Content,
			Category:   insight.Category,
			Confidence: insight.Confidence,
		})
		if len(recs) >= limit {
			return recs, nil
		}
	}

	// Pad with preferences from the same category when insights run short.
	for _, pref := range profile.Preferences {
		if focus != "" && pref.Category != focus {
			continue
		}
		recs = append(recs, Recommendation{
			Text:       fmt.Sprintf("Prefers %s: %s", pref.Key, pref.Value),
			Category:   pref.Category,
			Confidence: pref.Confidence,
		})
		if len(recs) >= limit {
			break
		}
	}

	return recs, nil
}

// deriveFocus picks the most frequent category among the newest insights.
// Ties break toward the more recently seen category.
func (s *Service) deriveFocus(insights []Insight) string {
	window := insights
	if len(window) > s.opts.FocusWindow {
		window = window[:s.opts.FocusWindow]
	}

	counts := make(map[string]int)
	order := make([]string, 0, len(window))
	for _, insight := range window {
		if insight.Category == "" {
			continue
		}
		if _, seen := counts[insight.Category]; !seen {
			order = append(order, insight.Category)
		}
		counts[insight.Category]++
	}

	focus := ""
	best := 0
	for _, category := range order {
		if counts[category] > best {
			best = counts[category]
			focus = category
		}
	}
	return focus
}

// Package engine wires the full message pipeline: language detection,
// normalization, response caching, sentiment, intent classification,
// entity extraction, context tracking, escalation and action dispatch.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"supportbot-engine/internal/botconfig"
	stderrors "supportbot-engine/internal/common/errors"
	"supportbot-engine/internal/common/logger"
	"supportbot-engine/internal/common/metrics"
	"supportbot-engine/internal/common/observability"
	"supportbot-engine/internal/engine/action"
	"supportbot-engine/internal/engine/audit"
	"supportbot-engine/internal/engine/escalation"
	"supportbot-engine/internal/engine/handoff"
	"supportbot-engine/internal/engine/intent"
	"supportbot-engine/internal/engine/nlp"
	"supportbot-engine/internal/engine/respcache"
	"supportbot-engine/internal/engine/response"
	"supportbot-engine/internal/engine/session"
)

// defaultCachePriorityFloor: responses for intents at or below this
// priority are not worth caching.
const defaultCachePriorityFloor = 5

// Hints carry optional caller-supplied facts about the user. They are
// applied when the session context is first created; later hints for the
// same session are ignored.
type Hints struct {
	UserID            string `json:"userId,omitempty"`
	Segment           string `json:"segment,omitempty"`
	Authenticated     bool   `json:"authenticated,omitempty"`
	PreferredLanguage string `json:"preferredLanguage,omitempty"`
}

// Result is the outcome of processing one message.
type Result struct {
	MessageID        string                 `json:"messageId"`
	SessionKey       string                 `json:"sessionKey"`
	Response         string                 `json:"response"`
	Intent           string                 `json:"intent"`
	Confidence       float64                `json:"confidence"`
	Sentiment        nlp.Sentiment          `json:"sentiment"`
	Language         string                 `json:"language"`
	Entities         map[string]interface{} `json:"entities,omitempty"`
	QuickReplies     []string               `json:"quickReplies,omitempty"`
	Escalate         bool                   `json:"escalate"`
	EscalationReason string                 `json:"escalationReason,omitempty"`
	Context          *session.Context       `json:"context,omitempty"`
	ProcessingMs     int64                  `json:"processingMs"`
}

// Stats is a point-in-time operational snapshot.
type Stats struct {
	ActiveSessions  int    `json:"activeSessions"`
	CachedResponses int    `json:"cachedResponses"`
	CatalogVersion  string `json:"catalogVersion"`
}

// Options configure optional service collaborators. Nil fields disable
// the corresponding integration.
type Options struct {
	Cache              respcache.Cache
	Sessions           *session.Store
	Dispatcher         *action.Dispatcher
	Notifier           *handoff.Notifier
	Auditor            *audit.Indexer
	Observability      *observability.Observability
	CachePriorityFloor int
	Rand               response.Rand
}

// Service is the engine facade. One instance serves all sessions; the
// catalog snapshot swaps atomically on Reload. Callers must serialize
// messages within a session key; different keys process concurrently.
type Service struct {
	logger   logger.Logger
	sessions *session.Store
	cache    respcache.Cache
	gen      *response.Generator
	disp     *action.Dispatcher
	notifier *handoff.Notifier
	auditor  *audit.Indexer
	obs      *observability.Observability
	floor    int

	mu         sync.RWMutex
	catalog    *botconfig.Catalog
	classifier *intent.Classifier
	rules      botconfig.EscalationRuleSet

	now func() time.Time

	// Analysis hooks default to the nlp package and exist so tests can
	// observe whether the pipeline ran past the cache.
	detectLanguage   func(string) string
	analyzeSentiment func(string) nlp.Sentiment
	extractEntities  func(string) map[string]interface{}
}

// NewService builds a Service around a validated catalog. The catalog may
// be nil; every message then classifies as unknown until Reload succeeds.
func NewService(catalog *botconfig.Catalog, log logger.Logger, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Cache == nil {
		opts.Cache = respcache.NewMemoryCache(respcache.DefaultTTL)
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = action.NewDispatcher(log)
	}
	if opts.CachePriorityFloor <= 0 {
		opts.CachePriorityFloor = defaultCachePriorityFloor
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewStore()
	}

	s := &Service{
		logger:   log,
		sessions: opts.Sessions,
		cache:    opts.Cache,
		gen:      response.NewGenerator(opts.Rand),
		disp:     opts.Dispatcher,
		notifier: opts.Notifier,
		auditor:  opts.Auditor,
		obs:      opts.Observability,
		floor:    opts.CachePriorityFloor,
		now:      time.Now,

		detectLanguage:   nlp.DetectLanguage,
		analyzeSentiment: nlp.AnalyzeSentiment,
		extractEntities:  nlp.ExtractEntities,
	}
	s.install(catalog)
	return s
}

// Reload swaps in a new catalog snapshot. In-flight messages finish on
// the old snapshot; session state is untouched.
func (s *Service) Reload(catalog *botconfig.Catalog) error {
	if catalog == nil {
		return stderrors.NewConfigNotLoadedError("reload called with empty catalog")
	}
	s.install(catalog)
	s.logger.Info("catalog reloaded", map[string]interface{}{
		"version": catalog.Version,
		"intents": len(catalog.Intents),
	})
	return nil
}

func (s *Service) install(catalog *botconfig.Catalog) {
	rules := botconfig.DefaultEscalationRules()
	if catalog != nil {
		rules = catalog.Escalation
	}

	s.mu.Lock()
	s.catalog = catalog
	s.classifier = intent.NewClassifier(catalog)
	s.rules = rules
	s.mu.Unlock()
}

func (s *Service) snapshot() (*intent.Classifier, botconfig.EscalationRuleSet, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version := ""
	if s.catalog != nil {
		version = s.catalog.Version
	}
	return s.classifier, s.rules, version
}

// ProcessMessage runs one utterance through the full pipeline and always
// returns a usable result. Internal faults surface as a technical_issue
// escalation, never as an error or a panic to the caller.
func (s *Service) ProcessMessage(ctx context.Context, sessionKey, message string, hints Hints) (result *Result) {
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			techErr := stderrors.NewTechnicalIssueError(fmt.Sprintf("%v", r))
			s.logger.WithError(techErr).Error("pipeline panic recovered", map[string]interface{}{
				"sessionKey": sessionKey,
				"stack":      string(debug.Stack()),
			})
			result = s.technicalIssueResult(sessionKey, start)
			s.recordOutcome(ctx, result, start)
		}
	}()

	language := s.detectLanguage(message)
	if language == nlp.DefaultLanguage && hints.PreferredLanguage != "" {
		// Detection defaulted rather than matched; trust the caller.
		language = hints.PreferredLanguage
	}

	normalized := nlp.Normalize(message)

	if payload, ok := s.cache.Get(ctx, language, normalized); ok {
		if cached := decodeCached(payload); cached != nil {
			metrics.CacheHits.Inc()
			s.logger.Debug("response cache hit", map[string]interface{}{
				"sessionKey": sessionKey,
				"language":   language,
			})
			return cached
		}
	}
	metrics.CacheMisses.Inc()

	sentiment := s.analyzeSentiment(normalized)

	classifier, rules, _ := s.snapshot()
	match := classifier.Classify(normalized)

	entities := s.extractEntities(message)

	now := s.now()
	sess := s.sessions.FetchOrCreate(sessionKey, session.UserProfile{
		UserID:        hints.UserID,
		Segment:       hints.Segment,
		Authenticated: hints.Authenticated,
	}, now)
	sess.RecordIntent(match.Intent, match.Confidence, now)
	sess.MergeEntities(entities)

	decision := escalation.Evaluate(sentiment, match, sess, normalized, rules, now)
	if !decision.Escalate && match.RequiresEscalation {
		// Nothing cleared the classifier floor; a lowered confidence
		// threshold must not mask that.
		decision = escalation.Decision{Escalate: true, Reason: escalation.ReasonLowConfidence}
	}

	result = &Result{
		MessageID:  uuid.New().String(),
		SessionKey: sessionKey,
		Intent:     match.Intent,
		Confidence: match.Confidence,
		Sentiment:  sentiment,
		Language:   language,
		Entities:   entities,
	}

	if decision.Escalate {
		result.Escalate = true
		result.EscalationReason = string(decision.Reason)
		result.Response = escalation.Message(decision.Reason)
		metrics.Escalations.WithLabelValues(string(decision.Reason)).Inc()
		s.notifyEscalation(ctx, sess, result, now)
	} else {
		result.Response, result.QuickReplies = s.gen.Generate(match.Responses, match.Intent, language, sess.Entities)
		s.disp.Dispatch(ctx, sessionKey, match.Actions, sess.Entities)
	}

	result.Context = sess.Snapshot()
	result.ProcessingMs = s.now().Sub(start).Milliseconds()

	if !result.Escalate && match.Intent != intent.UnknownIntent && match.Priority > s.floor {
		if payload, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, language, normalized, payload); err != nil {
				s.logger.WithError(stderrors.NewCacheUnavailableError(err)).Warn(
					"response cache write failed", nil)
			}
		}
	}

	s.recordOutcome(ctx, result, start)
	return result
}

// ClearContext drops a session's conversation state, reporting whether
// state existed.
func (s *Service) ClearContext(sessionKey string) bool {
	cleared := s.sessions.Clear(sessionKey)
	if cleared {
		s.logger.Info("session context cleared", map[string]interface{}{
			"sessionKey": sessionKey,
		})
	}
	return cleared
}

// SessionContext returns a detached snapshot of a live session.
func (s *Service) SessionContext(sessionKey string) (*session.Context, bool) {
	sess, ok := s.sessions.Get(sessionKey)
	if !ok {
		return nil, false
	}
	return sess.Snapshot(), true
}

// Stats reports operational counters for the stats endpoint.
func (s *Service) Stats() Stats {
	_, _, version := s.snapshot()
	return Stats{
		ActiveSessions:  s.sessions.Len(),
		CachedResponses: s.cache.Len(),
		CatalogVersion:  version,
	}
}

func (s *Service) notifyEscalation(ctx context.Context, sess *session.Context, result *Result, now time.Time) {
	if s.notifier != nil {
		s.notifier.NotifyEscalation(ctx, handoff.Event{
			SessionKey: result.SessionKey,
			Reason:     result.EscalationReason,
			Intent:     result.Intent,
			Sentiment:  result.Sentiment.Score,
			Timestamp:  now,
		})
	}
	if s.auditor != nil {
		s.auditor.Index(ctx, audit.EscalationRecord{
			SessionKey:   result.SessionKey,
			Reason:       result.EscalationReason,
			Intent:       result.Intent,
			Confidence:   result.Confidence,
			Sentiment:    result.Sentiment.Score,
			Language:     result.Language,
			MessageCount: sess.MessageCount,
			Timestamp:    now,
		})
	}
}

func (s *Service) technicalIssueResult(sessionKey string, start time.Time) *Result {
	reason := escalation.ReasonTechnicalIssue
	res := &Result{
		MessageID:        uuid.New().String(),
		SessionKey:       sessionKey,
		Response:         escalation.Message(reason),
		Intent:           intent.UnknownIntent,
		Language:         nlp.DefaultLanguage,
		Escalate:         true,
		EscalationReason: string(reason),
		ProcessingMs:     s.now().Sub(start).Milliseconds(),
	}
	metrics.Escalations.WithLabelValues(string(reason)).Inc()
	if sess, ok := s.sessions.Get(sessionKey); ok {
		res.Context = sess.Snapshot()
	}
	return res
}

func (s *Service) recordOutcome(ctx context.Context, result *Result, start time.Time) {
	elapsed := s.now().Sub(start)
	metrics.MessagesProcessed.WithLabelValues(result.Intent, result.Language).Inc()
	metrics.ProcessingDuration.Observe(elapsed.Seconds())

	if s.obs != nil {
		outcome := "answered"
		if result.Escalate {
			outcome = "escalated"
		}
		s.obs.RecordMessageProcessed(ctx, outcome)
		s.obs.RecordMessageDuration(ctx, elapsed, outcome)
	}
}

// decodeCached replays a cached result verbatim. A payload that no longer
// unmarshals is treated as a miss.
func decodeCached(payload []byte) *Result {
	var cached Result
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil
	}
	return &cached
}

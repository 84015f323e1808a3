// Package action dispatches the side effects attached to classified
// intents. Actions run synchronously after response generation and are
// best-effort: a failing action is logged and counted but never changes
// the message result.
package action

import (
	"context"
	"sync"

	"supportbot-engine/internal/botconfig"
	stderrors "supportbot-engine/internal/common/errors"
	"supportbot-engine/internal/common/logger"
	"supportbot-engine/internal/common/metrics"
)

// Action kinds the dispatcher recognizes. Catalogs may declare other
// kinds; unrecognized ones are logged and skipped.
const (
	KindAPICall       = "api_call"
	KindDatabaseQuery = "database_query"
	KindCollectInfo   = "collect_info"
	KindNotifyTeam    = "notify_team"
)

// Request is one resolved action handed to a handler. Params have had
// their {placeholder} tokens substituted from extracted entities.
type Request struct {
	Kind       string
	Endpoint   string
	Params     map[string]string
	SessionKey string
}

// Handler executes one action kind.
type Handler interface {
	Execute(ctx context.Context, req Request) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req Request) error

func (f HandlerFunc) Execute(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// Dispatcher routes action specs to registered handlers by kind.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   logger.Logger
}

func NewDispatcher(log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   log,
	}
}

// Register binds a handler to an action kind, replacing any previous one.
func (d *Dispatcher) Register(kind string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = handler
}

// Dispatch runs every action spec in declaration order. Placeholder
// params are resolved from entities before the handler sees them.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	sessionKey string,
	specs []botconfig.ActionSpec,
	entities map[string]interface{},
) {
	for _, spec := range specs {
		d.dispatchOne(ctx, sessionKey, spec, entities)
	}
}

func (d *Dispatcher) dispatchOne(
	ctx context.Context,
	sessionKey string,
	spec botconfig.ActionSpec,
	entities map[string]interface{},
) {
	d.mu.RLock()
	handler, ok := d.handlers[spec.Kind]
	d.mu.RUnlock()

	if !ok {
		d.logger.Warn("skipping unrecognized action kind", map[string]interface{}{
			"kind":       spec.Kind,
			"endpoint":   spec.Endpoint,
			"sessionKey": sessionKey,
		})
		metrics.ActionDispatchFailures.WithLabelValues(spec.Kind).Inc()
		return
	}

	req := Request{
		Kind:       spec.Kind,
		Endpoint:   spec.Endpoint,
		Params:     ResolveParams(spec.Params, entities),
		SessionKey: sessionKey,
	}

	if err := handler.Execute(ctx, req); err != nil {
		dispatchErr := stderrors.NewActionDispatchFailedError(spec.Kind, spec.Endpoint, err)
		d.logger.WithError(dispatchErr).Error("action dispatch failed", map[string]interface{}{
			"kind":       spec.Kind,
			"endpoint":   spec.Endpoint,
			"sessionKey": sessionKey,
		})
		metrics.ActionDispatchFailures.WithLabelValues(spec.Kind).Inc()
		return
	}

	d.logger.Debug("action dispatched", map[string]interface{}{
		"kind":       spec.Kind,
		"endpoint":   spec.Endpoint,
		"sessionKey": sessionKey,
	})
}

// ResolveParams substitutes {entityName} tokens in param values from the
// entity mapping. A param whose value is exactly one placeholder with no
// matching entity resolves to the empty string; partial tokens inside a
// longer value are left untouched when unmatched.
func ResolveParams(params map[string]string, entities map[string]interface{}) map[string]string {
	if len(params) == 0 {
		return nil
	}
	resolved := make(map[string]string, len(params))
	for key, value := range params {
		resolved[key] = resolveValue(value, entities)
	}
	return resolved
}

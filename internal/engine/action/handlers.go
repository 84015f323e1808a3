package action

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "supportbot-engine/internal/common/http"
	"supportbot-engine/internal/engine/session"
)

// APICallHandler posts action params as JSON to the configured backend.
// The action's endpoint is joined onto the base URL.
type APICallHandler struct {
	BaseURL string
	Client  *commonhttp.Client
}

func NewAPICallHandler(baseURL string, client *commonhttp.Client) *APICallHandler {
	return &APICallHandler{BaseURL: baseURL, Client: client}
}

func (h *APICallHandler) Execute(ctx context.Context, req Request) error {
	payload := map[string]interface{}{
		"sessionKey": req.SessionKey,
		"params":     req.Params,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := strings.TrimSuffix(h.BaseURL, "/") + "/" + strings.TrimPrefix(req.Endpoint, "/")
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.DoWithContext(ctx, httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("backend returned %d for %s", resp.StatusCode, req.Endpoint)
	}
	return nil
}

// QuerySpec names one registered statement and the param keys that feed
// its positional arguments, in order.
type QuerySpec struct {
	SQL  string
	Args []string
}

// DatabaseQueryHandler executes allow-listed statements against Postgres.
// The action endpoint selects the statement by name; arbitrary SQL from
// the catalog is never executed.
type DatabaseQueryHandler struct {
	DB      *sql.DB
	Queries map[string]QuerySpec
	Timeout time.Duration
}

func NewDatabaseQueryHandler(db *sql.DB, queries map[string]QuerySpec) *DatabaseQueryHandler {
	return &DatabaseQueryHandler{
		DB:      db,
		Queries: queries,
		Timeout: 5 * time.Second,
	}
}

func (h *DatabaseQueryHandler) Execute(ctx context.Context, req Request) error {
	spec, ok := h.Queries[req.Endpoint]
	if !ok {
		return fmt.Errorf("no registered query named %q", req.Endpoint)
	}

	args := make([]interface{}, 0, len(spec.Args))
	for _, name := range spec.Args {
		args = append(args, req.Params[name])
	}

	queryCtx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	if _, err := h.DB.ExecContext(queryCtx, spec.SQL, args...); err != nil {
		return fmt.Errorf("query %q failed: %w", req.Endpoint, err)
	}
	return nil
}

// CollectInfoHandler marks the session as awaiting a piece of information
// so the caller can prompt for it on the next turn. The endpoint names
// the field being collected.
type CollectInfoHandler struct {
	Store *session.Store
}

func NewCollectInfoHandler(store *session.Store) *CollectInfoHandler {
	return &CollectInfoHandler{Store: store}
}

func (h *CollectInfoHandler) Execute(_ context.Context, req Request) error {
	sess, ok := h.Store.Get(req.SessionKey)
	if !ok {
		return fmt.Errorf("no live session %q", req.SessionKey)
	}
	if sess.Variables == nil {
		sess.Variables = make(map[string]interface{})
	}
	sess.Variables["awaitingField"] = req.Endpoint
	for k, v := range req.Params {
		sess.Variables["collect_"+k] = v
	}
	return nil
}

// TeamNotifier is satisfied by handoff.Notifier.
type TeamNotifier interface {
	NotifyTeam(ctx context.Context, subject, body string)
}

// NotifyTeamHandler forwards a catalog-declared team notification.
type NotifyTeamHandler struct {
	Notifier TeamNotifier
}

func NewNotifyTeamHandler(notifier TeamNotifier) *NotifyTeamHandler {
	return &NotifyTeamHandler{Notifier: notifier}
}

func (h *NotifyTeamHandler) Execute(ctx context.Context, req Request) error {
	subject := req.Params["subject"]
	if subject == "" {
		subject = fmt.Sprintf("Support bot notification: %s", req.Endpoint)
	}
	body := req.Params["message"]
	if body == "" {
		body = fmt.Sprintf("Session %s triggered %s", req.SessionKey, req.Endpoint)
	}
	h.Notifier.NotifyTeam(ctx, subject, body)
	return nil
}

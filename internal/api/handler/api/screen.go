package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/newthinker/premia/internal/api/response"
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/screener"
	"go.uber.org/zap"
)

// ScreenApp defines the interface needed from app.App.
type ScreenApp interface {
	DefaultRequest() (screener.Request, error)
	Screen(ctx context.Context, req screener.Request) (*screener.Result, error)
	Latest() *screener.Result
	Digest(ctx context.Context, res *screener.Result) (string, error)
	HasDigest() bool
}

// ScreenHandler handles screen API requests.
type ScreenHandler struct {
	app    ScreenApp
	logger *zap.Logger
}

// NewScreenHandler creates a new screen handler.
func NewScreenHandler(app ScreenApp, logger *zap.Logger) *ScreenHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScreenHandler{app: app, logger: logger}
}

// ScreenRequest overrides parts of the configured default request. Every
// field is optional; an empty body runs the default screen.
type ScreenRequest struct {
	Universe         []string          `json:"universe,omitempty"`
	OptionType       string            `json:"option_type,omitempty"`
	MaxResults       *int              `json:"max_results,omitempty"`
	MaxPerUnderlying *int              `json:"max_per_underlying,omitempty"`
	Filters          *screener.Filters `json:"filters,omitempty"`
	Digest           bool              `json:"digest,omitempty"`
}

// apply layers the overrides onto req
func (b ScreenRequest) apply(req screener.Request) (screener.Request, error) {
	if len(b.Universe) > 0 {
		req.Universe = b.Universe
	}
	if b.OptionType != "" {
		t, err := core.ParseOptionType(b.OptionType)
		if err != nil {
			return req, core.WrapError(core.ErrConfigInvalid, err)
		}
		req.OptionType = t
	}
	if b.MaxResults != nil {
		req.MaxResults = *b.MaxResults
	}
	if b.MaxPerUnderlying != nil {
		req.MaxPerUnderlying = *b.MaxPerUnderlying
	}
	if b.Filters != nil {
		req.Filters = *b.Filters
	}
	return req, nil
}

// Run executes one screen and returns the result.
func (h *ScreenHandler) Run(w http.ResponseWriter, r *http.Request) {
	var body ScreenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	req, err := h.app.DefaultRequest()
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	if req, err = body.apply(req); err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.app.Screen(r.Context(), req)
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}

	meta := response.Meta{RunID: res.RunID, Status: res.Status()}
	if body.Digest && h.app.HasDigest() {
		text, err := h.app.Digest(r.Context(), res)
		if err != nil {
			h.logger.Warn("digest failed", zap.String("run_id", res.RunID), zap.Error(err))
		} else {
			meta.Digest = text
		}
	}

	response.JSONWithMeta(w, http.StatusOK, res, meta)
}

// Latest returns the most recent result.
func (h *ScreenHandler) Latest(w http.ResponseWriter, r *http.Request) {
	res := h.app.Latest()
	if res == nil {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrNoData, errors.New("no screen has completed yet")))
		return
	}
	response.JSONWithMeta(w, http.StatusOK, res, response.Meta{RunID: res.RunID, Status: res.Status()})
}

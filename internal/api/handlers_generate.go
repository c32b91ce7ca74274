package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/steveyegge/slogan-gen/internal/generator"
	"github.com/steveyegge/slogan-gen/internal/types"
)

// GenerateHandler runs generation sessions.
type GenerateHandler struct {
	svc    *generator.Service
	logger *slog.Logger
}

// NewGenerateHandler creates a new generate handler.
func NewGenerateHandler(svc *generator.Service, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{svc: svc, logger: logger}
}

// Generate handles POST /api/v1/slogans/generate
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}
	if msg := validateGenerate(req); msg != "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	// An unknown model is rejected only when the backend can be asked
	if req.Model != "" {
		found, err := h.svc.Client().HasModel(r.Context(), req.Model)
		if err == nil && !found {
			writeError(w, r, http.StatusBadRequest, "invalid_model",
				fmt.Sprintf("Model '%s' not found", req.Model))
			return
		}
		if err != nil {
			h.logger.Debug("could not verify model", "model", req.Model, "error", err)
		}
	}

	timeout := h.svc.Config().GenerationTimeout()
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	maxTurns := 0
	if req.MaxTurns != nil {
		maxTurns = *req.MaxTurns
	}
	session, err := h.svc.Generate(ctx, generator.Request{
		Input:    req.Input,
		Model:    req.Model,
		MaxTurns: maxTurns,
	})
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Slogan generation failed: "+err.Error())
		return
	}

	if timedOut(session) {
		writeError(w, r, http.StatusGatewayTimeout, "generation_timeout",
			fmt.Sprintf("Slogan generation exceeded maximum time limit (%d seconds)", int(timeout.Seconds())))
		return
	}

	writeJSON(w, http.StatusOK, NewGenerateResponse(session, req.Verbose, GetRequestID(r)))
}

// timedOut reports whether session was cut short by the generation deadline.
// A session that completed normally is returned even if the deadline passed
// right after its last turn.
func timedOut(session *types.Session) bool {
	reason, done := session.CompletionReason()
	return done && reason == types.ReasonError &&
		strings.Contains(session.Fault(), context.DeadlineExceeded.Error())
}

func validateGenerate(req GenerateRequest) string {
	n := utf8.RuneCountInString(req.Input)
	switch {
	case strings.TrimSpace(req.Input) == "":
		return "input is required"
	case n > MaxInputLength:
		return fmt.Sprintf("input must be %d characters or less (got %d)", MaxInputLength, n)
	case req.MaxTurns != nil && (*req.MaxTurns < types.MinRoundBudget || *req.MaxTurns > types.MaxRoundBudget):
		return fmt.Sprintf("max_turns must be between %d and %d", types.MinRoundBudget, types.MaxRoundBudget)
	}
	return ""
}

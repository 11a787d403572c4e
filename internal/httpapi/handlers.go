package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"localassist/internal/resource"
	"localassist/pkg/types"
)

type handlers struct {
	svc Service
}

// decodeJSON enforces the JSON content type and body limit, then decodes
// into v. It writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// models godoc
// @Summary      List catalog models
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.ModelsResponse{Models: h.svc.Models()})
}

// status godoc
// @Summary      Current status snapshot
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.Status
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Status())
}

// stop godoc
// @Summary      Stop the running generation
// @Description  Idempotent; a no-op when nothing is generating.
// @Tags         chat
// @Success      204
// @Router       /stop [post]
func (h *handlers) stop(w http.ResponseWriter, r *http.Request) {
	h.svc.StopGeneration()
	w.WriteHeader(http.StatusNoContent)
}

// switchModel godoc
// @Summary      Switch the active model
// @Description  Blocks until the model is loaded or the transition fails. Unknown names fall back to the core default.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request  body      types.ModelRequest  true  "Model to activate"
// @Success      200      {object}  types.Status
// @Failure      400      {object}  types.ErrorResponse
// @Failure      409      {object}  types.ErrorResponse
// @Failure      422      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /switch [post]
func (h *handlers) switchModel(w http.ResponseWriter, r *http.Request) {
	var req types.ModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	log := requestLogger(r)
	if err := h.svc.SwitchModel(ctx, req.Model); err != nil {
		if r.Context().Err() != nil {
			return
		}
		code := statusFor(err)
		if code == http.StatusConflict {
			IncrementRejected("busy")
		}
		log.Warn().Str("event", "switch_failed").Str("model", req.Model).Int("status", code).Err(err).Msg("switch failed")
		writeJSONError(w, code, err.Error())
		return
	}
	writeJSON(w, h.svc.Status())
}

// download godoc
// @Summary      Download a model without activating it
// @Description  Returns immediately; follow progress on /events.
// @Tags         models
// @Accept       json
// @Param        request  body  types.ModelRequest  true  "Model to download"
// @Success      202
// @Failure      404  {object}  types.ErrorResponse
// @Router       /download [post]
func (h *handlers) download(w http.ResponseWriter, r *http.Request) {
	var req types.ModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.known(req.Model) {
		writeJSONError(w, http.StatusNotFound, "model not found: "+req.Model)
		return
	}
	log := requestLogger(r)
	go func(ctx context.Context, name string) {
		if err := h.svc.DownloadModel(ctx, name); err != nil {
			log.Error().Str("event", "download_failed").Str("model", name).Err(err).Msg("download failed")
		}
	}(serverBaseCtx, req.Model)
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) known(name string) bool {
	for _, m := range h.svc.Models() {
		if m.Name == name {
			return true
		}
	}
	return false
}

// cancel godoc
// @Summary      Cancel an in-flight download or load
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.CancelResponse
// @Router       /cancel [post]
func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.CancelResponse{Canceled: h.svc.CancelLoad()})
}

// guardrail godoc
// @Summary      Set the memory guardrail
// @Description  Applies to the next model load.
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        request  body      types.GuardrailRequest  true  "Guardrail policy"
// @Success      200      {object}  types.GuardrailResponse
// @Failure      400      {object}  types.ErrorResponse
// @Router       /settings/guardrail [put]
func (h *handlers) guardrail(w http.ResponseWriter, r *http.Request) {
	var req types.GuardrailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := resource.ParseLevel(req.Level); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomPercent < 0 || req.CustomPercent > 100 {
		writeJSONError(w, http.StatusBadRequest, "custom_percent must be within 0-100")
		return
	}
	p, err := h.svc.SetGuardrail(req.Level, req.CustomPercent)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, types.GuardrailResponse{
		Level:         string(p.Level),
		CustomPercent: p.CustomPercent,
		Percentage:    resource.ResolvedPercentage(p),
	})
}

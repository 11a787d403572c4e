package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"localassist/internal/engine"
	"localassist/internal/orchestrator"
	"localassist/internal/tools"
	"localassist/pkg/types"
)

// ndjsonStream writes one JSON value per line, committing the 200 status
// on the first write so earlier failures can still use a JSON error body.
type ndjsonStream struct {
	w       http.ResponseWriter
	tee     io.Writer
	started bool
}

func (s *ndjsonStream) write(v any) {
	if !s.started {
		s.w.Header().Set("Content-Type", "application/x-ndjson")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	out := io.Writer(s.w)
	if s.tee != nil {
		out = io.MultiWriter(s.w, s.tee)
	}
	_ = json.NewEncoder(out).Encode(v)
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}

// chat godoc
// @Summary      Send a message
// @Description  Streams types.ChatFragment lines as NDJSON, then one types.ChatFinal line.
// @Tags         chat
// @Accept       json
// @Produce      application/x-ndjson
// @Param        request  body      types.ChatRequest  true  "Conversation history"
// @Success      200      {object}  types.ChatFinal
// @Failure      400      {object}  types.ErrorResponse
// @Failure      409      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      422      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /chat [post]
func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "messages are required")
		return
	}

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if chatTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, chatTimeout)
		defer cancelTimeout()
	}

	log := requestLogger(r)
	lvl := requestLogLevel(r)
	stream := &ndjsonStream{w: w}
	if lvl >= LevelDebug {
		stream.tee = &lineLogger{log: log}
	}
	start := time.Now()
	if lvl >= LevelInfo {
		log.Info().Str("event", "chat_start").Int("turns", len(req.Messages)).Msg("chat start")
	}

	reply, err := h.svc.SendMessage(ctx, req.Messages, orchestrator.SendOptions{
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		OnFragment: func(f engine.Fragment) {
			stream.write(types.ChatFragment{Delta: f.Text, Thinking: f.Thinking})
		},
	})
	if err != nil {
		// Client went away; nobody is left to read the error.
		if r.Context().Err() != nil {
			return
		}
		code := statusFor(err)
		if code == http.StatusConflict {
			IncrementRejected("busy")
		}
		if lvl >= LevelError {
			log.Error().Str("event", "chat_end").Int("status", code).Dur("dur", time.Since(start)).Err(err).Msg("chat end")
		}
		if stream.started {
			stream.write(types.ErrorResponse{Error: err.Error(), Code: code})
			return
		}
		writeJSONError(w, code, err.Error())
		return
	}

	stream.write(types.ChatFinal{
		Done:      true,
		Content:   reply.Text,
		Raw:       reply.Raw,
		Cancelled: reply.Cancelled,
		Tokens:    reply.Tokens,
		Tools:     toolResults(reply.Tools),
	})
	if lvl >= LevelInfo {
		log.Info().Str("event", "chat_end").Int("status", http.StatusOK).Int("tokens", reply.Tokens).
			Bool("cancelled", reply.Cancelled).Dur("dur", time.Since(start)).Msg("chat end")
	}
}

func toolResults(in []tools.Result) []types.ToolResult {
	if len(in) == 0 {
		return nil
	}
	out := make([]types.ToolResult, 0, len(in))
	for _, r := range in {
		tr := types.ToolResult{ID: r.ID, Name: r.Name, Output: r.Text()}
		if r.Err != nil {
			tr.Error = r.Err.Error()
		}
		out = append(out, tr)
	}
	return out
}

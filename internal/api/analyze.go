package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chatscopehq/chatscope/internal/anthropic"
	"github.com/chatscopehq/chatscope/internal/chat"
	"github.com/chatscopehq/chatscope/internal/db"
	"github.com/chatscopehq/chatscope/internal/events"
	"github.com/chatscopehq/chatscope/internal/logger"
	"github.com/chatscopehq/chatscope/internal/metrics"
	"github.com/chatscopehq/chatscope/internal/sampling"
	"github.com/chatscopehq/chatscope/internal/stream"
	"github.com/chatscopehq/chatscope/internal/validation"
)

var tracer = otel.Tracer("chatscope/api")

// AIClient is the upstream language-model collaborator. *anthropic.Client
// satisfies it; tests substitute a fake.
type AIClient interface {
	Complete(ctx context.Context, model, system, prompt string, maxTokens int) (string, anthropic.Usage, error)
}

// AnalyzeRequest is the POST /api/v1/analyze body.
type AnalyzeRequest struct {
	Platform string             `json:"platform"`
	Export   string             `json:"export"`
	Title    string             `json:"title,omitempty"`
	Briefing *sampling.Briefing `json:"briefing,omitempty"`
}

const (
	reconSystem = "You scout a chat conversation before a deeper analysis. " +
		"Reply with JSON only, no prose: " +
		`{"flaggedRanges":[{"start":<epoch ms>,"end":<epoch ms>}],"topics":["..."]}`

	analysisSystem = "You are a careful analyst of interpersonal chat dynamics. " +
		"Ground every observation in the supplied messages and statistics. " +
		"Reply with a single JSON object."
)

func validateAnalyzeRequest(req *AnalyzeRequest) error {
	if err := validation.ValidatePlatform(req.Platform); err != nil {
		return err
	}
	if err := validation.ValidateExport(req.Export); err != nil {
		return err
	}
	if err := validation.ValidateTitle(req.Title); err != nil {
		return err
	}
	return validation.ValidateBriefing(req.Briefing)
}

// handleAnalyze runs the full pipeline: parse, compute, sample, then the
// AI stages over an SSE stream. Validation failures answer with plain JSON
// before the stream opens; everything after is stream events.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "api.analyze")
	defer span.End()
	log := logger.Ctx(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validateAnalyzeRequest(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("chat.platform", req.Platform),
		attribute.Int("export.size", len(req.Export)),
	)

	// The whole quantitative pipeline runs synchronously before the stream
	// opens; only the AI stages happen while streaming.
	conv := chat.Parse([]byte(req.Export), req.Platform)
	qa := metrics.Compute(conv)
	samples, sampleErr := sampling.Sample(conv, qa, req.Briefing)

	span.SetAttributes(
		attribute.Int("chat.messages", len(conv.Messages)),
		attribute.Int("chat.participants", len(conv.Participants)),
	)

	writer, err := stream.NewWriter(w)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}
	session := stream.Open(ctx, writer, s.cfg.HeartbeatInterval)
	defer session.Close()

	if sampleErr != nil {
		if errors.Is(sampleErr, sampling.ErrInsufficientData) {
			session.Send(stream.Error("Not enough messages to analyze. Export a longer conversation."))
		} else {
			log.Error("sampling failed", "error", sampleErr)
			session.Send(stream.Error("Analysis failed. Please try again."))
		}
		return
	}

	resultID := uuid.NewString()

	// AI stages run on a detached context so a finished analysis is
	// persisted and retrievable even when the client disconnected.
	execCtx := logger.WithLogger(context.WithoutCancel(ctx), log.With("result_id", resultID))

	var usage anthropic.Usage
	addUsage := func(u anthropic.Usage) {
		usage.InputTokens += u.InputTokens
		usage.OutputTokens += u.OutputTokens
	}

	stages := []stream.Stage{
		{
			Name:   "recon",
			Status: "Getting a first read on the conversation",
			Run: func(ctx context.Context) (json.RawMessage, error) {
				text, u, err := s.ai.Complete(ctx, s.cfg.Model, reconSystem, reconPrompt(samples), 2048)
				if err != nil {
					return nil, err
				}
				addUsage(u)

				// The recon pass flags periods and topics worth denser
				// sampling. An unparseable reply is not fatal; the main
				// pass just runs on the evenly spread samples.
				if b := parseBriefing(text); b != nil {
					resampled, err := sampling.Sample(conv, qa, mergeBriefings(req.Briefing, b))
					if err == nil {
						samples = resampled
					}
				}
				return json.RawMessage("{}"), nil
			},
		},
		{
			Name:   "analysis",
			Status: "Writing the full analysis",
			Run: func(ctx context.Context) (json.RawMessage, error) {
				text, u, err := s.ai.Complete(ctx, s.cfg.Model, analysisSystem, analysisPrompt(samples), s.cfg.MaxTokens)
				if err != nil {
					return nil, err
				}
				addUsage(u)
				return resultPayload(text), nil
			},
		},
	}

	result, err := session.RunStages(execCtx, stages)
	if err != nil {
		var se *stream.StageError
		if errors.As(err, &se) {
			log.Error("analysis stage failed", "stage", se.Stage, "error", se.Err)
			session.Send(stream.Error("Analysis failed. Please try again."))
		} else {
			log.Error("analysis aborted", "error", err)
		}
		return
	}

	// Persist before announcing the ID so a client can fetch immediately.
	s.finalize(execCtx, resultID, &req, conv, result, usage)

	if err := session.Send(stream.Complete(result, resultID)); err != nil {
		log.Info("client disconnected before completion", "result_id", resultID)
	}
}

// finalize stores the result, archives the raw export, and publishes the
// completion event. Each side effect is optional and non-fatal: the stream
// result already carries the analysis.
func (s *Server) finalize(ctx context.Context, resultID string, req *AnalyzeRequest, conv chat.ParsedConversation, result json.RawMessage, usage anthropic.Usage) {
	log := logger.Ctx(ctx)

	if s.db != nil {
		var title *string
		if req.Title != "" {
			title = &req.Title
		}
		rec := &db.AnalysisResult{
			ID:           resultID,
			Platform:     req.Platform,
			Title:        title,
			Result:       result,
			InputTokens:  int64(usage.InputTokens),
			OutputTokens: int64(usage.OutputTokens),
			CostUSD:      anthropic.EstimateCost(s.cfg.Model, usage),
		}
		if err := s.db.SaveResult(ctx, rec); err != nil {
			log.Error("failed to persist analysis result", "error", err)
		}
	}

	if s.storage != nil {
		if _, err := s.storage.ArchiveExport(ctx, resultID, req.Platform, []byte(req.Export)); err != nil {
			log.Error("failed to archive export", "error", err)
		}
	}

	if s.publisher != nil {
		payload := events.AnalysisCompleted{
			ResultID:     resultID,
			Platform:     req.Platform,
			MessageCount: len(conv.Messages),
			Participants: len(conv.Participants),
			InputTokens:  int64(usage.InputTokens),
			OutputTokens: int64(usage.OutputTokens),
		}
		if err := s.publisher.Publish(ctx, events.KeyAnalysisCompleted, events.KeyAnalysisCompleted, payload); err != nil {
			log.Error("failed to publish completion event", "error", err)
		}
	}
}

func reconPrompt(samples *sampling.AnalysisSamples) string {
	overview, _ := json.Marshal(samples.Overview)
	return fmt.Sprintf(
		"Statistical digest:\n%s\n\nRepresentative messages:\n%s\n\nFlag up to 5 date ranges and up to 10 topics that deserve a closer look.",
		samples.QuantitativeContext, overview)
}

func analysisPrompt(samples *sampling.AnalysisSamples) string {
	bundle, _ := json.Marshal(samples)
	return fmt.Sprintf("Analyze this conversation.\n\n%s", bundle)
}

// parseBriefing extracts a briefing from a recon reply. Models wrap JSON in
// fences or prose often enough that we cut to the outermost object first.
func parseBriefing(text string) *sampling.Briefing {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}

	var b sampling.Briefing
	if err := json.Unmarshal([]byte(text[start:end+1]), &b); err != nil {
		return nil
	}
	if len(b.FlaggedRanges) == 0 && len(b.Topics) == 0 {
		return nil
	}
	for _, r := range b.FlaggedRanges {
		if r.Start > r.End {
			return nil
		}
	}
	return &b
}

func mergeBriefings(user, recon *sampling.Briefing) *sampling.Briefing {
	if user == nil {
		return recon
	}
	merged := &sampling.Briefing{
		FlaggedRanges: append(append([]sampling.DateRange{}, user.FlaggedRanges...), recon.FlaggedRanges...),
		Topics:        append(append([]string{}, user.Topics...), recon.Topics...),
	}
	return merged
}

// resultPayload keeps valid JSON replies verbatim; anything else is wrapped
// so the complete event always carries a JSON object.
func resultPayload(text string) json.RawMessage {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return json.RawMessage(trimmed)
	}
	wrapped, _ := json.Marshal(map[string]string{"analysis": trimmed})
	return wrapped
}

package agents

import (
	"context"
	"encoding/json"
	"strings"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/broker"
	"hermes/internal/domain/opinion"
	"hermes/internal/network"
	"hermes/pkg/errors"
	"hermes/pkg/templates"
)

// llmReply is the JSON contract the system prompt demands from the model.
type llmReply struct {
	Action     string            `json:"action"`
	Summary    string            `json:"summary"`
	Details    map[string]string `json:"details"`
	Confidence float64           `json:"confidence"`
	Blocking   bool              `json:"blocking"`
}

// LLMDecision drives a department with a chat model. Each invocation is a
// single turn: system prompt from the profile, user prompt from the message
// and the department's accumulated state.
type LLMDecision struct {
	provider    ai.ChatProvider
	firm        string
	temperature float64
	maxTokens   int
}

// NewLLMDecision creates the LLM-backed decision function.
func NewLLMDecision(provider ai.ChatProvider, firm string, cfg config.AIConfig) *LLMDecision {
	return &LLMDecision{
		provider:    provider,
		firm:        firm,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Decide implements broker.DecisionFunc.
func (d *LLMDecision) Decide(ctx context.Context, req broker.Request) (*broker.Result, error) {
	system, err := templates.Get().Render("prompts/system", map[string]any{
		"DisplayName":    req.Profile.DisplayName,
		"Firm":           d.firm,
		"Description":    req.Profile.Description,
		"ExpertiseAreas": req.Profile.ExpertiseAreas,
		"RiskTolerance":  req.Profile.RiskTolerance,
	})
	if err != nil {
		return nil, errors.Wrap(err, "render system prompt")
	}

	user, err := d.userPrompt(req)
	if err != nil {
		return nil, err
	}

	resp, err := d.provider.Chat(ctx, ai.ChatRequest{
		System:      system,
		User:        user,
		Temperature: d.temperature,
		MaxTokens:   d.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	reply, err := parseReply(resp.Content)
	if err != nil {
		return nil, err
	}

	return &broker.Result{
		Opinion: &broker.OpinionDraft{
			Payload: opinion.Payload{
				Action:  reply.Action,
				Summary: reply.Summary,
				Details: reply.Details,
			},
			Confidence: reply.Confidence,
			Blocking:   reply.Blocking,
		},
		StateDelta: map[string]interface{}{
			"last_action": reply.Action,
		},
	}, nil
}

func (d *LLMDecision) userPrompt(req broker.Request) (string, error) {
	msg := req.Message

	var payload string
	if msg.Kind == network.KindEvent {
		data, err := json.Marshal(msg.Event)
		if err != nil {
			return "", errors.Wrap(err, "marshal event")
		}
		payload = string(data)
	} else if len(msg.Data) > 0 {
		data, err := json.Marshal(msg.Data)
		if err != nil {
			return "", errors.Wrap(err, "marshal message data")
		}
		payload = string(data)
	}

	var state string
	if len(req.State) > 0 {
		data, err := json.Marshal(req.State)
		if err != nil {
			return "", errors.Wrap(err, "marshal state")
		}
		state = string(data)
	}

	return templates.Get().Render("prompts/decision", map[string]any{
		"Cycle":       msg.Cycle,
		"Hop":         msg.Hop,
		"FromEvent":   msg.Kind == network.KindEvent,
		"EventType":   string(msg.Event.Type),
		"From":        msg.From.String(),
		"Description": msg.Event.Description,
		"Content":     msg.Event.Content,
		"Body":        msg.Body,
		"Payload":     payload,
		"State":       state,
	})
}

// parseReply extracts the JSON object from the model output, tolerating
// markdown fences around it.
func parseReply(content string) (*llmReply, error) {
	trimmed := strings.TrimSpace(content)
	if i := strings.Index(trimmed, "{"); i >= 0 {
		if j := strings.LastIndex(trimmed, "}"); j > i {
			trimmed = trimmed[i : j+1]
		}
	}

	var reply llmReply
	if err := json.Unmarshal([]byte(trimmed), &reply); err != nil {
		return nil, errors.Wrapf(errors.ErrDecisionFailed, "unparseable model reply: %v", err)
	}
	if reply.Action == "" {
		return nil, errors.Wrap(errors.ErrDecisionFailed, "model reply has no action")
	}
	return &reply, nil
}

package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/domain/event"
	"hermes/internal/domain/role"
	"hermes/pkg/errors"
)

type fakeProvider struct {
	content string
	err     error

	lastReq ai.ChatRequest
}

func (f *fakeProvider) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.ChatResponse{Content: f.content}, nil
}

func TestLLMDecisionParsesModelReply(t *testing.T) {
	provider := &fakeProvider{content: "```json\n" + `{
		"action": "downgrade_outlook",
		"summary": "Sentiment deteriorating",
		"details": {"stance": "bearish"},
		"confidence": 0.82,
		"blocking": false
	}` + "\n```"}

	d := NewLLMDecision(provider, "Hermes Securities", config.AIConfig{Temperature: 0.3, MaxTokens: 512})

	ev := event.New(event.TypeMarketUpdate, "sentiment collapse")
	ev.MarketUpdate = &event.MarketUpdateData{}

	res, err := d.Decide(context.Background(), ruleRequest(role.Research, eventMessage(role.Research, ev)))
	require.NoError(t, err)

	require.NotNil(t, res.Opinion)
	assert.Equal(t, "downgrade_outlook", res.Opinion.Payload.Action)
	assert.Equal(t, "bearish", res.Opinion.Payload.Details["stance"])
	assert.InDelta(t, 0.82, res.Opinion.Confidence, 1e-9)
	assert.Equal(t, "downgrade_outlook", res.StateDelta["last_action"])

	// The prompts carry the department identity and the event payload.
	assert.Contains(t, provider.lastReq.System, "Research")
	assert.Contains(t, provider.lastReq.User, "market_update")
	assert.Equal(t, 0.3, provider.lastReq.Temperature)
}

func TestLLMDecisionRejectsUnparseableReply(t *testing.T) {
	provider := &fakeProvider{content: "I think we should probably hold."}
	d := NewLLMDecision(provider, "Hermes Securities", config.AIConfig{})

	ev := event.New(event.TypeMarketUpdate, "noise")
	_, err := d.Decide(context.Background(), ruleRequest(role.Research, eventMessage(role.Research, ev)))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDecisionFailed))
}

func TestLLMDecisionRejectsReplyWithoutAction(t *testing.T) {
	provider := &fakeProvider{content: `{"summary": "no idea"}`}
	d := NewLLMDecision(provider, "Hermes Securities", config.AIConfig{})

	ev := event.New(event.TypeMarketUpdate, "noise")
	_, err := d.Decide(context.Background(), ruleRequest(role.Research, eventMessage(role.Research, ev)))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDecisionFailed))
}

func TestLLMDecisionPropagatesProviderErrors(t *testing.T) {
	provider := &fakeProvider{err: errors.ErrRateLimited}
	d := NewLLMDecision(provider, "Hermes Securities", config.AIConfig{})

	ev := event.New(event.TypeMarketUpdate, "noise")
	_, err := d.Decide(context.Background(), ruleRequest(role.Research, eventMessage(role.Research, ev)))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRateLimited))
}

func TestParseReplyTrimsSurroundingProse(t *testing.T) {
	reply, err := parseReply(`Here is my assessment: {"action": "hold", "confidence": 0.5} hope that helps`)
	require.NoError(t, err)
	assert.Equal(t, "hold", reply.Action)
}

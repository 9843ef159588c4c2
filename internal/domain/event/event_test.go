package event

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/domain/role"
	"hermes/pkg/errors"
)

func TestValidateRejectsUnknownType(t *testing.T) {
	ev := &Event{Type: "board_meeting"}
	err := ev.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownEventType))

	for _, typ := range []Type{TypeClientRequest, TypeMarketUpdate, TypeRegulatoryAnnouncement, TypeTradingOpportunity} {
		assert.NoError(t, (&Event{Type: typ}).Validate())
	}
}

func TestPrimaryOwnerByRequestType(t *testing.T) {
	cases := map[string]role.Role{
		"trading":            role.SalesTrading,
		"wealth_management":  role.WealthManagement,
		"asset_management":   role.AssetManagement,
		"investment_banking": role.InvestmentBanking,
	}
	for requestType, want := range cases {
		ev := New(TypeClientRequest, "help us")
		ev.ClientRequest = &ClientRequestData{RequestType: requestType}
		assert.Equal(t, want, ev.PrimaryOwner(), "request type %s", requestType)
	}

	// Untyped client requests default to the banking desk.
	bare := New(TypeClientRequest, "help us")
	assert.Equal(t, role.InvestmentBanking, bare.PrimaryOwner())
}

func TestPrimaryOwnerByEventType(t *testing.T) {
	assert.Equal(t, role.Research, New(TypeMarketUpdate, "").PrimaryOwner())
	assert.Equal(t, role.RiskCompliance, New(TypeRegulatoryAnnouncement, "").PrimaryOwner())
	assert.Equal(t, role.SalesTrading, New(TypeTradingOpportunity, "").PrimaryOwner())
}

func TestEnvelopeRoundTrip(t *testing.T) {
	ev := New(TypeTradingOpportunity, "depth imbalance in TECH")
	ev.Description = "post-earnings dislocation"
	ev.Sender = &Sender{Name: "flow desk", Type: "internal"}
	ev.Sequence = 7
	ev.TradingOpportunity = &TradingOpportunityData{
		Symbol:       "TECH",
		CurrentPrice: decimal.NewFromFloat(142.50),
		BidAskSpread: decimal.NewFromFloat(0.35),
		MarketDepth: MarketDepth{
			Bids: []DepthLevel{{Price: decimal.NewFromFloat(142.45), Size: decimal.NewFromInt(1200)}},
			Asks: []DepthLevel{{Price: decimal.NewFromFloat(142.80), Size: decimal.NewFromInt(900)}},
		},
	}

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	// The typed payload travels under "data".
	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Contains(t, wire, "data")

	var back Event
	require.NoError(t, json.Unmarshal(raw, &back))

	assert.Equal(t, ev.ID, back.ID)
	assert.Equal(t, ev.Sequence, back.Sequence)
	require.NotNil(t, back.TradingOpportunity)
	assert.Equal(t, "TECH", back.TradingOpportunity.Symbol)
	assert.True(t, back.TradingOpportunity.CurrentPrice.Equal(decimal.NewFromFloat(142.50)))
	require.Len(t, back.TradingOpportunity.MarketDepth.Bids, 1)
}

func TestEnvelopeDecodesPayloadByType(t *testing.T) {
	raw := []byte(`{
		"id": "93bba1a4-25c6-4efd-ae26-a1c346f14a2e",
		"type": "market_update",
		"data": {"market_sentiment": "-0.6", "sector_performance": {"technology": "-0.08"}}
	}`)

	var ev Event
	require.NoError(t, json.Unmarshal(raw, &ev))

	require.NotNil(t, ev.MarketUpdate)
	assert.True(t, ev.MarketUpdate.MarketSentiment.Equal(decimal.NewFromFloat(-0.6)))
	assert.Nil(t, ev.ClientRequest)
	assert.Nil(t, ev.TradingOpportunity)
}

func TestSampleEventsAreWellFormed(t *testing.T) {
	cr := SampleClientRequest()
	require.NoError(t, cr.Validate())
	require.NotNil(t, cr.ClientRequest)
	assert.Equal(t, role.InvestmentBanking, cr.PrimaryOwner())

	mu := SampleMarketUpdate()
	require.NoError(t, mu.Validate())
	require.NotNil(t, mu.MarketUpdate)
	assert.True(t, mu.MarketUpdate.MarketSentiment.IsNegative())
}

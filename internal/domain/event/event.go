package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hermes/internal/domain/role"
	"hermes/pkg/errors"
)

// Type enumerates the external event kinds the brokerage reacts to.
type Type string

const (
	TypeClientRequest          Type = "client_request"
	TypeMarketUpdate           Type = "market_update"
	TypeRegulatoryAnnouncement Type = "regulatory_announcement"
	TypeTradingOpportunity     Type = "trading_opportunity"
)

// Valid reports whether t is a recognized event type.
func (t Type) Valid() bool {
	switch t {
	case TypeClientRequest, TypeMarketUpdate, TypeRegulatoryAnnouncement, TypeTradingOpportunity:
		return true
	}
	return false
}

// Sender identifies the external actor behind an event.
type Sender struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Event is an immutable external stimulus. Identity is the ID; ordering is
// the arrival sequence within a scenario.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Type        Type      `json:"type"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content,omitempty"`
	Sender      *Sender   `json:"sender,omitempty"`
	Sequence    int       `json:"sequence"`
	Timestamp   time.Time `json:"timestamp"`

	// Exactly one of the typed payloads is set, matching Type.
	ClientRequest      *ClientRequestData      `json:"-"`
	MarketUpdate       *MarketUpdateData       `json:"-"`
	Regulatory         *RegulatoryData         `json:"-"`
	TradingOpportunity *TradingOpportunityData `json:"-"`
}

// ClientRequestData carries a client mandate or order request.
type ClientRequestData struct {
	RequestType string            `json:"request_type"`
	Details     map[string]string `json:"details,omitempty"`
}

// Security is one instrument inside a market update.
type Security struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Change decimal.Decimal `json:"change"`
}

// MarketUpdateData carries a market snapshot.
type MarketUpdateData struct {
	Securities        []Security                 `json:"securities,omitempty"`
	MarketSentiment   decimal.Decimal            `json:"market_sentiment"`
	SectorPerformance map[string]decimal.Decimal `json:"sector_performance,omitempty"`
}

// RegulatoryData carries a regulatory announcement.
type RegulatoryData struct {
	EffectiveDate string   `json:"effective_date"`
	KeyChanges    []string `json:"key_changes,omitempty"`
}

// DepthLevel is one price level of an order book.
type DepthLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// MarketDepth is the visible order book around an opportunity.
type MarketDepth struct {
	Bids []DepthLevel `json:"bids,omitempty"`
	Asks []DepthLevel `json:"asks,omitempty"`
}

// TradingOpportunityData carries an actionable trading setup.
type TradingOpportunityData struct {
	Symbol       string          `json:"symbol"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	BidAskSpread decimal.Decimal `json:"bid_ask_spread"`
	MarketDepth  MarketDepth     `json:"market_depth"`
}

// Validate checks the event is well formed. An unknown type is a
// configuration error and aborts the run before any cycle executes.
func (e *Event) Validate() error {
	if !e.Type.Valid() {
		return errors.Wrapf(errors.ErrUnknownEventType, "%q", e.Type)
	}
	return nil
}

// PrimaryOwner returns the department that owns the event's business type.
// The owner receives a priority boost during conflict resolution.
func (e *Event) PrimaryOwner() role.Role {
	switch e.Type {
	case TypeClientRequest:
		if e.ClientRequest != nil {
			switch e.ClientRequest.RequestType {
			case "trading":
				return role.SalesTrading
			case "wealth_management":
				return role.WealthManagement
			case "asset_management":
				return role.AssetManagement
			case "investment_banking":
				return role.InvestmentBanking
			}
		}
		return role.InvestmentBanking
	case TypeMarketUpdate:
		return role.Research
	case TypeRegulatoryAnnouncement:
		return role.RiskCompliance
	case TypeTradingOpportunity:
		return role.SalesTrading
	}
	return role.Executive
}

// envelope is the wire form of an event: the typed payload travels in "data".
type envelope struct {
	ID          uuid.UUID       `json:"id"`
	Type        Type            `json:"type"`
	Description string          `json:"description,omitempty"`
	Content     string          `json:"content,omitempty"`
	Sender      *Sender         `json:"sender,omitempty"`
	Sequence    int             `json:"sequence"`
	Timestamp   time.Time       `json:"timestamp"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON encodes the event with its typed payload under "data".
func (e *Event) MarshalJSON() ([]byte, error) {
	env := envelope{
		ID:          e.ID,
		Type:        e.Type,
		Description: e.Description,
		Content:     e.Content,
		Sender:      e.Sender,
		Sequence:    e.Sequence,
		Timestamp:   e.Timestamp,
	}

	var payload interface{}
	switch e.Type {
	case TypeClientRequest:
		payload = e.ClientRequest
	case TypeMarketUpdate:
		payload = e.MarketUpdate
	case TypeRegulatoryAnnouncement:
		payload = e.Regulatory
	case TypeTradingOpportunity:
		payload = e.TradingOpportunity
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}

	return json.Marshal(env)
}

// UnmarshalJSON decodes the event and its payload according to "type".
func (e *Event) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	e.ID = env.ID
	e.Type = env.Type
	e.Description = env.Description
	e.Content = env.Content
	e.Sender = env.Sender
	e.Sequence = env.Sequence
	e.Timestamp = env.Timestamp

	if len(env.Data) == 0 {
		return nil
	}

	switch env.Type {
	case TypeClientRequest:
		e.ClientRequest = &ClientRequestData{}
		return json.Unmarshal(env.Data, e.ClientRequest)
	case TypeMarketUpdate:
		e.MarketUpdate = &MarketUpdateData{}
		return json.Unmarshal(env.Data, e.MarketUpdate)
	case TypeRegulatoryAnnouncement:
		e.Regulatory = &RegulatoryData{}
		return json.Unmarshal(env.Data, e.Regulatory)
	case TypeTradingOpportunity:
		e.TradingOpportunity = &TradingOpportunityData{}
		return json.Unmarshal(env.Data, e.TradingOpportunity)
	}
	return nil
}

// New constructs an event with a fresh identity.
func New(t Type, content string) *Event {
	return &Event{
		ID:        uuid.New(),
		Type:      t,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// Package agents provides the decision functions bound to the department
// sub-agents: a deterministic rule engine for simulations and tests, and an
// LLM binding for live runs.
package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"hermes/internal/broker"
	"hermes/internal/domain/event"
	"hermes/internal/domain/opinion"
	"hermes/internal/domain/role"
	"hermes/internal/network"
)

// Position size thresholds from the trading desk's risk checks.
var (
	positionWarnSize  = decimal.NewFromInt(10000)
	positionLimitSize = decimal.NewFromInt(50000)

	// Sentiment below this reads as distressed markets; compliance blocks
	// aggressive actions there.
	distressedSentiment = decimal.NewFromFloat(-0.5)
)

// RuleBinding returns the deterministic rule engine for every department.
// Rules never consult external services, so scenario replays are
// reproducible end to end.
func RuleBinding() broker.Binding {
	rules := map[role.Role]broker.DecisionFunc{
		role.InvestmentBanking: broker.DecideFn(investmentBanking),
		role.SalesTrading:      broker.DecideFn(salesTrading),
		role.Research:          broker.DecideFn(research),
		role.WealthManagement:  broker.DecideFn(portfolioDesk("rebalance_private_portfolios", "client portfolios")),
		role.AssetManagement:   broker.DecideFn(portfolioDesk("review_fund_exposure", "fund mandates")),
		role.RiskCompliance:    broker.DecideFn(riskCompliance),
		role.Executive:         broker.DecideFn(executive),
	}
	return func(r role.Role) broker.DecisionFunc {
		return rules[r]
	}
}

// investmentBanking advises on mandates: IPO underwriting, bond issuance,
// M&A and general financing. New mandates trigger supporting requests to
// research and compliance.
func investmentBanking(_ context.Context, req broker.Request) (*broker.Result, error) {
	msg := req.Message

	if msg.Kind != network.KindEvent || msg.Event.Type != event.TypeClientRequest {
		return acknowledge(req, "monitoring for financing implications"), nil
	}

	service := ""
	client := "the client"
	if cr := msg.Event.ClientRequest; cr != nil {
		service = cr.Details["service"]
	}
	if msg.Event.Sender != nil && msg.Event.Sender.Name != "" {
		client = msg.Event.Sender.Name
	}

	var action, summary, timeline string
	outs := []network.Outbound{}

	switch service {
	case "ipo_underwriting":
		action = "prepare_ipo_underwriting"
		summary = fmt.Sprintf("Begin due diligence and issuance planning for %s", client)
		timeline = "6-9 months"
		outs = append(outs,
			network.Outbound{
				To:   role.Research,
				Body: fmt.Sprintf("Preparing an IPO underwriting for %s, please provide sector coverage.", client),
			},
			network.Outbound{
				To:   role.RiskCompliance,
				Body: fmt.Sprintf("Preparing an IPO underwriting for %s, please run the compliance review.", client),
			},
		)
	case "bond_issuance":
		action = "prepare_bond_issuance"
		summary = fmt.Sprintf("Assess issuer credit and structure the offering for %s", client)
		timeline = "2-3 months"
		outs = append(outs,
			network.Outbound{
				To:   role.SalesTrading,
				Body: fmt.Sprintf("Structuring a bond issuance for %s, prepare distribution.", client),
			},
			network.Outbound{
				To:   role.RiskCompliance,
				Body: fmt.Sprintf("Structuring a bond issuance for %s, please assess issuer risk.", client),
			},
		)
	case "ma_advisory":
		action = "engage_ma_advisory"
		summary = fmt.Sprintf("Open target due diligence and deal structuring for %s", client)
		timeline = "3-6 months"
		outs = append(outs, network.Outbound{
			To:   role.Research,
			Body: fmt.Sprintf("Advising %s on an acquisition, please cover the target and its sector.", client),
		})
	default:
		action = "propose_financing_advisory"
		summary = fmt.Sprintf("Evaluate financing channels and draft a proposal for %s", client)
		timeline = "1-2 months"
		outs = append(outs, network.Outbound{
			To:   role.AssetManagement,
			Body: fmt.Sprintf("Financing advisory underway for %s, product support may be needed.", client),
		})
	}

	deals, _ := req.State["active_deals"].(int)

	return &broker.Result{
		Opinion: &broker.OpinionDraft{
			Payload: opinion.Payload{
				Action:  action,
				Summary: summary,
				Details: map[string]string{
					"client":   client,
					"timeline": timeline,
				},
			},
			Confidence: 0.8,
		},
		Outbound:   outs,
		StateDelta: map[string]interface{}{"active_deals": deals + 1},
	}, nil
}

// salesTrading executes flow and reacts to market moves. Oversized orders
// are not executed outright; the desk flags them to compliance instead.
func salesTrading(_ context.Context, req broker.Request) (*broker.Result, error) {
	msg := req.Message

	if msg.Kind != network.KindEvent {
		return acknowledge(req, "adjusting quotes on desk chatter"), nil
	}

	switch msg.Event.Type {
	case event.TypeTradingOpportunity:
		return tradeOpportunity(req)
	case event.TypeMarketUpdate:
		return tradeMarketUpdate(req)
	case event.TypeClientRequest:
		return &broker.Result{
			Opinion: &broker.OpinionDraft{
				Payload: opinion.Payload{
					Action:  "execute_client_order",
					Summary: "Route the client order through the execution desk",
				},
				Confidence: 0.75,
			},
		}, nil
	}
	return acknowledge(req, "no trading action required"), nil
}

func tradeOpportunity(req broker.Request) (*broker.Result, error) {
	opp := req.Message.Event.TradingOpportunity
	if opp == nil {
		return acknowledge(req, "opportunity event carried no data"), nil
	}

	size := depthSize(opp.MarketDepth)

	// Spread relative to price decides whether the desk quotes or takes.
	wideSpread := false
	if opp.CurrentPrice.IsPositive() {
		ratio := opp.BidAskSpread.Div(opp.CurrentPrice)
		wideSpread = ratio.GreaterThan(decimal.NewFromFloat(0.01))
	}

	details := map[string]string{
		"symbol": opp.Symbol,
		"price":  opp.CurrentPrice.String(),
		"spread": opp.BidAskSpread.String(),
	}

	if size.GreaterThan(positionLimitSize) {
		return &broker.Result{
			Opinion: &broker.OpinionDraft{
				Payload: opinion.Payload{
					Action:  "hold_pending_risk_review",
					Summary: fmt.Sprintf("Visible depth in %s exceeds the desk position limit", opp.Symbol),
					Details: details,
				},
				Confidence: 0.6,
			},
			Outbound: []network.Outbound{{
				To:   role.RiskCompliance,
				Body: fmt.Sprintf("Opportunity in %s implies a position above the concentration limit.", opp.Symbol),
				Data: map[string]string{"symbol": opp.Symbol, "size": size.String()},
			}},
		}, nil
	}

	action := "take_liquidity"
	summary := fmt.Sprintf("Cross the spread in %s while depth holds", opp.Symbol)
	if wideSpread {
		action = "quote_market_making"
		summary = fmt.Sprintf("Capture the wide spread in %s by quoting both sides", opp.Symbol)
	}

	return &broker.Result{
		Opinion: &broker.OpinionDraft{
			Payload:    opinion.Payload{Action: action, Summary: summary, Details: details},
			Confidence: 0.85,
		},
	}, nil
}

func tradeMarketUpdate(req broker.Request) (*broker.Result, error) {
	mu := req.Message.Event.MarketUpdate
	if mu == nil {
		return acknowledge(req, "market update carried no data"), nil
	}

	// A move past 5% on any name forces a quoting and position review.
	bigMove := ""
	for _, sec := range mu.Securities {
		if sec.Price.IsPositive() {
			change := sec.Change.Div(sec.Price).Abs()
			if change.GreaterThan(decimal.NewFromFloat(0.05)) {
				bigMove = sec.Symbol
				break
			}
		}
	}

	if bigMove == "" {
		return &broker.Result{
			Opinion: &broker.OpinionDraft{
				Payload: opinion.Payload{
					Action:  "maintain_quotes",
					Summary: "Market move within normal bounds, keep current quoting",
				},
				Confidence: 0.7,
			},
		}, nil
	}

	return &broker.Result{
		Opinion: &broker.OpinionDraft{
			Payload: opinion.Payload{
				Action:  "widen_quotes_reduce_exposure",
				Summary: fmt.Sprintf("Sharp move in %s, widen quotes and trim directional exposure", bigMove),
				Details: map[string]string{"trigger": bigMove},
			},
			Confidence: 0.8,
		},
		StateDelta: map[string]interface{}{"last_volatility_trigger": bigMove},
	}, nil
}

// research digests market updates into a sentiment view, accumulates it in
// state and circulates a note to the desks it covers.
func research(_ context.Context, req broker.Request) (*broker.Result, error) {
	msg := req.Message

	if msg.Kind != network.KindEvent {
		// Coverage requests from other desks.
		return &broker.Result{
			Opinion: &broker.OpinionDraft{
				Payload: opinion.Payload{
					Action:  "publish_coverage_note",
					Summary: "Open coverage for the requesting desk",
				},
				Confidence: 0.7,
			},
		}, nil
	}

	if msg.Event.Type != event.TypeMarketUpdate || msg.Event.MarketUpdate == nil {
		return acknowledge(req, "tracking for research relevance"), nil
	}

	mu := msg.Event.MarketUpdate
	sentiment := mu.MarketSentiment

	observations, _ := req.State["observations"].(int)

	stance := "neutral"
	action := "maintain_outlook"
	switch {
	case sentiment.LessThan(distressedSentiment):
		stance = "bearish"
		action = "downgrade_outlook"
	case sentiment.LessThan(decimal.Zero):
		stance = "cautious"
		action = "flag_defensive_positioning"
	case sentiment.GreaterThan(decimal.NewFromFloat(0.5)):
		stance = "bullish"
		action = "upgrade_outlook"
	}

	worst := worstSector(mu.SectorPerformance)

	out := network.Outbound{
		Broadcast: true,
		Body:      fmt.Sprintf("Research update: sentiment %s, stance %s.", sentiment.String(), stance),
		Data:      map[string]string{"stance": stance, "sentiment": sentiment.String()},
	}

	details := map[string]string{"stance": stance, "sentiment": sentiment.String()}
	if worst != "" {
		details["weakest_sector"] = worst
	}

	return &broker.Result{
		Opinion: &broker.OpinionDraft{
			Payload: opinion.Payload{
				Action:  action,
				Summary: fmt.Sprintf("Market sentiment at %s, stance %s", sentiment.String(), stance),
				Details: details,
			},
			Confidence: 0.8,
		},
		Outbound: []network.Outbound{out},
		StateDelta: map[string]interface{}{
			"observations":   observations + 1,
			"last_sentiment": sentiment.String(),
			"stance":         stance,
		},
	}, nil
}

// portfolioDesk builds the shared behavior of the wealth and asset
// management desks: rebalance on bearish research notes, acknowledge
// otherwise.
func portfolioDesk(rebalanceAction, book string) func(context.Context, broker.Request) (*broker.Result, error) {
	return func(_ context.Context, req broker.Request) (*broker.Result, error) {
		msg := req.Message

		if msg.Kind == network.KindEvent && msg.Event.Type == event.TypeClientRequest {
			return &broker.Result{
				Opinion: &broker.OpinionDraft{
					Payload: opinion.Payload{
						Action:  "open_client_engagement",
						Summary: fmt.Sprintf("Scope the mandate against existing %s", book),
					},
					Confidence: 0.75,
				},
			}, nil
		}

		// Internal research notes drive positioning.
		stance := msg.Data["stance"]
		if stance == "bearish" || stance == "cautious" {
			return &broker.Result{
				Opinion: &broker.OpinionDraft{
					Payload: opinion.Payload{
						Action:  rebalanceAction,
						Summary: fmt.Sprintf("Shift %s defensively on the %s research stance", book, stance),
						Details: map[string]string{"stance": stance},
					},
					Confidence: 0.7,
				},
				StateDelta: map[string]interface{}{"posture": "defensive"},
			}, nil
		}

		return acknowledge(req, fmt.Sprintf("no repositioning needed for %s", book)), nil
	}
}

// riskCompliance reviews everything it is subscribed to. Regulatory
// announcements yield a compliance program; distressed markets yield a
// blocking opinion that vetoes aggressive actions.
func riskCompliance(_ context.Context, req broker.Request) (*broker.Result, error) {
	msg := req.Message

	if msg.Kind == network.KindEvent {
		switch msg.Event.Type {
		case event.TypeRegulatoryAnnouncement:
			details := map[string]string{}
			if reg := msg.Event.Regulatory; reg != nil {
				details["effective_date"] = reg.EffectiveDate
				details["changes"] = strings.Join(reg.KeyChanges, "; ")
			}
			return &broker.Result{
				Opinion: &broker.OpinionDraft{
					Payload: opinion.Payload{
						Action:  "launch_compliance_program",
						Summary: "Map the announced changes onto affected desks and controls",
						Details: details,
					},
					Confidence: 0.9,
				},
			}, nil

		case event.TypeMarketUpdate:
			if mu := msg.Event.MarketUpdate; mu != nil && mu.MarketSentiment.LessThan(distressedSentiment) {
				return &broker.Result{
					Opinion: &broker.OpinionDraft{
						Payload: opinion.Payload{
							Action:  "restrict_risk_taking",
							Summary: "Distressed sentiment, freeze new risk until limits are reviewed",
							Details: map[string]string{"sentiment": mu.MarketSentiment.String()},
						},
						Confidence: 0.9,
						Blocking:   true,
					},
				}, nil
			}
			return acknowledge(req, "market conditions within risk limits"), nil
		}
	}

	// Review requests from other desks.
	if size := msg.Data["size"]; size != "" {
		if sz, err := decimal.NewFromString(size); err == nil && sz.GreaterThan(positionLimitSize) {
			return &broker.Result{
				Opinion: &broker.OpinionDraft{
					Payload: opinion.Payload{
						Action:  "reject_oversized_position",
						Summary: "Requested position breaches the concentration limit",
						Details: map[string]string{"size": size},
					},
					Confidence: 0.95,
					Blocking:   true,
				},
			}, nil
		}
	}

	return &broker.Result{
		Opinion: &broker.OpinionDraft{
			Payload: opinion.Payload{
				Action:  "approve_with_monitoring",
				Summary: "Within limits, approved subject to ongoing monitoring",
			},
			Confidence: 0.8,
		},
	}, nil
}

// executive arbitrates escalations and owns unmatched events when fallback
// routing is enabled. For a tie it adopts the position of the highest-ranked
// contender, in roster order, which keeps arbitration deterministic.
// Ordinary internal notes are only acknowledged: the committee weighing in
// on every circulated memo would outrank the desk that owns the event.
func executive(_ context.Context, req broker.Request) (*broker.Result, error) {
	msg := req.Message

	if msg.Kind == network.KindInternal {
		return acknowledge(req, "noted for firm-level awareness"), nil
	}

	if msg.Kind == network.KindEscalation {
		chosenRole, chosen := pickEscalation(msg.Data)
		if chosen == "" {
			return acknowledge(req, "no contending positions supplied"), nil
		}
		action, summary := splitCanonical(chosen)
		return &broker.Result{
			Opinion: &broker.OpinionDraft{
				Payload: opinion.Payload{
					Action:  action,
					Summary: summary,
					Details: map[string]string{"adopted_from": chosenRole},
				},
				Confidence: 0.9,
			},
		}, nil
	}

	return &broker.Result{
		Opinion: &broker.OpinionDraft{
			Payload: opinion.Payload{
				Action:  "coordinate_firm_response",
				Summary: "Assign ownership and track the firm-level response",
			},
			Confidence: 0.6,
		},
	}, nil
}

// pickEscalation selects the contender from the highest-ranked role present,
// walking the roster backwards so executive > compliance > business desks.
func pickEscalation(data map[string]string) (string, string) {
	roster := role.All()
	for i := len(roster) - 1; i >= 0; i-- {
		r := roster[i].String()
		if v, ok := data[r]; ok && v != "" {
			return r, v
		}
	}
	return "", ""
}

// splitCanonical recovers action and summary from a canonical payload form.
func splitCanonical(canonical string) (action, summary string) {
	parts := strings.SplitN(canonical, "|", 3)
	action = parts[0]
	if len(parts) > 1 {
		summary = parts[1]
	}
	if summary == "" {
		summary = "adopted contending position after arbitration"
	}
	return action, summary
}

// acknowledge is the neutral non-terminal response: no opinion, no
// follow-ups, just a state note of the last thing seen.
func acknowledge(req broker.Request, note string) *broker.Result {
	return &broker.Result{
		StateDelta: map[string]interface{}{
			"last_note": note,
		},
	}
}

func depthSize(depth event.MarketDepth) decimal.Decimal {
	total := decimal.Zero
	for _, lvl := range depth.Bids {
		total = total.Add(lvl.Size)
	}
	for _, lvl := range depth.Asks {
		total = total.Add(lvl.Size)
	}
	return total
}

func worstSector(perf map[string]decimal.Decimal) string {
	worst := ""
	var worstVal decimal.Decimal
	first := true
	// Deterministic scan: sorted keys, not map order.
	for _, k := range sortedKeys(perf) {
		v := perf[k]
		if first || v.LessThan(worstVal) {
			worst, worstVal, first = k, v, false
		}
	}
	return worst
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

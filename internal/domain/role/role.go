package role

import (
	"hermes/pkg/errors"
)

// Role identifies a department inside the brokerage. The set is closed:
// routing tables, the topology, and the priority table are all keyed by it.
type Role string

const (
	InvestmentBanking Role = "investment_banking"
	SalesTrading      Role = "sales_trading"
	Research          Role = "research"
	WealthManagement  Role = "wealth_management"
	AssetManagement   Role = "asset_management"
	RiskCompliance    Role = "risk_compliance"
	Executive         Role = "executive"
)

// All returns every role in fixed roster order. Iteration anywhere in the
// engine goes through this slice, never a map, so runs replay identically.
func All() []Role {
	return []Role{
		InvestmentBanking,
		SalesTrading,
		Research,
		WealthManagement,
		AssetManagement,
		RiskCompliance,
		Executive,
	}
}

// Parse validates a role name from configuration or a scenario file.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", errors.Wrapf(errors.ErrUnknownRole, "%q", s)
	}
	return r, nil
}

// Valid reports whether r belongs to the closed department set.
func (r Role) Valid() bool {
	switch r {
	case InvestmentBanking, SalesTrading, Research, WealthManagement,
		AssetManagement, RiskCompliance, Executive:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

package role

// Profile describes a department: display name, mandate, expertise areas and
// appetite for risk. Profiles are static metadata available to decision
// functions; they never change during a run.
type Profile struct {
	Role           Role
	DisplayName    string
	Description    string
	ExpertiseAreas []string
	RiskTolerance  float64 // 0 (averse) .. 1 (aggressive)
}

// DefaultProfiles returns the standard department roster of a full-service
// brokerage.
func DefaultProfiles() map[Role]Profile {
	return map[Role]Profile{
		InvestmentBanking: {
			Role:           InvestmentBanking,
			DisplayName:    "Investment Banking",
			Description:    "Equity and debt underwriting, M&A advisory",
			ExpertiseAreas: []string{"ipo", "bond_issuance", "mergers", "financing_advisory"},
			RiskTolerance:  0.4,
		},
		SalesTrading: {
			Role:           SalesTrading,
			DisplayName:    "Sales & Trading",
			Description:    "Order execution, market making and client flow",
			ExpertiseAreas: []string{"equities", "fixed_income", "derivatives", "market_making"},
			RiskTolerance:  0.7,
		},
		Research: {
			Role:           Research,
			DisplayName:    "Research",
			Description:    "Macro, sector and single-name research coverage",
			ExpertiseAreas: []string{"macro", "sector_research", "company_research", "strategy"},
			RiskTolerance:  0.3,
		},
		WealthManagement: {
			Role:           WealthManagement,
			DisplayName:    "Wealth Management",
			Description:    "Private client portfolios and financial planning",
			ExpertiseAreas: []string{"asset_allocation", "portfolios", "planning", "client_coverage"},
			RiskTolerance:  0.4,
		},
		AssetManagement: {
			Role:           AssetManagement,
			DisplayName:    "Asset Management",
			Description:    "Fund products and institutional mandates",
			ExpertiseAreas: []string{"fund_management", "asset_allocation", "strategy", "performance"},
			RiskTolerance:  0.5,
		},
		RiskCompliance: {
			Role:           RiskCompliance,
			DisplayName:    "Risk & Compliance",
			Description:    "Risk limits, regulatory compliance and controls",
			ExpertiseAreas: []string{"risk_management", "compliance", "audit", "regulatory_affairs"},
			RiskTolerance:  0.1,
		},
		Executive: {
			Role:           Executive,
			DisplayName:    "Executive Committee",
			Description:    "Firm strategy, cross-department coordination and arbitration",
			ExpertiseAreas: []string{"strategy", "coordination", "arbitration", "external_relations"},
			RiskTolerance:  0.5,
		},
	}
}

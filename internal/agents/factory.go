package agents

import (
	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/broker"
	"hermes/internal/domain/role"
	"hermes/pkg/errors"
)

// NewBinding selects the decision engine from configuration: the
// deterministic rules, or one shared LLM decision function for every
// department. The compliance veto must not depend on model output, so the
// LLM binding keeps the rule engine for risk & compliance.
func NewBinding(cfg *config.Config) (broker.Binding, error) {
	switch cfg.AI.Provider {
	case "rules":
		return RuleBinding(), nil

	case "openai":
		provider, err := ai.NewOpenAIProvider(cfg.AI)
		if err != nil {
			return nil, err
		}

		llm := NewLLMDecision(provider, cfg.Broker.Name, cfg.AI)
		rules := RuleBinding()

		return func(r role.Role) broker.DecisionFunc {
			if r == role.RiskCompliance {
				return rules(r)
			}
			return llm
		}, nil
	}

	return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown AI provider %q", cfg.AI.Provider)
}

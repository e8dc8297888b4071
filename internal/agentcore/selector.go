package agentcore

import (
	"fmt"

	"github.com/overhuman/agentrt/internal/bus"
	"github.com/overhuman/agentrt/internal/observability"
	"github.com/overhuman/agentrt/internal/persistence"
)

// MinExperienceSamples is the hard-coded "≥3 samples" threshold before
// historical data is trusted over static scoring, kept as a named
// constant per SPEC_FULL.md §9's Open Question decision 1 (matches
// original_source's hard-coded default, not made configurable).
const MinExperienceSamples = 3

// SelectionResult is the outcome of a core selection, carrying rationale
// for observability. Grounded on
// original_source/agents/core/selector.rs's SelectionResult.
type SelectionResult struct {
	CoreType       bus.CoreType
	Rationale      string
	FromExperience bool
	Category       string
	Confidence     float64
}

// CoreSelector auto-selects the best core for a task using historical
// experience data, falling back to static suitability scoring from an
// AgentCoreRegistry, falling back to a configured default. Grounded on
// original_source/agents/core/selector.rs's CoreSelector.
type CoreSelector struct {
	experienceStore *persistence.ExperienceStore
	defaultCore     bus.CoreType
	minExperiences  int
	logger          *observability.Logger
}

// NewCoreSelector creates a selector with explicit settings.
func NewCoreSelector(store *persistence.ExperienceStore, defaultCore bus.CoreType, minExperiences int, logger *observability.Logger) *CoreSelector {
	return &CoreSelector{
		experienceStore: store,
		defaultCore:     defaultCore,
		minExperiences:  minExperiences,
		logger:          logger,
	}
}

// NewCoreSelectorWithDefaults creates a selector with Freeform fallback
// and MinExperienceSamples, matching
// original_source/agents/core/selector.rs's with_defaults.
func NewCoreSelectorWithDefaults(store *persistence.ExperienceStore, logger *observability.Logger) *CoreSelector {
	return NewCoreSelector(store, bus.CoreFreeform, MinExperienceSamples, logger)
}

// SelectCore categorizes task via keyword analysis, then selects.
func (s *CoreSelector) SelectCore(task string, registry *AgentCoreRegistry) SelectionResult {
	category := CategorizeTask(task).String()
	return s.selectForCategory(category, task, registry)
}

// SelectWithHint selects using a pre-computed TaskHint, skipping keyword
// analysis and honoring hint.UserPreference when present.
func (s *CoreSelector) SelectWithHint(hint TaskHint, registry *AgentCoreRegistry) SelectionResult {
	if hint.UserPreference != nil {
		return SelectionResult{
			CoreType:       *hint.UserPreference,
			Rationale:      fmt.Sprintf("User explicitly requested %s core", *hint.UserPreference),
			FromExperience: false,
			Category:       hint.Category.String(),
			Confidence:     1.0,
		}
	}
	return s.selectForCategory(hint.Category.String(), hint.Description, registry)
}

func (s *CoreSelector) selectForCategory(category, task string, registry *AgentCoreRegistry) SelectionResult {
	// Step 1: experience-based selection.
	if s.experienceStore != nil {
		coreType, successRate, ok, err := s.experienceStore.BestCoreForCategory(category)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("core selector: experience store query failed", "error", err)
			}
			// Fall through to static scoring, matching original_source's
			// degrade-on-error behavior.
		} else if ok {
			return SelectionResult{
				CoreType: coreType,
				Rationale: fmt.Sprintf(
					"Selected %s based on %.0f%% success rate for '%s' tasks (historical data)",
					coreType, successRate*100, category,
				),
				FromExperience: true,
				Category:       category,
				Confidence:     successRate,
			}
		}
	}

	// Step 2: static suitability scoring via registry.
	if registry != nil {
		hint := HintFromMessage(task)
		if recommended, score, ok := registry.RecommendCore(hint); ok {
			return SelectionResult{
				CoreType: recommended,
				Rationale: fmt.Sprintf(
					"Selected %s via suitability scoring (%.0f%% match for '%s' tasks, no historical data)",
					recommended, float64(score)*100, category,
				),
				FromExperience: false,
				Category:       category,
				Confidence:     float64(score),
			}
		}
	}

	// Step 3: default.
	return SelectionResult{
		CoreType:       s.defaultCore,
		Rationale:      fmt.Sprintf("Defaulting to %s (no experience data or registry available)", s.defaultCore),
		FromExperience: false,
		Category:       category,
		Confidence:     0.5,
	}
}

// FormatSelectionRationale renders a human-readable explanation of a
// selection result, matching
// original_source/agents/core/selector.rs's format_selection_rationale.
func FormatSelectionRationale(result SelectionResult) string {
	source := "static suitability scoring"
	if result.FromExperience {
		source = "historical performance data"
	}
	return fmt.Sprintf("%s (category: %s, confidence: %.0f%%, source: %s)",
		result.Rationale, result.Category, result.Confidence*100, source)
}

// MinExperiences returns the configured minimum sample threshold.
func (s *CoreSelector) MinExperiences() int { return s.minExperiences }

// DefaultCore returns the configured fallback core type.
func (s *CoreSelector) DefaultCore() bus.CoreType { return s.defaultCore }

// SetExperienceStore updates the experience store reference, e.g. after
// lazy initialization.
func (s *CoreSelector) SetExperienceStore(store *persistence.ExperienceStore) {
	s.experienceStore = store
}

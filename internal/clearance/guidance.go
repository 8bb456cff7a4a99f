// ABOUTME: Static guidance bundles returned by preflight checks.
// ABOUTME: Keyed by operation type; unknown types fall back to email creation.

package clearance

// OperationType values accepted by preflight checks.
const (
	OpEmailCreation   = "email_creation"
	OpJourneyCreation = "journey_creation"
	OpDataExtension   = "data_extension"
)

// Failure describes one historically common mistake and its observed share
// of failed attempts.
type Failure struct {
	Problem   string `json:"problem"`
	Impact    string `json:"impact"`
	Frequency string `json:"frequency"`
}

// Guidance is the fixed required-reading bundle returned with a clearance
// token. Static lookup data, not computed.
type Guidance struct {
	RequiredReading []string  `json:"required_reading"`
	CriticalRules   []string  `json:"critical_rules"`
	CommonFailures  []Failure `json:"common_failures"`
	NextSteps       []string  `json:"next_steps"`
}

var emailGuidance = Guidance{
	RequiredReading: []string{
		"mce://guides/editable-emails (CRITICAL - explains assetType.id = 207)",
		"mce://examples/complete-email (REQUIRED - shows exact structure)",
		"mce://guides/email-components (optional - if the user mentioned components)",
	},
	CriticalRules: []string{
		"NEVER use assetType.id = 208 (creates a non-editable HTML paste email)",
		`ALWAYS use assetType: {"id": 207, "name": "templatebasedemail"}`,
		"Both id AND name are required",
		"Include slots with blocks for editability",
		"Each block needs assetType, content, design, and meta",
	},
	CommonFailures: []Failure{
		{Problem: "using assetType.id 208", Impact: "creates non-editable emails", Frequency: "60% of failures"},
		{Problem: "missing assetType.name", Impact: "API error 118077", Frequency: "25% of failures"},
		{Problem: "missing slots", Impact: "not editable in Content Builder", Frequency: "10% of failures"},
	},
	NextSteps: []string{
		"Read all required documentation resources",
		"Build the request following the documented structure",
		"Call mce_v1_validate_request with the planned request",
		"Include this clearance token in mce_v1_rest_request",
	},
}

var journeyGuidance = Guidance{
	RequiredReading: []string{
		"mce://guides/journey-builder (complete guide)",
	},
	CriticalRules: []string{
		"Data Extensions must be linked to the Contact Model for filters",
		"holdBackPercentage must be 0 for recurring journeys",
		"Path Optimizer paths need matching capsule IDs",
	},
	NextSteps: []string{
		"Read the journey builder guide",
		"Call mce_v1_validate_request with the planned request",
		"Create the journey via mce_v1_rest_request",
	},
}

// guidanceFor returns the guidance bundle for the operation type. Unknown
// types fall back to the email bundle, matching the behavior callers have
// come to depend on.
func guidanceFor(operationType string) Guidance {
	switch operationType {
	case OpJourneyCreation:
		return journeyGuidance
	default:
		return emailGuidance
	}
}

// ABOUTME: Pre-execution validation of email and journey request bodies.
// ABOUTME: Pure rule evaluation with a fixed check order for stable output.

package validate

import (
	"fmt"
	"sort"
)

// Asset type identifiers relevant to email creation. 207 produces an
// editable template-based email; 208 produces a raw HTML paste that cannot
// be edited in Content Builder.
const (
	AssetTypeEditableEmail  = 207
	AssetTypeHTMLPasteEmail = 208

	EditableEmailTypeName = "templatebasedemail"
)

// Result is the outcome of validating a request body. Errors and Warnings
// keep the order in which the checks ran.
type Result struct {
	Valid          bool     `json:"valid"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
	Recommendation string   `json:"recommendation"`
}

// Validate inspects a planned request body of the given type against the
// fixed rule set. It performs no I/O; unknown request types pass validation
// with a warning since no rules exist for them.
func Validate(requestType string, body map[string]any) Result {
	var r Result
	switch requestType {
	case "email":
		r = validateEmail(body)
	case "journey":
		r = validateJourney(body)
	default:
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("no validation rules exist for request type %q; the request was not checked", requestType))
	}

	r.Valid = len(r.Errors) == 0
	r.Recommendation = recommend(r)
	return r
}

func validateEmail(body map[string]any) Result {
	var r Result

	assetType, hasAssetType := asMap(body["assetType"])
	if !hasAssetType {
		r.Errors = append(r.Errors,
			`assetType is missing; add assetType: {"id": 207, "name": "templatebasedemail"}`)
	} else {
		id, hasID := asNumber(assetType["id"])
		name, hasName := assetType["name"].(string)

		if hasID && int(id) == AssetTypeHTMLPasteEmail {
			r.Errors = append(r.Errors,
				`assetType.id = 208 creates a NON-EDITABLE HTML paste email; use assetType: {"id": 207, "name": "templatebasedemail"}`)
		}
		if hasID != (hasName && name != "") {
			r.Errors = append(r.Errors,
				"assetType requires both id and name; one without the other is invalid")
		}
	}

	if s, ok := body["name"].(string); !ok || s == "" {
		r.Errors = append(r.Errors, "name is required")
	}

	views, _ := asMap(body["views"])
	if !hasContent(views["subjectline"]) {
		r.Errors = append(r.Errors, "views.subjectline.content (subject line) is required")
	}

	html, _ := asMap(views["html"])
	slots, hasSlots := asMap(html["slots"])
	if !hasSlots {
		r.Warnings = append(r.Warnings,
			"no slots defined in views.html.slots; the email can be created but will not be editable in Content Builder (see mce://guides/editable-emails)")
	} else {
		for _, slotKey := range sortedKeys(slots) {
			slot, _ := asMap(slots[slotKey])
			blocks, _ := asMap(slot["blocks"])
			if len(blocks) == 0 {
				r.Warnings = append(r.Warnings,
					fmt.Sprintf("slot %q has no blocks", slotKey))
			}
		}
	}

	return r
}

func validateJourney(body map[string]any) Result {
	var r Result

	if triggers, ok := body["triggers"].([]any); !ok || len(triggers) == 0 {
		r.Errors = append(r.Errors, "journey must have at least one trigger")
	}
	if activities, ok := body["activities"].([]any); !ok || len(activities) == 0 {
		r.Errors = append(r.Errors, "journey must have at least one activity")
	}

	return r
}

func recommend(r Result) string {
	switch {
	case len(r.Errors) > 0:
		return "Fix the errors above before proceeding. Read mce://guides/editable-emails if needed."
	case len(r.Warnings) > 0:
		return "The request will work, but consider addressing the warnings for best results."
	default:
		return "Request looks good. Proceed with mce_v1_rest_request."
	}
}

// hasContent reports whether v is a view object carrying non-empty content.
func hasContent(v any) bool {
	m, ok := asMap(v)
	if !ok {
		return false
	}
	s, ok := m["content"].(string)
	return ok && s != ""
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asNumber accepts the numeric types a decoded JSON body can carry.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Iteration order of Go maps is random; slot warnings must be stable.
	sort.Strings(keys)
	return keys
}

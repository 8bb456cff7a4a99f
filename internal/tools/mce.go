// ABOUTME: The mce_v1 tool pack: preflight, validation, REST/SOAP proxying,
// ABOUTME: email payload building, and health reporting.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/mce-gateway/internal/clearance"
	"github.com/2389/mce-gateway/internal/emailgen"
	"github.com/2389/mce-gateway/internal/mce"
	"github.com/2389/mce-gateway/internal/metrics"
	"github.com/2389/mce-gateway/internal/validate"
)

// ErrClearanceRequired indicates a gated call arrived without a valid
// clearance token.
var ErrClearanceRequired = errors.New("clearance token required")

// assetCreationPath marks REST paths whose POSTs are gated behind a
// clearance token.
const assetCreationPath = "/asset/v1/content/assets"

// MCEPack builds the mce_v1 tool set. The capability name gates every tool
// in the pack; pass "" to leave them open.
func MCEPack(client *mce.Client, gate *clearance.Gate, m *metrics.Metrics, logger *slog.Logger, capability string) []*Tool {
	if logger == nil {
		logger = slog.Default()
	}
	h := &mceHandlers{
		client:  client,
		gate:    gate,
		metrics: m,
		logger:  logger.With("component", "mce-tools"),
	}

	return []*Tool{
		{
			Definition: Definition{
				Name: "mce_v1_preflight_check",
				Description: "MANDATORY PRE-FLIGHT CHECK - Call this FIRST before creating emails or journeys. " +
					"Returns required documentation, critical rules, common failures, and a clearance token " +
					"needed for email creation via mce_v1_rest_request.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"operation_type": {
							"type": "string",
							"enum": ["email_creation", "journey_creation", "data_extension"],
							"description": "Type of operation you want to perform"
						},
						"user_intent": {
							"type": "string",
							"description": "What the user asked you to do (plain language)"
						}
					},
					"required": ["operation_type", "user_intent"]
				}`),
				RequiredCapability: capability,
			},
			Handler: h.PreflightCheck,
		},
		{
			Definition: Definition{
				Name: "mce_v1_validate_request",
				Description: "Validate an email/journey request BEFORE execution. Checks assetType (207 vs 208), " +
					"required fields, and slot/block structure. Always call this after reading docs and before " +
					"mce_v1_rest_request. Returns errors, warnings, and a recommendation.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"request_type": {
							"type": "string",
							"enum": ["email", "journey", "data_extension"]
						},
						"request_body": {
							"type": "object",
							"description": "The complete request body you plan to send"
						}
					},
					"required": ["request_type", "request_body"]
				}`),
				RequiredCapability: capability,
			},
			Handler: h.ValidateRequest,
		},
		{
			Definition: Definition{
				Name: "mce_v1_rest_request",
				Description: "Execute a Marketing Cloud REST API request. Email creation (POST to " +
					assetCreationPath + ") requires a clearance_token from mce_v1_preflight_check. " +
					"NEVER use assetType.id 208; always use {\"id\": 207, \"name\": \"templatebasedemail\"}. " +
					"Read mce://guides/editable-emails for the complete structure.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"clearance_token": {
							"type": "string",
							"description": "Clearance token from mce_v1_preflight_check (REQUIRED for email creation)"
						},
						"method": {
							"type": "string",
							"enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]
						},
						"path": {
							"type": "string",
							"description": "API path under the REST base URL"
						},
						"query": {
							"type": "object",
							"description": "Query parameters"
						},
						"body": {
							"description": "Request body (object or string)"
						},
						"businessUnitId": {
							"type": "string",
							"description": "Business unit MID"
						}
					},
					"required": ["method", "path"]
				}`),
				RequiredCapability: capability,
			},
			Handler: h.RestRequest,
		},
		{
			Definition: Definition{
				Name: "mce_v1_soap_request",
				Description: "Execute a Marketing Cloud SOAP API request against the partner API. " +
					"Supports Create, Retrieve, Update, and Delete.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"action": {
							"type": "string",
							"enum": ["Create", "Retrieve", "Update", "Delete"]
						},
						"objectType": {
							"type": "string",
							"description": "SOAP object type (e.g. DataExtension, Subscriber)"
						},
						"properties": {
							"type": "array",
							"items": {"type": "string"},
							"description": "Properties to retrieve (default: all)"
						},
						"filter": {
							"type": "object",
							"properties": {
								"property": {"type": "string"},
								"operator": {"type": "string"},
								"value": {"type": "string"}
							},
							"description": "Filter criteria for Retrieve"
						},
						"objects": {
							"type": "array",
							"description": "Objects to create/update/delete"
						},
						"businessUnitId": {
							"type": "string"
						}
					},
					"required": ["action", "objectType"]
				}`),
				RequiredCapability: capability,
			},
			Handler: h.SoapRequest,
		},
		{
			Definition: Definition{
				Name: "mce_v1_build_email",
				Description: "Build a complete editable email payload (assetType 207) from a simple description " +
					"of slots and blocks. Returns the request body to send with mce_v1_rest_request; does not " +
					"create anything itself.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"name": {"type": "string"},
						"subject": {"type": "string"},
						"preheader": {"type": "string"},
						"slots": {
							"type": "object",
							"description": "Map of slot key to an array of blocks ({key, type, content})",
							"additionalProperties": {
								"type": "array",
								"items": {
									"type": "object",
									"properties": {
										"key": {"type": "string"},
										"type": {"type": "string", "enum": ["text", "image", "button", "html", "freeform"]},
										"content": {"type": "string"}
									},
									"required": ["key", "type", "content"]
								}
							}
						}
					},
					"required": ["name", "subject"]
				}`),
				RequiredCapability: capability,
			},
			Handler: h.BuildEmail,
		},
		{
			Definition: Definition{
				Name:        "mce_v1_health",
				Description: "Health check tool. Echoes ping and reports usage metrics.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"ping": {"type": "string", "default": "pong"}
					}
				}`),
				RequiredCapability: capability,
			},
			Handler: h.Health,
		},
	}
}

type mceHandlers struct {
	client  *mce.Client
	gate    *clearance.Gate
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type preflightInput struct {
	OperationType string `json:"operation_type"`
	UserIntent    string `json:"user_intent"`
}

// PreflightCheck issues a clearance token along with the guidance bundle
// for the requested operation type.
func (h *mceHandlers) PreflightCheck(ctx context.Context, callerID string, input json.RawMessage) (json.RawMessage, error) {
	var in preflightInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	if in.OperationType == "" {
		return nil, fmt.Errorf("operation_type is required")
	}
	if in.UserIntent == "" {
		return nil, fmt.Errorf("user_intent is required")
	}

	h.metrics.RecordPreflight()
	token, guidance := h.gate.Issue(in.OperationType, in.UserIntent)

	h.logger.Info("preflight check",
		"caller", callerID,
		"operation_type", in.OperationType,
	)

	return json.Marshal(map[string]any{
		"operation_type":          in.OperationType,
		"user_intent":             in.UserIntent,
		"clearance_token":         token,
		"clearance_valid_minutes": int(clearance.Validity.Minutes()),
		"guidance":                guidance,
		"metrics":                 h.metrics.Snapshot(),
	})
}

type validateInput struct {
	RequestType string         `json:"request_type"`
	RequestBody map[string]any `json:"request_body"`
}

// ValidateRequest runs the static request checks without touching the API.
func (h *mceHandlers) ValidateRequest(ctx context.Context, callerID string, input json.RawMessage) (json.RawMessage, error) {
	var in validateInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	if in.RequestType == "" {
		return nil, fmt.Errorf("request_type is required")
	}
	if in.RequestBody == nil {
		return nil, fmt.Errorf("request_body is required")
	}

	h.metrics.RecordValidation()
	result := validate.Validate(in.RequestType, in.RequestBody)

	nextStep := "Fix errors and validate again"
	if result.Valid {
		nextStep = "Call mce_v1_rest_request with your clearance token"
	}

	return json.Marshal(map[string]any{
		"valid":          result.Valid,
		"errors":         result.Errors,
		"warnings":       result.Warnings,
		"recommendation": result.Recommendation,
		"next_step":      nextStep,
	})
}

type restInput struct {
	ClearanceToken string            `json:"clearance_token"`
	Method         string            `json:"method"`
	Path           string            `json:"path"`
	Query          map[string]string `json:"query"`
	Body           any               `json:"body"`
	BusinessUnitID string            `json:"businessUnitId"`
}

// RestRequest forwards a REST call, enforcing the clearance gate on email
// asset creation. The gate check happens before any network traffic.
func (h *mceHandlers) RestRequest(ctx context.Context, callerID string, input json.RawMessage) (json.RawMessage, error) {
	var in restInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	if in.Method == "" || in.Path == "" {
		return nil, fmt.Errorf("method and path are required")
	}

	h.metrics.RecordAttempt()

	if gated(in.Method, in.Path) {
		if in.ClearanceToken == "" || !h.gate.Consume(in.ClearanceToken) {
			h.metrics.RecordFailure()
			h.logger.Warn("rest request blocked, no valid clearance",
				"caller", callerID,
				"path", in.Path,
			)
			return nil, fmt.Errorf("%w: call mce_v1_preflight_check with operation_type "+
				"\"email_creation\", read the returned documentation, validate your request "+
				"with mce_v1_validate_request, then retry with the clearance_token", ErrClearanceRequired)
		}
	}

	resp, err := h.client.Rest(ctx, mce.RestRequest{
		Method:         in.Method,
		Path:           in.Path,
		Query:          in.Query,
		Body:           in.Body,
		BusinessUnitID: in.BusinessUnitID,
	})
	if err != nil {
		h.metrics.RecordFailure()
		return nil, err
	}

	if resp.Status >= 200 && resp.Status < 300 {
		h.metrics.RecordSuccess()
	} else {
		h.metrics.RecordFailure()
	}

	return json.Marshal(resp)
}

type soapInput struct {
	Action         string            `json:"action"`
	ObjectType     string            `json:"objectType"`
	Properties     []string          `json:"properties"`
	Filter         *mce.SimpleFilter `json:"filter"`
	Objects        []map[string]any  `json:"objects"`
	BusinessUnitID string            `json:"businessUnitId"`
}

// SoapRequest forwards a SOAP call. SOAP is not clearance-gated; email
// assets cannot be created through the partner API.
func (h *mceHandlers) SoapRequest(ctx context.Context, callerID string, input json.RawMessage) (json.RawMessage, error) {
	var in soapInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	if in.Action == "" || in.ObjectType == "" {
		return nil, fmt.Errorf("action and objectType are required")
	}

	h.metrics.RecordAttempt()

	resp, err := h.client.Soap(ctx, mce.SoapRequest{
		Action:         mce.SoapAction(in.Action),
		ObjectType:     in.ObjectType,
		Properties:     in.Properties,
		Filter:         in.Filter,
		Objects:        in.Objects,
		BusinessUnitID: in.BusinessUnitID,
	})
	if err != nil {
		h.metrics.RecordFailure()
		return nil, err
	}

	h.metrics.RecordSuccess()
	return json.Marshal(resp)
}

type buildEmailInput struct {
	Name      string                      `json:"name"`
	Subject   string                      `json:"subject"`
	Preheader string                      `json:"preheader"`
	Slots     map[string][]emailgen.Block `json:"slots"`
}

// BuildEmail assembles an editable email payload. Creation still goes
// through the gated REST path.
func (h *mceHandlers) BuildEmail(ctx context.Context, callerID string, input json.RawMessage) (json.RawMessage, error) {
	var in buildEmailInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}

	payload, err := emailgen.Build(emailgen.Params{
		Name:      in.Name,
		Subject:   in.Subject,
		Preheader: in.Preheader,
		Slots:     in.Slots,
	})
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]any{
		"request_body": payload,
		"next_step": "Validate with mce_v1_validate_request, then create via mce_v1_rest_request " +
			"(POST " + assetCreationPath + ") with a clearance token from mce_v1_preflight_check",
	})
}

type healthInput struct {
	Ping string `json:"ping"`
}

// Health reports liveness and the current usage counters.
func (h *mceHandlers) Health(ctx context.Context, callerID string, input json.RawMessage) (json.RawMessage, error) {
	var in healthInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("parsing input: %w", err)
		}
	}
	if in.Ping == "" {
		in.Ping = "pong"
	}

	return json.Marshal(map[string]any{
		"status":             "ok",
		"ping":               in.Ping,
		"pending_clearances": h.gate.Pending(),
		"metrics":            h.metrics.Snapshot(),
	})
}

// gated reports whether the call requires a consumed clearance token.
func gated(method, path string) bool {
	return strings.EqualFold(method, "POST") && strings.Contains(path, assetCreationPath)
}

// ABOUTME: SOAP envelope construction and response parsing for the MCE legacy API.
// ABOUTME: Supports Create/Retrieve/Update/Delete against fixed body templates.

package mce

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// SoapAction names a supported SOAP operation.
type SoapAction string

const (
	SoapCreate   SoapAction = "Create"
	SoapRetrieve SoapAction = "Retrieve"
	SoapUpdate   SoapAction = "Update"
	SoapDelete   SoapAction = "Delete"
)

// SimpleFilter is the single simple filter supported on Retrieve.
type SimpleFilter struct {
	Property string `json:"property"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// SoapRequest describes a SOAP call against the vendor partner API.
type SoapRequest struct {
	Action         SoapAction
	ObjectType     string
	Properties     []string
	Filter         *SimpleFilter
	Objects        []map[string]any
	BusinessUnitID string
}

// SoapResponse carries the parsed response body tree.
type SoapResponse struct {
	Status int            `json:"status"`
	Body   map[string]any `json:"body"`
}

const (
	soapNamespace    = "http://www.w3.org/2003/05/soap-envelope"
	partnerNamespace = "http://exacttarget.com/wsdl/partnerAPI"
)

// BuildEnvelope serializes the request into the vendor SOAP envelope. The
// bearer token travels in the custom fueloauth header element; no
// WS-Security signing is performed.
func BuildEnvelope(r SoapRequest, accessToken string) (string, error) {
	body, err := buildActionBody(r)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("\n")
	b.WriteString(`<s:Envelope xmlns:s="` + soapNamespace + `" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	b.WriteString("<s:Header>")
	b.WriteString(`<fueloauth xmlns="http://exacttarget.com">` + escapeXML(accessToken) + `</fueloauth>`)
	b.WriteString("</s:Header>")
	b.WriteString("<s:Body>")
	b.WriteString(body)
	b.WriteString("</s:Body>")
	b.WriteString("</s:Envelope>")
	return b.String(), nil
}

// buildActionBody renders the per-action body template.
func buildActionBody(r SoapRequest) (string, error) {
	switch r.Action {
	case SoapRetrieve:
		return buildRetrieveBody(r), nil
	case SoapCreate:
		return buildObjectsBody("CreateRequest", r), nil
	case SoapUpdate:
		return buildObjectsBody("UpdateRequest", r), nil
	case SoapDelete:
		return buildObjectsBody("DeleteRequest", r), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAction, r.Action)
	}
}

func buildRetrieveBody(r SoapRequest) string {
	var b strings.Builder
	b.WriteString(`<RetrieveRequestMsg xmlns="` + partnerNamespace + `">`)
	b.WriteString("<RetrieveRequest>")
	b.WriteString("<ObjectType>" + escapeXML(r.ObjectType) + "</ObjectType>")

	props := r.Properties
	if len(props) == 0 {
		// Vendor convention for "all properties".
		props = []string{"*"}
	}
	for _, p := range props {
		b.WriteString("<Properties>" + escapeXML(p) + "</Properties>")
	}

	if f := r.Filter; f != nil {
		b.WriteString(`<Filter xsi:type="SimpleFilterPart">`)
		b.WriteString("<Property>" + escapeXML(f.Property) + "</Property>")
		b.WriteString("<SimpleOperator>" + escapeXML(f.Operator) + "</SimpleOperator>")
		b.WriteString("<Value>" + escapeXML(f.Value) + "</Value>")
		b.WriteString("</Filter>")
	}

	b.WriteString("</RetrieveRequest>")
	b.WriteString("</RetrieveRequestMsg>")
	return b.String()
}

func buildObjectsBody(element string, r SoapRequest) string {
	var b strings.Builder
	b.WriteString("<" + element + ` xmlns="` + partnerNamespace + `">`)
	for _, obj := range r.Objects {
		b.WriteString(`<Objects xsi:type="` + escapeXML(r.ObjectType) + `">`)
		b.WriteString(serializeObject(obj))
		b.WriteString("</Objects>")
	}
	b.WriteString("</" + element + ">")
	return b.String()
}

// serializeObject renders a flat object (or one level of nesting) as XML
// elements named after its keys. Keys are sorted so envelopes are stable.
// The "fields" key on Data-Extension-like objects expands each entry into
// a Field element with the vendor's sub-element names.
func serializeObject(obj map[string]any) string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := obj[k]
		if k == "fields" {
			b.WriteString(serializeFields(v))
			continue
		}
		b.WriteString(serializeValue(k, v))
	}
	return b.String()
}

func serializeValue(key string, v any) string {
	switch val := v.(type) {
	case map[string]any:
		return "<" + key + ">" + serializeObject(val) + "</" + key + ">"
	case []any:
		var b strings.Builder
		for _, item := range val {
			b.WriteString(serializeValue(key, item))
		}
		return b.String()
	case nil:
		return "<" + key + "/>"
	default:
		return "<" + key + ">" + escapeXML(fmt.Sprintf("%v", val)) + "</" + key + ">"
	}
}

// serializeFields renders the Data Extension fields list.
func serializeFields(v any) string {
	items, ok := v.([]any)
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString("<Fields>")
	for _, item := range items {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		b.WriteString("<Field>")
		writeFieldElem(&b, "Name", field["name"])
		writeFieldElem(&b, "FieldType", field["fieldType"])
		writeFieldElem(&b, "MaxLength", field["maxLength"])
		writeFieldElem(&b, "IsPrimaryKey", field["isPrimaryKey"])
		writeFieldElem(&b, "IsRequired", field["isRequired"])
		b.WriteString("</Field>")
	}
	b.WriteString("</Fields>")
	return b.String()
}

func writeFieldElem(b *strings.Builder, name string, v any) {
	if v == nil {
		return
	}
	b.WriteString("<" + name + ">" + escapeXML(fmt.Sprintf("%v", v)) + "</" + name + ">")
}

func escapeXML(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return ""
	}
	return b.String()
}

// ParseResponse decodes a SOAP response into a generic object tree keyed by
// local element names, and returns the children of the Body element.
// Matching on local names makes the parser indifferent to whichever
// namespace prefix the vendor used for the envelope.
func ParseResponse(raw []byte) (map[string]any, error) {
	tree, err := xmlToTree(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing SOAP response: %w", err)
	}

	envelope, ok := tree["Envelope"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("SOAP response missing Envelope element")
	}
	body, ok := envelope["Body"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("SOAP response missing Body element")
	}
	return body, nil
}

// xmlToTree converts an XML document into nested maps keyed by local
// element names. Text-only elements become strings; repeated siblings
// collapse into a slice.
func xmlToTree(raw []byte) (map[string]any, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(raw)))
	root := make(map[string]any)
	stack := []map[string]any{root}
	var textStack []*strings.Builder

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child := make(map[string]any)
			insertChild(stack[len(stack)-1], t.Name.Local, child)
			stack = append(stack, child)
			textStack = append(textStack, &strings.Builder{})
		case xml.CharData:
			if len(textStack) > 0 {
				textStack[len(textStack)-1].Write(t)
			}
		case xml.EndElement:
			if len(stack) < 2 {
				continue
			}
			child := stack[len(stack)-1]
			text := strings.TrimSpace(textStack[len(textStack)-1].String())
			stack = stack[:len(stack)-1]
			textStack = textStack[:len(textStack)-1]

			// Text-only elements collapse to their string content.
			if len(child) == 0 {
				replaceChild(stack[len(stack)-1], t.Name.Local, text)
			}
		}
	}

	return root, nil
}

// insertChild adds a child under key, promoting duplicates to a slice.
func insertChild(parent map[string]any, key string, child any) {
	existing, ok := parent[key]
	if !ok {
		parent[key] = child
		return
	}
	if list, ok := existing.([]any); ok {
		parent[key] = append(list, child)
		return
	}
	parent[key] = []any{existing, child}
}

// replaceChild swaps the most recently inserted child under key for value.
func replaceChild(parent map[string]any, key string, value any) {
	existing, ok := parent[key]
	if !ok {
		parent[key] = value
		return
	}
	if list, ok := existing.([]any); ok {
		list[len(list)-1] = value
		parent[key] = list
		return
	}
	parent[key] = value
}

// Soap executes the request against {soap_instance_url}Service.asmx with the
// action in the SOAPAction header. Non-200 responses become a SoapFault
// carrying whatever detail could be parsed from the body.
func (c *Client) Soap(ctx context.Context, r SoapRequest) (*SoapResponse, error) {
	token, err := c.GetToken(ctx, r.BusinessUnitID)
	if err != nil {
		return nil, err
	}

	envelope, err := BuildEnvelope(r, token.AccessToken)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(token.SoapBaseURL, "/") + "/Service.asmx"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("creating SOAP request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", string(r.Action))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "SOAP request", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "SOAP request", Err: err}
	}

	c.logger.Debug("MCE SOAP call",
		"action", r.Action,
		"object_type", r.ObjectType,
		"status", resp.StatusCode,
	)

	if resp.StatusCode != http.StatusOK {
		var detail any
		if parsed, perr := ParseResponse(raw); perr == nil {
			detail = parsed
		} else {
			detail = string(raw)
		}
		return nil, &SoapFault{Status: resp.StatusCode, Detail: detail}
	}

	body, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}

	return &SoapResponse{Status: resp.StatusCode, Body: body}, nil
}

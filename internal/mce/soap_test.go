// ABOUTME: Tests for SOAP envelope construction and namespace-tolerant response parsing.
// ABOUTME: Uses canned vendor XML fixtures with both observed prefix conventions.

package mce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEnvelopeRetrieve(t *testing.T) {
	envelope, err := BuildEnvelope(SoapRequest{
		Action:     SoapRetrieve,
		ObjectType: "DataExtension",
		Properties: []string{"Name", "CustomerKey"},
		Filter: &SimpleFilter{
			Property: "Name",
			Operator: "equals",
			Value:    "Subscribers",
		},
	}, "token-abc")
	require.NoError(t, err)

	assert.Contains(t, envelope, `<fueloauth xmlns="http://exacttarget.com">token-abc</fueloauth>`)
	assert.Contains(t, envelope, "<ObjectType>DataExtension</ObjectType>")
	assert.Contains(t, envelope, "<Properties>Name</Properties><Properties>CustomerKey</Properties>")
	assert.Contains(t, envelope, `<Filter xsi:type="SimpleFilterPart">`)
	assert.Contains(t, envelope, "<SimpleOperator>equals</SimpleOperator>")
	assert.Contains(t, envelope, "<Value>Subscribers</Value>")
}

func TestBuildEnvelopeRetrieveDefaultsToAllProperties(t *testing.T) {
	envelope, err := BuildEnvelope(SoapRequest{
		Action:     SoapRetrieve,
		ObjectType: "Subscriber",
	}, "t")
	require.NoError(t, err)
	assert.Contains(t, envelope, "<Properties>*</Properties>")
	assert.NotContains(t, envelope, "<Filter")
}

func TestBuildEnvelopeCreateDataExtensionFields(t *testing.T) {
	envelope, err := BuildEnvelope(SoapRequest{
		Action:     SoapCreate,
		ObjectType: "DataExtension",
		Objects: []map[string]any{{
			"name":        "Newsletter Subscribers",
			"customerKey": "newsletter-subs",
			"fields": []any{
				map[string]any{
					"name":         "EmailAddress",
					"fieldType":    "EmailAddress",
					"maxLength":    254,
					"isPrimaryKey": true,
					"isRequired":   true,
				},
				map[string]any{
					"name":      "FirstName",
					"fieldType": "Text",
					"maxLength": 100,
				},
			},
		}},
	}, "t")
	require.NoError(t, err)

	assert.Contains(t, envelope, `<Objects xsi:type="DataExtension">`)
	assert.Contains(t, envelope, "<customerKey>newsletter-subs</customerKey>")
	assert.Contains(t, envelope, "<Fields><Field><Name>EmailAddress</Name><FieldType>EmailAddress</FieldType><MaxLength>254</MaxLength><IsPrimaryKey>true</IsPrimaryKey><IsRequired>true</IsRequired></Field>")
	assert.Contains(t, envelope, "<Name>FirstName</Name><FieldType>Text</FieldType><MaxLength>100</MaxLength>")
}

func TestBuildEnvelopeUpdateAndDelete(t *testing.T) {
	for _, action := range []SoapAction{SoapUpdate, SoapDelete} {
		envelope, err := BuildEnvelope(SoapRequest{
			Action:     action,
			ObjectType: "Subscriber",
			Objects:    []map[string]any{{"SubscriberKey": "abc"}},
		}, "t")
		require.NoError(t, err)
		assert.Contains(t, envelope, "<"+string(action)+"Request")
		assert.Contains(t, envelope, "<SubscriberKey>abc</SubscriberKey>")
	}
}

func TestBuildEnvelopePerformUnsupported(t *testing.T) {
	_, err := BuildEnvelope(SoapRequest{
		Action:     "Perform",
		ObjectType: "Automation",
	}, "t")
	require.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestBuildEnvelopeEscapesValues(t *testing.T) {
	envelope, err := BuildEnvelope(SoapRequest{
		Action:     SoapCreate,
		ObjectType: "DataExtension",
		Objects:    []map[string]any{{"name": `A <&> "B"`}},
	}, "t")
	require.NoError(t, err)
	assert.Contains(t, envelope, "A &lt;&amp;&gt; &#34;B&#34;")
}

// Two observed namespace-prefix conventions for the same fault body.
const soapFaultPrefixS = `<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope">
  <s:Body>
    <s:Fault>
      <faultcode>s:Client</faultcode>
      <faultstring>Login failed</faultstring>
    </s:Fault>
  </s:Body>
</s:Envelope>`

const soapFaultPrefixSoap = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Client</faultcode>
      <faultstring>Login failed</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

func TestParseResponseNormalizesNamespacePrefixes(t *testing.T) {
	forS, err := ParseResponse([]byte(soapFaultPrefixS))
	require.NoError(t, err)
	forSoap, err := ParseResponse([]byte(soapFaultPrefixSoap))
	require.NoError(t, err)

	assert.Equal(t, forS, forSoap, "both prefix conventions must normalize to the same tree")

	fault, ok := forS["Fault"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Login failed", fault["faultstring"])
}

func TestParseResponseRepeatedElements(t *testing.T) {
	raw := `<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
	<soap:Body>
		<RetrieveResponseMsg>
			<OverallStatus>OK</OverallStatus>
			<Results><Name>DE One</Name></Results>
			<Results><Name>DE Two</Name></Results>
		</RetrieveResponseMsg>
	</soap:Body>
</soap:Envelope>`

	body, err := ParseResponse([]byte(raw))
	require.NoError(t, err)

	msg, ok := body["RetrieveResponseMsg"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "OK", msg["OverallStatus"])

	results, ok := msg["Results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, "DE One", results[0].(map[string]any)["Name"])
	assert.Equal(t, "DE Two", results[1].(map[string]any)["Name"])
}

func TestParseResponseRoundTripsBuiltEnvelope(t *testing.T) {
	envelope, err := BuildEnvelope(SoapRequest{
		Action:     SoapRetrieve,
		ObjectType: "DataExtension",
		Properties: []string{"Name"},
	}, "token-abc")
	require.NoError(t, err)

	body, err := ParseResponse([]byte(envelope))
	require.NoError(t, err)

	msg, ok := body["RetrieveRequestMsg"].(map[string]any)
	require.True(t, ok)
	inner, ok := msg["RetrieveRequest"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "DataExtension", inner["ObjectType"])
}

func TestParseResponseRejectsNonSOAP(t *testing.T) {
	_, err := ParseResponse([]byte("<root><child/></root>"))
	require.Error(t, err)
}

func newSoapFixture(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	soapSrv := httptest.NewServer(handler)
	t.Cleanup(soapSrv.Close)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":      "token-abc",
			"rest_instance_url": soapSrv.URL,
			"soap_instance_url": soapSrv.URL,
			"expires_in":        3600,
		})
	}))
	t.Cleanup(tokenSrv.Close)

	return NewClient(Config{
		Credentials: testCredentials(),
		AuthURL:     tokenSrv.URL,
	})
}

func TestSoapExecutesAgainstServiceEndpoint(t *testing.T) {
	var gotPath, gotAction string
	client := newSoapFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAction = r.Header.Get("SOAPAction")
		w.Write([]byte(`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><RetrieveResponseMsg><OverallStatus>OK</OverallStatus></RetrieveResponseMsg></s:Body></s:Envelope>`))
	})

	resp, err := client.Soap(context.Background(), SoapRequest{
		Action:     SoapRetrieve,
		ObjectType: "DataExtension",
	})
	require.NoError(t, err)

	assert.Equal(t, "/Service.asmx", gotPath)
	assert.Equal(t, "Retrieve", gotAction)
	msg := resp.Body["RetrieveResponseMsg"].(map[string]any)
	assert.Equal(t, "OK", msg["OverallStatus"])
}

func TestSoapFaultOnNon200(t *testing.T) {
	client := newSoapFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(soapFaultPrefixSoap))
	})

	_, err := client.Soap(context.Background(), SoapRequest{
		Action:     SoapRetrieve,
		ObjectType: "DataExtension",
	})

	var fault *SoapFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, http.StatusInternalServerError, fault.Status)

	detail, ok := fault.Detail.(map[string]any)
	require.True(t, ok, "fault detail should be the parsed body")
	_, hasFault := detail["Fault"]
	assert.True(t, hasFault)
}

func TestSoapFaultUnparsableBody(t *testing.T) {
	client := newSoapFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	_, err := client.Soap(context.Background(), SoapRequest{
		Action:     SoapRetrieve,
		ObjectType: "DataExtension",
	})

	var fault *SoapFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "upstream exploded", fault.Detail)
}

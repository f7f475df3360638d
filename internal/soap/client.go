package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultNamespace is the WCF default service namespace.
	DefaultNamespace = "http://tempuri.org/"
	// DefaultContract is the WCF default service contract name.
	DefaultContract = "IService"

	envelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
)

// Arg is one operation parameter, already rendered to its wire text.
type Arg struct {
	Name  string
	Value string
}

// Client posts SOAP 1.1 requests to a single WCF endpoint.
type Client struct {
	Endpoint  string
	Namespace string
	Contract  string
	HTTP      *http.Client
}

func New(endpoint string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		Endpoint:  trimWSDL(endpoint),
		Namespace: DefaultNamespace,
		Contract:  DefaultContract,
		HTTP:      hc,
	}
}

// Fault is a SOAP fault reported by the remote service.
type Fault struct {
	Code       string
	String     string
	StatusCode int
}

func (f *Fault) Error() string {
	if f.Code == "" {
		return fmt.Sprintf("soap fault: %s", f.String)
	}
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

// Call invokes operation with args and returns the text of every child of
// the <operation>Response element keyed by element name.
func (c *Client) Call(ctx context.Context, operation string, args []Arg) (map[string]string, error) {
	body, err := c.encode(operation, args)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+c.action(operation)+`"`)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}

	var env responseEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("%s status=%d body=%s", operation, resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return nil, fmt.Errorf("decode %s response: %w", operation, err)
	}
	if f := env.Body.Fault; f != nil {
		return nil, &Fault{Code: f.Code, String: f.String, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%s status=%d body=%s", operation, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	out := make(map[string]string)
	for _, r := range env.Body.Responses {
		if r.XMLName.Local != operation+"Response" {
			continue
		}
		for _, f := range r.Fields {
			out[f.XMLName.Local] = f.value()
		}
	}
	return out, nil
}

func (c *Client) action(operation string) string {
	ns := c.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	if !strings.HasSuffix(ns, "/") {
		ns += "/"
	}
	contract := c.Contract
	if contract == "" {
		contract = DefaultContract
	}
	return ns + contract + "/" + operation
}

func (c *Client) encode(operation string, args []Arg) ([]byte, error) {
	ns := c.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	env := requestEnvelope{
		SoapNS: envelopeNS,
		Body:   requestBody{Operation: operationElement{name: operation, ns: ns, args: args}},
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// trimWSDL turns a "...Service.svc?wsdl" address into the POST endpoint.
func trimWSDL(endpoint string) string {
	if i := strings.LastIndex(strings.ToLower(endpoint), "?wsdl"); i >= 0 && i == len(endpoint)-len("?wsdl") {
		return endpoint[:i]
	}
	return endpoint
}

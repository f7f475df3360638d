package fidelis

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/alovak/fidelis-loyalty/internal/soap"
	"github.com/shopspring/decimal"
)

// SOAPInvoker calls a Fidelis WCF endpoint over SOAP 1.1.
type SOAPInvoker struct {
	client *soap.Client
}

// NewSOAPInvoker returns an invoker for endpoint, which may be given as the
// service's "?wsdl" address.
func NewSOAPInvoker(endpoint, namespace, contract string, hc *http.Client) *SOAPInvoker {
	c := soap.New(endpoint, hc)
	if namespace != "" {
		c.Namespace = namespace
	}
	if contract != "" {
		c.Contract = contract
	}
	return &SOAPInvoker{client: c}
}

func (s *SOAPInvoker) Invoke(ctx context.Context, operation string, params Params) (Response, error) {
	args := make([]soap.Arg, 0, len(params))
	for _, p := range params {
		v, err := formatValue(p.Value)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", p.Name, err)
		}
		args = append(args, soap.Arg{Name: p.Name, Value: v})
	}

	out, err := s.client.Call(ctx, operation, args)
	if err != nil {
		return nil, err
	}
	return Response(out), nil
}

func formatValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case int:
		return strconv.Itoa(t), nil
	case decimal.Decimal:
		return t.String(), nil
	case bool:
		if t {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

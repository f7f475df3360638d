package fidelis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Operation string
	Params    Params
}

// fakeInvoker records every call and answers with respond.
type fakeInvoker struct {
	mu      sync.Mutex
	calls   []recordedCall
	respond func(op string, params Params) (Response, error)
}

func (f *fakeInvoker) Invoke(_ context.Context, operation string, params Params) (Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Operation: operation, Params: append(Params(nil), params...)})
	f.mu.Unlock()

	if f.respond == nil {
		return Response{}, nil
	}
	return f.respond(operation, params)
}

func (f *fakeInvoker) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

// replyWith answers every operation with payload as its result.
func replyWith(payload string) func(string, Params) (Response, error) {
	return func(op string, _ Params) (Response, error) {
		return Response{op + "Result": payload}, nil
	}
}

// returnCodePayload is a DataSet whose summary row only carries a return code.
func returnCodePayload(code string) string {
	return fmt.Sprintf("<NewDataSet><Table><ReturnCode>%s</ReturnCode></Table></NewDataSet>", code)
}

func dataSet(tables ...string) string {
	return "<NewDataSet>" + strings.Join(tables, "") + "</NewDataSet>"
}

var testIdentity = Identity{ProgramCode: "ACME", VirtualTerminalID: "VT-01"}

func newTestClient(t *testing.T, inv *fakeInvoker, opts ...Option) *Client {
	t.Helper()

	c, err := New(testIdentity, Invokers{General: inv, Loyalty: inv}, opts...)
	require.NoError(t, err)
	return c
}

func paramValue(t *testing.T, p Params, name string) any {
	t.Helper()

	v, ok := p.Get(name)
	require.True(t, ok, "param %s missing from %v", name, p)
	return v
}

func paramNames(p Params) []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

package fidelis

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, inv *fakeInvoker) chi.Router {
	t.Helper()

	r := chi.NewRouter()
	NewAPI(newTestClient(t, inv)).AppendRoutes(r)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAPI_Balance(t *testing.T) {
	inv := &fakeInvoker{respond: replyWith(dataSet("<Table><Column1>0</Column1><Column2>42.50</Column2></Table>"))}
	r := newTestRouter(t, inv)

	w := serve(r, http.MethodGet, "/cards/1234567890123456/balance", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"balance":"42.5"}`, w.Body.String())

	t.Run("invalid card", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/cards/12ab/balance", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, string(CategoryInvalidRequest), decodeError(t, w).Category)
	})
}

func TestAPI_VIP(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		inv := &fakeInvoker{respond: replyWith(returnCodePayload("3"))}
		w := serve(newTestRouter(t, inv), http.MethodGet, "/cards/1234567890123456/vip", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"status":3}`, w.Body.String())
	})

	t.Run("set", func(t *testing.T) {
		inv := &fakeInvoker{respond: replyWith(returnCodePayload("1"))}
		w := serve(newTestRouter(t, inv), http.MethodPut, "/cards/1234567890123456/vip", `{"status":2}`)
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, 2, paramValue(t, inv.Calls()[0].Params, "NewVIPStatus"))
	})

	t.Run("set requires status", func(t *testing.T) {
		inv := &fakeInvoker{}
		w := serve(newTestRouter(t, inv), http.MethodPut, "/cards/1234567890123456/vip", `{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Empty(t, inv.Calls())
	})

	t.Run("vendor error", func(t *testing.T) {
		inv := &fakeInvoker{respond: replyWith(returnCodePayload("99"))}
		w := serve(newTestRouter(t, inv), http.MethodGet, "/cards/1234567890123456/vip", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		require.Equal(t, "vendor-rejection", body.Kind)
		require.Equal(t, string(CategoryInvalidCard), body.Category)
	})
}

func TestAPI_Redemption(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		inv := &fakeInvoker{respond: replyWith(returnCodePayload("000"))}
		w := serve(newTestRouter(t, inv), http.MethodPost, "/redemptions", `{"card_number":"1234 5678 9012 3456","amount":"12.50","force":true}`)
		require.Equal(t, http.StatusCreated, w.Code)

		p := inv.Calls()[0].Params
		require.Equal(t, "1234567890123456", paramValue(t, p, "cardNumber"))
		require.Equal(t, 1, paramValue(t, p, "ForceTransaction"))
	})

	t.Run("insufficient points", func(t *testing.T) {
		inv := &fakeInvoker{respond: replyWith(returnCodePayload("051"))}
		w := serve(newTestRouter(t, inv), http.MethodPost, "/redemptions", `{"card_number":"1234567890123456","amount":100}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Equal(t, string(CategoryInsufficientPoints), decodeError(t, w).Category)
	})

	t.Run("validation", func(t *testing.T) {
		inv := &fakeInvoker{}
		r := newTestRouter(t, inv)

		for _, body := range []string{
			`{"amount":"1"}`,
			`{"card_number":"abc","amount":"1"}`,
			`{"card_number":"1234567890123456","amount":"0"}`,
			`{"card_number":"1234567890123456","amount":"-5"}`,
			`not json`,
		} {
			w := serve(r, http.MethodPost, "/redemptions", body)
			require.Equal(t, http.StatusBadRequest, w.Code, body)
		}
		require.Empty(t, inv.Calls())
	})
}

func TestAPI_Purchase(t *testing.T) {
	inv := &fakeInvoker{respond: replyWith(returnCodePayload("000"))}
	w := serve(newTestRouter(t, inv), http.MethodPost, "/purchases", `{"card_number":"1234567890123456","amount":"20","expires_in_days":30}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, 30, paramValue(t, inv.Calls()[0].Params, "CardExpiresIn"))

	t.Run("transport fault", func(t *testing.T) {
		inv := &fakeInvoker{respond: func(string, Params) (Response, error) { return nil, http.ErrHandlerTimeout }}
		w := serve(newTestRouter(t, inv), http.MethodPost, "/purchases", `{"card_number":"1234567890123456","amount":"20"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "transport-fault", decodeError(t, w).Kind)
	})
}

func TestAPI_Cardholders(t *testing.T) {
	payload := dataSet("<Table><Email>ana@example.com</Email></Table>")

	t.Run("by email", func(t *testing.T) {
		inv := &fakeInvoker{respond: replyWith(payload)}
		w := serve(newTestRouter(t, inv), http.MethodGet, "/cardholders?email=ana@example.com", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `[{"Email":"ana@example.com"}]`, w.Body.String())
	})

	t.Run("bad email", func(t *testing.T) {
		w := serve(newTestRouter(t, &fakeInvoker{}), http.MethodGet, "/cardholders?email=nope", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("by card not found", func(t *testing.T) {
		inv := &fakeInvoker{respond: replyWith(dataSet())}
		w := serve(newTestRouter(t, inv), http.MethodGet, "/cards/1234567890123456/cardholder", "")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("expiring", func(t *testing.T) {
		inv := &fakeInvoker{respond: replyWith(dataSet("<Table><ReturnCode>0</ReturnCode><Points>5</Points></Table>"))}
		w := serve(newTestRouter(t, inv), http.MethodGet, "/cardholders/expiring?email=ana@example.com&year=2024&month=2", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "2024-02-29", paramValue(t, inv.Calls()[0].Params, "DateToExpireTo"))
	})

	t.Run("expiring bad month", func(t *testing.T) {
		inv := &fakeInvoker{}
		w := serve(newTestRouter(t, inv), http.MethodGet, "/cardholders/expiring?email=ana@example.com&year=2024&month=13", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Empty(t, inv.Calls())
	})
}

func TestAPI_Transactions(t *testing.T) {
	t.Run("all pages", func(t *testing.T) {
		inv := pagedInvoker(transactionPage(2, 1), transactionPage(2, 2))
		w := serve(newTestRouter(t, inv), http.MethodGet, "/transactions?from=2024-01-01T00:00:00Z", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `[{"TransID":"1"},{"TransID":"2"}]`, w.Body.String())
	})

	t.Run("single page", func(t *testing.T) {
		inv := pagedInvoker(transactionPage(2, 1), transactionPage(2, 2))
		w := serve(newTestRouter(t, inv), http.MethodGet, "/transactions?page=2", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"page":2,"page_count":2,"rows":[{"TransID":"2"}]}`, w.Body.String())
	})

	t.Run("bad date", func(t *testing.T) {
		w := serve(newTestRouter(t, &fakeInvoker{}), http.MethodGet, "/transactions?to=yesterday", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed vendor payload", func(t *testing.T) {
		inv := &fakeInvoker{respond: replyWith("<NewDataSet>")}
		w := serve(newTestRouter(t, inv), http.MethodGet, "/balances", "")
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, "malformed-envelope", decodeError(t, w).Kind)
	})
}

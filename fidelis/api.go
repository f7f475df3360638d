package fidelis

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/alovak/fidelis-loyalty/fidelis/models"
	"github.com/alovak/fidelis-loyalty/internal/cardnum"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// API is a HTTP API over the Fidelis client
type API struct {
	client   *Client
	validate *validator.Validate
}

func NewAPI(client *Client) *API {
	v := validator.New()
	// Registering a fixed tag with a non-nil func cannot fail.
	_ = v.RegisterValidation("cardnumber", func(fl validator.FieldLevel) bool {
		return cardnum.Validate(cardnum.Normalize(fl.Field().String())) == nil
	})

	return &API{
		client:   client,
		validate: v,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/cards/{card}", func(r chi.Router) {
		r.Get("/balance", a.getBalance)
		r.Get("/vip", a.getVIPStatus)
		r.Put("/vip", a.setVIPStatus)
		r.Get("/cardholder", a.getCardholderByCard)
	})
	r.Get("/cardholders", a.getCardholderByEmail)
	r.Get("/cardholders/expiring", a.getPointsExpiring)
	r.Get("/balances", a.getBalances)
	r.Get("/transactions", a.getTransactions)
	r.Post("/purchases", a.createPurchase)
	r.Post("/redemptions", a.createRedemption)
}

type transactionBody struct {
	CardNumber    string          `json:"card_number" validate:"required,cardnumber"`
	Amount        decimal.Decimal `json:"amount"`
	ExpiresInDays *int            `json:"expires_in_days,omitempty" validate:"omitempty,min=0"`
	Force         bool            `json:"force,omitempty"`
}

type vipBody struct {
	Status *int `json:"status" validate:"required,min=0"`
}

type errorBody struct {
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (a *API) getBalance(w http.ResponseWriter, r *http.Request) {
	card, ok := a.cardParam(w, r)
	if !ok {
		return
	}

	balance, err := a.client.CardBalance(r.Context(), card)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Balance decimal.Decimal `json:"balance"`
	}{balance})
}

func (a *API) getVIPStatus(w http.ResponseWriter, r *http.Request) {
	card, ok := a.cardParam(w, r)
	if !ok {
		return
	}

	status, err := a.client.VIPStatus(r.Context(), card)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Status int `json:"status"`
	}{status})
}

func (a *API) setVIPStatus(w http.ResponseWriter, r *http.Request) {
	card, ok := a.cardParam(w, r)
	if !ok {
		return
	}

	var body vipBody
	if !a.decode(w, r, &body) {
		return
	}

	if err := a.client.SetVIPStatus(r.Context(), card, *body.Status); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) getCardholderByCard(w http.ResponseWriter, r *http.Request) {
	card, ok := a.cardParam(w, r)
	if !ok {
		return
	}

	rows, err := a.client.CardholderByCardNumber(r.Context(), card)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(rows) == 0 {
		writeJSON(w, http.StatusNotFound, errorBody{Kind: "not-found", Message: "cardholder not found"})
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (a *API) getCardholderByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if err := a.validate.Var(email, "required,email"); err != nil {
		writeInvalid(w, http.StatusBadRequest, "email: a valid address is required")
		return
	}

	rows, err := a.client.CardholderByEmail(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (a *API) getPointsExpiring(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	email := q.Get("email")
	if err := a.validate.Var(email, "required,email"); err != nil {
		writeInvalid(w, http.StatusBadRequest, "email: a valid address is required")
		return
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil || year < 1 {
		writeInvalid(w, http.StatusBadRequest, "year: a positive integer is required")
		return
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeInvalid(w, http.StatusBadRequest, "month: must be 1..12")
		return
	}

	rows, err := a.client.PointsExpiringByEmail(r.Context(), email, year, time.Month(month))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (a *API) getBalances(w http.ResponseWriter, r *http.Request) {
	since, err := timeParam(r, "since")
	if err != nil {
		writeInvalid(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := a.client.CardBalances(r.Context(), since)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// getTransactions returns a single page when ?page is given and every page
// otherwise.
func (a *API) getTransactions(w http.ResponseWriter, r *http.Request) {
	var dr models.DateRange
	var err error
	if dr.From, err = timeParam(r, "from"); err != nil {
		writeInvalid(w, http.StatusBadRequest, err.Error())
		return
	}
	if dr.To, err = timeParam(r, "to"); err != nil {
		writeInvalid(w, http.StatusBadRequest, err.Error())
		return
	}

	if p := r.URL.Query().Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			writeInvalid(w, http.StatusBadRequest, "page: a positive integer is required")
			return
		}
		result, err := a.client.TransactionsPage(r.Context(), dr, page)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	rows, err := a.client.Transactions(r.Context(), dr)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (a *API) createPurchase(w http.ResponseWriter, r *http.Request) {
	req, ok := a.transactionRequest(w, r)
	if !ok {
		return
	}

	if err := a.client.CreatePurchase(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (a *API) createRedemption(w http.ResponseWriter, r *http.Request) {
	req, ok := a.transactionRequest(w, r)
	if !ok {
		return
	}

	if err := a.client.CreateRedemption(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (a *API) transactionRequest(w http.ResponseWriter, r *http.Request) (models.TransactionRequest, bool) {
	var body transactionBody
	if !a.decode(w, r, &body) {
		return models.TransactionRequest{}, false
	}
	if !body.Amount.IsPositive() {
		writeInvalid(w, http.StatusBadRequest, "amount: must be positive")
		return models.TransactionRequest{}, false
	}

	return models.TransactionRequest{
		CardNumber:    body.CardNumber,
		Amount:        body.Amount,
		ExpiresInDays: body.ExpiresInDays,
		Force:         body.Force,
	}, true
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeInvalid(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeInvalid(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func (a *API) cardParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	card := cardnum.Normalize(chi.URLParam(r, "card"))
	if err := cardnum.Validate(card); err != nil {
		writeInvalid(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return card, true
}

func timeParam(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%s: expected RFC 3339 time", name)
	}
	return &t, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("%s: failed %q validation", fe.Field(), fe.Tag())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeInvalid(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Kind: "invalid-request", Category: string(CategoryInvalidRequest), Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	f, ok := AsFailure(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Kind: "internal", Message: err.Error()})
		return
	}
	writeJSON(w, f.HTTPStatus(), errorBody{
		Kind:     f.Kind.String(),
		Category: string(f.Category),
		Message:  f.Message,
	})
}

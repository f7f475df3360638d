package fidelis

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alovak/fidelis-loyalty/fidelis/models"
	"github.com/alovak/fidelis-loyalty/internal/cardnum"
	"github.com/alovak/fidelis-loyalty/internal/civiltime"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"
)

// Identity is the programme code (sent as WCF) and the virtual terminal ID
// emulating an EFTPOS terminal.
type Identity struct {
	ProgramCode       string
	VirtualTerminalID string
}

// Response holds the result fields of a remote call keyed by field name;
// Fidelis puts the payload of operation X in "XResult".
type Response map[string]string

// Invoker performs one remote operation.
type Invoker interface {
	Invoke(ctx context.Context, operation string, params Params) (Response, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, operation string, params Params) (Response, error)

func (f InvokerFunc) Invoke(ctx context.Context, operation string, params Params) (Response, error) {
	return f(ctx, operation, params)
}

// Invokers holds one invoker per Fidelis endpoint.
type Invokers struct {
	General Invoker
	Loyalty Invoker
}

func (i Invokers) For(s Service) (Invoker, error) {
	var inv Invoker
	switch s {
	case ServiceGeneral:
		inv = i.General
	case ServiceLoyalty:
		inv = i.Loyalty
	}
	if inv == nil {
		return nil, fmt.Errorf("no invoker configured for %s service", s)
	}
	return inv, nil
}

const defaultMaxPages = 1000

// Client is the Fidelis loyalty client. It keeps no per-call state and is
// safe for concurrent use.
type Client struct {
	invokers Invokers
	build    builder
	logger   *slog.Logger
	maxPages int
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLocation sets the civil zone dates are sent in (default Pacific/Auckland).
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.build.loc = loc
		}
	}
}

// WithMaxPages bounds how many pages Transactions will fetch.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

func New(id Identity, invokers Invokers, opts ...Option) (*Client, error) {
	if id.ProgramCode == "" {
		return nil, fmt.Errorf("program code (WCF) is required")
	}
	if id.VirtualTerminalID == "" {
		return nil, fmt.Errorf("virtual terminal ID is required")
	}
	if invokers.General == nil {
		return nil, fmt.Errorf("general service invoker is required")
	}

	loc, err := civiltime.LoadLocation(civiltime.DefaultZone)
	if err != nil {
		return nil, err
	}

	c := &Client{
		invokers: invokers,
		build:    builder{id: id, loc: loc},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxPages: defaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TransactionsPage returns one page of the programme's transactions. Pages
// start at 1; smaller values are treated as 1.
func (c *Client) TransactionsPage(ctx context.Context, r models.DateRange, page int) (*models.TransactionPage, error) {
	if page < 1 {
		page = 1
	}
	op := opTransactionsPage
	env, raw, err := c.call(ctx, op, c.build.transactionsPage(r, page))
	if err != nil {
		return nil, err
	}
	count, err := pageCount(op.Name, env, raw)
	if err != nil {
		return nil, c.report(err)
	}
	return &models.TransactionPage{
		Page:      page,
		PageCount: count,
		Rows:      rowsOrEmpty(env.Rows(TablePrimary)),
	}, nil
}

// CreatePurchase loads points onto a card for a purchase of req.Amount dollars.
func (c *Client) CreatePurchase(ctx context.Context, req models.TransactionRequest) error {
	op := opPurchase
	env, raw, err := c.call(ctx, op, c.build.purchase(req))
	if err != nil {
		return err
	}
	code, err := returnCode(op.Name, env, raw)
	if err != nil {
		return c.report(err)
	}
	return c.report(purchaseCodes.interpret(op.Name, code, raw))
}

// CreateRedemption redeems req.Amount dollars of points from a card.
func (c *Client) CreateRedemption(ctx context.Context, req models.TransactionRequest) error {
	op := opRedemption
	env, raw, err := c.call(ctx, op, c.build.redemption(req))
	if err != nil {
		return err
	}
	code, err := returnCode(op.Name, env, raw)
	if err != nil {
		return c.report(err)
	}
	return c.report(redemptionCodes.interpret(op.Name, code, raw, cardnum.Normalize(req.CardNumber)))
}

// CardBalance returns the points balance of a card.
func (c *Client) CardBalance(ctx context.Context, cardNumber string) (decimal.Decimal, error) {
	op := opCardBalance
	env, raw, err := c.call(ctx, op, c.build.cardBalance(cardNumber))
	if err != nil {
		return decimal.Zero, err
	}
	summary, ok := env.Summary()
	if !ok {
		return decimal.Zero, c.report(unknownResponse(op.Name, "", raw, "response has no balance row"))
	}
	// Column1 is a status the vendor never documents; only Column2 is read.
	v, ok := summary.Get("Column2")
	if !ok {
		return decimal.Zero, c.report(unknownResponse(op.Name, "", raw, "balance row has no Column2"))
	}
	balance, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, c.report(unknownResponse(op.Name, "", raw, fmt.Sprintf("invalid balance %q", v)))
	}
	return balance, nil
}

// CardBalances returns the balance rows of every cardholder, optionally only
// those changed since a point in time.
func (c *Client) CardBalances(ctx context.Context, since *time.Time) ([]models.Record, error) {
	env, _, err := c.call(ctx, opCardBalances, c.build.cardBalances(since))
	if err != nil {
		return nil, err
	}
	return rowsOrEmpty(env.Rows(TableSummary)), nil
}

// CardholderByCardNumber returns the cardholder rows for a card; no rows
// means no cardholder.
func (c *Client) CardholderByCardNumber(ctx context.Context, cardNumber string) ([]models.Record, error) {
	env, _, err := c.call(ctx, opCardholder, c.build.cardholderByCardNumber(cardNumber))
	if err != nil {
		return nil, err
	}
	return rowsOrEmpty(env.Rows(TableSummary)), nil
}

// CardholderByEmail returns the cardholder rows registered under email.
func (c *Client) CardholderByEmail(ctx context.Context, email string) ([]models.Record, error) {
	env, _, err := c.call(ctx, opCardholder, c.build.cardholderByEmail(email))
	if err != nil {
		return nil, err
	}
	return rowsOrEmpty(env.Rows(TableSummary)), nil
}

// VIPStatus returns the VIP tier of a card.
func (c *Client) VIPStatus(ctx context.Context, cardNumber string) (int, error) {
	op := opGetVIPStatus
	env, raw, err := c.call(ctx, op, c.build.vipStatus(cardNumber))
	if err != nil {
		return 0, err
	}
	code, err := intReturnCode(op.Name, env, raw)
	if err != nil {
		return 0, c.report(err)
	}
	status, err := vipStatus(op.Name, code, raw)
	if err != nil {
		return 0, c.report(err)
	}
	return status, nil
}

// SetVIPStatus changes the VIP tier of a card.
func (c *Client) SetVIPStatus(ctx context.Context, cardNumber string, status int) error {
	op := opSetVIPStatus
	env, raw, err := c.call(ctx, op, c.build.setVIPStatus(cardNumber, status))
	if err != nil {
		return err
	}
	code, err := intReturnCode(op.Name, env, raw)
	if err != nil {
		return c.report(err)
	}
	return c.report(setVIPStatusCodes.interpret(op.Name, code, raw))
}

// PointsExpiringByEmail returns the rows of points that expire on or before
// the last day of year/month for the cardholder registered under email.
func (c *Client) PointsExpiringByEmail(ctx context.Context, email string, year int, month time.Month) ([]models.Record, error) {
	op := opPointsExpiring
	params, err := c.build.pointsExpiring(email, year, month)
	if err != nil {
		return nil, err
	}
	env, raw, err := c.call(ctx, op, params)
	if err != nil {
		return nil, err
	}
	code, err := intReturnCode(op.Name, env, raw)
	if err != nil {
		return nil, c.report(err)
	}
	if err := pointsExpiringCodes.interpret(op.Name, code, raw); err != nil {
		return nil, c.report(err)
	}
	return rowsOrEmpty(env.Rows(TableSummary)), nil
}

// call performs one round trip and parses the result payload.
func (c *Client) call(ctx context.Context, op operation, params Params) (Envelope, string, error) {
	inv, err := c.invokers.For(op.Service)
	if err != nil {
		return nil, "", err
	}

	logger := c.logger.With(
		slog.String("operation", op.Name),
		slog.String("call_id", uuid.NewString()),
	)

	start := time.Now()
	resp, err := inv.Invoke(ctx, op.Name, params)
	if err != nil {
		logger.Error("fidelis call failed", slog.Duration("duration", time.Since(start)), slog.Any("err", err))
		return nil, "", transportFault(op.Name, err)
	}
	logger.Debug("fidelis call completed", slog.Duration("duration", time.Since(start)))

	raw := resp[op.Name+"Result"]
	env, err := ParseEnvelope(raw)
	if err != nil {
		f := malformedEnvelope(op.Name, raw, err)
		logger.Warn("malformed fidelis response", slog.Any("err", err), slog.String("raw", raw))
		return nil, raw, f
	}
	return env, raw, nil
}

// report logs a failure according to its kind and returns it unchanged.
func (c *Client) report(err error) error {
	f, ok := AsFailure(err)
	if !ok {
		return err
	}
	switch f.Kind {
	case KindVendorRejection:
		c.logger.Info("fidelis rejected request",
			slog.String("operation", f.Operation),
			slog.String("category", string(f.Category)),
			slog.String("code", f.Code))
	case KindUnknownResponse:
		c.logger.Warn("unknown fidelis response",
			slog.String("operation", f.Operation),
			slog.String("code", f.Code),
			slog.String("message", f.Message),
			slog.String("raw", f.Raw))
	}
	return err
}

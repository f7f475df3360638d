package fidelis

import (
	"fmt"
	"time"

	"github.com/alovak/fidelis-loyalty/fidelis/models"
	"github.com/alovak/fidelis-loyalty/internal/cardnum"
	"github.com/alovak/fidelis-loyalty/internal/civiltime"
)

// Service selects which Fidelis endpoint serves an operation.
type Service int

const (
	ServiceGeneral Service = iota
	ServiceLoyalty
)

func (s Service) String() string {
	switch s {
	case ServiceGeneral:
		return "general"
	case ServiceLoyalty:
		return "loyalty"
	default:
		return fmt.Sprintf("service(%d)", int(s))
	}
}

const (
	identityKey           = "WCF"
	redemptionIdentityKey = "ClientCode"

	redemptionProcessingCode = "13000"
)

// operation describes one remote call: its name, the endpoint serving it and
// the parameter name the programme code travels under.
type operation struct {
	Name        string
	Service     Service
	IdentityKey string
}

var (
	opTransactionsPage = operation{"ReturnTransactionsGeneral_PHP", ServiceGeneral, identityKey}
	opPurchase         = operation{"LoadCardholderExpiryByDays_PHP", ServiceGeneral, identityKey}
	opRedemption       = operation{"CreateTransactionWeb_PHP", ServiceGeneral, redemptionIdentityKey}
	opCardBalance      = operation{"CheckCardholderBalance_Email_PHP", ServiceGeneral, identityKey}
	opCardBalances     = operation{"ReturnAllCardholderBalancesFromDate_PHP", ServiceGeneral, identityKey}
	// The vendor serves lookups by card number and by email from the same call.
	opCardholder     = operation{"ReturnCardholderDetailsFromEmail_PHP", ServiceGeneral, identityKey}
	opGetVIPStatus   = operation{"GETVIPStatus_PHP", ServiceGeneral, identityKey}
	opSetVIPStatus   = operation{"SETVIPStatus_PHP", ServiceGeneral, identityKey}
	opPointsExpiring = operation{"CheckCardholderNextExpired", ServiceGeneral, identityKey}
)

// Param is one named request value: a string, an int or a decimal.Decimal.
type Param struct {
	Name  string
	Value any
}

// Params is an ordered set of request values.
type Params []Param

func (p Params) Get(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of name in place, or appends it.
func (p *Params) Set(name string, value any) {
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Name: name, Value: value})
}

// builder turns typed inputs into request parameters. It does not check
// business rules; Fidelis reports those through return codes.
type builder struct {
	id  Identity
	loc *time.Location
}

func (b builder) identify(op operation, p Params) Params {
	p.Set(op.IdentityKey, b.id.ProgramCode)
	return p
}

func (b builder) transactionsPage(r models.DateRange, page int) Params {
	p := Params{
		{"topTen", 0},
		{"pg", page},
	}
	if r.From != nil {
		p.Set("dateRangeFrom", civiltime.DateTime(*r.From, b.loc))
	}
	if r.To != nil {
		p.Set("dateRangeTo", civiltime.DateTime(*r.To, b.loc))
	}
	return b.identify(opTransactionsPage, p)
}

func (b builder) purchase(req models.TransactionRequest) Params {
	p := Params{
		{"cardNumber", cardnum.Normalize(req.CardNumber)},
		{"Amount", req.Amount},
	}
	if req.ExpiresInDays != nil {
		p.Set("CardExpiresIn", *req.ExpiresInDays)
	}
	p.Set("TerminalID", b.id.VirtualTerminalID)
	return b.identify(opPurchase, p)
}

func (b builder) redemption(req models.TransactionRequest) Params {
	force := 0
	if req.Force {
		force = 1
	}
	p := Params{
		{"cardNumber", cardnum.Normalize(req.CardNumber)},
		{"Amount", req.Amount},
		{"ProcessingCode", redemptionProcessingCode},
		{"TerminalID", b.id.VirtualTerminalID},
		{"ForceTransaction", force},
	}
	return b.identify(opRedemption, p)
}

func (b builder) cardBalance(cardNumber string) Params {
	return b.identify(opCardBalance, Params{{"cardNumber", cardnum.Normalize(cardNumber)}})
}

func (b builder) cardBalances(since *time.Time) Params {
	p := Params{}
	if since != nil {
		p.Set("FromDate", civiltime.W3C(*since, b.loc))
	}
	return b.identify(opCardBalances, p)
}

func (b builder) cardholderByCardNumber(cardNumber string) Params {
	return b.identify(opCardholder, Params{{"cardNumber", cardnum.Normalize(cardNumber)}})
}

func (b builder) cardholderByEmail(email string) Params {
	return b.identify(opCardholder, Params{{"Cardholderemail", email}})
}

func (b builder) vipStatus(cardNumber string) Params {
	return b.identify(opGetVIPStatus, Params{{"CardNumber", cardnum.Normalize(cardNumber)}})
}

func (b builder) setVIPStatus(cardNumber string, status int) Params {
	return b.identify(opSetVIPStatus, Params{
		{"CardNumber", cardnum.Normalize(cardNumber)},
		{"NewVIPStatus", status},
	})
}

// pointsExpiring asks for points expiring up to the last day of year/month.
func (b builder) pointsExpiring(email string, year int, month time.Month) (Params, error) {
	end, err := civiltime.EndOfMonth(year, month, b.loc)
	if err != nil {
		return nil, err
	}
	return b.identify(opPointsExpiring, Params{
		{"Email", email},
		{"DateToExpireTo", civiltime.Date(end, b.loc)},
	}), nil
}

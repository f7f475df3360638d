package fidelis

import (
	"testing"
	"time"

	"github.com/alovak/fidelis-loyalty/fidelis/models"
	"github.com/alovak/fidelis-loyalty/internal/civiltime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testBuilder(t *testing.T) builder {
	t.Helper()

	loc, err := civiltime.LoadLocation(civiltime.DefaultZone)
	require.NoError(t, err)
	return builder{id: testIdentity, loc: loc}
}

func TestBuilder_IdentityKey(t *testing.T) {
	b := testBuilder(t)
	req := models.TransactionRequest{CardNumber: "1234 5678 9012 3456", Amount: decimal.RequireFromString("10.50")}

	cases := map[string]Params{
		"transactions":  b.transactionsPage(models.DateRange{}, 1),
		"purchase":      b.purchase(req),
		"card balance":  b.cardBalance("1234567890123456"),
		"card balances": b.cardBalances(nil),
		"cardholder":    b.cardholderByEmail("ana@example.com"),
		"vip":           b.vipStatus("1234567890123456"),
		"set vip":       b.setVIPStatus("1234567890123456", 2),
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, "ACME", paramValue(t, p, "WCF"))
			require.Equal(t, "WCF", p[len(p)-1].Name)
			_, ok := p.Get("ClientCode")
			require.False(t, ok)
		})
	}

	t.Run("redemption", func(t *testing.T) {
		p := b.redemption(req)
		require.Equal(t, "ACME", paramValue(t, p, "ClientCode"))
		_, ok := p.Get("WCF")
		require.False(t, ok)
	})
}

func TestBuilder_Purchase(t *testing.T) {
	b := testBuilder(t)

	p := b.purchase(models.TransactionRequest{
		CardNumber: "1234-5678-9012-3456",
		Amount:     decimal.RequireFromString("25.00"),
	})
	require.Equal(t, []string{"cardNumber", "Amount", "TerminalID", "WCF"}, paramNames(p))
	require.Equal(t, "1234567890123456", paramValue(t, p, "cardNumber"))
	require.Equal(t, "VT-01", paramValue(t, p, "TerminalID"))
	require.True(t, decimal.RequireFromString("25").Equal(paramValue(t, p, "Amount").(decimal.Decimal)))

	days := 90
	p = b.purchase(models.TransactionRequest{CardNumber: "1", Amount: decimal.NewFromInt(1), ExpiresInDays: &days})
	require.Equal(t, 90, paramValue(t, p, "CardExpiresIn"))
}

func TestBuilder_RedemptionForceFlag(t *testing.T) {
	b := testBuilder(t)
	req := models.TransactionRequest{CardNumber: "1234567890123456", Amount: decimal.NewFromInt(5)}

	p := b.redemption(req)
	require.Equal(t, 0, paramValue(t, p, "ForceTransaction"))
	require.Equal(t, "13000", paramValue(t, p, "ProcessingCode"))
	require.Equal(t, "VT-01", paramValue(t, p, "TerminalID"))

	req.Force = true
	p = b.redemption(req)
	require.Equal(t, 1, paramValue(t, p, "ForceTransaction"))
}

func TestBuilder_TransactionsPageDates(t *testing.T) {
	b := testBuilder(t)

	p := b.transactionsPage(models.DateRange{}, 3)
	require.Equal(t, []string{"topTen", "pg", "WCF"}, paramNames(p))
	require.Equal(t, 0, paramValue(t, p, "topTen"))
	require.Equal(t, 3, paramValue(t, p, "pg"))

	// Auckland is UTC+13 in January.
	from := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	to := time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC)
	p = b.transactionsPage(models.DateRange{From: &from, To: &to}, 1)
	require.Equal(t, "2024-02-01 12:30:00", paramValue(t, p, "dateRangeFrom"))
	require.Equal(t, "2024-02-29 23:00:00", paramValue(t, p, "dateRangeTo"))
}

func TestBuilder_CardBalancesSince(t *testing.T) {
	b := testBuilder(t)

	p := b.cardBalances(nil)
	_, ok := p.Get("FromDate")
	require.False(t, ok)

	// Auckland is UTC+12 in June.
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p = b.cardBalances(&since)
	require.Equal(t, "2024-06-01T12:00:00+12:00", paramValue(t, p, "FromDate"))
}

func TestBuilder_Cardholder(t *testing.T) {
	b := testBuilder(t)

	p := b.cardholderByCardNumber(" 1234 5678 ")
	require.Equal(t, "12345678", paramValue(t, p, "cardNumber"))

	p = b.cardholderByEmail("ana@example.com")
	require.Equal(t, "ana@example.com", paramValue(t, p, "Cardholderemail"))
}

func TestBuilder_VIP(t *testing.T) {
	b := testBuilder(t)

	p := b.setVIPStatus("1234567890123456", 4)
	require.Equal(t, []string{"CardNumber", "NewVIPStatus", "WCF"}, paramNames(p))
	require.Equal(t, 4, paramValue(t, p, "NewVIPStatus"))
}

func TestBuilder_PointsExpiring(t *testing.T) {
	b := testBuilder(t)

	p, err := b.pointsExpiring("ana@example.com", 2024, time.February)
	require.NoError(t, err)
	require.Equal(t, "2024-02-29", paramValue(t, p, "DateToExpireTo"))
	require.Equal(t, "ana@example.com", paramValue(t, p, "Email"))

	p, err = b.pointsExpiring("ana@example.com", 2023, time.December)
	require.NoError(t, err)
	require.Equal(t, "2023-12-31", paramValue(t, p, "DateToExpireTo"))

	_, err = b.pointsExpiring("ana@example.com", 2024, 13)
	require.Error(t, err)
}

func TestParams_Set(t *testing.T) {
	p := Params{{"a", 1}}
	p.Set("b", "x")
	p.Set("a", 2)

	require.Equal(t, Params{{"a", 2}, {"b", "x"}}, p)
}

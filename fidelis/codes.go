package fidelis

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/alovak/fidelis-loyalty/fidelis/models"
)

// outcome is what a single vendor return code means.
type outcome struct {
	ok       bool
	category Category
	message  string
	// formatted messages take the card number as their only argument.
	formatted bool
	status    int
}

var success = outcome{ok: true}

func reject(c Category, message string, status int) outcome {
	return outcome{category: c, message: message, status: status}
}

func rejectf(c Category, format string, status int) outcome {
	return outcome{category: c, message: format, formatted: true, status: status}
}

// codeTable maps every documented return code of one operation. Codes that
// are not in the table are unknown vendor responses.
type codeTable[K comparable] map[K]outcome

func (t codeTable[K]) interpret(op string, code K, raw string, args ...any) error {
	o, ok := t[code]
	if !ok {
		return unknownResponse(op, fmt.Sprint(code), raw, "unknown error")
	}
	if o.ok {
		return nil
	}
	msg := o.message
	if o.formatted {
		msg = fmt.Sprintf(o.message, args...)
	}
	return &Failure{
		Kind:      KindVendorRejection,
		Category:  o.category,
		Message:   msg,
		Operation: op,
		Code:      fmt.Sprint(code),
		Raw:       raw,
		Status:    o.status,
	}
}

var purchaseCodes = codeTable[string]{
	"000": success,
	"001": reject(CategoryInvalidIdentity, "Invalid WCF", http.StatusBadRequest),
	"002": reject(CategoryInvalidCard, "Invalid Card Number", http.StatusBadRequest),
	"009": reject(CategoryVendorInternalError, "Web service error", http.StatusInternalServerError),
}

var redemptionCodes = codeTable[string]{
	"000": success,
	"012": reject(CategoryInvalidTransaction, "Invalid transaction", 0),
	"054": reject(CategoryCardExpired, "Card expired", 0),
	"031": reject(CategoryWrongMerchant, "Wrong merchant", 0),
	"041": reject(CategoryAlreadyLoaded, "Already loaded", 0),
	"039": reject(CategoryIncorrectCardType, "Incorrect card type", 0),
	"060": rejectf(CategoryTransactionTypeNotAllowed, `Transaction type "`+redemptionProcessingCode+`" not allowed for card number "%s"`, 0),
	"056": reject(CategoryCardNotActivated, "Card not yet activated for redemption", 0),
	"051": reject(CategoryInsufficientPoints, "Insufficient points", 0),
	"094": reject(CategoryDuplicateTransaction, "Duplicate transaction", 0),
	"RV":  reject(CategoryReversal, "Reversal", 0),
}

// Any VIP code not listed here is the cardholder's status itself.
var vipStatusCodes = codeTable[int]{
	9:  reject(CategoryVendorInternalError, "Web service error", http.StatusInternalServerError),
	99: reject(CategoryInvalidCard, "Invalid Card Number", http.StatusBadRequest),
}

var setVIPStatusCodes = codeTable[int]{
	1:  success,
	9:  reject(CategoryVendorInternalError, "Web service error", http.StatusInternalServerError),
	99: reject(CategoryInvalidCard, "Invalid Card Number", http.StatusBadRequest),
}

var pointsExpiringCodes = codeTable[int]{
	0: success,
	1: reject(CategoryInvalidCard, "Invalid Card Number", http.StatusBadRequest),
	2: reject(CategoryInvalidRequest, "Invalid Scripting", http.StatusInternalServerError),
}

const returnCodeColumn = "ReturnCode"

// returnCode reads the ReturnCode column of the summary row.
func returnCode(op string, env Envelope, raw string) (string, error) {
	summary, ok := env.Summary()
	if !ok {
		return "", unknownResponse(op, "", raw, "response has no summary row")
	}
	code, ok := summary.Get(returnCodeColumn)
	if !ok {
		return "", unknownResponse(op, "", raw, "summary row has no "+returnCodeColumn)
	}
	return code, nil
}

func intReturnCode(op string, env Envelope, raw string) (int, error) {
	code, err := returnCode(op, env, raw)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, unknownResponse(op, code, raw, "non-numeric return code")
	}
	return n, nil
}

// vipStatus applies the get-VIP convention: documented codes are failures,
// every other integer is the status.
func vipStatus(op string, code int, raw string) (int, error) {
	if _, documented := vipStatusCodes[code]; !documented {
		return code, nil
	}
	return 0, vipStatusCodes.interpret(op, code, raw)
}

// pageCount reads the total page count of a transaction listing. A response
// without one is a single page.
func pageCount(op string, env Envelope, raw string) (int, error) {
	summary, ok := env.Summary()
	if !ok {
		return 1, nil
	}
	v, ok := summary.Get("PgCount")
	if !ok || v == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, unknownResponse(op, "", raw, fmt.Sprintf("invalid page count %q", v))
	}
	return n, nil
}

// rowsOrEmpty never returns nil so JSON callers see [] rather than null.
func rowsOrEmpty(rows []models.Record) []models.Record {
	if rows == nil {
		return []models.Record{}
	}
	return rows
}

package core

import (
	"errors"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentLink carries the two ways to reach the external wallet for a
// payout: the mobile app deep link and the web fallback. Callers attempt
// the app URI first and fall back to the web URL.
type PaymentLink struct {
	AppURI string
	WebURL string
}

var ErrEmptyHandle = errors.New("empty payee handle")

// NormalizeHandle strips a leading @ and surrounding whitespace from a
// wallet handle. Operators paste handles in both forms.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

// BuildPaymentLink constructs the wallet deep link for paying a performer.
// The note typically carries the venue and show date so the transfer is
// traceable back to the show.
func BuildPaymentLink(handle string, amount decimal.Decimal, note string) (PaymentLink, error) {
	clean := NormalizeHandle(handle)
	if clean == "" {
		return PaymentLink{}, ErrEmptyHandle
	}

	amt := amount.StringFixed(2)
	encodedNote := url.QueryEscape(note)

	app := "venmo://paycharge?txn=pay&recipients=" + url.QueryEscape(clean) +
		"&amount=" + amt + "&note=" + encodedNote
	web := "https://venmo.com/" + url.PathEscape(clean) +
		"?amount=" + amt + "&note=" + encodedNote

	return PaymentLink{AppURI: app, WebURL: web}, nil
}

package core

import "golang.org/x/text/language"

const (
	ZAR Currency = "ZAR"
	USD Currency = "USD"
	BWP Currency = "BWP"
	ZMW Currency = "ZMW"
	GBP Currency = "GBP"
	EUR Currency = "EUR"
)

// DefaultCurrency is used when a couple or a form does not say otherwise.
const DefaultCurrency = ZAR

type Currency string

type currencyInfo struct {
	symbol string
	locale language.Tag
}

var currencies = map[Currency]currencyInfo{
	ZAR: {symbol: "R", locale: language.MustParse("en-ZA")},
	USD: {symbol: "$", locale: language.MustParse("en-US")},
	BWP: {symbol: "P", locale: language.MustParse("en-BW")},
	ZMW: {symbol: "K", locale: language.MustParse("en-ZM")},
	GBP: {symbol: "£", locale: language.MustParse("en-GB")},
	EUR: {symbol: "€", locale: language.MustParse("de-DE")},
}

// Currencies lists supported currencies in form order.
var Currencies = []Currency{ZAR, USD, BWP, ZMW, GBP, EUR}

func (c Currency) Valid() bool {
	_, ok := currencies[c]
	return ok
}

// Symbol returns the display symbol, or the code itself when unknown.
func (c Currency) Symbol() string {
	if info, ok := currencies[c]; ok {
		return info.symbol
	}
	return string(c)
}

// Locale returns the locale used for number grouping. Unknown currencies
// format like ZAR.
func (c Currency) Locale() language.Tag {
	if info, ok := currencies[c]; ok {
		return info.locale
	}
	return currencies[ZAR].locale
}

// CurrencyOrDefault parses a form value, falling back to def when empty.
func CurrencyOrDefault(v string, def Currency) Currency {
	if v == "" {
		return def
	}
	return Currency(v)
}

package catalog

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ruPrinter = message.NewPrinter(language.Russian)

// FormatPrice renders whole roubles with Russian digit grouping, e.g. "99 900 ₽".
func FormatPrice(d decimal.Decimal) string {
	return ruPrinter.Sprintf("%d ₽", d.Round(0).IntPart())
}

package dashboard

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"fintrack/internal/core"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// FormatBRL renders m as Brazilian reais, e.g. "R$ 1.234,56" or
// "-R$ 150,00".
func FormatBRL(m core.Money) string {
	abs := m.Abs().Decimal().InexactFloat64()
	s := printer.Sprintf("R$ %v", number.Decimal(abs, number.Scale(2)))
	if m.IsNegative() {
		return "-" + s
	}
	return s
}

// MonthLabel renders m as "janeiro de 2026".
func MonthLabel(m core.Month) string {
	if m.Number < 1 || m.Number > 12 {
		return m.String()
	}
	return fmt.Sprintf("%s de %d", monthNames[m.Number-1], m.Year)
}

// FormatDate renders d as DD/MM/YYYY.
func FormatDate(d core.Date) string {
	return d.Format("02/01/2006")
}

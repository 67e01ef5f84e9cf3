package coinmarketcap

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// renderDetail formats one coin record. The URL list is always built but
// only written out when withURLs is set.
func renderDetail(d DetailRecord, withURLs bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Crypto Currency Coin name: %s\n", d.Name)
	fmt.Fprintf(&b, "%s Symbol: %s\n", d.Name, d.Symbol)
	fmt.Fprintf(&b, "%s Coin Details: %s\n", d.Name, d.Description)
	fmt.Fprintf(&b, "Coin Type: %s\n", d.Category)

	urls := d.URLLines()
	if withURLs && len(urls) > 0 {
		fmt.Fprintf(&b, "%s URLs:\n", d.Name)
		for _, line := range urls {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderQuote(q Quote, convert string) string {
	mq, ok := q.Quote[convert]
	if !ok || !mq.Price.Valid {
		return fmt.Sprintf("%s (%s): no %s price available", q.Name, q.Symbol, convert)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) price: %s %s", q.Name, q.Symbol, formatPrice(mq.Price.Decimal), convert)
	if mq.PercentChange24h.Valid {
		fmt.Fprintf(&b, ", 24h change: %s%%", mq.PercentChange24h.Decimal.StringFixed(2))
	}
	if mq.MarketCap.Valid && mq.MarketCap.Decimal.IsPositive() {
		fmt.Fprintf(&b, ", market cap: %s %s", mq.MarketCap.Decimal.StringFixed(0), convert)
	}
	if mq.Volume24h.Valid && mq.Volume24h.Decimal.IsPositive() {
		fmt.Fprintf(&b, ", 24h volume: %s %s", mq.Volume24h.Decimal.StringFixed(0), convert)
	}
	if !mq.LastUpdated.IsZero() {
		fmt.Fprintf(&b, " (as of %s)", mq.LastUpdated.UTC().Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}

var one = decimal.NewFromInt(1)

// formatPrice keeps two decimals for prices above one unit and enough
// precision for sub-unit coins.
func formatPrice(p decimal.Decimal) string {
	if p.Abs().GreaterThanOrEqual(one) {
		return p.StringFixed(2)
	}
	return p.Round(8).String()
}

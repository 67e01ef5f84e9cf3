package coinmarketcap

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CatalogEntry is one row of the identifier catalog. Fields other than
// id, name and symbol are carried through untouched in Extra.
type CatalogEntry struct {
	ID     int
	Name   string
	Symbol string
	Extra  map[string]json.RawMessage
}

func (e CatalogEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.Extra)+3)
	for k, v := range e.Extra {
		out[k] = v
	}
	var err error
	if out["id"], err = json.Marshal(e.ID); err != nil {
		return nil, err
	}
	if out["name"], err = json.Marshal(e.Name); err != nil {
		return nil, err
	}
	if out["symbol"], err = json.Marshal(e.Symbol); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (e *CatalogEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var known struct {
		ID     int    `json:"id"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	delete(raw, "id")
	delete(raw, "name")
	delete(raw, "symbol")
	if len(raw) == 0 {
		raw = nil
	}
	*e = CatalogEntry{ID: known.ID, Name: known.Name, Symbol: known.Symbol, Extra: raw}
	return nil
}

// URLList is a URL field of a coin record. The API sends arrays, older
// payloads and hand-written fixtures may send a single string.
type URLList []string

func (u *URLList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*u = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("url field must be a string or a list of strings: %w", err)
	}
	if single == "" {
		*u = nil
		return nil
	}
	*u = URLList{single}
	return nil
}

// DetailRecord is the "info" payload for one resolved coin.
type DetailRecord struct {
	ID          int                `json:"id"`
	Name        string             `json:"name"`
	Symbol      string             `json:"symbol"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	URLs        map[string]URLList `json:"urls"`
}

// URLLines lists the non-empty URL fields as "<field>: <value>", multiple
// values joined with ", ". Fields are sorted by name.
func (d DetailRecord) URLLines() []string {
	fields := make([]string, 0, len(d.URLs))
	for field, values := range d.URLs {
		if len(nonEmpty(values)) > 0 {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	lines := make([]string, 0, len(fields))
	for _, field := range fields {
		lines = append(lines, field+": "+strings.Join(nonEmpty(d.URLs[field]), ", "))
	}
	return lines
}

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// Quote is the latest market data for one coin.
type Quote struct {
	ID     int                    `json:"id"`
	Name   string                 `json:"name"`
	Symbol string                 `json:"symbol"`
	Quote  map[string]MarketQuote `json:"quote"`
}

// MarketQuote is a quote converted into one currency.
type MarketQuote struct {
	Price            decimal.NullDecimal `json:"price"`
	PercentChange24h decimal.NullDecimal `json:"percent_change_24h"`
	MarketCap        decimal.NullDecimal `json:"market_cap"`
	Volume24h        decimal.NullDecimal `json:"volume_24h"`
	LastUpdated      time.Time           `json:"last_updated"`
}

// sortedIDs orders id keys numerically; non-numeric keys sort last.
func sortedIDs[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

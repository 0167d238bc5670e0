package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

// BankCurrencies is the allow-list kept from the PrivatBank feed, in display order.
var BankCurrencies = []string{"USD", "EUR", "RUR", "BTC"}

// BankRate is one row of the local bank's cash rates against UAH.
type BankRate struct {
	Currency string
	Buy      float64
	Sale     float64
}

type privatRow struct {
	Currency string      `json:"ccy"`
	Base     string      `json:"base_ccy"`
	Buy      json.Number `json:"buy"`
	Sale     json.Number `json:"sale"`
}

// LocalBankRates returns PrivatBank buy/sale rates for the allow-listed
// currencies in the order the feed lists them.
func (c *Client) LocalBankRates(ctx context.Context) ([]BankRate, error) {
	body, err := c.get(ctx, "privatbank", c.privatURL)
	if err != nil {
		return nil, err
	}

	var rows []privatRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("privatbank: decode: %w", err)
	}

	rates := make([]BankRate, 0, len(BankCurrencies))
	for _, row := range rows {
		if !slices.Contains(BankCurrencies, row.Currency) {
			continue
		}
		buy, err := row.Buy.Float64()
		if err != nil {
			return nil, fmt.Errorf("privatbank: %s buy %q: %w", row.Currency, row.Buy, err)
		}
		sale, err := row.Sale.Float64()
		if err != nil {
			return nil, fmt.Errorf("privatbank: %s sale %q: %w", row.Currency, row.Sale, err)
		}
		rates = append(rates, BankRate{Currency: row.Currency, Buy: buy, Sale: sale})
	}
	return rates, nil
}

package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CrossRate is one labelled row of the x-rates.com table.
type CrossRate struct {
	Label string
	Rate  float64
}

// CrossRates is a scraped table for one base currency.
type CrossRates struct {
	Base string
	// AsOf is the timestamp text published with the table.
	AsOf  string
	Rates []CrossRate
}

// CrossRates scrapes the rate table for one unit of base. Rows whose second
// cell is not a decimal are skipped. A label seen twice keeps its first
// position and its last value.
func (c *Client) CrossRates(ctx context.Context, base string) (CrossRates, error) {
	u, err := url.Parse(c.xratesURL)
	if err != nil {
		return CrossRates{}, fmt.Errorf("xrates: base url: %w", err)
	}
	q := u.Query()
	q.Set("from", base)
	q.Set("amount", "1")
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, "xrates", u.String())
	if err != nil {
		return CrossRates{}, err
	}
	return parseCrossRates(base, body)
}

func parseCrossRates(base string, body []byte) (CrossRates, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return CrossRates{}, fmt.Errorf("xrates: parse html: %w", err)
	}

	stamp := doc.Find("span.ratesTimestamp").First()
	if stamp.Length() == 0 {
		return CrossRates{}, fmt.Errorf("xrates: rates timestamp not found")
	}

	out := CrossRates{Base: base, AsOf: strings.TrimSpace(stamp.Text())}
	index := make(map[string]int)
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td")
		if tds.Length() < 2 {
			return
		}
		label := strings.TrimSpace(tds.Eq(0).Text())
		rate, err := strconv.ParseFloat(strings.TrimSpace(tds.Eq(1).Text()), 64)
		if err != nil {
			return
		}
		if i, ok := index[label]; ok {
			out.Rates[i].Rate = rate
			return
		}
		index[label] = len(out.Rates)
		out.Rates = append(out.Rates, CrossRate{Label: label, Rate: rate})
	})
	return out, nil
}

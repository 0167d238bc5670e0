package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(Options{
		Timeout:        time.Second,
		WeatherBaseURL: srv.URL + "/weather",
		WeatherAPIKey:  "secret-key",
		PrivatBankURL:  srv.URL + "/p24api/pubinfo?exchange&json&coursid=11",
		XRatesURL:      srv.URL + "/table/",
	})
	return c, srv
}

func TestLocalBankRatesFiltersAllowList(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/p24api/pubinfo" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"ccy":"EUR","base_ccy":"UAH","buy":"40.70000","sale":"41.60000"},
			{"ccy":"PLN","base_ccy":"UAH","buy":"9.9","sale":"10.2"},
			{"ccy":"USD","base_ccy":"UAH","buy":"38.95","sale":"39.55"},
			{"ccy":"BTC","base_ccy":"USD","buy":60000,"sale":61000}
		]`))
	})

	rates, err := c.LocalBankRates(context.Background())
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	want := []BankRate{
		{Currency: "EUR", Buy: 40.7, Sale: 41.6},
		{Currency: "USD", Buy: 38.95, Sale: 39.55},
		{Currency: "BTC", Buy: 60000, Sale: 61000},
	}
	if len(rates) != len(want) {
		t.Fatalf("rates = %+v", rates)
	}
	for i := range want {
		if rates[i] != want[i] {
			t.Fatalf("rates[%d] = %+v, want %+v", i, rates[i], want[i])
		}
	}
}

func TestLocalBankRatesMalformed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	})
	if _, err := c.LocalBankRates(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

const xratesPage = `<html><body>
<span class="ratesTimestamp">Oct 18, 2026 12:00 UTC</span>
<table class="ratesTable">
<tr><th>US Dollar</th><th>1.00 USD</th><th>inv. 1.00 USD</th></tr>
<tr><td>Euro</td><td class="rtRates">0.921</td><td>1.085</td></tr>
<tr><td>British Pound</td><td>0.781</td><td>1.280</td></tr>
<tr><td>Broken</td><td>n/a</td><td>-</td></tr>
</table>
<table class="tablesorter">
<tr><td>Chinese Yuan Renminbi</td><td>7.12</td><td>0.14</td></tr>
<tr><td>Euro</td><td>0.922</td><td>1.084</td></tr>
</table>
</body></html>`

func TestCrossRatesScrapesTables(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("from"); got != "EUR" {
			t.Errorf("from = %q", got)
		}
		if got := r.URL.Query().Get("amount"); got != "1" {
			t.Errorf("amount = %q", got)
		}
		_, _ = w.Write([]byte(xratesPage))
	})

	got, err := c.CrossRates(context.Background(), "EUR")
	if err != nil {
		t.Fatalf("cross rates: %v", err)
	}
	if got.AsOf != "Oct 18, 2026 12:00 UTC" || got.Base != "EUR" {
		t.Fatalf("meta = %q %q", got.AsOf, got.Base)
	}
	labels := make([]string, 0, len(got.Rates))
	for _, r := range got.Rates {
		labels = append(labels, r.Label)
	}
	if strings.Join(labels, ",") != "Euro,British Pound,Chinese Yuan Renminbi" {
		t.Fatalf("labels = %v", labels)
	}
	if got.Rates[0].Rate != 0.922 {
		t.Fatalf("euro = %v", got.Rates[0].Rate)
	}
}

func TestCrossRatesMissingTimestamp(t *testing.T) {
	if _, err := parseCrossRates("USD", []byte("<table></table>")); err == nil {
		t.Fatal("expected error without timestamp")
	}
}

func TestWeatherParsesAndConverts(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "Tralee" || q.Get("appid") != "secret-key" || q.Get("units") != "metric" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{"main":{"temp":12.5},"weather":[{"description":"light rain"}],"wind":{"speed":18.0}}`))
	})

	w, err := c.Weather(context.Background(), "Tralee")
	if err != nil {
		t.Fatalf("weather: %v", err)
	}
	if w.Temperature != "12.5" || w.WindSpeed != "5.00" || w.Description != "light rain" || w.Icon != "🌧️" {
		t.Fatalf("weather = %+v", w)
	}
}

func TestParseWeatherFallbacks(t *testing.T) {
	cases := []struct {
		name string
		body string
		want Weather
	}{
		{"empty object", `{}`, Weather{Temperature: NotAvailable, WindSpeed: NotAvailable, Description: NoDescription, Icon: DefaultIcon}},
		{"not json", `oops`, Weather{Temperature: NotAvailable, WindSpeed: NotAvailable, Description: NoDescription, Icon: DefaultIcon}},
		{"bad wind", `{"main":{"temp":-3},"weather":[{"description":"snow"}],"wind":{"speed":"fast"}}`,
			Weather{Temperature: "-3", WindSpeed: NotAvailable, Description: "snow", Icon: "❄️"}},
		{"empty weather list", `{"main":{"temp":20},"weather":[],"wind":{"speed":3.6}}`,
			Weather{Temperature: "20", WindSpeed: "1.00", Description: NoDescription, Icon: DefaultIcon}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseWeather("", []byte(tc.body))
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestWeatherIconPriority(t *testing.T) {
	cases := map[string]string{
		"Clear sky":              "☀️",
		"broken clouds":          "☁️",
		"cloudy with rain":       "☁️",
		"light drizzle":          "🌧️",
		"thunderstorm with rain": "🌧️",
		"thunderstorm":           "⛈️",
		"Snow":                   "❄️",
		"mist":                   "🌫️",
		"fog":                    "🌫️",
		"haze":                   DefaultIcon,
		"":                       DefaultIcon,
	}
	for in, want := range cases {
		if got := WeatherIcon(in); got != want {
			t.Fatalf("WeatherIcon(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "city not found", http.StatusNotFound)
	})
	_, err := c.Weather(context.Background(), "Atlantis")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound || se.Upstream != "weather" {
		t.Fatalf("err = %v", err)
	}
}

func TestTimeoutMapsToErrTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := New(Options{Timeout: 50 * time.Millisecond, WeatherBaseURL: srv.URL, WeatherAPIKey: "k"})
	_, err := c.Weather(context.Background(), "Tralee")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v", err)
	}
}

func TestTransportErrorRedactsKey(t *testing.T) {
	c := New(Options{Timeout: time.Second, WeatherBaseURL: "http://127.0.0.1:1/weather", WeatherAPIKey: "secret-key"})
	_, err := c.Weather(context.Background(), "Tralee")
	if err == nil {
		t.Fatal("expected dial error")
	}
	if errors.Is(err, ErrTimeout) {
		t.Skip("dial timed out on this host")
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("key leaked: %v", err)
	}
}

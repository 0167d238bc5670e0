package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
)

const (
	// NotAvailable replaces a numeric field missing from the weather payload.
	NotAvailable = "N/A"
	// NoDescription replaces a missing condition description.
	NoDescription = "No description available"

	kmhToMS = 5.0 / 18.0
)

// Weather is the current conditions for a city. Fields that could not be
// read from the payload carry their fallback text.
type Weather struct {
	City string
	// Temperature is the upstream number as published, in °C.
	Temperature string
	// WindSpeed is in m/s with two decimals.
	WindSpeed   string
	Description string
	Icon        string
}

// Weather fetches current conditions in metric units.
func (c *Client) Weather(ctx context.Context, city string) (Weather, error) {
	u, err := url.Parse(c.weatherURL)
	if err != nil {
		return Weather{}, fmt.Errorf("weather: base url: %w", err)
	}
	q := u.Query()
	q.Set("q", city)
	q.Set("appid", c.weatherKey)
	q.Set("units", "metric")
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, "weather", u.String())
	if err != nil {
		return Weather{}, err
	}
	return parseWeather(city, body), nil
}

// parseWeather reads each field on its own so a malformed field only costs
// that field.
func parseWeather(city string, body []byte) Weather {
	w := Weather{
		City:        city,
		Temperature: NotAvailable,
		WindSpeed:   NotAvailable,
		Description: NoDescription,
	}

	var root struct {
		Main    json.RawMessage `json:"main"`
		Weather json.RawMessage `json:"weather"`
		Wind    json.RawMessage `json:"wind"`
	}
	if err := json.Unmarshal(body, &root); err == nil {
		var main struct {
			Temp json.Number `json:"temp"`
		}
		if json.Unmarshal(root.Main, &main) == nil && main.Temp != "" {
			w.Temperature = main.Temp.String()
		}

		var conds []struct {
			Description string `json:"description"`
		}
		if json.Unmarshal(root.Weather, &conds) == nil && len(conds) > 0 && conds[0].Description != "" {
			w.Description = conds[0].Description
		}

		var wind struct {
			Speed json.Number `json:"speed"`
		}
		if json.Unmarshal(root.Wind, &wind) == nil {
			if speed, err := wind.Speed.Float64(); err == nil {
				w.WindSpeed = fmt.Sprintf("%.2f", math.Round(speed*kmhToMS*100)/100)
			}
		}
	}

	w.Icon = WeatherIcon(w.Description)
	return w
}

type iconRule struct {
	keywords []string
	icon     string
}

// iconRules are checked in order; the first match wins.
var iconRules = []iconRule{
	{[]string{"clear"}, "☀️"},
	{[]string{"cloud"}, "☁️"},
	{[]string{"rain", "drizzle"}, "🌧️"},
	{[]string{"thunderstorm"}, "⛈️"},
	{[]string{"snow"}, "❄️"},
	{[]string{"mist", "fog"}, "🌫️"},
}

// DefaultIcon is used when no rule matches.
const DefaultIcon = "🌤️"

// WeatherIcon picks an icon by case-insensitive keyword match on description.
func WeatherIcon(description string) string {
	d := strings.ToLower(description)
	for _, rule := range iconRules {
		for _, kw := range rule.keywords {
			if strings.Contains(d, kw) {
				return rule.icon
			}
		}
	}
	return DefaultIcon
}

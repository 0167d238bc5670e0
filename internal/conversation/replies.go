package conversation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/m3rciful/infobot/core/telegram/format"
	"github.com/m3rciful/infobot/internal/fetch"
)

const (
	greetHelpText       = "Use /help to see available commands."
	siteText            = "Opening website: "
	infoText            = "This bot is created by @morry_dev."
	currencyPromptText  = "Please select the currency code to get the exchange rates:"
	weatherPromptText   = "Please enter the name of the city to get the weather information."
	mediaNoticeText     = "Sorry, this type of message is not currently processed by the bot.\n/start"
	startHintText       = "/start"
	hostilePhrase       = "иди нахуй"
	retortText          = "Слыш, самый умный что-ли?? Сходи-ка ты сам туда"
	noRatesText         = "No exchange rates available for the specified currencies."
	weatherTimeoutText  = "The request timed out. Please try again later."
	defaultWeatherCity  = "Tralee"
	rateErrorPrefix     = "Error fetching exchange rates: "
	weatherErrorPrefix  = "Error fetching weather: "
	invalidCurrencyText = "Invalid currency code. Please enter one of the following: USD, EUR, RUB, CNY, GBP."
)

const musicText = "🎵 <b>Music Resources</b> 🎵\n\n" +
	`<a href="https://archive.org">Archive.org</a>` + "\n" +
	`<a href="https://flacworld.ru">FlacWorld.ru</a>` + "\n" +
	`<a href="https://lossless-flac.com">Lossless-flac.com</a>`

const helpText = `<b>Bot Commands:</b>
<b>/start</b> - Starts the bot and sends a welcome message.
<b>/help</b> - Sends a list of available commands and their descriptions.
<b>/info</b> - Sends information about the bot.

<b>Currency Commands:</b>
<b>/currency</b> - Shows the latest exchange rates for major currencies (e.g., USD, EUR, GBP).
<b>/currency_uah</b> - Shows the latest exchange rates with respect to the Ukrainian Hryvnia (UAH).

<b>Weather Commands:</b>
<b>/weather_tralee</b> - Shows the current weather in Tralee.
<b>/weather</b> - Provides the current weather in your specified city.

<b>Another Commands:</b>
<b>/show_id</b> - Displays your Telegram user ID.
<b>/website</b> - Provides a link to your personal website. (not worked yet)
<b>/music</b> - Shares a collection of FLAC music files for download.`

// CrossCodes are the accepted base currencies for /currency, in keyboard order.
var CrossCodes = []string{"USD", "RUB", "GBP", "CNY", "EUR"}

// crossTargets maps the x-rates row labels kept in the table to their codes.
var crossTargets = map[string]string{
	"US Dollar":             "USD",
	"Euro":                  "EUR",
	"Russian Ruble":         "RUB",
	"Chinese Yuan Renminbi": "CNY",
	"British Pound":         "GBP",
}

func greeting(name string) string {
	return "Hello, " + name + "!"
}

func showIDText(id int64) string {
	return format.Bold("Your ID:") + " " + format.Code(strconv.FormatInt(id, 10))
}

func bankRatesText(rates []fetch.BankRate) string {
	var b strings.Builder
	b.WriteString("Exchange Rates => UAH (PrivatBank)\n")
	b.WriteString(format.Center("Currency", 10) + " | " + format.Center("Buy", 7) + " | " + format.Center("Sell", 7) + "\n")
	b.WriteString(strings.Repeat("-", 30) + "\n")
	if len(rates) == 0 {
		b.WriteString(noRatesText)
	}
	for i, r := range rates {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(format.Center(r.Currency, 11) + "| " +
			format.Center(fmt.Sprintf("%.2f", r.Buy), 7) + " | " +
			format.Center(fmt.Sprintf("%.2f", r.Sale), 8))
	}
	return format.Pre(b.String())
}

func crossRatesText(base string, rates fetch.CrossRates) string {
	var b strings.Builder
	b.WriteString("Exchange Rates => " + base + "\n")
	b.WriteString(format.Center("Currency", 10) + " | " + format.Center("Buy", 11) + "\n")
	b.WriteString(strings.Repeat("-", 25) + "\n")
	n := 0
	for _, r := range rates.Rates {
		code, ok := crossTargets[r.Label]
		if !ok {
			continue
		}
		if n > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(format.Center(base, 10) + " > " + format.PadLeft(fmt.Sprintf("%.2f", r.Rate), 7) + " " + code)
		n++
	}
	if n == 0 {
		b.WriteString(noRatesText)
	}
	return format.Pre(b.String()) + "\n" + format.Bold("Last updated:") + " " + format.EscapeHTML(rates.AsOf)
}

func weatherText(w fetch.Weather) string {
	return format.Bold("🌤️ Current Weather in "+format.EscapeHTML(capitalize(w.City))+":") + "\n\n" +
		format.Bold("Temperature:") + " " + w.Temperature + "°C 🌡️\n" +
		format.Bold("Weather cond.:") + " " + format.EscapeHTML(capitalize(w.Description)) + " " + w.Icon + "\n" +
		format.Bold("Wind speed:") + " " + w.WindSpeed + " m/sec 💨"
}

func weatherErrorText(err error) string {
	var se *fetch.StatusError
	switch {
	case errors.As(err, &se):
		return "Error: " + strconv.Itoa(se.Code)
	case errors.Is(err, fetch.ErrTimeout):
		return weatherTimeoutText
	default:
		return weatherErrorPrefix + format.EscapeHTML(err.Error())
	}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

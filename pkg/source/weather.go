package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oakwood-commons/dview/pkg/view"
)

// Open-Meteo endpoints.
const (
	DefaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
)

// WeatherOptions configures Weather.
type WeatherOptions struct {
	City string
	// Days is the forecast length; zero means 7.
	Days        int
	GeocodeURL  string
	ForecastURL string
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Timezone string `json:"timezone"`
	Daily    struct {
		Time        []string  `json:"time"`
		Max         []float64 `json:"temperature_2m_max"`
		Min         []float64 `json:"temperature_2m_min"`
		WeatherCode []int     `json:"weathercode"`
	} `json:"daily"`
}

// Weather geocodes City, then fetches a daily forecast for the best match.
// Each forecast day becomes one record with date, max, min, code,
// condition and city.
func Weather(c *Client, opts WeatherOptions) Source {
	if c == nil {
		c = NewClient()
	}
	if opts.GeocodeURL == "" {
		opts.GeocodeURL = DefaultGeocodeURL
	}
	if opts.ForecastURL == "" {
		opts.ForecastURL = DefaultForecastURL
	}
	if opts.Days <= 0 {
		opts.Days = 7
	}

	return func(ctx context.Context) ([]view.Record, error) {
		city := strings.TrimSpace(opts.City)
		if city == "" {
			return nil, fmt.Errorf("weather: city is required")
		}

		var geo geocodeResponse
		err := c.GetJSON(ctx, opts.GeocodeURL, url.Values{
			"name":  {city},
			"count": {"1"},
		}, &geo)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", city, err)
		}
		if len(geo.Results) == 0 {
			return nil, fmt.Errorf("geocode %q: no matching place", city)
		}
		place := geo.Results[0]

		var fc forecastResponse
		err = c.GetJSON(ctx, opts.ForecastURL, url.Values{
			"latitude":      {strconv.FormatFloat(place.Latitude, 'f', -1, 64)},
			"longitude":     {strconv.FormatFloat(place.Longitude, 'f', -1, 64)},
			"daily":         {"temperature_2m_max,temperature_2m_min,weathercode"},
			"timezone":      {"auto"},
			"forecast_days": {strconv.Itoa(opts.Days)},
		}, &fc)
		if err != nil {
			return nil, fmt.Errorf("forecast for %s: %w", place.Name, err)
		}
		return forecastRecords(place.Name, fc)
	}
}

func forecastRecords(city string, fc forecastResponse) ([]view.Record, error) {
	d := fc.Daily
	if len(d.Max) != len(d.Time) || len(d.Min) != len(d.Time) || len(d.WeatherCode) != len(d.Time) {
		return nil, fmt.Errorf("forecast for %s: daily series have mismatched lengths", city)
	}
	out := make([]view.Record, 0, len(d.Time))
	for i, day := range d.Time {
		date, err := time.Parse(time.DateOnly, day)
		if err != nil {
			return nil, fmt.Errorf("forecast for %s: bad date %q: %w", city, day, err)
		}
		out = append(out, view.Record{
			"date":      date,
			"max":       d.Max[i],
			"min":       d.Min[i],
			"code":      d.WeatherCode[i],
			"condition": Condition(d.WeatherCode[i]),
			"city":      city,
		})
	}
	return out, nil
}

// Condition names a WMO weather interpretation code.
func Condition(code int) string {
	switch code {
	case 0:
		return "Clear sky"
	case 1:
		return "Mainly clear"
	case 2:
		return "Partly cloudy"
	case 3:
		return "Overcast"
	case 45, 48:
		return "Fog"
	case 51, 53, 55:
		return "Drizzle"
	case 56, 57:
		return "Freezing drizzle"
	case 61, 63, 65:
		return "Rain"
	case 66, 67:
		return "Freezing rain"
	case 71, 73, 75:
		return "Snow"
	case 77:
		return "Snow grains"
	case 80, 81, 82:
		return "Rain showers"
	case 85, 86:
		return "Snow showers"
	case 95:
		return "Thunderstorm"
	case 96, 99:
		return "Thunderstorm with hail"
	default:
		return "Unknown"
	}
}

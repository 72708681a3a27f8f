package stats

import "github.com/xela07ax/clickpulse/internal/domain"

// Geographic считает метрики по уже отфильтрованному списку стран и городов.
func Geographic(d domain.GeographicData) domain.GeographicStats {
	total := Total(d.TopCountries, countryClicks)
	top := topCountry(d.TopCountries)

	topCity, ok := Peak(d.TopCities, func(c domain.CityClicks) int64 { return c.Clicks })
	if !ok {
		topCity = domain.CityClicks{City: domain.Placeholder}
	}

	return domain.GeographicStats{
		TotalClicks:    total,
		TotalCountries: Distinct(d.TopCountries, countryKey),
		// Город без страны и одноимённый город в другой стране — разные ключи
		TotalCities: Distinct(d.TopCities, func(c domain.CityClicks) string {
			return c.Country + "/" + c.City
		}),
		TopCountry:           top,
		TopCountryPercentage: Percentage(top.Clicks, total),
		TopCity:              topCity,
		CountryShares:        Shares(d.TopCountries, countryKey, countryClicks),
	}
}

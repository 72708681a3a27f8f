package domain

// GeographicData распределение кликов по странам и городам (/geographic).
type GeographicData struct {
	TopCountries []CountryClicks `json:"top_countries"`
	TopCities    []CityClicks    `json:"top_cities"`
}

type GeographicStats struct {
	TotalClicks          int64         `json:"total_clicks"`
	TotalCountries       int           `json:"total_countries"`
	TotalCities          int           `json:"total_cities"`
	TopCountry           CountryClicks `json:"top_country"`
	TopCountryPercentage float64       `json:"top_country_percentage"`
	TopCity              CityClicks    `json:"top_city"`
	CountryShares        []Share       `json:"country_shares"`
}

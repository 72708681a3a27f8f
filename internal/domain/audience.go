package domain

// AudienceData аудитория: устройства, браузеры, ОС, источники (/audience).
type AudienceData struct {
	Devices           []NamedClicks `json:"devices"`
	Browsers          []NamedClicks `json:"browsers"`
	OperatingSystems  []NamedClicks `json:"operating_systems"`
	Referrers         []NamedClicks `json:"referrers"`
	UniqueVisitors    int64         `json:"unique_visitors"`
	ReturningVisitors int64         `json:"returning_visitors"`
}

type AudienceStats struct {
	TotalClicks      int64       `json:"total_clicks"`
	TotalDevices     int         `json:"total_devices"`
	TotalBrowsers    int         `json:"total_browsers"`
	TopDevice        NamedClicks `json:"top_device"`
	TopBrowser       NamedClicks `json:"top_browser"`
	TopOS            NamedClicks `json:"top_os"`
	TopReferrer      NamedClicks `json:"top_referrer"`
	MobilePercentage float64     `json:"mobile_percentage"`
	ReturningRate    float64     `json:"returning_rate"`
	DeviceShares     []Share     `json:"device_shares"`
}

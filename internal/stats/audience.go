package stats

import (
	"strings"

	"github.com/xela07ax/clickpulse/internal/domain"
)

// mobileDevices категории устройств, которые считаются мобильным трафиком.
var mobileDevices = map[string]struct{}{
	"mobile":     {},
	"smartphone": {},
	"phone":      {},
	"tablet":     {},
}

// Audience структура аудитории по устройствам, браузерам, ОС и источникам.
func Audience(d domain.AudienceData) domain.AudienceStats {
	total := Total(d.Devices, namedClicks)

	var mobile int64
	for _, dev := range d.Devices {
		if _, ok := mobileDevices[strings.ToLower(strings.TrimSpace(dev.Name))]; ok {
			mobile += dev.Clicks
		}
	}

	return domain.AudienceStats{
		TotalClicks:      total,
		TotalDevices:     Distinct(d.Devices, namedKey),
		TotalBrowsers:    Distinct(d.Browsers, namedKey),
		TopDevice:        topNamed(d.Devices),
		TopBrowser:       topNamed(d.Browsers),
		TopOS:            topNamed(d.OperatingSystems),
		TopReferrer:      topNamed(d.Referrers),
		MobilePercentage: Percentage(mobile, total),
		ReturningRate:    Percentage(d.ReturningVisitors, d.UniqueVisitors),
		DeviceShares:     Shares(d.Devices, namedKey, namedClicks),
	}
}

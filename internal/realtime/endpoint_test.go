package realtime

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/clickpulse/internal/connectors"
	"github.com/xela07ax/clickpulse/internal/domain"
)

func TestResolveEndpoint(t *testing.T) {
	assert.Equal(t, "/api/analytics/link/42/temporal", ResolveEndpoint("42", domain.KindTemporal))
	assert.Equal(t, "/api/analytics/global/heatmap", ResolveEndpoint("", domain.KindHeatmap))
	assert.Equal(t, "/api/analytics/link/a%2Fb/insights", ResolveEndpoint("a/b", domain.KindInsights))
}

func TestBuildQuery(t *testing.T) {
	hours, days, charts := 24, 7, true
	f := domain.Filters{Hours: &hours, Days: &days, IncludeCharts: &charts, MinClicks: 5}

	assert.Equal(t, url.Values{"hours": {"24"}, "include_charts": {"true"}}, BuildQuery(f, DashboardDescriptor.Params))
	assert.Equal(t, url.Values{"days": {"7"}}, BuildQuery(f, GeographicDescriptor.Params))
	assert.Empty(t, BuildQuery(domain.Filters{}, TemporalDescriptor.Params))
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := domain.GeographicData{TopCountries: []domain.CountryClicks{{Country: "US", Clicks: 3}, {Country: "BR", Clicks: 7}}}
	out := normalizeGeographic(in, domain.Filters{MinClicks: 5})

	assert.Len(t, in.TopCountries, 2)
	assert.Len(t, out.TopCountries, 1)
	assert.NotNil(t, out.TopCities)
}

func TestNormalizeInsights(t *testing.T) {
	in := domain.InsightsData{Insights: []domain.Insight{
		{ID: "a", Category: "temporal", Confidence: 0.9},
		{ID: "b", Category: "Audience", Confidence: 0.8},
		{ID: "c", Category: "audience", Confidence: 0.2},
	}}

	out := normalizeInsights(in, domain.Filters{MinConfidence: 0.5, Categories: []string{"audience"}})
	require.Len(t, out.Insights, 1)
	assert.Equal(t, "b", out.Insights[0].ID)

	assert.Len(t, normalizeInsights(in, domain.Filters{}).Insights, 3)
}

func TestNormalizeHeatmap_DropsOutOfGrid(t *testing.T) {
	out := normalizeHeatmap(domain.HeatmapData{Cells: []domain.HeatmapCell{
		{Day: 0, Hour: 0, Clicks: 1}, {Day: 7, Hour: 0, Clicks: 1}, {Day: 1, Hour: 24, Clicks: 1},
	}}, domain.Filters{})
	assert.Len(t, out.Cells, 1)
}

func TestHub(t *testing.T) {
	ft := newAutoTransport(func(string, url.Values) (*connectors.Envelope, error) {
		return &connectors.Envelope{Success: true, Data: []byte(`{}`)}, nil
	})

	h := BuildHub(ft, map[domain.Kind]domain.RequestConfig{
		domain.KindInsights: {Aggregate: true},
		domain.KindTemporal: {TargetEntityID: "42"},
	}, nil)
	defer h.CloseAll()

	assert.Equal(t, []domain.Kind{domain.KindTemporal, domain.KindInsights}, h.Kinds())

	h.RefreshAll(context.Background())
	snaps := h.Snapshots()
	require.Len(t, snaps, 2)
	for _, s := range snaps {
		assert.NotNil(t, s.RawData, s.Kind)
		assert.False(t, s.IsLoading)
	}

	_, err := h.Get(domain.KindHeatmap)
	assert.ErrorIs(t, err, ErrUnknownDomain)

	u, err := h.Get(domain.KindTemporal)
	require.NoError(t, err)
	assert.Equal(t, domain.KindTemporal, u.Kind())

	h.CloseAll()
	h.CloseAll()
}

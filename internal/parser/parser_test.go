package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwhitley/propmail/internal/domain"
)

func fixedClock() time.Time {
	return time.Date(2024, time.August, 20, 12, 0, 0, 0, time.UTC)
}

func TestExtractZillowCard(t *testing.T) {
	// One listing linked twice (photo and address), a placeholder spacer
	// image before the real photo, and a price-cut annotation.
	html := `<html><body>
	<table><tr><td>
		<a href="https://www.zillow.com/homedetails/123-Main-St-Anytown-CA-94107/44581632_zpid/">
			<img src="https://photos.zillowstatic.com/spacer.gif"/>
			<img src="https://photos.zillowstatic.com/p_e/IS1234.jpg"/>
		</a>
		<a href="https://www.zillow.com/homedetails/123-Main-St-Anytown-CA-94107/44581632_zpid/">123 Main St, Anytown, CA 94107</a>
		<div>$450,000</div>
		<div>3 bds | 2.5 ba | 1,800 sqft</div>
		<div>Price cut: $10K (6/15)</div>
	</td></tr></table>
	</body></html>`

	candidates, err := NewAt(fixedClock).Extract(html, domain.SourceZillow)
	require.NoError(t, err)
	require.Len(t, candidates, 1, "duplicate anchors for one listing must collapse")

	c := candidates[0]
	assert.Equal(t, domain.SourceZillow, c.Source)
	assert.Equal(t, "44581632", c.SourceID)
	assert.Equal(t, "https://www.zillow.com/homedetails/123-Main-St-Anytown-CA-94107/44581632_zpid/", c.URL)
	assert.Equal(t, "123 Main St", c.Street)
	assert.Equal(t, "Anytown", c.City)
	assert.Equal(t, "CA", c.State)
	assert.Equal(t, "94107", c.Zip)
	assert.Equal(t, int64(450000), c.Price)
	assert.Equal(t, 3, c.Beds)
	assert.Equal(t, 2.5, c.Baths)
	assert.Equal(t, int64(1800), c.Sqft)

	require.NotNil(t, c.PriceCut)
	assert.Equal(t, int64(10000), c.PriceCut.Amount)
	assert.Equal(t, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), c.PriceCut.Date)

	assert.Equal(t, []string{"https://photos.zillowstatic.com/p_e/IS1234.jpg"}, c.ImageURLs)
}

func TestExtractRedfinStatus(t *testing.T) {
	html := `<html><body>
	<div>
		<a href="https://www.redfin.com/CA/Anytown/456-Oak-Ave/home/9021345">456 Oak Ave</a>
		<div>$725,000</div>
		<div>4 Beds 2.5 Baths 2,100 Sq. Ft.</div>
		<div>456 Oak Ave, Anytown, CA 94107</div>
		<div>Pending</div>
	</div>
	</body></html>`

	candidates, err := New().Extract(html, domain.SourceRedfin)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "9021345", c.SourceID)
	assert.Equal(t, "456 Oak Ave", c.Street)
	assert.Equal(t, int64(725000), c.Price)
	assert.Equal(t, 4, c.Beds)
	assert.Equal(t, 2.5, c.Baths)
	assert.Equal(t, int64(2100), c.Sqft)
	assert.Equal(t, "Pending", c.RawStatus)
}

func TestExtractRealtorRepairsAddress(t *testing.T) {
	// These emails expose only click-tracking URLs and drop the comma
	// between the street and the city.
	html := `<html><body>
	<table><tr><td>
		<a href="https://links.realtor.com/ls/click?upn=abc123xyz">View Home</a>
		<div>$525,000</div>
		<div>4 Beds | 3 Baths | 2,200 Sq. Ft.</div>
		<div>742 Evergreen Ter Springfield, IL 62704</div>
	</td></tr></table>
	</body></html>`

	candidates, err := New().Extract(html, domain.SourceRealtor)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "https://links.realtor.com/ls/click?upn=abc123xyz", c.SourceID)
	assert.Equal(t, "742 Evergreen Ter", c.Street)
	assert.Equal(t, "Springfield", c.City)
	assert.Equal(t, "IL", c.State)
	assert.Equal(t, "62704", c.Zip)
	assert.Equal(t, int64(525000), c.Price)
}

func TestExtractLandWatchAcreage(t *testing.T) {
	html := `<html><body>
	<table><tr><td>
		<a href="https://www.landwatch.com/texas-land-for-sale/llano-county/pid/338201">Beautiful acreage</a>
		<div>$95,000</div>
		<div>10.5 acres</div>
		<div>1500 County Road 12, Llano, TX 78643</div>
	</td></tr></table>
	</body></html>`

	candidates, err := New().Extract(html, domain.SourceLandWatch)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "338201", c.SourceID)
	assert.Equal(t, domain.TypeLand, c.PropertyType)
	assert.Equal(t, 10.5, c.LotAcres)
	assert.Equal(t, "1500 County Road 12", c.Street)
	assert.Equal(t, "Llano", c.City)
	assert.Equal(t, "TX", c.State)
	assert.Equal(t, int64(95000), c.Price)
	assert.Zero(t, c.Beds)
	assert.Zero(t, c.Sqft)
}

func TestExtractPriceCutLineBeforePrice(t *testing.T) {
	// Some card layouts put the cut annotation above the asking price; the
	// cut's $10K must not be read as the listing price.
	html := `<html><body>
	<table><tr><td>
		<a href="https://www.zillow.com/homedetails/1_zpid/">View</a>
		<div>Price cut: $10K (6/15)</div>
		<div>123 Main St, Anytown, CA 94107</div>
		<div>$450,000</div>
	</td></tr></table>
	</body></html>`

	candidates, err := NewAt(fixedClock).Extract(html, domain.SourceZillow)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(450000), candidates[0].Price)
	require.NotNil(t, candidates[0].PriceCut)
	assert.Equal(t, int64(10000), candidates[0].PriceCut.Amount)
}

func TestExtractStripsGluedSpecs(t *testing.T) {
	// Table-soup flattening sometimes puts the sqft figure and the address
	// on the same line with nothing between them.
	html := `<html><body>
	<table><tr><td>
		<a href="https://www.zillow.com/homedetails/1_zpid/">View</a>
		<div>$450,000</div>
		<div>1,800 sqft 123 Main St, Anytown, CA</div>
	</td></tr></table>
	</body></html>`

	candidates, err := New().Extract(html, domain.SourceZillow)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "123 Main St", candidates[0].Street)
	assert.Equal(t, int64(1800), candidates[0].Sqft)
}

func TestExtractSkipsFooterLinks(t *testing.T) {
	html := `<html><body>
	<table><tr><td>
		<a href="https://www.zillow.com/homedetails/1_zpid/?link=unsubscribe">Unsubscribe</a>
		<div>$450,000</div>
		<div>123 Main St, Anytown, CA</div>
	</td></tr></table>
	</body></html>`

	candidates, err := New().Extract(html, domain.SourceZillow)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestExtractSkipsCardWithoutPrice(t *testing.T) {
	html := `<html><body>
	<table><tr><td>
		<a href="https://www.zillow.com/homedetails/1_zpid/">123 Main St, Anytown, CA</a>
		<div>Just listed in your area</div>
	</td></tr></table>
	</body></html>`

	candidates, err := New().Extract(html, domain.SourceZillow)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestExtractUnknownSource(t *testing.T) {
	_, err := New().Extract("<html></html>", domain.SourceUnknown)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extractor")
}

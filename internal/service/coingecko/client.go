package coingecko

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"CoinCast/internal/domain/models"
	domrepo "CoinCast/internal/domain/repository"
	xhttp "CoinCast/pkg/http"
	"CoinCast/pkg/util"
)

// Client implements a PriceSource backed by the CoinGecko market_chart API.
// Every failure mode — transport error, bad status, malformed or empty
// payload — surfaces as models.ErrUpstreamUnavailable so callers defer the
// retry to the next scheduled tick.
type Client struct {
	baseURL    string
	asset      string
	vsCurrency string
	client     *xhttp.Client
}

func New(baseURL, asset, vsCurrency string, timeout time.Duration) domrepo.PriceSource {
	return &Client{
		baseURL:    baseURL,
		asset:      asset,
		vsCurrency: vsCurrency,
		client:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// marketChart mirrors the CoinGecko response: prices is a list of
// [unix_ms, price] pairs, oldest first.
type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

// FetchLatest returns the most recent quote, dated by its UTC calendar day.
func (c *Client) FetchLatest(ctx context.Context) (models.PricePoint, error) {
	chart, err := c.fetch(ctx, 1, false)
	if err != nil {
		return models.PricePoint{}, err
	}
	last := chart.Prices[len(chart.Prices)-1]
	return pricePoint(last), nil
}

// FetchRange returns one point per calendar day over the trailing window,
// ascending. Same-day duplicates collapse to the last observed quote.
func (c *Client) FetchRange(ctx context.Context, days int) ([]models.PricePoint, error) {
	chart, err := c.fetch(ctx, days, true)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]models.PricePoint, len(chart.Prices))
	for _, pair := range chart.Prices {
		p := pricePoint(pair)
		byDay[p.Date] = p
	}
	out := make([]models.PricePoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (c *Client) fetch(ctx context.Context, days int, daily bool) (*marketChart, error) {
	params := map[string]string{
		"vs_currency": c.vsCurrency,
		"days":        strconv.Itoa(days),
	}
	if daily {
		params["interval"] = "daily"
	}

	var chart marketChart
	err := c.client.GetJSON(ctx, &xhttp.RequestOptions{
		URL:         fmt.Sprintf("%s/coins/%s/market_chart", c.baseURL, c.asset),
		QueryParams: params,
	}, &chart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, err)
	}
	if len(chart.Prices) == 0 {
		return nil, fmt.Errorf("%w: empty price list", models.ErrUpstreamUnavailable)
	}
	return &chart, nil
}

func pricePoint(pair [2]float64) models.PricePoint {
	ts := time.UnixMilli(int64(pair[0])).UTC()
	return models.PricePoint{Date: util.Day(ts), Price: pair[1]}
}

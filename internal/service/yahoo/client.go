package yahoo

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"GammaDesk/internal/domain/models"
	domrepo "GammaDesk/internal/domain/repository"
	"GammaDesk/internal/service/httpsource"
	xhttp "GammaDesk/pkg/http"
)

// Client reads spot prices from the Yahoo chart API. Symbols get the ".SA" suffix.
type Client struct {
	base *httpsource.Base
}

var _ domrepo.SpotPriceSource = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, rps float64, burst int, breaker *xhttp.BreakerConfig, m domrepo.Metrics) *Client {
	return &Client{base: httpsource.New(httpsource.Options{
		Name:    "yahoo",
		BaseURL: baseURL,
		Timeout: timeout,
		RPS:     rps,
		Burst:   burst,
		Breaker: breaker,
		Metrics: m,
	})}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string   `json:"symbol"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *Client) chart(ctx context.Context, symbol string, query map[string][]string) (*chartResult, error) {
	var resp chartResponse
	if err := c.base.GetJSONWithRetry(ctx, "/v8/finance/chart/"+models.YahooSymbol(symbol), query, &resp, 2); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: empty result", symbol)
	}
	return &resp.Chart.Result[0], nil
}

// Current returns the regular market price, or the last close when it is missing.
func (c *Client) Current(ctx context.Context, symbol string) (float64, error) {
	r, err := c.chart(ctx, symbol, map[string][]string{"range": {"5d"}, "interval": {"1d"}})
	if err != nil {
		return 0, err
	}
	if p := r.Meta.RegularMarketPrice; p != nil && *p > 0 && !math.IsInf(*p, 0) {
		return *p, nil
	}
	bars := toBars(r)
	if len(bars) == 0 {
		return 0, fmt.Errorf("yahoo %s: no price", symbol)
	}
	return bars[len(bars)-1].Close, nil
}

// History returns daily bars in [from, to], oldest first.
func (c *Client) History(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	r, err := c.chart(ctx, symbol, map[string][]string{
		"period1":  {strconv.FormatInt(from.Unix(), 10)},
		"period2":  {strconv.FormatInt(to.Add(24*time.Hour).Unix(), 10)},
		"interval": {"1d"},
	})
	if err != nil {
		return nil, err
	}
	bars := toBars(r)
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s: no bars between %s and %s", symbol, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return bars, nil
}

// toBars zips the chart arrays, skipping entries without a positive close.
// Missing open/high/low fall back to the close; missing volume is 0.
func toBars(r *chartResult) []models.Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	at := func(xs []*float64, i int, def float64) float64 {
		if i < len(xs) && xs[i] != nil && !math.IsNaN(*xs[i]) && !math.IsInf(*xs[i], 0) {
			return *xs[i]
		}
		return def
	}
	out := make([]models.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		cl := at(q.Close, i, math.NaN())
		if !(cl > 0) || math.IsInf(cl, 0) {
			continue
		}
		b := models.Bar{
			Date:   time.Unix(ts, 0).In(saoPaulo),
			Open:   at(q.Open, i, cl),
			High:   at(q.High, i, cl),
			Low:    at(q.Low, i, cl),
			Close:  cl,
			Volume: at(q.Volume, i, 0),
		}
		y, m, d := b.Date.Date()
		b.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		out = append(out, b)
	}
	return out
}

var saoPaulo = func() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}()

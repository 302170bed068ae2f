package oplab

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"GammaDesk/internal/domain/models"
	domrepo "GammaDesk/internal/domain/repository"
	"GammaDesk/internal/service/httpsource"
	xhttp "GammaDesk/pkg/http"
	applogger "GammaDesk/pkg/logger"
	xutil "GammaDesk/pkg/util"
)

// Client reads option greeks and quotes from the greeks provider REST API.
// The access token is injected once at construction.
type Client struct {
	base *httpsource.Base
	l    *applogger.Logger
}

var (
	_ domrepo.OptionGreeksSource = (*Client)(nil)
	_ domrepo.SpotPriceSource    = (*Client)(nil)
)

func NewClient(baseURL, token string, timeout time.Duration, rps float64, burst int, breaker *xhttp.BreakerConfig, m domrepo.Metrics, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.NewNop()
	}
	return &Client{
		base: httpsource.New(httpsource.Options{
			Name:    "oplab",
			BaseURL: strings.TrimRight(baseURL, "/"),
			Timeout: timeout,
			RPS:     rps,
			Burst:   burst,
			Breaker: breaker,
			Headers: map[string]string{"Access-Token": token},
			Metrics: m,
		}),
		l: l,
	}
}

// optionRow mirrors the provider payload. Pointers distinguish missing from zero.
type optionRow struct {
	Time           *string  `json:"time"`
	Symbol         string   `json:"symbol"`
	Type           *string  `json:"type"`
	Strike         *float64 `json:"strike"`
	Premium        *float64 `json:"premium"`
	Gamma          *float64 `json:"gamma"`
	Delta          *float64 `json:"delta"`
	Vega           *float64 `json:"vega"`
	Theta          *float64 `json:"theta"`
	Volatility     *float64 `json:"volatility"`
	DaysToMaturity *float64 `json:"days_to_maturity"`
	Volume         *float64 `json:"volume"`
	DueDate        *string  `json:"due_date"`
}

// Options returns greeks rows for symbol between from and to (inclusive days).
// Rows missing a required field are dropped and counted.
func (c *Client) Options(ctx context.Context, symbol string, from, to time.Time) (models.OptionChain, error) {
	path := fmt.Sprintf("/market/historical/options/%s/%s/%s",
		symbol, from.Format(xutil.DayLayout), to.Format(xutil.DayLayout))

	var raw []optionRow
	if err := c.base.GetJSONWithRetry(ctx, path, nil, &raw, 2); err != nil {
		return models.OptionChain{}, fmt.Errorf("greeks %s: %w", symbol, err)
	}

	chain := models.OptionChain{Rows: make([]models.OptionRow, 0, len(raw))}
	for _, r := range raw {
		row, ok := r.toModel()
		if !ok {
			chain.Dropped++
			continue
		}
		chain.Rows = append(chain.Rows, row)
	}
	c.base.Metrics().RecordDroppedRows(c.base.Name(), chain.Dropped)
	if chain.Dropped > 0 {
		c.l.Warn("greeks rows dropped for missing fields",
			applogger.String("symbol", symbol),
			applogger.Int("dropped", chain.Dropped),
			applogger.Int("kept", len(chain.Rows)),
		)
	}
	if len(chain.Rows) == 0 {
		return chain, fmt.Errorf("%w: %s", models.ErrNoGreeksData, symbol)
	}
	return chain, nil
}

func (r optionRow) toModel() (models.OptionRow, bool) {
	if r.Time == nil || r.Type == nil || r.Strike == nil || r.Premium == nil || r.Gamma == nil ||
		r.Delta == nil || r.Vega == nil || r.Theta == nil || r.Volatility == nil || r.DaysToMaturity == nil {
		return models.OptionRow{}, false
	}
	ts, ok := xutil.ParseTime(*r.Time)
	if !ok {
		return models.OptionRow{}, false
	}
	typ, ok := models.ParseOptionType(*r.Type)
	if !ok {
		return models.OptionRow{}, false
	}
	for _, v := range []float64{*r.Strike, *r.Premium, *r.Gamma, *r.Delta, *r.Vega, *r.Theta, *r.Volatility, *r.DaysToMaturity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.OptionRow{}, false
		}
	}
	row := models.OptionRow{
		Symbol:         r.Symbol,
		Time:           ts,
		Strike:         models.QuantizeStrike(*r.Strike),
		Type:           typ,
		Gamma:          *r.Gamma,
		Delta:          *r.Delta,
		Vega:           *r.Vega,
		Theta:          *r.Theta,
		IV:             normalizeIV(*r.Volatility),
		DaysToMaturity: int(math.Round(*r.DaysToMaturity)),
		Premium:        *r.Premium,
	}
	if r.Volume != nil && *r.Volume > 0 {
		row.Volume = *r.Volume
	}
	if r.DueDate != nil {
		if d, ok := xutil.ParseTime(*r.DueDate); ok {
			row.DueDate = xutil.Day(d)
		}
	}
	return row, true
}

// normalizeIV returns implied volatility in percentage points.
// Fractions (0.35) are scaled; values of 3 or more are taken as already in points.
func normalizeIV(v float64) float64 {
	if v > 0 && v < 3 {
		return v * 100
	}
	return v
}

type quote struct {
	Symbol string   `json:"symbol"`
	Close  *float64 `json:"close"`
	Bid    *float64 `json:"bid"`
	Ask    *float64 `json:"ask"`
}

// Current returns the latest quote close, or the bid/ask mid when close is missing.
func (c *Client) Current(ctx context.Context, symbol string) (float64, error) {
	var qs []quote
	if err := c.base.GetJSON(ctx, "/market/quote", map[string][]string{"tickers": {symbol}}, &qs); err != nil {
		return 0, fmt.Errorf("quote %s: %w", symbol, err)
	}
	for _, q := range qs {
		if !strings.EqualFold(q.Symbol, symbol) && len(qs) > 1 {
			continue
		}
		if q.Close != nil && *q.Close > 0 {
			return *q.Close, nil
		}
		if q.Bid != nil && q.Ask != nil && *q.Bid > 0 && *q.Ask > 0 {
			return (*q.Bid + *q.Ask) / 2, nil
		}
	}
	return 0, fmt.Errorf("quote %s: no price", symbol)
}

type historicalResp struct {
	Data []struct {
		Time   any      `json:"time"`
		Open   *float64 `json:"open"`
		High   *float64 `json:"high"`
		Low    *float64 `json:"low"`
		Close  *float64 `json:"close"`
		Volume *float64 `json:"volume"`
	} `json:"data"`
}

// History returns daily bars from the provider's historical endpoint.
func (c *Client) History(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	var resp historicalResp
	err := c.base.GetJSON(ctx, "/market/historical/"+symbol+"/1d", map[string][]string{
		"from": {from.Format(xutil.CodeLayout)},
		"to":   {to.Format(xutil.CodeLayout)},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("historical %s: %w", symbol, err)
	}

	out := make([]models.Bar, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.Close == nil || !(*d.Close > 0) {
			continue
		}
		ts, ok := parseAnyTime(d.Time)
		if !ok {
			continue
		}
		b := models.Bar{Date: xutil.Day(ts), Close: *d.Close, Open: *d.Close, High: *d.Close, Low: *d.Close}
		if d.Open != nil {
			b.Open = *d.Open
		}
		if d.High != nil {
			b.High = *d.High
		}
		if d.Low != nil {
			b.Low = *d.Low
		}
		if d.Volume != nil {
			b.Volume = *d.Volume
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("historical %s: no bars", symbol)
	}
	return out, nil
}

// parseAnyTime accepts epoch milliseconds/seconds or a date string.
func parseAnyTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC(), true
		}
		return time.Unix(int64(t), 0).UTC(), true
	case string:
		return xutil.ParseTime(t)
	default:
		return time.Time{}, false
	}
}

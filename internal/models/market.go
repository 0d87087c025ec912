package models

import (
	"sort"
	"time"
)

// EODBar represents a single day's price data
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// PriceHistory is an OHLCV series for one ticker as returned by a provider.
type PriceHistory struct {
	Ticker   string   `json:"ticker"`
	Period   string   `json:"period"`
	Interval string   `json:"interval"`
	Source   string   `json:"source,omitempty"`
	Bars     []EODBar `json:"bars"`
}

// IsEmpty reports whether the history holds no bars.
func (h *PriceHistory) IsEmpty() bool {
	return h == nil || len(h.Bars) == 0
}

// SortedBars returns the bars ordered by ascending date with one bar per
// calendar day; when a date repeats, the later observation wins.
func (h *PriceHistory) SortedBars() []EODBar {
	if h.IsEmpty() {
		return nil
	}
	bars := make([]EODBar, len(h.Bars))
	copy(bars, h.Bars)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && SameDay(out[n-1].Date, b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// SameDay reports whether two timestamps fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// DayKey truncates a timestamp to midnight UTC.
func DayKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RealTimeQuote holds a point-in-time price snapshot
type RealTimeQuote struct {
	Ticker        string    `json:"ticker"`
	Price         float64   `json:"price"`
	Open          float64   `json:"open,omitempty"`
	High          float64   `json:"high,omitempty"`
	Low           float64   `json:"low,omitempty"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_pct"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source,omitempty"` // "eodhd", "yahoo" or "asx"
}

// FillChange derives Change and ChangePct from Price and PreviousClose when
// the provider did not supply them.
func (q *RealTimeQuote) FillChange() {
	if q.PreviousClose <= 0 {
		return
	}
	if q.Change == 0 {
		q.Change = q.Price - q.PreviousClose
	}
	if q.ChangePct == 0 {
		q.ChangePct = q.Change / q.PreviousClose * 100
	}
}

// CompanyInfo is the subset of company profile data used for classification.
type CompanyInfo struct {
	Ticker      string `json:"ticker"`
	Name        string `json:"name,omitempty"`
	Sector      string `json:"sector,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Country     string `json:"country,omitempty"`
	Exchange    string `json:"exchange,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

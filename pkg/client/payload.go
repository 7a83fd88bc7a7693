package client

import (
	"time"

	"github.com/Sternrassler/order-report/pkg/report"
)

// Search template defaults.
const (
	DefaultViewName      = "orderdetails"
	DefaultSortField     = "OrderDate"
	DefaultTimeZone      = "America/Chicago"
	DefaultComponentName = "com-manh-cp-xint"
	DefaultPageSize      = 100
	DefaultMaxCountLimit = 1000

	// DateLayout is the date format the search filter expects, e.g. "05 Mar 2026".
	DateLayout = "02 Jan 2006"
)

// SearchPayload is the search request body. It is re-sent for every page
// with only Page changed.
type SearchPayload struct {
	ViewName            string         `json:"ViewName"`
	Filters             []SearchFilter `json:"Filters"`
	RequestAttributeIds []string       `json:"RequestAttributeIds"`
	SearchOptions       []any          `json:"SearchOptions"`
	SearchChains        []any          `json:"SearchChains"`
	FilterExpression    *string        `json:"FilterExpression"`
	Page                int            `json:"Page"`
	TotalCount          int            `json:"TotalCount"`
	SortOrder           string         `json:"SortOrder"`
	SortIndicator       string         `json:"SortIndicator"`
	TimeZone            string         `json:"TimeZone"`
	IsCommonUI          bool           `json:"IsCommonUI"`
	ComponentShortName  *string        `json:"ComponentShortName"`
	EnableMaxCountLimit bool           `json:"EnableMaxCountLimit"`
	MaxCountLimit       int            `json:"MaxCountLimit"`
	ComponentName       string         `json:"ComponentName"`
	Size                int            `json:"Size"`
	Sort                string         `json:"Sort"`
}

// SearchFilter is one entry of SearchPayload.Filters. FilterValues holds
// either DateFilterValue objects or quoted search strings.
type SearchFilter struct {
	ViewName       string  `json:"ViewName"`
	AttributeID    string  `json:"AttributeId"`
	DataType       *string `json:"DataType"`
	RequiredFilter bool    `json:"requiredFilter"`
	FilterValues   []any   `json:"FilterValues"`
	NegativeFilter bool    `json:"negativeFilter"`
}

// DateFilterValue selects a date range over full days.
type DateFilterValue struct {
	Filter DateFilter `json:"filter"`
}

type DateFilter struct {
	Date        DateRange  `json:"date"`
	Time        TimeWindow `json:"time"`
	QuickSelect string     `json:"quickSelect"`
}

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TimeWindow is expressed both as clock times and as 5-minute slot indices.
type TimeWindow struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// PayloadOptions carries the client-level template settings.
type PayloadOptions struct {
	PageSize      int
	MaxCountLimit int
	TimeZone      string
}

// BuildPayload builds the search body for the inclusive date range [from, to],
// applying cfg overrides when cfg is non-nil.
func BuildPayload(from, to time.Time, cfg *report.Config, opts PayloadOptions) *SearchPayload {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxCountLimit <= 0 {
		opts.MaxCountLimit = DefaultMaxCountLimit
	}
	if opts.TimeZone == "" {
		opts.TimeZone = DefaultTimeZone
	}

	payload := &SearchPayload{
		ViewName: DefaultViewName,
		Filters: []SearchFilter{{
			ViewName:    DefaultViewName,
			AttributeID: "OrderDate",
			FilterValues: []any{DateFilterValue{Filter: DateFilter{
				Date: DateRange{
					From: from.Format(DateLayout),
					To:   to.Format(DateLayout),
				},
				Time:        TimeWindow{From: "00:00", To: "23:59", Start: 0, End: 288},
				QuickSelect: "CUSTOM",
			}}},
		}},
		RequestAttributeIds: []string{},
		SearchOptions:       []any{},
		SearchChains:        []any{},
		Page:                0,
		TotalCount:          -1,
		SortOrder:           "desc",
		SortIndicator:       "chevron-up",
		TimeZone:            opts.TimeZone,
		EnableMaxCountLimit: true,
		MaxCountLimit:       opts.MaxCountLimit,
		ComponentName:       DefaultComponentName,
		Size:                opts.PageSize,
		Sort:                DefaultSortField,
	}

	if cfg == nil {
		return payload
	}

	if len(cfg.ReportFields) > 0 {
		payload.RequestAttributeIds = append([]string(nil), cfg.ReportFields...)
	}

	params := cfg.QueryParameters
	if params.ViewName != "" {
		payload.ViewName = params.ViewName
		payload.Filters[0].ViewName = params.ViewName
	}
	if params.SortField != "" {
		payload.Sort = params.SortField
	}
	if params.OrderType != "" {
		text := "text"
		payload.Filters = append(payload.Filters, SearchFilter{
			ViewName:     payload.ViewName,
			AttributeID:  "TextSearch",
			DataType:     &text,
			FilterValues: []any{`"` + params.OrderType + `"`},
		})
	}

	return payload
}

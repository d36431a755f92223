// Package domain holds the record types that flow through the sales loader:
// raw sales and clients as read from the inputs, cleansed sales with a parsed
// amount, and the joined rows that are persisted and reported on.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amounts are held to the shape of a DECIMAL(19,4) column: AmountScale
// digits after the point and AmountPrecision digits in total.
const (
	AmountPrecision = 19
	AmountScale     = 4
)

// Sale is one row of the quarterly sales file. RawAmount is kept exactly as
// read; it is only interpreted by the cleansing stage.
type Sale struct {
	SalesID   int64
	Date      time.Time
	Product   string
	RawAmount string
	ClientID  string

	// Line is the 1-based physical line in the source file (header is line 1).
	Line int
}

// Client is one row of the client directory. Clients are never mutated.
type Client struct {
	ClientID string
	Name     string
	Region   string

	// Row is the 1-based row in the source sheet (header is row 1).
	Row int
}

// CleanSale is a Sale whose amount parsed as a number.
type CleanSale struct {
	Sale
	Amount decimal.Decimal
}

// JoinedSale is a cleansed sale with client attributes attached. When Matched
// is false the sale had no client in the directory and Name/Region are empty.
type JoinedSale struct {
	CleanSale
	Name    string
	Region  string
	Matched bool
	Month   int
}

// MonthOf returns the calendar month (1-12) of t.
func MonthOf(t time.Time) int { return int(t.Month()) }

// Package entity defines the domain models for the forecast feature.
package entity

import "time"

// PriceObservation is one daily closing price of the forecast ticker.
type PriceObservation struct {
	Date  time.Time // Calendar date at midnight UTC
	Close float64   // Closing price
}

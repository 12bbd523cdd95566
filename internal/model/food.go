package model

import (
	"strings"
	"time"
)

type Zone string

const (
	ZoneFridge  Zone = "fridge"
	ZoneFreezer Zone = "freezer"
	ZonePantry  Zone = "pantry"
)

// Zones lists every kitchen zone in display order.
var Zones = []Zone{ZoneFridge, ZoneFreezer, ZonePantry}

// ParseZone accepts a zone name in any case.
func ParseZone(s string) (Zone, bool) {
	z := Zone(strings.ToLower(strings.TrimSpace(s)))
	switch z {
	case ZoneFridge, ZoneFreezer, ZonePantry:
		return z, true
	}
	return "", false
}

type FoodItem struct {
	ID         string     `json:"food_id"`
	Owner      *string    `json:"owner,omitempty"`
	Barcode    *string    `json:"barcode,omitempty"`
	Type       string     `json:"type"`
	Image      string     `json:"image"`
	Name       string     `json:"name"`
	Brand      string     `json:"brand"`
	Unit       string     `json:"unit"`
	Amount     float64    `json:"amount"`
	Count      int        `json:"count"`
	Expiration *time.Time `json:"expiration,omitempty"`
	Modified   time.Time  `json:"modified"`
	Revision   int64      `json:"revision"`
}

type ZonedFoodItem struct {
	Zone Zone `json:"zone"`
	FoodItem
}

type FoodInput struct {
	Owner      *string    `json:"owner,omitempty"`
	Barcode    *string    `json:"barcode,omitempty"`
	Type       string     `json:"type"`
	Image      string     `json:"image"`
	Name       string     `json:"name"`
	Brand      string     `json:"brand"`
	Unit       string     `json:"unit"`
	Amount     float64    `json:"amount"`
	Count      int        `json:"count"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

type FoodPatch struct {
	Owner      *string    `json:"owner,omitempty"`
	Barcode    *string    `json:"barcode,omitempty"`
	Type       *string    `json:"type,omitempty"`
	Image      *string    `json:"image,omitempty"`
	Name       *string    `json:"name,omitempty"`
	Brand      *string    `json:"brand,omitempty"`
	Unit       *string    `json:"unit,omitempty"`
	Amount     *float64   `json:"amount,omitempty"`
	Count      *int       `json:"count,omitempty"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

// Apply merges the provided fields over item. Modified is left to the caller.
func (p FoodPatch) Apply(item *FoodItem) {
	if p.Owner != nil {
		item.Owner = p.Owner
	}
	if p.Barcode != nil {
		item.Barcode = p.Barcode
	}
	if p.Type != nil {
		item.Type = *p.Type
	}
	if p.Image != nil {
		item.Image = *p.Image
	}
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Brand != nil {
		item.Brand = *p.Brand
	}
	if p.Unit != nil {
		item.Unit = *p.Unit
	}
	if p.Amount != nil {
		item.Amount = *p.Amount
	}
	if p.Count != nil {
		item.Count = *p.Count
	}
	if p.Expiration != nil {
		item.Expiration = p.Expiration
	}
}

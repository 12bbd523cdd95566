package model

import "time"

type GroceryItem struct {
	ID        string    `json:"grocery_list_item_id"`
	WhoAdded  string    `json:"who_added"`
	Image     string    `json:"image"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	Unit      string    `json:"unit"`
	Amount    float64   `json:"amount"`
	Count     int       `json:"count"`
	IsChecked bool      `json:"is_checked"`
	Modified  time.Time `json:"modified"`
	Revision  int64     `json:"revision"`
}

type GroceryInput struct {
	Image  string  `json:"image"`
	Name   string  `json:"name"`
	Brand  string  `json:"brand"`
	Unit   string  `json:"unit"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

type GroceryPatch struct {
	Image     *string  `json:"image,omitempty"`
	Name      *string  `json:"name,omitempty"`
	Brand     *string  `json:"brand,omitempty"`
	Unit      *string  `json:"unit,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
	Count     *int     `json:"count,omitempty"`
	IsChecked *bool    `json:"is_checked,omitempty"`
}

func (p GroceryPatch) Apply(item *GroceryItem) {
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
	if p.IsChecked != nil {
		item.IsChecked = *p.IsChecked
	}
}

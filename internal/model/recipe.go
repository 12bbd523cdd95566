package model

import "time"

type Recipe struct {
	ID          string    `json:"recipe_id"`
	WhoAdded    string    `json:"who_added"`
	Image       string    `json:"image"`
	Name        string    `json:"name"`
	Time        int       `json:"time"`
	Ingredients []string  `json:"ingredients"`
	Modified    time.Time `json:"modified"`
	Revision    int64     `json:"revision"`
}

type RecipeInput struct {
	Image       string   `json:"image"`
	Name        string   `json:"name"`
	Time        int      `json:"time"`
	Ingredients []string `json:"ingredients"`
}

type RecipePatch struct {
	Image       *string  `json:"image,omitempty"`
	Name        *string  `json:"name,omitempty"`
	Time        *int     `json:"time,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

func (p RecipePatch) Apply(r *Recipe) {
	if p.Image != nil {
		r.Image = *p.Image
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Time != nil {
		r.Time = *p.Time
	}
	if p.Ingredients != nil {
		r.Ingredients = append([]string(nil), p.Ingredients...)
	}
}

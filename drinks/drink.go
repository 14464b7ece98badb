// Package drinks holds the catalog domain: the Drink record, its public and
// detailed representations, validation and the Store contract implemented by
// the persistence backends.
package drinks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTitleLength bounds Drink.Title in characters.
const MaxTitleLength = 80

var (
	// ErrNotFound is returned when no drink has the requested id.
	ErrNotFound = errors.New("drinks: not found")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("drinks: invalid drink")
	// ErrDuplicateTitle is returned when another drink already uses the title.
	ErrDuplicateTitle = errors.New("drinks: duplicate title")
)

// Ingredient is one component of a recipe.
type Ingredient struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// Recipe is an ordered list of ingredients. It decodes from either a single
// ingredient object or an array of them.
type Recipe []Ingredient

func (r *Recipe) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var one Ingredient
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*r = Recipe{one}
		return nil
	}
	var many []Ingredient
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*r = many
	return nil
}

// Drink is a catalog entry.
type Drink struct {
	ID     int64
	Title  string
	Recipe Recipe
}

// ShortIngredient is the public view of an ingredient; it hides the name.
type ShortIngredient struct {
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// Short is the public representation of a drink.
type Short struct {
	ID     int64             `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

// Long is the detailed representation of a drink.
type Long struct {
	ID     int64        `json:"id"`
	Title  string       `json:"title"`
	Recipe []Ingredient `json:"recipe"`
}

// Short returns the public view of d.
func (d Drink) Short() Short {
	out := Short{ID: d.ID, Title: d.Title, Recipe: make([]ShortIngredient, 0, len(d.Recipe))}
	for _, in := range d.Recipe {
		out.Recipe = append(out.Recipe, ShortIngredient{Color: in.Color, Parts: in.Parts})
	}
	return out
}

// Long returns the detailed view of d.
func (d Drink) Long() Long {
	recipe := make([]Ingredient, len(d.Recipe))
	copy(recipe, d.Recipe)
	return Long{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// Validate reports the first problem with d wrapped in ErrInvalid.
func (d Drink) Validate() error {
	title := strings.TrimSpace(d.Title)
	switch {
	case title == "":
		return fmt.Errorf("%w: title is required", ErrInvalid)
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalid, MaxTitleLength)
	case len(d.Recipe) == 0:
		return fmt.Errorf("%w: recipe needs at least one ingredient", ErrInvalid)
	}
	for i, in := range d.Recipe {
		if strings.TrimSpace(in.Name) == "" {
			return fmt.Errorf("%w: ingredient %d: name is required", ErrInvalid, i)
		}
		if strings.TrimSpace(in.Color) == "" {
			return fmt.Errorf("%w: ingredient %d: color is required", ErrInvalid, i)
		}
		if in.Parts < 1 {
			return fmt.Errorf("%w: ingredient %d: parts must be at least 1", ErrInvalid, i)
		}
	}
	return nil
}

// Input is the request body accepted when creating a drink.
type Input struct {
	Title  string `json:"title"`
	Recipe Recipe `json:"recipe"`
}

// Drink converts in to an unsaved Drink.
func (in Input) Drink() Drink {
	return Drink{Title: strings.TrimSpace(in.Title), Recipe: in.Recipe}
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title  *string `json:"title"`
	Recipe *Recipe `json:"recipe"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool { return p.Title == nil && p.Recipe == nil }

// Apply returns d with p's fields applied.
func (p Patch) Apply(d Drink) Drink {
	if p.Title != nil {
		d.Title = strings.TrimSpace(*p.Title)
	}
	if p.Recipe != nil {
		d.Recipe = *p.Recipe
	}
	return d
}

// Store persists drinks. Implementations validate before writing and report
// failures with ErrNotFound, ErrInvalid and ErrDuplicateTitle where they apply.
type Store interface {
	List(ctx context.Context) ([]Drink, error)
	Get(ctx context.Context, id int64) (Drink, error)
	Create(ctx context.Context, d Drink) (Drink, error)
	Update(ctx context.Context, id int64, p Patch) (Drink, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

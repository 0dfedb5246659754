package item

import (
	"fmt"
	"strconv"
	"strings"
)

// Stack is the codec's unit of work: one game item with its required type and
// amount plus an open-ended set of optional attributes. Optional scalar fields
// are pointers so that "not set" and "set to the zero value" stay distinct
// across a round trip.
type Stack struct {
	Type            string         `json:"material"`
	Amount          int            `json:"amount"`
	Name            *string        `json:"name,omitempty"`
	Lore            []string       `json:"lore,omitempty"`
	Durability      *int           `json:"durability,omitempty"`
	CustomModelData *int           `json:"customModelData,omitempty"`
	Enchantments    map[string]int `json:"enchantments,omitempty"`

	// Extension blocks. A block is non-nil only when the item carries the
	// matching capability; decoding a payload without a block never
	// synthesizes a default-valued one.
	Book           *Book           `json:"book,omitempty"`
	Potion         *Potion         `json:"potion,omitempty"`
	Firework       *Firework       `json:"firework,omitempty"`
	FireworkEffect *FireworkEffect `json:"fireworkEffect,omitempty"`
	Leather        *Leather        `json:"leather,omitempty"`
	Skull          *Skull          `json:"skull,omitempty"`
	SpawnEgg       *SpawnEgg       `json:"spawnEgg,omitempty"`
	Crossbow       *Crossbow       `json:"crossbow,omitempty"`
}

// Book holds written-book metadata.
type Book struct {
	Title  string   `json:"title"`
	Author string   `json:"author"`
	Pages  []string `json:"pages,omitempty"`
}

// PotionEffect describes one custom potion effect.
type PotionEffect struct {
	ID        string `json:"id"`
	Duration  int    `json:"duration"`
	Amplifier int    `json:"amplifier"`
	Ambient   bool   `json:"ambient"`
	Particles bool   `json:"particles"`
}

// Potion holds potion metadata.
type Potion struct {
	CustomName *string        `json:"customName,omitempty"`
	Color      *Color         `json:"color,omitempty"`
	BaseType   string         `json:"baseType,omitempty"`
	Effects    []PotionEffect `json:"effects,omitempty"`
}

// FireworkEffect describes a single firework burst.
type FireworkEffect struct {
	Type       string  `json:"type"`
	Flicker    bool    `json:"flicker"`
	Trail      bool    `json:"trail"`
	Colors     []Color `json:"colors,omitempty"`
	FadeColors []Color `json:"fadeColors,omitempty"`
}

// Firework holds firework-rocket metadata: a list of bursts and flight power.
type Firework struct {
	Effects []FireworkEffect `json:"effects,omitempty"`
	Power   *int             `json:"power,omitempty"`
}

// Leather holds the dye color of leather armor.
type Leather struct {
	Color Color `json:"color"`
}

// Skull holds player-head ownership and remote texture references.
type Skull struct {
	Owner      string `json:"owner,omitempty"`
	Profile    string `json:"profile,omitempty"`
	ProfileURL string `json:"profileUrl,omitempty"`
}

// SpawnEgg holds the custom spawned-entity type of a spawn egg.
type SpawnEgg struct {
	EntityType string `json:"entityType"`
}

// Crossbow holds loaded projectiles, which are themselves full item records.
type Crossbow struct {
	Projectiles []Stack `json:"projectiles,omitempty"`
}

// Color is an RGBA color. On the wire it is a semicolon-joined quadruple
// ("r;g;b;a") so the persisted form stays representation-agnostic.
type Color struct {
	R, G, B, A int
}

// MarshalJSON encodes the color in its wire form.
func (c Color) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.String())), nil
}

// UnmarshalJSON decodes the wire form.
func (c *Color) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("color must be a string: %w", err)
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// String returns the "r;g;b;a" wire form.
func (c Color) String() string {
	return fmt.Sprintf("%d;%d;%d;%d", c.R, c.G, c.B, c.A)
}

// ParseColor parses the "r;g;b;a" wire form.
func ParseColor(s string) (Color, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 4 {
		return Color{}, fmt.Errorf("invalid color %q: expected 4 components", s)
	}
	var vals [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		vals[i] = v
	}
	return Color{R: vals[0], G: vals[1], B: vals[2], A: vals[3]}, nil
}

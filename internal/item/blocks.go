package item

import (
	"fmt"
)

// blockCodec is one entry in the extension-block registry: a capability tag
// (the wire key), a presence check on the source stack, and an encode/decode
// pair. The core loop never inspects item types itself, so new capabilities
// only require a new registry entry.
type blockCodec struct {
	key     string
	present func(*Stack) bool
	encode  func(*Stack) any
	decode  func(*Stack, any) error
}

// Registry order fixes the iteration order during encoding. Keys are unique
// per capability, so a record can carry any combination of blocks. Populated
// in init because the crossbow entry recurses through encodeStack and
// decodeStack, which walk the registry themselves.
var blockCodecs []blockCodec

func init() {
	blockCodecs = []blockCodec{
		{
			key:     "book",
			present: func(s *Stack) bool { return s.Book != nil },
			encode:  encodeBook,
			decode:  decodeBook,
		},
		{
			key:     "potion",
			present: func(s *Stack) bool { return s.Potion != nil },
			encode:  encodePotion,
			decode:  decodePotion,
		},
		{
			key:     "firework",
			present: func(s *Stack) bool { return s.Firework != nil },
			encode:  encodeFirework,
			decode:  decodeFirework,
		},
		{
			key:     "fireworkEffect",
			present: func(s *Stack) bool { return s.FireworkEffect != nil },
			encode:  encodeFireworkEffect,
			decode:  decodeFireworkEffect,
		},
		{
			key:     "leather",
			present: func(s *Stack) bool { return s.Leather != nil },
			encode:  encodeLeather,
			decode:  decodeLeather,
		},
		{
			key:     "skull",
			present: func(s *Stack) bool { return s.Skull != nil },
			encode:  encodeSkull,
			decode:  decodeSkull,
		},
		{
			key:     "spawnEgg",
			present: func(s *Stack) bool { return s.SpawnEgg != nil },
			encode:  encodeSpawnEgg,
			decode:  decodeSpawnEgg,
		},
		{
			key:     "crossbow",
			present: func(s *Stack) bool { return s.Crossbow != nil },
			encode:  encodeCrossbow,
			decode:  decodeCrossbow,
		},
	}
}

func encodeBook(s *Stack) any {
	block := map[string]any{
		"title":  s.Book.Title,
		"author": s.Book.Author,
	}
	if s.Book.Pages != nil {
		block["pages"] = s.Book.Pages
	}
	return block
}

func decodeBook(s *Stack, raw any) error {
	block, ok := asMap(raw)
	if !ok {
		return fmt.Errorf("expected object")
	}
	book := &Book{}
	if title, found := block["title"]; found {
		book.Title, ok = asString(title)
		if !ok {
			return fmt.Errorf("invalid title")
		}
	}
	if author, found := block["author"]; found {
		book.Author, ok = asString(author)
		if !ok {
			return fmt.Errorf("invalid author")
		}
	}
	if pages, found := block["pages"]; found {
		book.Pages, ok = asStringSlice(pages)
		if !ok {
			return fmt.Errorf("invalid pages")
		}
	}
	s.Book = book
	return nil
}

func encodePotion(s *Stack) any {
	block := map[string]any{}
	if s.Potion.CustomName != nil {
		block["customName"] = *s.Potion.CustomName
	}
	if s.Potion.Color != nil {
		block["color"] = s.Potion.Color.String()
	}
	if s.Potion.BaseType != "" {
		block["baseType"] = s.Potion.BaseType
	}
	if len(s.Potion.Effects) > 0 {
		effects := make([]map[string]any, 0, len(s.Potion.Effects))
		for _, effect := range s.Potion.Effects {
			effects = append(effects, map[string]any{
				"id":        effect.ID,
				"duration":  effect.Duration,
				"amplifier": effect.Amplifier,
				"ambient":   effect.Ambient,
				"particles": effect.Particles,
			})
		}
		block["effects"] = effects
	}
	return block
}

func decodePotion(s *Stack, raw any) error {
	block, ok := asMap(raw)
	if !ok {
		return fmt.Errorf("expected object")
	}
	potion := &Potion{}
	if name, found := block["customName"]; found {
		value, ok := asString(name)
		if !ok {
			return fmt.Errorf("invalid customName")
		}
		potion.CustomName = &value
	}
	if color, found := block["color"]; found {
		value, ok := asString(color)
		if !ok {
			return fmt.Errorf("invalid color")
		}
		parsed, err := ParseColor(value)
		if err != nil {
			return err
		}
		potion.Color = &parsed
	}
	if base, found := block["baseType"]; found {
		potion.BaseType, ok = asString(base)
		if !ok {
			return fmt.Errorf("invalid baseType")
		}
	}
	if rawEffects, found := block["effects"]; found {
		entries, ok := rawEffects.([]any)
		if !ok {
			return fmt.Errorf("invalid effects")
		}
		for _, entry := range entries {
			effectMap, ok := asMap(entry)
			if !ok {
				return fmt.Errorf("invalid effect entry")
			}
			effect, err := decodePotionEffect(effectMap)
			if err != nil {
				return err
			}
			potion.Effects = append(potion.Effects, effect)
		}
	}
	s.Potion = potion
	return nil
}

func decodePotionEffect(block map[string]any) (PotionEffect, error) {
	id, ok := asString(block["id"])
	if !ok || id == "" {
		return PotionEffect{}, fmt.Errorf("effect missing id")
	}
	effect := PotionEffect{ID: id, Duration: 200, Particles: true}
	if raw, found := block["duration"]; found {
		if effect.Duration, ok = asInt(raw); !ok {
			return PotionEffect{}, fmt.Errorf("invalid duration for effect %q", id)
		}
	}
	if raw, found := block["amplifier"]; found {
		if effect.Amplifier, ok = asInt(raw); !ok {
			return PotionEffect{}, fmt.Errorf("invalid amplifier for effect %q", id)
		}
	}
	if raw, found := block["ambient"]; found {
		if effect.Ambient, ok = asBool(raw); !ok {
			return PotionEffect{}, fmt.Errorf("invalid ambient for effect %q", id)
		}
	}
	if raw, found := block["particles"]; found {
		if effect.Particles, ok = asBool(raw); !ok {
			return PotionEffect{}, fmt.Errorf("invalid particles for effect %q", id)
		}
	}
	return effect, nil
}

func encodeEffect(effect *FireworkEffect) map[string]any {
	return map[string]any{
		"type":       effect.Type,
		"flicker":    effect.Flicker,
		"trail":      effect.Trail,
		"colors":     encodeColorSlice(effect.Colors),
		"fadeColors": encodeColorSlice(effect.FadeColors),
	}
}

func decodeEffect(block map[string]any) (*FireworkEffect, error) {
	effectType, ok := asString(block["type"])
	if !ok || effectType == "" {
		return nil, fmt.Errorf("effect missing type")
	}
	effect := &FireworkEffect{Type: effectType}
	if raw, found := block["flicker"]; found {
		if effect.Flicker, ok = asBool(raw); !ok {
			return nil, fmt.Errorf("invalid flicker")
		}
	}
	if raw, found := block["trail"]; found {
		if effect.Trail, ok = asBool(raw); !ok {
			return nil, fmt.Errorf("invalid trail")
		}
	}
	if raw, found := block["colors"]; found {
		colors, ok := asColorSlice(raw)
		if !ok {
			return nil, fmt.Errorf("invalid colors")
		}
		if len(colors) > 0 {
			effect.Colors = colors
		}
	}
	if raw, found := block["fadeColors"]; found {
		colors, ok := asColorSlice(raw)
		if !ok {
			return nil, fmt.Errorf("invalid fadeColors")
		}
		if len(colors) > 0 {
			effect.FadeColors = colors
		}
	}
	return effect, nil
}

func encodeFirework(s *Stack) any {
	block := map[string]any{}
	if len(s.Firework.Effects) > 0 {
		effects := make([]map[string]any, 0, len(s.Firework.Effects))
		for i := range s.Firework.Effects {
			effects = append(effects, encodeEffect(&s.Firework.Effects[i]))
		}
		block["effects"] = effects
	}
	if s.Firework.Power != nil {
		block["power"] = *s.Firework.Power
	}
	return block
}

func decodeFirework(s *Stack, raw any) error {
	block, ok := asMap(raw)
	if !ok {
		return fmt.Errorf("expected object")
	}
	firework := &Firework{}
	if rawEffects, found := block["effects"]; found {
		entries, ok := rawEffects.([]any)
		if !ok {
			return fmt.Errorf("invalid effects")
		}
		for _, entry := range entries {
			effectMap, ok := asMap(entry)
			if !ok {
				return fmt.Errorf("invalid effect entry")
			}
			effect, err := decodeEffect(effectMap)
			if err != nil {
				return err
			}
			firework.Effects = append(firework.Effects, *effect)
		}
	}
	if rawPower, found := block["power"]; found {
		power, ok := asInt(rawPower)
		if !ok {
			return fmt.Errorf("invalid power")
		}
		firework.Power = &power
	}
	s.Firework = firework
	return nil
}

func encodeFireworkEffect(s *Stack) any {
	return encodeEffect(s.FireworkEffect)
}

func decodeFireworkEffect(s *Stack, raw any) error {
	block, ok := asMap(raw)
	if !ok {
		return fmt.Errorf("expected object")
	}
	effect, err := decodeEffect(block)
	if err != nil {
		return err
	}
	s.FireworkEffect = effect
	return nil
}

func encodeLeather(s *Stack) any {
	return s.Leather.Color.String()
}

func decodeLeather(s *Stack, raw any) error {
	value, ok := asString(raw)
	if !ok {
		return fmt.Errorf("expected color string")
	}
	color, err := ParseColor(value)
	if err != nil {
		return err
	}
	s.Leather = &Leather{Color: color}
	return nil
}

func encodeSkull(s *Stack) any {
	block := map[string]any{}
	if s.Skull.Owner != "" {
		block["owner"] = s.Skull.Owner
	}
	if s.Skull.Profile != "" {
		block["profile"] = s.Skull.Profile
	}
	if s.Skull.ProfileURL != "" {
		block["profileUrl"] = s.Skull.ProfileURL
	}
	return block
}

func decodeSkull(s *Stack, raw any) error {
	block, ok := asMap(raw)
	if !ok {
		return fmt.Errorf("expected object")
	}
	skull := &Skull{}
	if owner, found := block["owner"]; found {
		if skull.Owner, ok = asString(owner); !ok {
			return fmt.Errorf("invalid owner")
		}
	}
	if profile, found := block["profile"]; found {
		if skull.Profile, ok = asString(profile); !ok {
			return fmt.Errorf("invalid profile")
		}
	}
	if url, found := block["profileUrl"]; found {
		if skull.ProfileURL, ok = asString(url); !ok {
			return fmt.Errorf("invalid profileUrl")
		}
	}
	s.Skull = skull
	return nil
}

func encodeSpawnEgg(s *Stack) any {
	return s.SpawnEgg.EntityType
}

func decodeSpawnEgg(s *Stack, raw any) error {
	entityType, ok := asString(raw)
	if !ok || entityType == "" {
		return fmt.Errorf("expected entity type string")
	}
	s.SpawnEgg = &SpawnEgg{EntityType: entityType}
	return nil
}

func encodeCrossbow(s *Stack) any {
	projectiles := make([]map[string]any, 0, len(s.Crossbow.Projectiles))
	for i := range s.Crossbow.Projectiles {
		projectiles = append(projectiles, encodeStack(&s.Crossbow.Projectiles[i]))
	}
	return projectiles
}

func decodeCrossbow(s *Stack, raw any) error {
	entries, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("expected projectile list")
	}
	crossbow := &Crossbow{}
	for i, entry := range entries {
		record, ok := asMap(entry)
		if !ok {
			return fmt.Errorf("invalid projectile %d", i)
		}
		projectile, err := decodeStack(record)
		if err != nil {
			return fmt.Errorf("projectile %d: %w", i, err)
		}
		crossbow.Projectiles = append(crossbow.Projectiles, *projectile)
	}
	s.Crossbow = crossbow
	return nil
}

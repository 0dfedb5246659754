package item

import (
	"encoding/json"
	"fmt"
	"log"
)

// The codec persists an ordered item sequence as a single self-contained blob:
// a JSON array of records, each record a mapping from attribute name to value.
// Attributes that are not set on the source item cost zero bytes and unknown
// attributes found in old or future blobs are ignored, so payloads stay
// readable across versions without a version tag.

// Encode serializes a sequence of stacks into one opaque byte blob.
func Encode(stacks []Stack) ([]byte, error) {
	records := make([]map[string]any, 0, len(stacks))
	for i := range stacks {
		records = append(records, encodeStack(&stacks[i]))
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encoding item payload: %w", err)
	}
	return data, nil
}

// Decode deserializes a blob produced by Encode. Records that cannot be
// parsed are logged and skipped; the number of dropped records is returned so
// callers can observe partial success. An error is returned only when the
// blob itself is unreadable.
func Decode(data []byte) ([]Stack, int, error) {
	if len(data) == 0 {
		return nil, 0, nil
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, 0, fmt.Errorf("unreadable item payload: %w", err)
	}

	stacks := make([]Stack, 0, len(records))
	dropped := 0
	for i, record := range records {
		stack, err := decodeStack(record)
		if err != nil {
			log.Printf("[ItemCodec] Dropping record %d: %v", i, err)
			dropped++
			continue
		}
		stacks = append(stacks, *stack)
	}
	return stacks, dropped, nil
}

func encodeStack(s *Stack) map[string]any {
	record := map[string]any{
		"material": s.Type,
		"amount":   s.Amount,
	}

	if s.Name != nil {
		record["name"] = *s.Name
	}
	if s.Lore != nil {
		record["lore"] = s.Lore
	}
	if s.Durability != nil {
		record["durability"] = *s.Durability
	}
	if s.CustomModelData != nil {
		record["customModelData"] = *s.CustomModelData
	}
	if len(s.Enchantments) > 0 {
		record["enchantments"] = s.Enchantments
	}

	for _, codec := range blockCodecs {
		if codec.present(s) {
			record[codec.key] = codec.encode(s)
		}
	}
	return record
}

func decodeStack(record map[string]any) (*Stack, error) {
	material, ok := asString(record["material"])
	if !ok || material == "" {
		return nil, fmt.Errorf("missing or invalid material")
	}
	amount, ok := asInt(record["amount"])
	if !ok || amount <= 0 {
		return nil, fmt.Errorf("missing or invalid amount for %q", material)
	}

	stack := &Stack{Type: material, Amount: amount}

	if raw, found := record["name"]; found {
		name, ok := asString(raw)
		if !ok {
			return nil, fmt.Errorf("invalid name for %q", material)
		}
		stack.Name = &name
	}
	if raw, found := record["lore"]; found {
		lore, ok := asStringSlice(raw)
		if !ok {
			return nil, fmt.Errorf("invalid lore for %q", material)
		}
		stack.Lore = lore
	}
	if raw, found := record["durability"]; found {
		durability, ok := asInt(raw)
		if !ok {
			return nil, fmt.Errorf("invalid durability for %q", material)
		}
		stack.Durability = &durability
	}
	if raw, found := record["customModelData"]; found {
		model, ok := asInt(raw)
		if !ok {
			return nil, fmt.Errorf("invalid customModelData for %q", material)
		}
		stack.CustomModelData = &model
	}
	if raw, found := record["enchantments"]; found {
		enchants, ok := asIntMap(raw)
		if !ok {
			return nil, fmt.Errorf("invalid enchantments for %q", material)
		}
		stack.Enchantments = enchants
	}

	for _, codec := range blockCodecs {
		raw, found := record[codec.key]
		if !found {
			continue
		}
		if err := codec.decode(stack, raw); err != nil {
			return nil, fmt.Errorf("invalid %s block for %q: %w", codec.key, material, err)
		}
	}
	return stack, nil
}

// Conversion helpers. json.Unmarshal into any yields float64 for every
// number, so integer attributes go through asInt on the way back out.

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asStringSlice(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func asIntMap(v any) (map[string]int, bool) {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]int, len(raw))
	for key, val := range raw {
		n, ok := asInt(val)
		if !ok {
			return nil, false
		}
		out[key] = n
	}
	return out, true
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asColorSlice(v any) ([]Color, bool) {
	raw, ok := asStringSlice(v)
	if !ok {
		return nil, false
	}
	out := make([]Color, 0, len(raw))
	for _, s := range raw {
		c, err := ParseColor(s)
		if err != nil {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

func encodeColorSlice(colors []Color) []string {
	out := make([]string, 0, len(colors))
	for _, c := range colors {
		out = append(out, c.String())
	}
	return out
}

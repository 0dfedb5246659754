package item

import (
	"encoding/json"
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func roundTrip(t *testing.T, stacks []Stack) []Stack {
	t.Helper()

	data, err := Encode(stacks)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, dropped, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("Decode dropped %d records", dropped)
	}
	return decoded
}

func TestRoundTripBasicStack(t *testing.T) {
	stacks := []Stack{
		{
			Type:            "DIAMOND_SWORD",
			Amount:          1,
			Name:            strPtr("&bExcalibur"),
			Lore:            []string{"&7Forged in fire", "&7Line two"},
			Durability:      intPtr(12),
			CustomModelData: intPtr(40001),
			Enchantments:    map[string]int{"sharpness": 5, "unbreaking": 3},
		},
		{Type: "BREAD", Amount: 16},
	}

	decoded := roundTrip(t, stacks)
	if !reflect.DeepEqual(stacks, decoded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, stacks)
	}
}

func TestRoundTripPreservesOrder(t *testing.T) {
	stacks := []Stack{
		{Type: "STONE", Amount: 1},
		{Type: "DIRT", Amount: 2},
		{Type: "STONE", Amount: 3},
	}

	decoded := roundTrip(t, stacks)
	if len(decoded) != 3 {
		t.Fatalf("expected 3 stacks, got %d", len(decoded))
	}
	for i, want := range []int{1, 2, 3} {
		if decoded[i].Amount != want {
			t.Errorf("stack %d: amount = %d, want %d", i, decoded[i].Amount, want)
		}
	}
}

func TestAbsentAttributesStayAbsent(t *testing.T) {
	decoded := roundTrip(t, []Stack{{Type: "STICK", Amount: 1}})

	s := decoded[0]
	if s.Name != nil || s.Durability != nil || s.CustomModelData != nil {
		t.Error("absent scalar attributes were synthesized on decode")
	}
	if s.Lore != nil || s.Enchantments != nil {
		t.Error("absent collection attributes were synthesized on decode")
	}
	if s.Book != nil || s.Potion != nil || s.Firework != nil || s.FireworkEffect != nil ||
		s.Leather != nil || s.Skull != nil || s.SpawnEgg != nil || s.Crossbow != nil {
		t.Error("absent extension blocks were synthesized on decode")
	}

	// The zero value and absence must stay distinct across a round trip.
	zero := roundTrip(t, []Stack{{Type: "STICK", Amount: 1, Durability: intPtr(0)}})
	if zero[0].Durability == nil || *zero[0].Durability != 0 {
		t.Error("zero-valued durability was not preserved")
	}
}

func TestEmptyPayload(t *testing.T) {
	stacks, dropped, err := Decode(nil)
	if err != nil || dropped != 0 || stacks != nil {
		t.Errorf("Decode(nil) = (%v, %d, %v), want (nil, 0, nil)", stacks, dropped, err)
	}

	data, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil) failed: %v", err)
	}
	decoded, dropped, err := Decode(data)
	if err != nil || dropped != 0 || len(decoded) != 0 {
		t.Errorf("empty sequence round trip = (%v, %d, %v)", decoded, dropped, err)
	}
}

func TestUnreadablePayload(t *testing.T) {
	if _, _, err := Decode([]byte("{not json")); err == nil {
		t.Error("expected error for unreadable payload")
	}
	if _, _, err := Decode([]byte(`{"material":"STONE"}`)); err == nil {
		t.Error("expected error for non-array payload")
	}
}

func TestMalformedRecordsAreDroppedNotFatal(t *testing.T) {
	payload := `[
		{"material":"STONE","amount":1},
		{"amount":5},
		{"material":"DIRT","amount":0},
		{"material":"BREAD","amount":3}
	]`

	stacks, dropped, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(stacks) != 2 || stacks[0].Type != "STONE" || stacks[1].Type != "BREAD" {
		t.Errorf("surviving stacks = %+v", stacks)
	}
}

func TestUnknownAttributesAreIgnored(t *testing.T) {
	payload := `[{"material":"STONE","amount":1,"futureAttribute":{"deep":[1,2,3]}}]`

	stacks, dropped, err := Decode([]byte(payload))
	if err != nil || dropped != 0 {
		t.Fatalf("Decode = (%d dropped, %v)", dropped, err)
	}
	if len(stacks) != 1 || stacks[0].Type != "STONE" {
		t.Errorf("stacks = %+v", stacks)
	}
}

func TestRoundTripBook(t *testing.T) {
	stacks := []Stack{{
		Type:   "WRITTEN_BOOK",
		Amount: 1,
		Book: &Book{
			Title:  "Chronicles",
			Author: "Steve",
			Pages:  []string{"Page one.", "Page two."},
		},
	}}

	decoded := roundTrip(t, stacks)
	if !reflect.DeepEqual(stacks, decoded) {
		t.Errorf("book round trip mismatch:\n got %+v\nwant %+v", decoded[0].Book, stacks[0].Book)
	}
}

func TestRoundTripPotion(t *testing.T) {
	stacks := []Stack{{
		Type:   "POTION",
		Amount: 1,
		Potion: &Potion{
			CustomName: strPtr("&dElixir"),
			Color:      &Color{R: 255, G: 0, B: 128, A: 255},
			BaseType:   "AWKWARD",
			Effects: []PotionEffect{
				{ID: "speed", Duration: 600, Amplifier: 1, Ambient: false, Particles: true},
				{ID: "regeneration", Duration: 200, Amplifier: 0, Ambient: true, Particles: false},
			},
		},
	}}

	decoded := roundTrip(t, stacks)
	if !reflect.DeepEqual(stacks, decoded) {
		t.Errorf("potion round trip mismatch:\n got %+v\nwant %+v", decoded[0].Potion, stacks[0].Potion)
	}
}

func TestPotionEffectDefaults(t *testing.T) {
	payload := `[{"material":"POTION","amount":1,"potion":{"effects":[{"id":"strength"}]}}]`

	stacks, dropped, err := Decode([]byte(payload))
	if err != nil || dropped != 0 {
		t.Fatalf("Decode = (%d dropped, %v)", dropped, err)
	}

	effects := stacks[0].Potion.Effects
	if len(effects) != 1 {
		t.Fatalf("expected 1 effect, got %d", len(effects))
	}
	if effects[0].Duration != 200 || !effects[0].Particles {
		t.Errorf("effect defaults = %+v, want duration 200, particles true", effects[0])
	}
}

func TestRoundTripFirework(t *testing.T) {
	stacks := []Stack{{
		Type:   "FIREWORK_ROCKET",
		Amount: 3,
		Firework: &Firework{
			Power: intPtr(2),
			Effects: []FireworkEffect{
				{
					Type:       "BALL_LARGE",
					Flicker:    true,
					Trail:      false,
					Colors:     []Color{{255, 0, 0, 255}, {0, 255, 0, 255}},
					FadeColors: []Color{{0, 0, 255, 255}},
				},
			},
		},
	}}

	decoded := roundTrip(t, stacks)
	if !reflect.DeepEqual(stacks, decoded) {
		t.Errorf("firework round trip mismatch:\n got %+v\nwant %+v", decoded[0].Firework, stacks[0].Firework)
	}
}

func TestRoundTripFireworkStar(t *testing.T) {
	stacks := []Stack{{
		Type:   "FIREWORK_STAR",
		Amount: 1,
		FireworkEffect: &FireworkEffect{
			Type:    "BURST",
			Flicker: false,
			Trail:   true,
			Colors:  []Color{{10, 20, 30, 40}},
		},
	}}

	decoded := roundTrip(t, stacks)
	if !reflect.DeepEqual(stacks, decoded) {
		t.Errorf("firework star round trip mismatch:\n got %+v\nwant %+v",
			decoded[0].FireworkEffect, stacks[0].FireworkEffect)
	}
}

func TestRoundTripLeatherAndSkullAndSpawnEgg(t *testing.T) {
	stacks := []Stack{
		{Type: "LEATHER_CHESTPLATE", Amount: 1, Leather: &Leather{Color: Color{120, 60, 30, 255}}},
		{Type: "PLAYER_HEAD", Amount: 1, Skull: &Skull{Owner: "Notch"}},
		{Type: "PLAYER_HEAD", Amount: 1, Skull: &Skull{
			Profile:    "b2f79c53-... base64",
			ProfileURL: "http://textures.example/abc",
		}},
		{Type: "ZOMBIE_SPAWN_EGG", Amount: 2, SpawnEgg: &SpawnEgg{EntityType: "HUSK"}},
	}

	decoded := roundTrip(t, stacks)
	if !reflect.DeepEqual(stacks, decoded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, stacks)
	}
}

func TestRoundTripCrossbowNested(t *testing.T) {
	stacks := []Stack{{
		Type:   "CROSSBOW",
		Amount: 1,
		Crossbow: &Crossbow{
			Projectiles: []Stack{
				{Type: "FIREWORK_ROCKET", Amount: 1, Firework: &Firework{Power: intPtr(1)}},
				{Type: "ARROW", Amount: 1, Name: strPtr("&cPiercer")},
			},
		},
	}}

	decoded := roundTrip(t, stacks)
	if !reflect.DeepEqual(stacks, decoded) {
		t.Errorf("crossbow round trip mismatch:\n got %+v\nwant %+v", decoded[0].Crossbow, stacks[0].Crossbow)
	}
}

func TestCrossbowWithBadProjectileDropsWholeRecord(t *testing.T) {
	payload := `[
		{"material":"CROSSBOW","amount":1,"crossbow":[{"material":"","amount":1}]},
		{"material":"STONE","amount":1}
	]`

	stacks, dropped, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(stacks) != 1 || stacks[0].Type != "STONE" {
		t.Errorf("surviving stacks = %+v", stacks)
	}
}

func TestBlockOnlyPresentWhenKeyPresent(t *testing.T) {
	data, err := Encode([]Stack{{Type: "POTION", Amount: 1}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("payload is not a JSON array of objects: %v", err)
	}
	for _, key := range []string{"book", "potion", "firework", "fireworkEffect", "leather", "skull", "spawnEgg", "crossbow"} {
		if _, found := records[0][key]; found {
			t.Errorf("encoded record carries %q block for plain item", key)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"255;128;0;255", Color{255, 128, 0, 255}, false},
		{"0;0;0;0", Color{}, false},
		{" 1; 2; 3; 4", Color{1, 2, 3, 4}, false},
		{"255;128;0", Color{}, true},
		{"a;b;c;d", Color{}, true},
		{"", Color{}, true},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if reparsed, err := ParseColor(got.String()); err != nil || reparsed != got {
			t.Errorf("String/Parse round trip mismatch for %q", tt.in)
		}
	}
}

package model

import (
	"log"

	"openkits-api/internal/item"
)

// Kit is a named, priced, permission-gated bundle of game items. The item
// payload is an opaque blob produced by the item codec; it is decoded lazily
// so list and lookup paths never pay the decoding cost.
type Kit struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Icon              string  `json:"icon"`
	Price             float64 `json:"price"`
	RequirePermission bool    `json:"require_permission"`
	Permission        string  `json:"permission"`
	Cooldown          int64   `json:"cooldown"`
	IsOneTime         bool    `json:"is_one_time"`
	Enable            bool    `json:"enable"`
	Items             []byte  `json:"-"`
}

// ItemSink receives the items delivered from a kit. The host-game inventory
// is the real implementation; tests use in-memory collectors.
type ItemSink interface {
	Receive(stack item.Stack) error
}

// ItemList decodes the kit's item payload. Unparseable records are dropped
// and counted; an unreadable payload yields an empty list.
func (k *Kit) ItemList() ([]item.Stack, int) {
	stacks, dropped, err := item.Decode(k.Items)
	if err != nil {
		log.Printf("[Kit] Failed to decode items for kit %d: %v", k.ID, err)
		return nil, 0
	}
	return stacks, dropped
}

// Give decodes the kit's items and delivers them to the sink. Delivery stops
// at the first sink failure.
func (k *Kit) Give(sink ItemSink) bool {
	stacks, dropped := k.ItemList()
	if dropped > 0 {
		log.Printf("[Kit] Kit %d: %d item records could not be decoded", k.ID, dropped)
	}
	for _, stack := range stacks {
		if err := sink.Receive(stack); err != nil {
			log.Printf("[Kit] Failed to deliver %s from kit %d: %v", stack.Type, k.ID, err)
			return false
		}
	}
	return true
}

// Clone returns a deep copy. The cache hands out clones so callers can never
// mutate a cached entry in place.
func (k *Kit) Clone() *Kit {
	copied := *k
	if k.Items != nil {
		copied.Items = make([]byte, len(k.Items))
		copy(copied.Items, k.Items)
	}
	return &copied
}

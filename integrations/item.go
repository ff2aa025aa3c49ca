package integrations

import (
	"encoding/json"
)

// Item is the normalized representation of a remote record (a CRM contact, a
// Notion page, an Airtable base). Items are produced fresh on every upstream
// fetch and never mutated afterwards. ParentID is a weak reference to another
// item's ID, never an owning pointer.
type Item struct {
	ID               string
	Type             string
	Name             string
	CreationTime     string
	LastModifiedTime string
	ParentID         string
}

// itemWire is the serialized shape of an Item in the data cache.
type itemWire struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	Name             string `json:"name"`
	CreationTime     string `json:"creation_time,omitempty"`
	LastModifiedTime string `json:"last_modified_time,omitempty"`
	ParentID         string `json:"parent_id,omitempty"`
}

// MarshalJSON implements the encoding hook the cache relies on: items define
// their own wire form so the cache never needs to know about them.
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemWire(it))
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var w itemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*it = Item(w)

	return nil
}

// ItemList is a fetch result together with its resource kind.
type ItemList struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
	Type  string `json:"type,omitempty"`
}

// NewItemList wraps items fetched for the given sub-type.
func NewItemList(items []Item, subType string) ItemList {
	return ItemList{Items: items, Total: len(items), Type: subType}
}

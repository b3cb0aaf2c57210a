package stac

import "encoding/json"

// Collection is a named group of items within a catalog
type Collection struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	License     string `json:"license,omitempty"`
	Links       []Link `json:"links,omitempty"`

	api *API
	raw json.RawMessage
}

// API returns the API the collection belongs to, or nil.
func (c *Collection) API() *API {
	return c.api
}

// DisplayTitle returns the title, falling back to the id
func (c *Collection) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return c.ID
}

// MarshalJSON returns the collection document as it was received, so fields
// not modelled here survive persistence.
func (c *Collection) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	type plain Collection
	return json.Marshal((*plain)(c))
}

func parseCollection(api *API, raw json.RawMessage) (*Collection, error) {
	c := &Collection{}
	type plain Collection
	if err := json.Unmarshal(raw, (*plain)(c)); err != nil {
		return nil, err
	}
	c.api = api
	c.raw = raw
	return c, nil
}

package stac

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Link is a hypermedia reference found in catalog responses. Method is
// always set after decoding and defaults to GET.
type Link struct {
	Href   string          `json:"href"`
	Rel    string          `json:"rel,omitempty"`
	Type   string          `json:"type,omitempty"`
	Title  string          `json:"title,omitempty"`
	Method string          `json:"method,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// UnmarshalJSON decodes a link and normalizes its method
func (l *Link) UnmarshalJSON(data []byte) error {
	type rawLink Link
	var decoded rawLink
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	decoded.Method = strings.ToUpper(strings.TrimSpace(decoded.Method))
	if decoded.Method == "" {
		decoded.Method = http.MethodGet
	}
	if string(decoded.Body) == "null" {
		decoded.Body = nil
	}

	*l = Link(decoded)
	return nil
}

func findLink(links []Link, rel string) *Link {
	for i := range links {
		if links[i].Rel == rel {
			link := links[i]
			return &link
		}
	}
	return nil
}

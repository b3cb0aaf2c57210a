package stac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectionIDFromHref(t *testing.T) {
	tests := []struct {
		name   string
		href   string
		wantID string
		wantOK bool
	}{
		{"collection href", "https://x/collections/sentinel-2", "sentinel-2", true},
		{"no collection segment", "https://x/foo", "", false},
		{"nested under prefix", "https://earth-search.aws.element84.com/v1/collections/sentinel-2-l2a", "sentinel-2-l2a", true},
		{"items sub resource", "https://x/collections/landsat-c2-l2/items", "landsat-c2-l2", true},
		{"query string ignored", "https://x/collections/naip?f=json", "naip", true},
		{"empty segment", "https://x/collections/", "", false},
		{"collections root", "https://x/collections", "", false},
		{"relative href", "/collections/cop-dem-glo-30", "cop-dem-glo-30", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := CollectionIDFromHref(tt.href)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

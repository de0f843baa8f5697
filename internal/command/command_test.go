package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceKeys(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		key  string
	}{
		{
			name: "set rating keys on the image",
			cmd:  SetRating{TenantID: "t1", ImageID: "img-5", Rating: 2},
			key:  "rating:img-5",
		},
		{
			name: "bulk permatags keys on the hotspot, not the images",
			cmd: BulkPermatags{
				TenantID:  "t1",
				HotspotID: "hs-red",
				Operations: []TagOperation{
					{ImageID: "a", Keyword: "sunset", Category: "scene", Signum: 1},
					{ImageID: "b", Keyword: "sunset", Category: "scene", Signum: 1},
				},
			},
			key: "permatags:hs-red",
		},
		{
			name: "add to list keys on the list entry",
			cmd:  AddToList{TenantID: "t1", ImageID: "img-9", ListID: "faves"},
			key:  "list:faves:img-9",
		},
		{
			name: "remove shares the add key so they serialize",
			cmd:  RemoveFromList{TenantID: "t1", ImageID: "img-9", ListID: "faves"},
			key:  "list:faves:img-9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.cmd.ResourceKey())
			// Derivation must be deterministic.
			assert.Equal(t, tt.cmd.ResourceKey(), tt.cmd.ResourceKey())
		})
	}
}

func TestBulkPermatagsRefDedupesImages(t *testing.T) {
	cmd := BulkPermatags{
		HotspotID: "hs-1",
		Operations: []TagOperation{
			{ImageID: "a", Keyword: "sunset", Signum: 1},
			{ImageID: "a", Keyword: "beach", Signum: 1},
			{ImageID: "b", Keyword: "sunset", Signum: -1},
		},
	}

	ref := cmd.Ref()
	assert.Equal(t, []string{"a", "b"}, ref.ImageIDs)
	assert.Equal(t, "hs-1", ref.HotspotID)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "rate img-5 → 3", SetRating{ImageID: "img-5", Rating: 3}.Describe())

	// An explicit description wins over the generated one.
	cmd := BulkPermatags{
		Description: "tag 12 as sunset",
		Operations:  make([]TagOperation, 12),
	}
	assert.Equal(t, "tag 12 as sunset", cmd.Describe())

	cmd.Description = ""
	assert.Equal(t, "12 tag changes", cmd.Describe())
}

package services

import "testing"

func TestSpacesSource_objectKey(t *testing.T) {
	tests := []struct {
		root string
		name string
		want string
	}{
		{root: "", name: "cards.json", want: "cards.json"},
		{root: "catalog", name: "sets.json", want: "catalog/sets.json"},
		{root: "tcg/v2", name: "cards.json", want: "tcg/v2/cards.json"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			s := &SpacesSource{CatalogRoot: tt.root}
			if got := s.objectKey(tt.name); got != tt.want {
				t.Errorf("objectKey(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

package browser

import "testing"

func TestSongIDFromURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"plain", "https://suno.com/song/abc-123", "abc-123", false},
		{"trailing slash", "https://suno.com/song/abc-123/", "abc-123", false},
		{"query string", "https://suno.com/song/abc-123?sh=1", "abc-123", false},
		{"create page", "https://suno.com/create", "", true},
		{"bare marker", "https://suno.com/song/", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := songIDFromURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("songIDFromURL(%q) = %q, want error", tt.url, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("songIDFromURL(%q): %v", tt.url, err)
			}
			if got != tt.want {
				t.Fatalf("songIDFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.CreateURL == "" {
		t.Fatal("default create URL missing")
	}
	if cfg.PageLoadTimeout <= 0 || cfg.SubmitTimeout <= 0 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	custom := Config{CreateURL: "https://example.test/create"}.withDefaults()
	if custom.CreateURL != "https://example.test/create" {
		t.Fatalf("explicit create URL overridden: %q", custom.CreateURL)
	}
}

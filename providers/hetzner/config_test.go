package hetzner

import "testing"

func TestLoadConfigFromMap(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]string
		wantURL  string
		wantPage int
		wantErr  bool
	}{
		{
			name:     "defaults",
			input:    map[string]string{"TOKEN": "abc"},
			wantURL:  DefaultURL,
			wantPage: DefaultPageSize,
		},
		{
			name:     "custom url and page size",
			input:    map[string]string{"TOKEN": "abc", "URL": "http://localhost:8080/api/v1/", "PAGE_SIZE": "50"},
			wantURL:  "http://localhost:8080/api/v1",
			wantPage: 50,
		},
		{name: "missing token", input: map[string]string{}, wantErr: true},
		{name: "bad url scheme", input: map[string]string{"TOKEN": "abc", "URL": "ftp://x"}, wantErr: true},
		{name: "bad page size", input: map[string]string{"TOKEN": "abc", "PAGE_SIZE": "many"}, wantErr: true},
		{name: "page size out of range", input: map[string]string{"TOKEN": "abc", "PAGE_SIZE": "5000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfigFromMap("hz", tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadConfigFromMap() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg.URL != tt.wantURL || cfg.PageSize != tt.wantPage {
				t.Errorf("cfg = %+v", cfg)
			}
		})
	}
}

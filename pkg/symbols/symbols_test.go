package symbols

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{
			name: "windows path with caret",
			path: `C:\data\^DAX.csv`,
			want: "^DAX",
		},
		{
			name: "unix path with caret",
			path: "/data/^AEX.csv",
			want: "^AEX",
		},
		{
			name: "unix path without caret",
			path: "/data/KOSPI.KS.csv",
			want: "KOSPI.KS",
		},
		{
			name: "windows path without caret",
			path: `C:\data\KOSPI.KS.csv`,
			want: "KOSPI.KS",
		},
		{
			name: "bare file name without separator",
			path: "AEX.csv",
			want: "AEX",
		},
		{
			name: "caret wins over later separator",
			path: "/data/indices/^GSPC.csv",
			want: "^GSPC",
		},
		{
			name:    "missing csv marker",
			path:    "/data/^DAX.txt",
			wantErr: true,
		},
		{
			name:    "caret after csv marker",
			path:    "/data/notes.csv^old",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Extract(%q) = %q, want error", tt.path, got)
				}
				if !errors.Is(err, ErrNotCSV) {
					t.Errorf("Extract(%q) error = %v, want ErrNotCSV", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract(%q) unexpected error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestExtractAll(t *testing.T) {
	e := NewExtractor(zap.NewNop(), "")

	paths := []string{
		"/data/^DAX.csv",
		"/data/sources.txt",
		"/data/^AEX.csv",
		"/data/sources_backup.csv",
		"/data/KOSPI.KS.csv",
		"/data/^DAX.csv", // duplicates are preserved
		"/data/readme.md",
	}

	got := e.ExtractAll(paths)
	want := []string{"^DAX", "^AEX", "KOSPI.KS", "^DAX"}

	if len(got) != len(want) {
		t.Fatalf("ExtractAll returned %d identifiers, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExtractAll[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractAllEmpty(t *testing.T) {
	e := NewExtractor(zap.NewNop(), "")

	if got := e.ExtractAll(nil); len(got) != 0 {
		t.Errorf("ExtractAll(nil) = %v, want empty", got)
	}
}

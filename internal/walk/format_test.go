package filerec

import (
	"testing"
)

func TestFormatItem(t *testing.T) {
	item := Item{Key: "sub/file.txt", Path: "/root/sub/file.txt"}

	tests := []struct {
		template string
		want     string
	}{
		{"{}", "/root/sub/file.txt"},
		{"{key}", "sub/file.txt"},
		{"{base} in {dir}", "file.txt in /root/sub"},
		{`{""}`, `"/root/sub/file.txt"`},
		{`{"key"} {"base"} {"dir"}`, `"sub/file.txt" "file.txt" "/root/sub"`},
		{"plain text", "plain text"},
		{"{unknown}", "{unknown}"},
	}

	for _, tt := range tests {
		if got := FormatItem(tt.template, item); got != tt.want {
			t.Errorf("FormatItem(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func BenchmarkFormatItem(b *testing.B) {
	templates := []string{
		"{key}",
		`Path: {""}, Name: {"base"}, Dir: {"dir"}`,
		"This is a plain string with no placeholders",
	}
	item := Item{Key: "path/to/file.txt", Path: "/root/path/to/file.txt"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tmpl := range templates {
			_ = FormatItem(tmpl, item)
		}
	}
}

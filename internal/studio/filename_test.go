package studio

import (
	"strings"
	"testing"
)

func TestDownloadName(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"A Red   Fox!! ", "a-red-fox!!.png"},
		{"  leading and\ttabs\n", "leading-and-tabs.png"},
		{"", "imagem-ia.png"},
		{"   \t\n", "imagem-ia.png"},
		{"Ação Rápida", "ação-rápida.png"},
		{strings.Repeat("x", 50) + "tail", strings.Repeat("x", 50) + ".png"},
		{strings.Repeat("ç", 60), strings.Repeat("ç", 50) + ".png"},
	}
	for _, tc := range tests {
		if got := DownloadName(tc.prompt); got != tc.want {
			t.Fatalf("DownloadName(%q) = %q, want %q", tc.prompt, got, tc.want)
		}
	}
}

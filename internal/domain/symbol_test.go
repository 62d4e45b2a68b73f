package domain

import (
	"errors"
	"testing"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "KS200", want: "KS200"},
		{in: " ks200 ", want: "KS200"},
		{in: "^ks200", want: "^KS200"},
		{in: "KRW=X", want: "KRW=X"},
		{in: "", wantErr: true},
		{in: `KS200") |> drop()`, wantErr: true},
		{in: "^", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeSymbol(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSymbol) {
				t.Errorf("NormalizeSymbol(%q): expected ErrInvalidSymbol, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

package scrape

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"elan_bot/internal/model"
)

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func TestParseTap(t *testing.T) {
	markup := loadFixture(t, "testdata/tap.html")

	ads, err := ParseTap(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	// Containers without a title or link are skipped silently.
	want := []model.Ad{
		{
			Title:    "2 otaqlı mənzil, 45 m²",
			Location: "Bakı, dünən 21:43",
			Price:    "450 AZN",
			PhotoURL: "https://tap.azstatic.com/images/f/1.jpg",
			Link:     "https://tap.az/elanlar/dasinmaz-emlak/menziller/12345",
		},
		{
			Title:    "Yeni tikili 3 otaqlı",
			Location: "Xırdalan, bu gün 09:15",
			Price:    priceUnknown,
			Link:     "https://tap.az/elanlar/dasinmaz-emlak/menziller/67890",
		},
	}
	if diff := cmp.Diff(want, ads); diff != "" {
		t.Errorf("ads mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTapEmptyPage(t *testing.T) {
	ads, err := ParseTap("<html><body><p>no listings today</p></body></html>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ads) != 0 {
		t.Errorf("expected no ads, got %d", len(ads))
	}
}

func TestParseTapCapsContainers(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < maxAds+5; i++ {
		fmt.Fprintf(&sb, `<div class="products-i">
			<a href="/elanlar/%d" class="products-link">
				<div class="products-name">Elan %d</div>
			</a>
		</div>`, i, i)
	}
	sb.WriteString("</body></html>")

	ads, err := ParseTap(sb.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(maxAds, len(ads)); diff != "" {
		t.Errorf("container cap mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("Elan 0", ads[0].Title); diff != "" {
		t.Errorf("first ad mismatch (-want +got):\n%s", diff)
	}
}

func TestSourceForURL(t *testing.T) {
	tests := []struct {
		url     string
		want    model.Source
		wantErr bool
	}{
		{url: "https://tap.az/elanlar/dasinmaz-emlak", want: model.SourceTap},
		{url: "https://bina.az/baki/kiraye", want: model.SourceBina},
		{url: "https://example.com/ads", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := SourceForURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("source mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

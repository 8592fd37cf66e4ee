package scrape

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"elan_bot/internal/model"
)

func TestParseBina(t *testing.T) {
	markup := loadFixture(t, "testdata/bina.html")

	ads, err := ParseBina(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []model.Ad{
		{
			// Caption "<title> - <location> - <detail>" splits into title
			// (with the detail re-attached) and an upper-cased location.
			Title:    "Satılır 2 otaqlı yeni tikili - 60 m²",
			Location: "Xırdalan şəhəri",
			Price:    "85 000 AZN",
			PhotoURL: "https://bina.azstatic.com/photos/1.jpg",
			Link:     "https://bina.az/items/4551234",
		},
		{
			Title:    "Kirayə 1 otaqlı mənzil",
			Location: locationUnknown,
			Price:    "500 AZN",
			PhotoURL: "https://bina.azstatic.com/photos/2.jpg",
			Link:     "https://bina.az/items/4559999",
		},
		{
			Title:    "Ev",
			Location: "Masazır",
			Price:    priceUnknown,
			Link:     "https://bina.az/items/4560000",
		},
	}
	if diff := cmp.Diff(want, ads); diff != "" {
		t.Errorf("ads mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBinaFallbackContainers(t *testing.T) {
	markup := `<html><body>
		<div class="items-i-vip">
			<a href="/items/1" class="item_link"><img alt="VIP mənzil - bakı"></a>
			<div class="items-price-vip">120 000 AZN</div>
		</div>
	</body></html>`

	ads, err := ParseBina(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []model.Ad{{
		Title:    "VIP mənzil",
		Location: "Bakı",
		Price:    "120 000 AZN",
		Link:     "https://bina.az/items/1",
	}}
	if diff := cmp.Diff(want, ads); diff != "" {
		t.Errorf("ads mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBinaEmptyPage(t *testing.T) {
	ads, err := ParseBina("<html><body></body></html>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ads) != 0 {
		t.Errorf("expected no ads, got %d", len(ads))
	}
}

func TestSplitCaption(t *testing.T) {
	tests := []struct {
		name         string
		caption      string
		wantTitle    string
		wantLocation string
	}{
		{
			name:         "title and location",
			caption:      "Satılır mənzil - masazır",
			wantTitle:    "Satılır mənzil",
			wantLocation: "Masazır",
		},
		{
			name:         "detail reattached to title",
			caption:      "Satılır mənzil - xırdalan - 60 m²",
			wantTitle:    "Satılır mənzil - 60 m²",
			wantLocation: "Xırdalan",
		},
		{
			name:         "no separator keeps caption as title",
			caption:      "Kirayə ev",
			wantTitle:    "Kirayə ev",
			wantLocation: locationUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, location := splitCaption(tt.caption)
			if diff := cmp.Diff(tt.wantTitle, title); diff != "" {
				t.Errorf("title mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantLocation, location); diff != "" {
				t.Errorf("location mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

package discover

import (
	"testing"
	"time"
)

const listingPage = `<!DOCTYPE html>
<html><body>
<div class="news">
  <a href="?p=articles&id=972">TOUR DE GARDE FEVRIER 2026</a>
  <a href="?p=articles&id=965">Assembl&eacute;e g&eacute;n&eacute;rale ordinaire</a>
  <a href="?p=articles&id=958">PHARMACIES DE GARDE JANVIER 2026</a>
  <a href="?p=articles&id=972">TOUR DE GARDE FEVRIER 2026 (duplicate)</a>
  <a href="mailto:contact@example.org">Contact</a>
</div>
<a href="?cat=1&rw=actualites&page=2">Plus d'articles</a>
</body></html>`

func TestParseListing(t *testing.T) {
	l, err := ParseListing([]byte(listingPage), "https://www.unppci.org/?cat=1&rw=actualites")
	if err != nil {
		t.Fatalf("ParseListing: %v", err)
	}
	if len(l.Articles) != 3 {
		t.Fatalf("got %d articles, want 3: %+v", len(l.Articles), l.Articles)
	}
	// Newest first.
	if l.Articles[0].ID != 972 || l.Articles[1].ID != 965 || l.Articles[2].ID != 958 {
		t.Errorf("order = %d, %d, %d", l.Articles[0].ID, l.Articles[1].ID, l.Articles[2].ID)
	}
	if got := l.Articles[0].URL; got != "https://www.unppci.org/?p=articles&id=972" {
		t.Errorf("resolved URL = %q", got)
	}
	if !l.Articles[0].IsGarde || l.Articles[1].IsGarde || !l.Articles[2].IsGarde {
		t.Errorf("garde flags = %v %v %v",
			l.Articles[0].IsGarde, l.Articles[1].IsGarde, l.Articles[2].IsGarde)
	}
	if l.NextURL != "https://www.unppci.org/?cat=1&rw=actualites&page=2" {
		t.Errorf("next = %q", l.NextURL)
	}
}

func TestParseListing_LastPageHasNoNext(t *testing.T) {
	page := `<html><body><a href="?p=articles&id=1">TOUR DE GARDE</a></body></html>`
	l, err := ParseListing([]byte(page), "https://www.unppci.org/")
	if err != nil {
		t.Fatalf("ParseListing: %v", err)
	}
	if l.NextURL != "" {
		t.Errorf("next = %q, want empty", l.NextURL)
	}
}

func TestGardeOnly(t *testing.T) {
	in := []Article{
		{ID: 1, Title: "TOUR DE GARDE", IsGarde: true},
		{ID: 2, Title: "Communiqué"},
	}
	out := GardeOnly(in)
	if len(out) != 1 || out[0].ID != 1 {
		t.Fatalf("GardeOnly = %+v", out)
	}
}

const articlePage = `<!DOCTYPE html>
<html><body>
<marquee><a href="/uploads/banner_promo.pdf">Promo permanente</a></marquee>
<div class="article">
  <a href="#" onclick="window.open('controllers/downloads.php?id=972','ipost')">GARDE FEVRIER 2026</a>
  <a href="#" onclick="window.open('controllers/downloads.php?id=973','ipost')">GARDE INTERIEUR FEVRIER 2026</a>
  <a href="/uploads/calendrier_2026.pdf">Calendrier annuel</a>
  <div data-doc="/uploads/note_service.pdf">Note de service</div>
</div>
<script>var preload = "/uploads/garde_fevrier_preview.pdf";</script>
</body></html>`

func TestPDFLinks(t *testing.T) {
	art := &Article{ID: 972, Title: "TOUR DE GARDE FEVRIER 2026", IsGarde: true}
	links, err := PDFLinks([]byte(articlePage), "https://www.unppci.org/?p=articles&id=972", art)
	if err != nil {
		t.Fatalf("PDFLinks: %v", err)
	}

	byURL := map[string]PDFLink{}
	for _, l := range links {
		byURL[l.URL] = l
	}
	if len(links) != 5 {
		t.Fatalf("got %d links, want 5: %+v", len(links), links)
	}
	if _, hit := byURL["https://www.unppci.org/uploads/banner_promo.pdf"]; hit {
		t.Error("banner PDF was not excluded")
	}

	dl := byURL["https://www.unppci.org/controllers/downloads.php?id=972"]
	if dl.Label != "GARDE FEVRIER 2026" {
		t.Errorf("onclick label = %q", dl.Label)
	}
	if dl.ArticleID != 972 || !dl.IsGarde {
		t.Errorf("link provenance = %+v", dl)
	}
	if l := byURL["https://www.unppci.org/uploads/garde_fevrier_preview.pdf"]; l.Label != "pdf (via JS)" {
		t.Errorf("script link label = %q", l.Label)
	}
	if l := byURL["https://www.unppci.org/uploads/note_service.pdf"]; l.Label != "Note de service" {
		t.Errorf("data-attribute link label = %q", l.Label)
	}
}

func TestPDFLinks_LabelFilterWithoutGardeArticle(t *testing.T) {
	page := `<html><body>
	<a href="/uploads/garde_mars.pdf">GARDE MARS 2026</a>
	<a href="/uploads/statuts.pdf">Statuts de l'union</a>
	</body></html>`
	links, err := PDFLinks([]byte(page), "https://www.unppci.org/", nil)
	if err != nil {
		t.Fatalf("PDFLinks: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("got %d links, want 2", len(links))
	}
	for _, l := range links {
		want := l.Label == "GARDE MARS 2026"
		if l.IsGarde != want {
			t.Errorf("%q IsGarde = %v", l.Label, l.IsGarde)
		}
	}
}

func TestFilterCurrentMonth(t *testing.T) {
	now := time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)
	links := []PDFLink{
		{Label: "GARDE FEVRIER 2026"},
		{Label: "garde fevrier 2026"},
		{Label: "GARDE INTERIEUR FEVRIER 2026"},
		{Label: "GARDE JANVIER 2026"},
		{Label: "GARDE FEVRIER 2025"},
		{Label: "Calendrier annuel"},
	}
	out := FilterCurrentMonth(links, now)
	if len(out) != 3 {
		t.Fatalf("kept %d links, want 3: %+v", len(out), out)
	}
	if !IsInterieur(out[2]) || IsInterieur(out[0]) {
		t.Errorf("interieur detection wrong: %+v", out)
	}
}

func TestMonthLabel(t *testing.T) {
	cases := map[time.Month]string{
		time.January:  "JANVIER",
		time.August:   "AOUT",
		time.December: "DECEMBRE",
	}
	for m, want := range cases {
		d := time.Date(2026, m, 1, 0, 0, 0, 0, time.UTC)
		if got := MonthLabel(d); got != want {
			t.Errorf("MonthLabel(%v) = %q, want %q", m, got, want)
		}
	}
}

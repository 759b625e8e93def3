package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const directoryHTML = `<!DOCTYPE html>
<html><body>
<h2>Semaine du 07/02/2026 au 13/02/2026</h2>
<h2>Liste des pharmacies de garde</h2>
<h3>Yopougon</h3>
<h4>Pharmacie de l'Esp&eacute;rance</h4>
<p>Carrefour Siporai</p>
<p>07 69 35 39 09</p>
<h3>Urgence</h3>
</body></html>`

func readPayloads(t *testing.T, path string) []payload {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var out []payload
	dec := json.NewDecoder(bytes.NewReader(b))
	for dec.More() {
		var p payload
		if err := dec.Decode(&p); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func TestRun_AnnuaireDryRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, directoryHTML)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "facts.json")
	a, err := New(context.Background(), Config{
		Source:      SourceAnnuaire,
		AnnuaireURL: srv.URL,
		DryRun:      true,
		OutputPath:  out,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	payloads := readPayloads(t, out)
	if len(payloads) != 1 {
		t.Fatalf("got %d payloads, want 1", len(payloads))
	}
	p := payloads[0]
	if p.Source != "annuaireci" || len(p.Facts) != 1 {
		t.Fatalf("payload = %+v", p)
	}
	if p.Facts[0].Pharmacy.NameNorm != "pharmacie de l esperance" {
		t.Errorf("name_norm = %q", p.Facts[0].Pharmacy.NameNorm)
	}
}

func bulletinPDF(t *testing.T) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 11)
	doc.AddPage()
	for _, line := range []string{
		"SEMAINE DU 07 AU 13 FEVRIER 2026",
		"YOPOUGON SECTEUR 1",
		"PHCIE DE L'ESPERANCE",
		"07 69 35 39 09",
	} {
		doc.CellFormat(0, 8, line, "", 1, "L", false, 0, "")
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRun_UNPPCIDryRun(t *testing.T) {
	pdf := bulletinPDF(t)
	mux := http.NewServeMux()
	var baseURL string
	mux.HandleFunc("/listing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><a href="%s/article?id=972">TOUR DE GARDE FEVRIER 2026</a></body></html>`, baseURL)
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><a href="#" onclick="window.open('%s/controllers/downloads.php?id=972','ipost')">GARDE FEVRIER 2026</a></body></html>`, baseURL)
	})
	mux.HandleFunc("/controllers/downloads.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdf)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	baseURL = srv.URL

	out := filepath.Join(t.TempDir(), "facts.json")
	a, err := New(context.Background(), Config{
		Source:        SourceUNPPCI,
		UNPPCIListing: srv.URL + "/listing",
		MaxArticles:   DefaultMaxArticles,
		MaxPages:      DefaultMaxPages,
		AllMonths:     true,
		DryRun:        true,
		OutputPath:    out,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	a.now = func() time.Time { return time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC) }

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	payloads := readPayloads(t, out)
	if len(payloads) != 1 {
		t.Fatalf("got %d payloads, want 1", len(payloads))
	}
	p := payloads[0]
	if p.Source != "unppci" || len(p.Facts) != 1 {
		t.Fatalf("payload = %+v", p)
	}
	f := p.Facts[0]
	if f.Pharmacy.CityNorm != "yopougon" || f.Pharmacy.NameNorm != "phcie de l esperance" {
		t.Errorf("fact = %+v", f.Pharmacy)
	}
	if f.Duty.Start.Format("2006-01-02") != "2026-02-07" {
		t.Errorf("start = %v", f.Duty.Start)
	}
}

func TestRun_NothingProcessedFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a, err := New(context.Background(), Config{
		Source:      SourceAnnuaire,
		AnnuaireURL: srv.URL,
		DryRun:      true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Run(context.Background()); err != ErrNoDocuments {
		t.Fatalf("err = %v, want ErrNoDocuments", err)
	}
}

func TestRun_ValidateOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, directoryHTML)
	}))
	defer srv.Close()

	a, err := New(context.Background(), Config{
		Source:       SourceAnnuaire,
		AnnuaireURL:  srv.URL,
		ValidateOnly: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("validate-only run: %v", err)
	}
}

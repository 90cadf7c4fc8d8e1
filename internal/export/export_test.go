package export_test

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"reface/internal/export"
	"reface/internal/project"
)

func sampleDocument() project.Document {
	doc := project.NewDocument()
	doc.UserDescription = "modernize the homepage"
	doc.Sections = []project.Section{
		{ID: "s1", Name: "Hero", GeneratedCode: "<section>hero</section>",
			GeneratedImageURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hero-img"))},
		{ID: "s2", Name: "Pricing", GeneratedCode: "<section>pricing</section>"},
		{ID: "s3", Name: "Footer", GeneratedCode: "<section>footer</section>"},
	}
	return doc
}

func TestHTMLPreservesSectionOrder(t *testing.T) {
	doc := sampleDocument()
	doc = project.MoveSection(doc, "s3", true)

	html := export.HTML(doc)
	hero := strings.Index(html, "<!-- Section: Hero -->")
	footer := strings.Index(html, "<!-- Section: Footer -->")
	pricing := strings.Index(html, "<!-- Section: Pricing -->")
	if hero < 0 || footer < 0 || pricing < 0 {
		t.Fatalf("missing section comments in output:\n%s", html)
	}
	if !(hero < footer && footer < pricing) {
		t.Fatalf("section order not preserved: hero=%d footer=%d pricing=%d", hero, footer, pricing)
	}
}

func TestHTMLSkipsSectionsWithoutCode(t *testing.T) {
	doc := sampleDocument()
	doc.Sections[1].GeneratedCode = ""

	html := export.HTML(doc)
	if strings.Contains(html, "Section: Pricing") {
		t.Error("codeless section should be skipped")
	}
	if !strings.Contains(html, "cdn.tailwindcss.com") || !strings.Contains(html, "lucide") {
		t.Error("shell scripts missing")
	}
}

func TestHTMLEscapesTitle(t *testing.T) {
	doc := sampleDocument()
	doc.UserDescription = `redesign <the> "shop"`
	html := export.HTML(doc)
	if !strings.Contains(html, "<title>redesign &lt;the&gt; &quot;shop&quot;</title>") {
		t.Fatalf("title not escaped:\n%s", html)
	}
}

func TestArchiveContents(t *testing.T) {
	doc := sampleDocument()

	var buf bytes.Buffer
	if err := export.Archive(&buf, doc); err != nil {
		t.Fatalf("archive: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}

	names := map[string]bool{}
	for _, file := range reader.File {
		names[file.Name] = true
	}
	if !names["index.html"] {
		t.Error("archive missing index.html")
	}
	if !names["images/section-1.png"] {
		t.Errorf("archive missing hero image, entries: %v", names)
	}
	if names["images/section-2.png"] {
		t.Error("section without image should have no entry")
	}

	for _, file := range reader.File {
		if file.Name != "images/section-1.png" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			t.Fatal(err)
		}
		var data bytes.Buffer
		if _, err := data.ReadFrom(rc); err != nil {
			t.Fatal(err)
		}
		rc.Close()
		if data.String() != "hero-img" {
			t.Errorf("unexpected image bytes %q", data.String())
		}
	}
}

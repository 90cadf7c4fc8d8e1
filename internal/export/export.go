// Package export renders the final deliverable: the generated sections joined
// in document order inside a standalone HTML shell, optionally packaged as a
// zip with the section concept images.
package export

import (
	"archive/zip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"reface/internal/project"
	"reface/internal/services"
)

const htmlHeader = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<script src="https://cdn.tailwindcss.com"></script>
<script src="https://unpkg.com/lucide@latest"></script>
</head>
<body>
`

const htmlFooter = `<script>lucide.createIcons();</script>
</body>
</html>
`

// HTML concatenates every section's generated code, in document order, inside
// the shell. Sections without code are skipped.
func HTML(doc project.Document) string {
	title := strings.TrimSpace(doc.UserDescription)
	if title == "" {
		title = "Redesigned Website"
	}

	var b strings.Builder
	fmt.Fprintf(&b, htmlHeader, htmlEscape(title))
	for _, section := range doc.Sections {
		if section.GeneratedCode == "" {
			continue
		}
		fmt.Fprintf(&b, "<!-- Section: %s -->\n", section.Name)
		b.WriteString(section.GeneratedCode)
		b.WriteByte('\n')
	}
	b.WriteString(htmlFooter)
	return b.String()
}

// Archive writes a zip with index.html plus the section concept images that
// exist as inline data URIs, named images/section-N.png by document position.
func Archive(w io.Writer, doc project.Document) error {
	zw := zip.NewWriter(w)

	index, err := zw.Create("index.html")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "export", "archive", "create index entry", err)
	}
	if _, err := io.WriteString(index, HTML(doc)); err != nil {
		return services.Wrap(services.ErrPersistence, "export", "archive", "write index entry", err)
	}

	for i, section := range doc.Sections {
		data, ok := decodeImageDataURI(section.GeneratedImageURL)
		if !ok {
			continue
		}
		entry, err := zw.Create(fmt.Sprintf("images/section-%d.png", i+1))
		if err != nil {
			return services.Wrap(services.ErrPersistence, "export", "archive", "create image entry", err)
		}
		if _, err := entry.Write(data); err != nil {
			return services.Wrap(services.ErrPersistence, "export", "archive", "write image entry", err)
		}
	}

	if err := zw.Close(); err != nil {
		return services.Wrap(services.ErrPersistence, "export", "archive", "finalize archive", err)
	}
	return nil
}

func decodeImageDataURI(uri string) ([]byte, bool) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, false
	}
	idx := strings.Index(uri, ",")
	if idx < 0 {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(uri[idx+1:])
	if err != nil {
		return nil, false
	}
	return data, true
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return replacer.Replace(s)
}

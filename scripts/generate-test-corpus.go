//go:build ignore

// Package main generates a synthetic office-document corpus for
// benchmarking the scanner, chunkers, and embedding pipeline.
// Usage: go run scripts/generate-test-corpus.go -files 1000 -output testdata/bench
package main

import (
	"archive/zip"
	"bytes"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of files to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

// Word pools for generating realistic office-document prose.
var (
	departments = []string{
		"Finance", "Legal", "Engineering", "Marketing", "Operations",
		"Human Resources", "Procurement", "Sales", "Support", "Compliance",
	}
	docTypes = []string{
		"Report", "Memo", "Proposal", "Summary", "Audit", "Plan",
		"Checklist", "Policy", "Brief", "Review",
	}
	topics = []string{
		"quarterly budget", "vendor onboarding", "data retention",
		"product roadmap", "incident response", "contract renewal",
		"headcount planning", "migration timeline", "expense policy",
		"customer escalation", "security audit", "release schedule",
	}
	subjectNouns = []string{
		"the project", "the initiative", "the department", "the vendor",
		"the client", "the platform", "the release", "the policy",
	}
	verbPhrases = []string{
		"has been finalized ahead of schedule",
		"requires sign-off from two additional stakeholders",
		"is currently under review by Legal",
		"exceeded the allocated budget by a small margin",
		"will be revisited at the next quarterly meeting",
		"was approved without further changes",
		"needs one more round of stakeholder feedback",
		"is blocked pending vendor confirmation",
	}
)

func randomWord(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

func sentence(rng *rand.Rand) string {
	return fmt.Sprintf("%s %s.",
		capitalize(randomWord(rng, subjectNouns)),
		randomWord(rng, verbPhrases))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func paragraph(rng *rand.Rand, sentences int) string {
	parts := make([]string, sentences)
	for i := range parts {
		parts[i] = sentence(rng)
	}
	return strings.Join(parts, " ")
}

func title(rng *rand.Rand) string {
	return fmt.Sprintf("%s %s: %s", randomWord(rng, departments), randomWord(rng, docTypes), randomWord(rng, topics))
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	subdirs := []string{"txt", "markdown", "xlsx", "pptx", "docx", "pdf"}
	for _, subdir := range subdirs {
		if err := os.MkdirAll(filepath.Join(*outputDir, subdir), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating subdirectory %s: %v\n", subdir, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generating %d files in %s...\n", *numFiles, *outputDir)

	// Distribute across formats, skewed toward the cheap-to-render
	// text/markdown formats the way a real knowledge-base folder would be.
	txtFiles := *numFiles * 25 / 100
	mdFiles := *numFiles * 25 / 100
	xlsxFiles := *numFiles * 20 / 100
	pptxFiles := *numFiles * 15 / 100
	docxFiles := *numFiles * 10 / 100
	pdfFiles := *numFiles - txtFiles - mdFiles - xlsxFiles - pptxFiles - docxFiles

	generated := 0
	generated += generateAll(txtFiles, func(i int) error { return generateTXTFile(rng, i) }, "txt")
	generated += generateAll(mdFiles, func(i int) error { return generateMDFile(rng, i) }, "markdown")
	generated += generateAll(xlsxFiles, func(i int) error { return generateXLSXFile(rng, i) }, "xlsx")
	generated += generateAll(pptxFiles, func(i int) error { return generatePPTXFile(rng, i) }, "pptx")
	generated += generateAll(docxFiles, func(i int) error { return generateDOCXFile(rng, i) }, "docx")
	generated += generateAll(pdfFiles, func(i int) error { return generatePDFFile(rng, i) }, "pdf")

	fmt.Printf("Generated %d files successfully.\n", generated)
}

func generateAll(count int, gen func(int) error, label string) int {
	n := 0
	for i := 0; i < count; i++ {
		if err := gen(i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s file %d: %v\n", label, i, err)
			continue
		}
		n++
	}
	return n
}

func generateTXTFile(rng *rand.Rand, index int) error {
	t := title(rng)
	var sb strings.Builder
	sb.WriteString(t)
	sb.WriteString("\n\n")
	for p := 0; p < 3+rng.Intn(5); p++ {
		sb.WriteString(paragraph(rng, 3+rng.Intn(4)))
		sb.WriteString("\n\n")
	}
	path := filepath.Join(*outputDir, "txt", fmt.Sprintf("doc_%d.txt", index))
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

func generateMDFile(rng *rand.Rand, index int) error {
	t := title(rng)
	var sb strings.Builder
	sb.WriteString("# " + t + "\n\n")
	sections := 2 + rng.Intn(4)
	for s := 0; s < sections; s++ {
		sb.WriteString(fmt.Sprintf("## %s\n\n", randomWord(rng, topics)))
		for p := 0; p < 1+rng.Intn(3); p++ {
			sb.WriteString(paragraph(rng, 2+rng.Intn(3)))
			sb.WriteString("\n\n")
		}
	}
	path := filepath.Join(*outputDir, "markdown", fmt.Sprintf("doc_%d.md", index))
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

func generateXLSXFile(rng *rand.Rand, index int) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	headers := []string{"Item", "Department", "Owner", "Status", "Amount"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	rows := 20 + rng.Intn(80)
	for r := 0; r < rows; r++ {
		row := r + 2
		values := []any{
			fmt.Sprintf("%s item %d", randomWord(rng, topics), r),
			randomWord(rng, departments),
			fmt.Sprintf("owner-%d", rng.Intn(30)),
			[]string{"open", "closed", "in progress", "blocked"}[rng.Intn(4)],
			rng.Float64() * 10000,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	path := filepath.Join(*outputDir, "xlsx", fmt.Sprintf("doc_%d.xlsx", index))
	return f.SaveAs(path)
}

// generatePPTXFile writes a minimal OOXML presentation: just enough of
// the zip/XML container for internal/chunk's slide walker to extract
// text from, matching exactly what that chunker reads.
func generatePPTXFile(rng *rand.Rand, index int) error {
	slides := 3 + rng.Intn(8)
	path := filepath.Join(*outputDir, "pptx", fmt.Sprintf("doc_%d.pptx", index))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	writePart := func(name, content string) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write([]byte(content))
		return err
	}

	if err := writePart("[Content_Types].xml", pptxContentTypes); err != nil {
		return err
	}
	if err := writePart("_rels/.rels", pptxRootRels); err != nil {
		return err
	}

	for s := 1; s <= slides; s++ {
		text := paragraph(rng, 2+rng.Intn(3))
		name := fmt.Sprintf("ppt/slides/slide%d.xml", s)
		if err := writePart(name, slideXML(title(rng), text)); err != nil {
			return err
		}
	}

	return zw.Close()
}

const pptxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="xml" ContentType="application/xml"/>
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
</Types>`

const pptxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>
</Relationships>`

func slideXML(heading, body string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld>
    <p:spTree>
      <p:sp><p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>
      <p:sp><p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>
    </p:spTree>
  </p:cSld>
</p:sld>`, xmlEscape(heading), xmlEscape(body))
}

// generateDOCXFile writes a minimal OOXML word-processing document:
// the standard four parts a docx reader needs to open and walk the
// paragraph stream, nothing Word-specific beyond that.
func generateDOCXFile(rng *rand.Rand, index int) error {
	path := filepath.Join(*outputDir, "docx", fmt.Sprintf("doc_%d.docx", index))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	writePart := func(name, content string) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write([]byte(content))
		return err
	}

	var body strings.Builder
	body.WriteString(paragraphXML(title(rng)))
	for p := 0; p < 4+rng.Intn(6); p++ {
		body.WriteString(paragraphXML(paragraph(rng, 2+rng.Intn(3))))
	}

	if err := writePart("[Content_Types].xml", docxContentTypes); err != nil {
		return err
	}
	if err := writePart("_rels/.rels", docxRootRels); err != nil {
		return err
	}
	if err := writePart("word/_rels/document.xml.rels", docxDocumentRels); err != nil {
		return err
	}
	if err := writePart("word/document.xml", documentXML(body.String())); err != nil {
		return err
	}

	return zw.Close()
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const docxDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`

func paragraphXML(text string) string {
	return fmt.Sprintf(`<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, xmlEscape(text))
}

func documentXML(body string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    %s
    <w:sectPr/>
  </w:body>
</w:document>`, body)
}

func xmlEscape(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return replacer.Replace(s)
}

// generatePDFFile writes a minimal valid single-object-stream PDF: one
// Catalog, one Pages tree, one Font, and a content stream per page
// drawing plain Tj-shown text lines. Byte offsets for the xref table
// are computed from what has actually been written, not hardcoded.
func generatePDFFile(rng *rand.Rand, index int) error {
	pages := 1 + rng.Intn(3)
	path := filepath.Join(*outputDir, "pdf", fmt.Sprintf("doc_%d.pdf", index))

	var buf bytes.Buffer
	offsets := []int{0} // object numbers are 1-based; offsets[0] unused

	writeObj := func(n int, body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
	}

	buf.WriteString("%PDF-1.4\n")

	// Object numbering: 1 catalog, 2 pages, 3 font, then per page a
	// page object followed by its content stream.
	fontObj := 3
	firstPageObj := 4

	kids := make([]string, pages)
	for p := 0; p < pages; p++ {
		kids[p] = fmt.Sprintf("%d 0 R", firstPageObj+2*p)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	writeObj(fontObj, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for p := 0; p < pages; p++ {
		pageObjNum := firstPageObj + 2*p
		contentObjNum := pageObjNum + 1

		lines := []string{title(rng)}
		for l := 0; l < 4+rng.Intn(6); l++ {
			lines = append(lines, sentence(rng))
		}

		var stream strings.Builder
		stream.WriteString("BT /F1 12 Tf 72 760 Td 16 TL\n")
		for _, line := range lines {
			fmt.Fprintf(&stream, "(%s) Tj T*\n", pdfEscape(line))
		}
		stream.WriteString("ET")

		writeObj(pageObjNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			fontObj, contentObjNum))
		writeObj(contentObjNum, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", stream.Len(), stream.String()))
	}

	xrefStart := buf.Len()
	totalObjs := len(offsets) // includes the unused index 0 slot
	fmt.Fprintf(&buf, "xref\n0 %d\n", totalObjs)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i < totalObjs; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", totalObjs, xrefStart)

	return os.WriteFile(path, buf.Bytes(), 0644)
}

func pdfEscape(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return replacer.Replace(s)
}

// Package extract turns uploaded files into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// CommandRunner runs an external program with data on stdin.
type CommandRunner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Extractor picks a strategy by file extension.
type Extractor struct {
	runner CommandRunner
}

var _ port.Extractor = (*Extractor)(nil)

func New(runner CommandRunner) *Extractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Extractor{runner: runner}
}

var plainText = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true,
	".log": true, ".json": true, ".yaml": true, ".yml": true, ".rst": true,
}

// Supported reports whether filename has an extractor.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return plainText[ext] || ext == ".html" || ext == ".htm" || ext == ".pdf"
}

func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case plainText[ext]:
		// Invalid byte sequences are dropped rather than failing the upload.
		return strings.ToValidUTF8(string(data), ""), nil
	case ext == ".html" || ext == ".htm":
		return extractHTML(data)
	case ext == ".pdf":
		return e.extractPDF(ctx, data)
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedType, filepath.Ext(filename))
	}
}

var spaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)
var blankLines = regexp.MustCompile(`\n{3,}`)

func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	return normalizeSpace(sel.Text()), nil
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return "", fmt.Errorf("%w: file does not look like a PDF", domain.ErrMalformedDocument)
	}
	out, err := e.runner.Run(ctx, data, "pdftotext", "-layout", "-enc", "UTF-8", "-", "-")
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	return normalizeSpace(strings.ToValidUTF8(string(out), "")), nil
}

func normalizeSpace(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

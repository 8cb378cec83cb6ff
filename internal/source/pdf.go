package source

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// fetchPDFPage renders one page of a PDF document referenced as
// pdf:<path>#page=N (1-based; the fragment defaults to page 1).
func fetchPDFPage(locator string, dpi int) (image.Image, error) {
	path, page, err := parsePDFLocator(locator)
	if err != nil {
		return nil, err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, fmt.Errorf("%s: page %d out of range (document has %d)", path, page, doc.NumPage())
	}
	if dpi <= 0 {
		dpi = 150
	}
	return doc.ImageDPI(page-1, float64(dpi))
}

func parsePDFLocator(locator string) (string, int, error) {
	rest := strings.TrimPrefix(locator, "pdf:")
	path, frag, _ := strings.Cut(rest, "#")
	if path == "" {
		return "", 0, fmt.Errorf("pdf locator %q has no path", locator)
	}

	page := 1
	if frag != "" {
		num, ok := strings.CutPrefix(frag, "page=")
		if !ok {
			return "", 0, fmt.Errorf("pdf locator %q: fragment must be page=N", locator)
		}
		n, err := strconv.Atoi(num)
		if err != nil || n < 1 {
			return "", 0, fmt.Errorf("pdf locator %q: bad page number", locator)
		}
		page = n
	}
	return path, page, nil
}

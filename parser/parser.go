package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Elements whose content is never visible text
const invisibleSelector = "script, style, noscript, template"

// Parser extracts the visible text from HTML
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

// ExtractText returns the visible text of an HTML document with whitespace
// collapsed to single spaces, so an unchanged page always yields the same text.
func (p *Parser) ExtractText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(invisibleSelector).Remove()

	return Normalize(doc.Text()), nil
}

// Normalize collapses every run of whitespace into a single space and trims the ends
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

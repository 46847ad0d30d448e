package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// documentNamespace seeds the UUIDv5 document identifiers.
var documentNamespace = uuid.MustParse("5b1f5d2c-6a35-4c4e-9b53-3b8f0b2f7a10")

// Document is one product/review pair stored in the vector store.
type Document struct {
	ID          uuid.UUID `json:"id"`
	ProductID   string    `json:"productId,omitempty"`
	Title       string    `json:"title"`
	Review      string    `json:"review"`
	Summary     string    `json:"summary,omitempty"`
	Price       float64   `json:"price"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount,omitempty"`
}

// ScoredDocument is a search hit with its similarity score (higher is closer).
type ScoredDocument struct {
	Document Document
	Score    float64
}

// StableID derives the document identifier from the source row, so re-ingesting
// the same row overwrites instead of duplicating.
func StableID(productID, title, review string) uuid.UUID {
	key := strings.Join([]string{
		strings.TrimSpace(productID),
		strings.TrimSpace(title),
		strings.TrimSpace(review),
	}, "|")
	return uuid.NewSHA1(documentNamespace, []byte(key))
}

// Content is the text that gets embedded.
func (d Document) Content() string {
	if d.Summary == "" {
		return d.Title + "\n" + d.Review
	}
	return d.Title + "\n" + d.Summary + "\n" + d.Review
}

// ContextBlock renders the document for inclusion in a prompt.
func (d Document) ContextBlock() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", d.Title)
	fmt.Fprintf(&b, "Price: %s\n", strconv.FormatFloat(d.Price, 'f', -1, 64))
	fmt.Fprintf(&b, "Rating: %s\n", strconv.FormatFloat(d.Rating, 'f', -1, 64))
	if d.ReviewCount > 0 {
		fmt.Fprintf(&b, "Reviews: %d\n", d.ReviewCount)
	}
	if d.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", d.Summary)
	}
	fmt.Fprintf(&b, "Review: %s", d.Review)
	return b.String()
}

// Metadata returns the scalar attributes stored alongside the vector.
func (d Document) Metadata() map[string]any {
	return map[string]any{
		"product_id":      d.ProductID,
		"product_name":    d.Title,
		"product_price":   d.Price,
		"product_rating":  d.Rating,
		"product_summary": d.Summary,
		"review_count":    d.ReviewCount,
	}
}

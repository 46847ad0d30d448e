package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/yanqian/product-support-bot/internal/domain/catalog"
	apperrors "github.com/yanqian/product-support-bot/pkg/errors"
)

// Column names recognised in the review dataset.
const (
	ColumnProductID    = "product_id"
	ColumnTitle        = "product_title"
	ColumnRating       = "rating"
	ColumnPrice        = "price"
	ColumnSummary      = "summary"
	ColumnReview       = "review"
	ColumnTotalReviews = "total_reviews"
)

// RequiredColumns must be present in the header.
var RequiredColumns = []string{ColumnTitle, ColumnRating, ColumnReview, ColumnPrice}

// ParseDocuments reads and validates every row before returning, so a bad row
// never leaves a partially ingested dataset behind.
func ParseDocuments(r io.Reader) ([]catalog.Document, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.Wrap(apperrors.CodeDataFormat, "dataset is empty", nil)
		}
		return nil, apperrors.Wrap(apperrors.CodeDataFormat, "read header", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		index[name] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.Wrap(apperrors.CodeDataFormat, fmt.Sprintf("CSV must contain columns: %s (missing %s)", strings.Join(RequiredColumns, ", "), strings.Join(missing, ", ")), nil)
	}

	var docs []catalog.Document
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDataFormat, "read row", err)
		}
		line, _ := reader.FieldPos(0)
		doc, err := parseRow(record, index)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDataFormat, fmt.Sprintf("line %d", line), err)
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeDataFormat, "dataset has a header but no rows", nil)
	}
	return docs, nil
}

func parseRow(record []string, index map[string]int) (catalog.Document, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	title := field(ColumnTitle)
	if title == "" {
		return catalog.Document{}, fmt.Errorf("%s is empty", ColumnTitle)
	}
	review := field(ColumnReview)
	if review == "" {
		return catalog.Document{}, fmt.Errorf("%s is empty", ColumnReview)
	}
	rating, err := parseNumber(field(ColumnRating))
	if err != nil {
		return catalog.Document{}, fmt.Errorf("%s: %w", ColumnRating, err)
	}
	price, err := parseNumber(field(ColumnPrice))
	if err != nil {
		return catalog.Document{}, fmt.Errorf("%s: %w", ColumnPrice, err)
	}
	var reviewCount int
	if raw := field(ColumnTotalReviews); raw != "" {
		count, err := parseNumber(raw)
		if err != nil {
			return catalog.Document{}, fmt.Errorf("%s: %w", ColumnTotalReviews, err)
		}
		reviewCount = int(count)
	}

	productID := field(ColumnProductID)
	return catalog.Document{
		ID:          catalog.StableID(productID, title, review),
		ProductID:   productID,
		Title:       title,
		Review:      review,
		Summary:     field(ColumnSummary),
		Price:       price,
		Rating:      rating,
		ReviewCount: reviewCount,
	}, nil
}

// thousandsPattern matches comma-grouped numbers such as "1,299", "12,34,567" or "1,299.50".
var thousandsPattern = regexp.MustCompile(`^-?\d{1,3}(?:,\d{2,3})*,\d{3}(?:\.\d+)?$`)

// parseNumber accepts values such as "4.5", "1,299" or "₹1,299". Anything else
// left after dropping the currency symbol must be a plain number.
func parseNumber(raw string) (float64, error) {
	cleaned := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(raw), "₹$€£"))
	if strings.Contains(cleaned, ",") {
		if !thousandsPattern.MatchString(cleaned) {
			return 0, fmt.Errorf("value %q is not a number", raw)
		}
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("value %q is not a number", raw)
	}
	return value, nil
}

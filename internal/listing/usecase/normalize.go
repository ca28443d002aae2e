package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
)

// optionalString trims s and maps blank input to nil.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// optionalPrice parses a price field; blank input is nil.
func optionalPrice(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: price %q is not a number", domain.ErrValidation, raw)
	}
	if price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	return &price, nil
}

// maxPage bounds page numbers so (page-1)*size stays well inside int64.
const maxPage = 1 << 20

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	if page > maxPage {
		return maxPage
	}
	return page
}

// pageSkip returns the offset of a normalized page.
func pageSkip(page, size int) int64 {
	return int64(page-1) * int64(size)
}

func totalPages(total int64, pageSize int) int {
	if total <= 0 {
		return 1
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if pages < 1 {
		return 1
	}
	return pages
}

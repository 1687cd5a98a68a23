package service

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/example/inventory-core/internal/core/domain"
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 2000
	maxSKULen         = 100
	maxReasonLen      = 500
	maxImages         = 10
	maxAdjustQuantity = 10000
	maxPageSize       = 100
)

var (
	skuPattern = regexp.MustCompile(`^[A-Z0-9\-_]+$`)
	maxPrice   = decimal.RequireFromString("999999.99")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func validateName(name string) error {
	if name == "" {
		return invalidf("name is required")
	}
	if len(name) > maxNameLen {
		return invalidf("name exceeds %d characters", maxNameLen)
	}
	return nil
}

func validateDescription(desc *string) error {
	if desc != nil && len(*desc) > maxDescriptionLen {
		return invalidf("description exceeds %d characters", maxDescriptionLen)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return invalidf("price must be non-negative")
	}
	if price.GreaterThan(maxPrice) {
		return invalidf("price exceeds %s", maxPrice)
	}
	return nil
}

func (in CreateProductInput) validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	if in.SKU == "" {
		return invalidf("sku is required")
	}
	if len(in.SKU) > maxSKULen {
		return invalidf("sku exceeds %d characters", maxSKULen)
	}
	if !skuPattern.MatchString(in.SKU) {
		return invalidf("sku must contain only uppercase letters, numbers, hyphens and underscores")
	}
	if err := validatePrice(in.Price); err != nil {
		return err
	}
	if in.StockQuantity < 0 {
		return invalidf("stock quantity must be non-negative")
	}
	if len(in.Images) > maxImages {
		return invalidf("at most %d images allowed", maxImages)
	}
	for _, img := range in.Images {
		if err := img.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (in ImageInput) validate() error {
	if in.URL == "" {
		return invalidf("image url is required")
	}
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalidf("image url must be a valid http(s) url")
	}
	if in.DisplayOrder < 0 {
		return invalidf("image display order must be non-negative")
	}
	return nil
}

func (in UpdateProductInput) validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	return validatePrice(in.Price)
}

func (in AdjustInventoryInput) validate() error {
	if !in.Type.Valid() {
		return invalidf("transaction type must be inbound or outbound")
	}
	if in.Quantity <= 0 {
		return invalidf("quantity must be greater than zero")
	}
	if in.Quantity > maxAdjustQuantity {
		return invalidf("quantity exceeds %d", maxAdjustQuantity)
	}
	if in.Reason != nil && len(*in.Reason) > maxReasonLen {
		return invalidf("reason exceeds %d characters", maxReasonLen)
	}
	return nil
}

func (in ListProductsInput) validate() error {
	if in.Page < 1 {
		return invalidf("page must be greater than zero")
	}
	if in.PageSize < 1 || in.PageSize > maxPageSize {
		return invalidf("page size must be between 1 and %d", maxPageSize)
	}
	return nil
}

package domain

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidOrganization    = errors.New("invalid_organization")
	ErrInvalidID              = errors.New("invalid_id")
	ErrEmptyItems             = errors.New("empty_items")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrProductNotFound        = errors.New("product_not_found")
	ErrCustomerNotFound       = errors.New("customer_not_found")
	ErrInsufficientStock      = errors.New("insufficient_stock")
	ErrDuplicateInvoiceNumber = errors.New("duplicate_invoice_number")
	ErrInvoiceNotFound        = errors.New("invoice_not_found")
)

// InsufficientStockError carries the conflicting values so the caller can
// retry with an adjusted quantity.
type InsufficientStockError struct {
	ProductID snowflake.ID
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ProductNotFoundError identifies which line item referenced a missing
// product.
type ProductNotFoundError struct {
	ProductID snowflake.ID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrProductNotFound }

// InvalidQuantityError identifies which line item carried a non-positive
// quantity.
type InvalidQuantityError struct {
	ProductID snowflake.ID
	Quantity  int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}

func (e *InvalidQuantityError) Is(target error) bool { return target == ErrInvalidQuantity }

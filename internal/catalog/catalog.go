// Package catalog allocates product identifiers and answers ownership
// questions about the seller's products and variants.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/sellerdesk/internal/numbering"
	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// DefaultBarcodePrefix is the GS1 prefix stamped on generated EAN-13 codes.
const DefaultBarcodePrefix = 890

var (
	ErrProductNotFound = shared.NotFound("Product not found")
	ErrVariantNotFound = shared.NotFound("Product variant not found")
)

// Identifiers is the set of codes handed to a new catalog entry.
type Identifiers struct {
	ProductCode string `json:"productCode"`
	SKU         string `json:"sku"`
	Barcode     string `json:"barcode"`
}

// AllocateRequest is the payload of catalog.allocateIdentifiers.
type AllocateRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Variant string `json:"variant,omitempty" validate:"max=100"`
}

// OwnershipPort looks up product rows by seller.
type OwnershipPort interface {
	ProductOwned(ctx context.Context, sellerID, productID int64) (bool, error)
	VariantOwned(ctx context.Context, sellerID, variantID int64) (bool, error)
}

// Service allocates identifiers and checks catalog ownership.
type Service struct {
	repo          OwnershipPort
	numbers       *numbering.Generator
	barcodePrefix int
	logger        *slog.Logger
}

// NewService constructs the catalog service.
func NewService(repo OwnershipPort, numbers *numbering.Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, numbers: numbers, barcodePrefix: DefaultBarcodePrefix, logger: logger}
}

// WithBarcodePrefix overrides the GS1 prefix.
func (s *Service) WithBarcodePrefix(prefix int) *Service {
	s.barcodePrefix = prefix
	return s
}

// AllocateIdentifiers reserves a PRD number, a SKU and an EAN-13 barcode.
// Identifiers are never reused, even when the caller discards them.
func (s *Service) AllocateIdentifiers(ctx context.Context, actor shared.Actor, req AllocateRequest) (Identifiers, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Identifiers{}, shared.BadRequest("Product name is required")
	}
	code, err := s.numbers.Next(ctx, numbering.DocProduct)
	if err != nil {
		return Identifiers{}, err
	}
	skuSeq, err := s.numbers.Counter(ctx, numbering.DocSKU)
	if err != nil {
		return Identifiers{}, err
	}
	barcodeSeq, err := s.numbers.Counter(ctx, numbering.DocBarcode)
	if err != nil {
		return Identifiers{}, err
	}
	barcode, err := numbering.EAN13(s.barcodePrefix, barcodeSeq)
	if err != nil {
		return Identifiers{}, fmt.Errorf("catalog: barcode: %w", err)
	}
	ids := Identifiers{
		ProductCode: code,
		SKU:         numbering.SKU(name, req.Variant, skuSeq),
		Barcode:     barcode,
	}
	s.logger.Info("catalog identifiers allocated",
		slog.Int64("seller_id", actor.SellerID),
		slog.String("product_code", ids.ProductCode),
		slog.String("sku", ids.SKU))
	return ids, nil
}

// EnsureProduct fails with NOT_FOUND unless the product belongs to the actor.
func (s *Service) EnsureProduct(ctx context.Context, actor shared.Actor, productID int64) error {
	owned, err := s.repo.ProductOwned(ctx, actor.SellerID, productID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrProductNotFound
	}
	return nil
}

// EnsureVariant fails with NOT_FOUND unless the variant's product belongs to the actor.
func (s *Service) EnsureVariant(ctx context.Context, actor shared.Actor, variantID int64) error {
	owned, err := s.repo.VariantOwned(ctx, actor.SellerID, variantID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrVariantNotFound
	}
	return nil
}

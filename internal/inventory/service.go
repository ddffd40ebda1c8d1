package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	ListItems(ctx context.Context) (*ListResponse, error)
	GetItem(ctx context.Context, id string) (*Item, error)
	AddItem(ctx context.Context, req CreateItemRequest) (*Item, error)
	UpdateItem(ctx context.Context, id string, req UpdateItemRequest) (*Item, error)
	DeleteItem(ctx context.Context, id string) error
	// CheckStock reports whether qty of the named part can be consumed.
	CheckStock(ctx context.Context, name string, qty int) error
	Consume(ctx context.Context, name string, qty int) (*Item, error)
}

type inventoryService struct {
	repo      Repository
	threshold int
	onChange  []func()
	logger    *zap.Logger
}

// NewService wires the inventory store. onChange hooks run after every write.
func NewService(repo Repository, lowStockThreshold int, logger *zap.Logger, onChange ...func()) Service {
	return &inventoryService{
		repo:      repo,
		threshold: lowStockThreshold,
		onChange:  onChange,
		logger:    logger,
	}
}

func (s *inventoryService) changed() {
	for _, fn := range s.onChange {
		fn()
	}
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func (s *inventoryService) ListItems(ctx context.Context) (*ListResponse, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inventory: %w", err)
	}
	resp := &ListResponse{Items: items, LowStockThreshold: s.threshold}
	for _, it := range items {
		if it.LowStock(s.threshold) {
			resp.LowStockCount++
		}
		resp.TotalUsed += it.Used
		resp.TotalPending += it.Pending
	}
	return resp, nil
}

func (s *inventoryService) GetItem(ctx context.Context, id string) (*Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (s *inventoryService) AddItem(ctx context.Context, req CreateItemRequest) (*Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be greater than 0")
	}
	if req.PricePerPart < 0 {
		return nil, invalid("price per part cannot be negative")
	}

	item := &Item{
		ID:            uuid.New().String(),
		Name:          name,
		Description:   req.Description,
		Type:          req.Type,
		Manufacturer:  req.Manufacturer,
		Available:     req.Quantity,
		PricePerPart:  req.PricePerPart,
		ShelfLocation: req.ShelfLocation,
		Barcode:       req.Barcode,
		DateAdded:     time.Now().UTC(),
		Notes:         req.Notes,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add inventory item: %w", err)
	}
	s.logger.Info("Inventory item added", zap.String("item_id", item.ID), zap.String("name", item.Name), zap.Int("quantity", item.Available))
	s.changed()
	return item, nil
}

func (s *inventoryService) UpdateItem(ctx context.Context, id string, req UpdateItemRequest) (*Item, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, invalid("name cannot be empty")
		}
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	for _, q := range []*int{req.Available, req.Used, req.Pending} {
		if q != nil && *q < 0 {
			return nil, invalid("quantities cannot be negative")
		}
	}
	if req.Available != nil {
		item.Available = *req.Available
	}
	if req.Used != nil {
		item.Used = *req.Used
	}
	if req.Pending != nil {
		item.Pending = *req.Pending
	}
	if req.PricePerPart != nil {
		item.PricePerPart = *req.PricePerPart
	}
	if req.ShelfLocation != nil {
		item.ShelfLocation = *req.ShelfLocation
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update inventory item: %w", err)
	}
	s.changed()
	return item, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, id string) error {
	if _, err := s.GetItem(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}
	s.changed()
	return nil
}

func (s *inventoryService) CheckStock(ctx context.Context, name string, qty int) error {
	item, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%s: %w", name, ErrItemNotFound)
	}
	if item.Available < qty {
		return fmt.Errorf("%s: %w (available %d, requested %d)", name, ErrInsufficientStock, item.Available, qty)
	}
	return nil
}

func (s *inventoryService) Consume(ctx context.Context, name string, qty int) (*Item, error) {
	if qty <= 0 {
		return nil, invalid("quantity must be greater than 0")
	}
	item, err := s.repo.Consume(ctx, name, qty)
	if err != nil {
		if !errors.Is(err, ErrInsufficientStock) && !errors.Is(err, ErrItemNotFound) {
			s.logger.Error("Failed to consume inventory", zap.String("name", name), zap.Error(err))
		}
		return nil, err
	}
	if item.LowStock(s.threshold) {
		s.logger.Warn("Inventory item low on stock", zap.String("name", item.Name), zap.Int("available", item.Available))
	}
	s.changed()
	return item, nil
}

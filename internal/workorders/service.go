package workorders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"fleetops/fleet-portal/fleet-portal-backend/internal/assets"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inventory"
	"fleetops/fleet-portal/fleet-portal-backend/pkg/workflows"
)

// Stock is the part of inventory a work order draws from.
type Stock interface {
	CheckStock(ctx context.Context, name string, qty int) error
	Consume(ctx context.Context, name string, qty int) (*inventory.Item, error)
}

// Trailers resolves the trailer a work order is raised against.
type Trailers interface {
	GetTrailer(ctx context.Context, id string) (*assets.Trailer, error)
}

type Renderer interface {
	RenderWorkOrder(ctx context.Context, wo *WorkOrder) ([]byte, error)
}

// Listener is told about work order changes.
type Listener interface {
	WorkOrderCreated(ctx context.Context, wo WorkOrder)
	WorkOrderStatusChanged(ctx context.Context, wo WorkOrder, from Status)
}

type Service interface {
	Create(ctx context.Context, createdBy string, req CreateRequest) (*CreateResult, error)
	List(ctx context.Context, trailerID string) ([]WorkOrder, error)
	Get(ctx context.Context, id string) (*WorkOrder, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*WorkOrder, error)
	PDF(ctx context.Context, id string) ([]byte, *WorkOrder, error)
}

type workOrderService struct {
	repo      Repository
	stock     Stock
	trailers  Trailers
	renderer  Renderer
	states    *workflows.StateMachine
	listeners []Listener
	logger    *zap.Logger
	now       func() time.Time

	// numbering is count based, so creates are serialized
	createMu sync.Mutex
	statusMu sync.Mutex
}

func NewService(repo Repository, stock Stock, trailers Trailers, renderer Renderer, logger *zap.Logger, listeners ...Listener) Service {
	return &workOrderService{
		repo:      repo,
		stock:     stock,
		trailers:  trailers,
		renderer:  renderer,
		states:    workflows.NewWorkOrderStateMachine(),
		listeners: listeners,
		logger:    logger,
		now:       time.Now,
	}
}

// FormatNumber renders WO-<year>-<NNN>.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("WO-%d-%03d", year, seq)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func (s *workOrderService) validate(ctx context.Context, req CreateRequest) (*assets.Trailer, []Item, error) {
	if strings.TrimSpace(req.TrailerID) == "" {
		return nil, nil, invalid("trailer_id", "trailer is required")
	}
	if strings.TrimSpace(req.TechnicianName) == "" {
		return nil, nil, invalid("technician_name", "technician name is required")
	}
	if strings.TrimSpace(req.IssueNotes) == "" {
		return nil, nil, invalid("issue_notes", "issue notes are required")
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return nil, nil, invalid("priority", fmt.Sprintf("unknown priority %q", req.Priority))
	}

	items := make([]Item, 0, len(req.Items))
	totals := map[string]int{}
	var order []string
	for i, it := range req.Items {
		name := strings.TrimSpace(it.ItemName)
		if name == "" || it.Quantity <= 0 {
			return nil, nil, invalid(fmt.Sprintf("items[%d]", i), "each item needs a name and a quantity greater than 0")
		}
		items = append(items, Item{ItemName: name, Quantity: it.Quantity})
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] += it.Quantity
	}
	if len(items) == 0 {
		return nil, nil, invalid("items", "at least one item is required")
	}

	trailer, err := s.trailers.GetTrailer(ctx, req.TrailerID)
	if errors.Is(err, assets.ErrTrailerNotFound) {
		return nil, nil, invalid("trailer_id", "trailer not found")
	}
	if err != nil {
		return nil, nil, err
	}

	for _, name := range order {
		err := s.stock.CheckStock(ctx, name, totals[name])
		switch {
		case errors.Is(err, inventory.ErrItemNotFound):
			return nil, nil, invalid("items", fmt.Sprintf("%s is not in inventory", name))
		case errors.Is(err, inventory.ErrInsufficientStock):
			return nil, nil, invalid("items", err.Error())
		case err != nil:
			return nil, nil, err
		}
	}
	return trailer, items, nil
}

func (s *workOrderService) Create(ctx context.Context, createdBy string, req CreateRequest) (*CreateResult, error) {
	trailer, items, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	date := s.now().UTC()
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return nil, invalid("date", "date must be YYYY-MM-DD")
		}
		date = d
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	s.createMu.Lock()
	count, err := s.repo.Count(ctx)
	if err != nil {
		s.createMu.Unlock()
		return nil, fmt.Errorf("failed to number work order: %w", err)
	}
	wo := &WorkOrder{
		ID:             uuid.New().String(),
		Number:         FormatNumber(s.now().Year(), count+1),
		TrailerID:      trailer.ID,
		TrailerNumber:  trailer.Number,
		TechnicianName: strings.TrimSpace(req.TechnicianName),
		Date:           date,
		IssueNotes:     strings.TrimSpace(req.IssueNotes),
		Items:          datatypes.JSONSlice[Item](items),
		Status:         StatusPending,
		Priority:       priority,
		CreatedBy:      createdBy,
		CreatedAt:      s.now().UTC(),
		UpdatedAt:      s.now().UTC(),
	}
	err = s.repo.Create(ctx, wo)
	s.createMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to create work order: %w", err)
	}

	// The order is stored; a part that ran out in between is reported, not rolled back.
	var warnings []string
	for _, it := range wo.Items {
		if _, err := s.stock.Consume(ctx, it.ItemName, it.Quantity); err != nil {
			s.logger.Warn("Failed to consume inventory for work order",
				zap.String("wo_number", wo.Number),
				zap.String("item", it.ItemName),
				zap.Error(err),
			)
			warnings = append(warnings, fmt.Sprintf("inventory not updated for %s: %v", it.ItemName, err))
		}
	}

	s.logger.Info("Work order created",
		zap.String("wo_number", wo.Number),
		zap.String("trailer", wo.TrailerNumber),
		zap.Int("items", len(wo.Items)),
	)
	for _, l := range s.listeners {
		go l.WorkOrderCreated(context.Background(), *wo)
	}
	return &CreateResult{WorkOrder: wo, Warnings: warnings}, nil
}

func (s *workOrderService) List(ctx context.Context, trailerID string) ([]WorkOrder, error) {
	orders, err := s.repo.List(ctx, trailerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch work orders: %w", err)
	}
	return orders, nil
}

func (s *workOrderService) Get(ctx context.Context, id string) (*WorkOrder, error) {
	wo, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo == nil {
		return nil, ErrWorkOrderNotFound
	}
	return wo, nil
}

func (s *workOrderService) UpdateStatus(ctx context.Context, id string, status Status) (*WorkOrder, error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	wo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.states.Transition(string(wo.Status), string(status)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if err := s.repo.UpdateStatus(ctx, wo.ID, wo.Status, status); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update work order: %w", err)
	}

	from := wo.Status
	wo.Status = status
	wo.UpdatedAt = s.now().UTC()
	s.logger.Info("Work order status changed",
		zap.String("wo_number", wo.Number),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
	)
	for _, l := range s.listeners {
		go l.WorkOrderStatusChanged(context.Background(), *wo, from)
	}
	return wo, nil
}

func (s *workOrderService) PDF(ctx context.Context, id string) ([]byte, *WorkOrder, error) {
	wo, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.renderer.RenderWorkOrder(ctx, wo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render work order: %w", err)
	}
	return data, wo, nil
}

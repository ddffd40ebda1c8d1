package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	ListTrailers(ctx context.Context, query string) ([]Trailer, error)
	GetTrailer(ctx context.Context, id string) (*Trailer, error)
	CreateTrailer(ctx context.Context, req CreateTrailerRequest) (*Trailer, error)
}

type assetService struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &assetService{repo: repo, logger: logger}
}

// ListTrailers returns trailers whose number contains query, ignoring case.
func (s *assetService) ListTrailers(ctx context.Context, query string) ([]Trailer, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trailers: %w", err)
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	out := make([]Trailer, 0, len(all))
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Number), q) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *assetService) GetTrailer(ctx context.Context, id string) (*Trailer, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTrailerNotFound
	}
	return t, nil
}

func (s *assetService) CreateTrailer(ctx context.Context, req CreateTrailerRequest) (*Trailer, error) {
	number := strings.ToUpper(strings.TrimSpace(req.Number))
	if number == "" {
		return nil, fmt.Errorf("trailer number is required")
	}
	if req.Year != 0 && (req.Year < 1950 || req.Year > time.Now().Year()+1) {
		return nil, fmt.Errorf("invalid model year %d", req.Year)
	}

	t := &Trailer{
		ID:        uuid.New().String(),
		Number:    number,
		Make:      strings.TrimSpace(req.Make),
		Model:     strings.TrimSpace(req.Model),
		Year:      req.Year,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("Trailer created", zap.String("trailer_id", t.ID), zap.String("number", t.Number))
	return t, nil
}

package assets

import (
	"context"

	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
)

// Directory exposes the trailer list to the inspection wizard.
type Directory struct {
	repo Repository
}

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) List(ctx context.Context) ([]inspection.AssetRef, error) {
	trailers, err := d.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]inspection.AssetRef, 0, len(trailers))
	for _, t := range trailers {
		refs = append(refs, inspection.AssetRef{
			ID:     t.ID,
			Number: t.Number,
			Make:   t.Make,
			Model:  t.Model,
			Year:   t.Year,
		})
	}
	return refs, nil
}

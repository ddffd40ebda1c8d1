package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"fleetops/fleet-portal/fleet-portal-backend/pkg/airtable"
)

// Column names of the shop's Inventory base.
const (
	fieldPartName      = "Part Name"
	fieldDescription   = "Description"
	fieldType          = "Type"
	fieldManufacturer  = "Manufacturer"
	fieldQuantity      = "Quantity"
	fieldCheckedOut    = "Qty Checked out Via APP"
	fieldPending       = "Pending"
	fieldPricePerPart  = "Price per part"
	fieldShelfLocation = "Shelf Location"
	fieldBarcode       = "Barcode"
	fieldNotes         = "Notes"
)

type airtableRepository struct {
	client *airtable.Client
	table  string
}

func NewAirtableRepository(client *airtable.Client, table string) Repository {
	if table == "" {
		table = "Inventory"
	}
	return &airtableRepository{client: client, table: table}
}

func itemFromRecord(r airtable.Record) Item {
	f := r.Fields
	item := Item{
		ID:            r.ID,
		Name:          airtable.String(f, fieldPartName),
		Description:   airtable.String(f, fieldDescription),
		Type:          airtable.String(f, fieldType),
		Manufacturer:  airtable.String(f, fieldManufacturer),
		Available:     airtable.Int(f, fieldQuantity),
		Used:          airtable.Int(f, fieldCheckedOut),
		Pending:       airtable.Int(f, fieldPending),
		PricePerPart:  airtable.Float(f, fieldPricePerPart),
		ShelfLocation: airtable.String(f, fieldShelfLocation),
		Barcode:       airtable.String(f, fieldBarcode),
		Notes:         airtable.String(f, fieldNotes),
	}
	if t, err := time.Parse(time.RFC3339, r.CreatedTime); err == nil {
		item.DateAdded = t
	}
	return item
}

func itemFields(item *Item) map[string]interface{} {
	return map[string]interface{}{
		fieldPartName:      item.Name,
		fieldDescription:   item.Description,
		fieldType:          item.Type,
		fieldManufacturer:  item.Manufacturer,
		fieldQuantity:      item.Available,
		fieldCheckedOut:    item.Used,
		fieldPending:       item.Pending,
		fieldPricePerPart:  item.PricePerPart,
		fieldShelfLocation: item.ShelfLocation,
		fieldBarcode:       item.Barcode,
		fieldNotes:         item.Notes,
	}
}

func (r *airtableRepository) List(ctx context.Context) ([]Item, error) {
	rows, err := r.client.List(ctx, r.table, airtable.ListOptions{PageSize: 100})
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFromRecord(row))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (r *airtableRepository) Get(ctx context.Context, id string) (*Item, error) {
	row, err := r.client.Get(ctx, r.table, id)
	if errors.Is(err, airtable.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item := itemFromRecord(*row)
	return &item, nil
}

func (r *airtableRepository) GetByName(ctx context.Context, name string) (*Item, error) {
	rows, err := r.client.List(ctx, r.table, airtable.ListOptions{
		FilterByFormula: fmt.Sprintf("LOWER({%s}) = '%s'", fieldPartName, strings.ReplaceAll(strings.ToLower(name), "'", "\\'")),
		MaxRecords:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	item := itemFromRecord(rows[0])
	return &item, nil
}

func (r *airtableRepository) Create(ctx context.Context, item *Item) error {
	created, err := r.client.Create(ctx, r.table, itemFields(item))
	if err != nil {
		return err
	}
	item.ID = created.ID
	return nil
}

func (r *airtableRepository) Update(ctx context.Context, item *Item) error {
	_, err := r.client.Update(ctx, r.table, item.ID, itemFields(item))
	if errors.Is(err, airtable.ErrNotFound) {
		return ErrItemNotFound
	}
	return err
}

func (r *airtableRepository) Delete(ctx context.Context, id string) error {
	err := r.client.Delete(ctx, r.table, id)
	if errors.Is(err, airtable.ErrNotFound) {
		return nil
	}
	return err
}

// Consume is a read-then-patch; Airtable has no conditional update, so two
// concurrent consumers of the last units can both succeed.
func (r *airtableRepository) Consume(ctx context.Context, name string, qty int) (*Item, error) {
	item, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrItemNotFound)
	}
	if item.Available < qty {
		return nil, fmt.Errorf("%s: %w (available %d, requested %d)", name, ErrInsufficientStock, item.Available, qty)
	}
	item.Available -= qty
	item.Used += qty
	_, err = r.client.Update(ctx, r.table, item.ID, map[string]interface{}{
		fieldQuantity:   item.Available,
		fieldCheckedOut: item.Used,
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

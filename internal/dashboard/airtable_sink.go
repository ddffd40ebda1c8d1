package dashboard

import (
	"context"
	"fmt"

	"fleetops/fleet-portal/fleet-portal-backend/pkg/airtable"
)

// AirtableSink mirrors the latest stats into a single-row Airtable table.
type AirtableSink struct {
	client *airtable.Client
	table  string
}

func NewAirtableSink(client *airtable.Client, table string) *AirtableSink {
	if table == "" {
		table = "Dashboard Stats"
	}
	return &AirtableSink{client: client, table: table}
}

func statsFields(s *Stats) map[string]interface{} {
	return map[string]interface{}{
		"Total Trailers":      s.TotalTrailers,
		"Inspections Pending": s.InspectionsPending,
		"Used Inventory":      s.UsedInventory,
		"Pending Inventory":   s.PendingInventory,
	}
}

// PublishStats updates the first row of the table, creating it when empty.
func (s *AirtableSink) PublishStats(ctx context.Context, stats *Stats) error {
	rows, err := s.client.List(ctx, s.table, airtable.ListOptions{MaxRecords: 1})
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.table, err)
	}
	if len(rows) == 0 {
		if _, err := s.client.Create(ctx, s.table, statsFields(stats)); err != nil {
			return fmt.Errorf("failed to create %s row: %w", s.table, err)
		}
		return nil
	}
	if _, err := s.client.Update(ctx, s.table, rows[0].ID, statsFields(stats)); err != nil {
		return fmt.Errorf("failed to update %s row: %w", s.table, err)
	}
	return nil
}

package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
)

// CSVGenerator renders reports as CSV documents. It is the default
// renderer; richer formats plug in behind the Generator interface.
type CSVGenerator struct{}

func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{}
}

// Generate implements Generator.
func (g *CSVGenerator) Generate(_ context.Context, plant *models.Plant, data []models.PlantDatum, from, to time.Time) ([]byte, string, string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := [][]string{
		{"plant", plant.Name},
		{"location", plant.Location},
		{"period_start", from.Format(time.RFC3339)},
		{"period_end", to.Format(time.RFC3339)},
		{},
		{"recorded_at", "level", "flow_rate", "chlorine"},
	}
	for _, row := range header {
		if err := w.Write(row); err != nil {
			return nil, "", "", fmt.Errorf("failed to write report header: %w", err)
		}
	}

	for _, d := range data {
		row := []string{
			d.RecordedAt.Format(time.RFC3339),
			strconv.FormatFloat(d.Level, 'f', -1, 64),
			strconv.FormatFloat(d.FlowRate, 'f', -1, 64),
			strconv.FormatFloat(d.Chlorine, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, "", "", fmt.Errorf("failed to write report row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", "", fmt.Errorf("failed to flush report: %w", err)
	}
	return buf.Bytes(), "text/csv", ".csv", nil
}

package charts

import (
	"bytes"
	"testing"

	"coopmanager/internal/core"
)

func TestMonthlyReportPNG(t *testing.T) {
	g := NewGenerator()

	rows := []core.MonthlyReportRow{
		{Period: "02.2024", Income: 150, Expenses: 80},
		{Period: "03.2024", Income: 210.50, Expenses: 95.25},
	}

	png, err := g.MonthlyReportPNG(rows)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(png) == 0 {
		t.Fatalf("expected PNG bytes")
	}
	// PNG magic
	if !bytes.HasPrefix(png, []byte{0x89, 'P', 'N', 'G'}) {
		t.Fatalf("output is not a PNG")
	}
}

func TestMonthlyReportPNGEmpty(t *testing.T) {
	g := NewGenerator()

	png, err := g.MonthlyReportPNG(nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if png != nil {
		t.Fatalf("expected nil for empty report")
	}
}

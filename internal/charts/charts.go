// Package charts renders the monthly income/expense report as a PNG image.
package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"coopmanager/internal/core"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// MonthlyReportPNG renders one income bar and one expense bar per period.
// Returns nil bytes when the report is empty.
func (g *Generator) MonthlyReportPNG(rows []core.MonthlyReportRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	bars := make([]chart.Value, 0, len(rows)*2)
	for _, row := range rows {
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s приходи", row.Period),
			Value: row.Income,
			Style: chart.Style{
				StrokeColor: chart.ColorGreen,
				FillColor:   chart.ColorGreen,
				FontSize:    10,
				FontColor:   chart.ColorBlack,
			},
		})
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s разходи", row.Period),
			Value: row.Expenses,
			Style: chart.Style{
				StrokeColor: chart.ColorRed,
				FillColor:   chart.ColorRed.WithAlpha(180),
				FontSize:    10,
				FontColor:   chart.ColorBlack,
			},
		})
	}

	graph := chart.BarChart{
		Title: "Месечен отчет",
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    1200,
		Height:   600,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.2f лв.", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render monthly report chart: %w", err)
	}

	return buffer.Bytes(), nil
}

package output

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/torosent/flybench/internal/store"
)

// Chart geometry, in SVG user units.
const (
	chartWidth   = 640
	chartHeight  = 320
	plotLeft     = 56
	plotRight    = 16
	plotTop      = 28
	plotBottom   = 84
	groupPadding = 0.3
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt string
	Summary     Summary
	BestRPS     SummaryRow
	WorstError  SummaryRow
	Charts      []Chart
}

// Chart is a pre-laid-out SVG bar chart.
type Chart struct {
	Title    string
	Unit     string
	Width    int
	Height   int
	PlotLeft float64
	PlotEnd  float64
	Baseline float64
	Bars     []Bar
	Ticks    []Tick
	Labels   []AxisLabel
	Legend   []LegendItem
}

// Bar is one rectangle with its value label.
type Bar struct {
	X, Y, Width, Height float64
	CenterX             float64
	Color               string
	Value               string
	Title               string
}

// Tick is a horizontal grid line with its value.
type Tick struct {
	Y     float64
	Label string
}

// AxisLabel names a group of bars on the x axis.
type AxisLabel struct {
	X    float64
	Y    float64
	Text string
}

// LegendItem describes one series.
type LegendItem struct {
	Name  string
	Color string
}

type series struct {
	name   string
	color  string
	format string
	values []float64
}

// GenerateHTMLReport generates a standalone HTML report with bar charts for
// every run in a results file.
func GenerateHTMLReport(w io.Writer, file *store.ResultsFile) error {
	if file == nil {
		return fmt.Errorf("no results file")
	}
	summary, err := BuildSummary(file, SummaryOptions{})
	if err != nil {
		return err
	}

	data := HTMLReportData{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Summary:     summary,
		Charts:      buildCharts(summary.Results),
	}
	if len(summary.Results) > 0 {
		data.BestRPS, data.WorstError = summary.Results[0], summary.Results[0]
		for _, r := range summary.Results[1:] {
			if r.RPS > data.BestRPS.RPS {
				data.BestRPS = r
			}
			if r.ErrorPercent > data.WorstError.ErrorPercent {
				data.WorstError = r
			}
		}
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"coord": func(f float64) string {
			return fmt.Sprintf("%.1f", f)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

func buildCharts(rows []SummaryRow) []Chart {
	if len(rows) == 0 {
		return nil
	}
	labels := make([]string, len(rows))
	rps := make([]float64, len(rows))
	mean := make([]float64, len(rows))
	p95 := make([]float64, len(rows))
	p99 := make([]float64, len(rows))
	errs := make([]float64, len(rows))
	for i, r := range rows {
		labels[i] = displayName(r.Configuration)
		rps[i] = r.RPS
		mean[i] = r.MeanMs
		p95[i] = r.P95Ms
		p99[i] = r.P99Ms
		errs[i] = r.ErrorPercent
	}

	ranked := make([]SummaryRow, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RPS > ranked[j].RPS })
	rankedLabels := make([]string, len(ranked))
	rankedRPS := make([]float64, len(ranked))
	for i, r := range ranked {
		rankedLabels[i] = displayName(r.Configuration)
		rankedRPS[i] = r.RPS
	}

	return []Chart{
		layoutChart("Throughput (RPS)", "req/s", labels, []series{
			{name: "RPS", color: "#4682b4", format: "%.1f", values: rps},
		}),
		layoutChart("Response Time Percentiles", "ms", labels, []series{
			{name: "Mean", color: "#add8e6", format: "%.1f", values: mean},
			{name: "P95", color: "#4682b4", format: "%.1f", values: p95},
			{name: "P99", color: "#00008b", format: "%.1f", values: p99},
		}),
		layoutChart("Error Rate", "%", labels, []series{
			{name: "Error %", color: "#ff7f50", format: "%.2f%%", values: errs},
		}),
		layoutChart("Throughput Comparison", "req/s", rankedLabels, []series{
			{name: "RPS", color: "#4682b4", format: "%.1f", values: rankedRPS},
		}),
	}
}

func layoutChart(title, unit string, labels []string, data []series) Chart {
	c := Chart{
		Title:    title,
		Unit:     unit,
		Width:    chartWidth,
		Height:   chartHeight,
		PlotLeft: plotLeft,
		PlotEnd:  chartWidth - plotRight,
		Baseline: chartHeight - plotBottom,
	}

	maxValue := 0.0
	for _, s := range data {
		for _, v := range s.values {
			maxValue = math.Max(maxValue, v)
		}
	}
	top := niceCeiling(maxValue)
	plotWidth := float64(chartWidth - plotLeft - plotRight)
	plotHeight := float64(chartHeight - plotTop - plotBottom)

	for i := 0; i <= 4; i++ {
		v := top * float64(i) / 4
		c.Ticks = append(c.Ticks, Tick{
			Y:     c.Baseline - plotHeight*float64(i)/4,
			Label: trimFloat(v),
		})
	}

	groupWidth := plotWidth / float64(len(labels))
	barWidth := groupWidth * (1 - groupPadding) / float64(len(data))
	for g, label := range labels {
		groupX := plotLeft + groupWidth*float64(g) + groupWidth*groupPadding/2
		for si, s := range data {
			v := s.values[g]
			h := 0.0
			if top > 0 {
				h = plotHeight * v / top
			}
			c.Bars = append(c.Bars, Bar{
				X:       groupX + barWidth*float64(si),
				Y:       c.Baseline - h,
				Width:   barWidth,
				Height:  h,
				CenterX: groupX + barWidth*(float64(si)+0.5),
				Color:   s.color,
				Value:   fmt.Sprintf(s.format, v),
				Title:   fmt.Sprintf("%s %s: "+s.format, label, s.name, v),
			})
		}
		c.Labels = append(c.Labels, AxisLabel{
			X:    groupX + groupWidth*(1-groupPadding)/2,
			Y:    c.Baseline + 14,
			Text: label,
		})
	}

	if len(data) > 1 {
		for _, s := range data {
			c.Legend = append(c.Legend, LegendItem{Name: s.name, Color: s.color})
		}
	}
	return c
}

// niceCeiling rounds v up to 1, 2, 2.5 or 5 times a power of ten.
func niceCeiling(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// displayName turns "cache_enabled" into "Cache Enabled".
func displayName(configName string) string {
	words := strings.Fields(strings.ReplaceAll(configName, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Flybench Performance Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #4682b4 0%, #00008b 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 { font-size: 2rem; margin-bottom: 10px; }
        header .meta { opacity: 0.9; font-size: 0.9rem; }
        .content { padding: 40px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #4682b4;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value { font-size: 2rem; font-weight: bold; }
        .card .subvalue { font-size: 0.85rem; color: #6c757d; margin-top: 5px; }
        .card.success { border-left-color: #10b981; }
        .card.error { border-left-color: #ef4444; }
        .section { margin-bottom: 40px; }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        .charts {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(560px, 1fr));
            gap: 20px;
        }
        .chart-container {
            border-radius: 8px;
            padding: 20px;
            border: 1px solid #e5e7eb;
        }
        .chart-container h3 { font-size: 1.1rem; margin-bottom: 15px; color: #4b5563; }
        .chart-container svg { width: 100%; height: auto; font-size: 11px; }
        .chart-container .grid-line { stroke: #e5e7eb; }
        .chart-container .axis { stroke: #9ca3af; }
        .chart-container .bar-value { fill: #374151; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 12px; border-bottom: 1px solid #e5e7eb; }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        tr:hover { background: #f8f9fa; }
        .no-data { text-align: center; padding: 40px; color: #6c757d; font-style: italic; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Flybench Performance Report</h1>
            <div class="meta">Base URL: {{.Summary.BaseURL}} | Test image: {{.Summary.TestImage}}</div>
            <div class="meta">Benchmark started: {{.Summary.BenchmarkTimestamp}} | Generated: {{.GeneratedAt}}</div>
        </header>

        <div class="content">
            {{if .Summary.Results}}
            <div class="grid">
                <div class="card">
                    <h3>Runs</h3>
                    <div class="value">{{len .Summary.Results}}</div>
                </div>
                <div class="card success">
                    <h3>Best Throughput</h3>
                    <div class="value">{{formatFloat .BestRPS.RPS}}</div>
                    <div class="subvalue">{{.BestRPS.Configuration}}</div>
                </div>
                <div class="card error">
                    <h3>Highest Error Rate</h3>
                    <div class="value">{{formatFloat .WorstError.ErrorPercent}}%</div>
                    <div class="subvalue">{{.WorstError.Configuration}}</div>
                </div>
            </div>

            <div class="section">
                <h2>Charts</h2>
                <div class="charts">
                    {{range $chart := .Charts}}
                    <div class="chart-container">
                        <h3>{{.Title}}</h3>
                        <svg viewBox="0 0 {{.Width}} {{.Height}}" role="img" aria-label="{{.Title}}">
                            {{range .Ticks}}
                            <line class="grid-line" x1="{{coord $chart.PlotLeft}}" x2="{{coord $chart.PlotEnd}}" y1="{{coord .Y}}" y2="{{coord .Y}}"/>
                            <text x="{{coord $chart.PlotLeft}}" dx="-6" y="{{coord .Y}}" text-anchor="end" dominant-baseline="middle">{{.Label}}</text>
                            {{end}}
                            <line class="axis" x1="{{coord .PlotLeft}}" x2="{{coord .PlotEnd}}" y1="{{coord .Baseline}}" y2="{{coord .Baseline}}"/>
                            {{range .Bars}}
                            <rect x="{{coord .X}}" y="{{coord .Y}}" width="{{coord .Width}}" height="{{coord .Height}}" fill="{{.Color}}" fill-opacity="0.8"><title>{{.Title}}</title></rect>
                            <text class="bar-value" x="{{coord .CenterX}}" y="{{coord .Y}}" dy="-4" text-anchor="middle">{{.Value}}</text>
                            {{end}}
                            {{range .Labels}}
                            <text x="{{coord .X}}" y="{{coord .Y}}" text-anchor="end" transform="rotate(-35 {{coord .X}} {{coord .Y}})">{{.Text}}</text>
                            {{end}}
                            <text x="12" y="16">{{.Unit}}</text>
                        </svg>
                        {{if .Legend}}
                        <div class="legend">
                            {{range .Legend}}<svg width="10" height="10"><rect width="10" height="10" fill="{{.Color}}"/></svg> {{.Name}}&nbsp;&nbsp;{{end}}
                        </div>
                        {{end}}
                    </div>
                    {{end}}
                </div>
            </div>

            <div class="section">
                <h2>Summary</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Configuration</th>
                            <th>Timestamp</th>
                            <th>RPS</th>
                            <th>Mean RT (ms)</th>
                            <th>P95 RT (ms)</th>
                            <th>P99 RT (ms)</th>
                            <th>Error %</th>
                            <th>OK/Total</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Summary.Results}}
                        <tr>
                            <td><strong>{{.Configuration}}</strong></td>
                            <td>{{.Timestamp}}</td>
                            <td>{{formatFloat .RPS}}</td>
                            <td>{{formatFloat .MeanMs}}</td>
                            <td>{{formatFloat .P95Ms}}</td>
                            <td>{{formatFloat .P99Ms}}</td>
                            <td>{{formatFloat .ErrorPercent}}</td>
                            <td>{{.Successful}}/{{.Total}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{else}}
            <div class="no-data">No benchmark runs recorded yet.</div>
            {{end}}
        </div>
    </div>
</body>
</html>
`

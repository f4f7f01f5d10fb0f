package main

import (
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"csvchat/internal/store"
)

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Errorf("Expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]float64{1, 2, 3}); got != "▁▄█" {
		t.Errorf("Expected ▁▄█, got %q", got)
	}
	if got := Sparkline([]float64{5, 5}); got != "▅▅" {
		t.Errorf("Expected flat sparkline, got %q", got)
	}
	if got := Sparkline([]float64{1, math.NaN(), 3}); len([]rune(got)) != 3 {
		t.Errorf("Expected one rune per value, got %q", got)
	}
}

func TestBarChart(t *testing.T) {
	out := BarChart("FR", 5, 10, 10, lipgloss.Color("62"))
	if strings.Count(out, "█") != 5 || strings.Count(out, "░") != 5 {
		t.Errorf("Expected half-filled bar, got %q", out)
	}
	if !strings.HasSuffix(out, " 5") {
		t.Errorf("Expected value suffix, got %q", out)
	}

	out = BarChart("DE", 20, 10, 4, lipgloss.Color("62"))
	if strings.Count(out, "█") != 4 {
		t.Errorf("Expected bar clamped to width, got %q", out)
	}
}

func TestResultChart(t *testing.T) {
	testCases := []struct {
		name string
		res  *store.Result
		want string
	}{
		{"nil", nil, ""},
		{"single row", &store.Result{Columns: []string{"n"}, Rows: [][]any{{int64(1)}}}, ""},
		{"sparkline", &store.Result{Columns: []string{"n"}, Rows: [][]any{{int64(1)}, {int64(3)}}}, "▁█"},
		{"bars", &store.Result{Columns: []string{"c", "n"}, Rows: [][]any{{"a", 1.5}, {"b", 3.0}}}, "█"},
		{"text values", &store.Result{Columns: []string{"c", "n"}, Rows: [][]any{{"a", "x"}, {"b", "y"}}}, ""},
		{"nan", &store.Result{Columns: []string{"ratio"}, Rows: [][]any{{1.0}, {math.NaN()}, {3.0}}}, ""},
		{"infinite bar", &store.Result{Columns: []string{"c", "n"}, Rows: [][]any{{"a", 1.0}, {"b", math.Inf(1)}}}, ""},
		{"too wide", &store.Result{Columns: []string{"a", "b", "c"}, Rows: [][]any{{1, 2, 3}, {4, 5, 6}}}, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResultChart(tc.res, 80)
			if tc.want == "" && got != "" {
				t.Errorf("Expected no chart, got %q", got)
			}
			if tc.want != "" && !strings.Contains(got, tc.want) {
				t.Errorf("Expected %q in chart, got %q", tc.want, got)
			}
		})
	}

	rows := make([][]any, maxChartRows+1)
	for i := range rows {
		rows[i] = []any{"x", int64(i)}
	}
	if got := ResultChart(&store.Result{Columns: []string{"c", "n"}, Rows: rows}, 80); got != "" {
		t.Error("Expected no bar chart past the row cap")
	}
}

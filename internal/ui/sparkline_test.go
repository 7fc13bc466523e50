package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparklineLevels(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want []int
	}{
		{"empty", nil, nil},
		{"idle link stays flat at the bottom", []float64{0, 0, 0}, []int{0, 0, 0}},
		{"scaled against zero", []float64{0, 50, 100}, []int{0, 3, 7}},
		{"constant traffic is full height", []float64{10, 10}, []int{7, 7}},
		{"negative values clamp to zero", []float64{-5, 10}, []int{0, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SparklineLevels(tt.data))
		})
	}
}

func TestRenderSparkline(t *testing.T) {
	t.Run("empty data", func(t *testing.T) {
		assert.Empty(t, RenderSparkline(nil, 10, ColorRx))
	})

	t.Run("zero width", func(t *testing.T) {
		assert.Empty(t, RenderSparkline([]float64{1, 2}, 0, ColorRx))
	})

	t.Run("one block per point", func(t *testing.T) {
		got := stripANSI(RenderSparkline([]float64{0, 25, 50, 75, 100}, 10, ColorRx))
		assert.Equal(t, "▁▂▄▆█", got)
	})

	t.Run("keeps most recent points", func(t *testing.T) {
		data := []float64{100, 0, 0, 0, 50}
		got := stripANSI(RenderSparkline(data, 2, ColorTx))
		assert.Equal(t, 2, len([]rune(got)))
		assert.Equal(t, "▁█", got, "rescaled over the visible window")
	})
}

func TestSparklineBlocksConstant(t *testing.T) {
	assert.Equal(t, "▁▂▃▄▅▆▇█", sparklineBlocks)
}

func TestStateGlyphs(t *testing.T) {
	assert.Equal(t, SymbolUp, StateSymbol("UP"))
	assert.Equal(t, SymbolDown, StateSymbol("DOWN"))
	assert.Equal(t, SymbolPending, StateSymbol("UNKNOWN"))

	assert.Equal(t, ColorSuccess, StateColor("UP"))
	assert.Equal(t, ColorError, StateColor("DOWN"))
	assert.Equal(t, ColorMuted, StateColor(""))
}

func stripANSI(s string) string {
	var result strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCMYKToRGB(t *testing.T) {
	tests := []struct {
		name string
		cmyk []byte
		want []byte
	}{
		{
			name: "no ink is white",
			cmyk: []byte{0, 0, 0, 0},
			want: []byte{255, 255, 255},
		},
		{
			name: "full black ink is black",
			cmyk: []byte{0, 0, 0, 255},
			want: []byte{0, 0, 0},
		},
		{
			name: "full cyan",
			cmyk: []byte{255, 0, 0, 0},
			want: []byte{0, 255, 255},
		},
		{
			name: "two pixels",
			cmyk: []byte{0, 0, 0, 0, 0, 0, 0, 255},
			want: []byte{255, 255, 255, 0, 0, 0},
		},
		{
			name: "ragged tail ignored",
			cmyk: []byte{0, 0, 0, 0, 9, 9},
			want: []byte{255, 255, 255},
		},
		{
			name: "empty input",
			cmyk: nil,
			want: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cmykToRGB(tt.cmyk))
		})
	}
}

func TestCMYKToRGB_MidtoneApproximation(t *testing.T) {
	// 50% black over no color should land near mid gray.
	got := cmykToRGB([]byte{0, 0, 0, 128})
	for _, v := range got {
		assert.InDelta(t, 127, int(v), 1)
	}
}

func TestExpandIndexed(t *testing.T) {
	t.Run("RGB base palette", func(t *testing.T) {
		palette := []byte{255, 0, 0, 0, 255, 0} // red, green
		got, err := expandIndexed([]byte{0, 1, 0}, modelRGB, palette)
		require.NoError(t, err)
		assert.Equal(t, []byte{255, 0, 0, 0, 255, 0, 255, 0, 0}, got)
	})

	t.Run("Gray base replicates channels", func(t *testing.T) {
		palette := []byte{0, 128, 255}
		got, err := expandIndexed([]byte{2, 0}, modelGray, palette)
		require.NoError(t, err)
		assert.Equal(t, []byte{255, 255, 255, 0, 0, 0}, got)
	})

	t.Run("index out of range", func(t *testing.T) {
		palette := []byte{255, 0, 0}
		_, err := expandIndexed([]byte{1}, modelRGB, palette)
		assert.ErrorIs(t, err, ErrPaletteIndex)
	})

	t.Run("unsupported base", func(t *testing.T) {
		_, err := expandIndexed([]byte{0}, modelCMYK, []byte{0, 0, 0, 0})
		assert.ErrorIs(t, err, ErrPaletteBase)
	})

	t.Run("no palette", func(t *testing.T) {
		_, err := expandIndexed([]byte{0}, modelRGB, nil)
		assert.ErrorIs(t, err, ErrPaletteIndex)
	})
}

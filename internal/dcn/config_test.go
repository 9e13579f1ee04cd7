package dcn

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(3, 5)
	assert.Equal(t, 3, cfg.KernelH)
	assert.Equal(t, 5, cfg.KernelW)
	assert.Equal(t, 1, cfg.StrideH)
	assert.Equal(t, 1, cfg.DilationW)
	assert.Equal(t, 1, cfg.DeformableGroups)
	assert.Equal(t, DefaultIm2ColStep, cfg.Im2ColStep)
	assert.Equal(t, 1.0, cfg.Scale)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero kernel", func(c *Config) { c.KernelW = 0 }, "kernel"},
		{"negative stride", func(c *Config) { c.StrideH = -1 }, "stride"},
		{"zero dilation", func(c *Config) { c.DilationH = 0 }, "dilation"},
		{"negative padding", func(c *Config) { c.PadW = -1 }, "padding"},
		{"zero groups", func(c *Config) { c.DeformableGroups = 0 }, "deformable_groups"},
		{"zero step", func(c *Config) { c.Im2ColStep = 0 }, "im2col_step"},
		{"negative scratch limit", func(c *Config) { c.MaxScratchBytes = -1 }, "max_scratch_bytes"},
		{"nan scale", func(c *Config) { c.Scale = math.NaN() }, "scale"},
		{"infinite scale", func(c *Config) { c.Scale = math.Inf(-1) }, "scale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(3, 3)
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)

			_, err = NewDeformConv(cfg)
			assert.ErrorIs(t, err, ErrConfig)
			_, err = NewModulatedDeformConv(cfg)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestConfig_OutputSize(t *testing.T) {
	tests := []struct {
		in, k, stride, pad, dilation int
		want                         int
	}{
		{5, 3, 1, 0, 1, 3},
		{5, 3, 1, 1, 1, 5},
		{5, 3, 2, 1, 1, 3},
		{7, 3, 1, 0, 2, 3},
		{4, 1, 1, 0, 1, 4},
		{10, 3, 3, 1, 1, 4},
		{2, 3, 1, 0, 1, 0},
		{1, 3, 2, 0, 1, 0},
		{1, 3, 3, 0, 1, 0},
	}

	for _, tt := range tests {
		cfg := DefaultConfig(tt.k, tt.k)
		cfg.StrideH, cfg.StrideW = tt.stride, tt.stride
		cfg.PadH, cfg.PadW = tt.pad, tt.pad
		cfg.DilationH, cfg.DilationW = tt.dilation, tt.dilation

		h, w := cfg.OutputSize(tt.in, tt.in)
		assert.Equal(t, tt.want, h, "%+v", tt)
		assert.Equal(t, tt.want, w, "%+v", tt)
	}
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 2, floorDiv(7, 3))
	assert.Equal(t, 0, floorDiv(0, 3))
	assert.Equal(t, -1, floorDiv(-1, 3))
	assert.Equal(t, -1, floorDiv(-3, 3))
	assert.Equal(t, -2, floorDiv(-4, 3))
}

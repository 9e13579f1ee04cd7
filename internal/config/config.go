// Package config loads the dcn command line configuration from flags,
// DCN_* environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/born-ml/dcn/internal/dcn"
	"github.com/born-ml/dcn/internal/parallel"
)

type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	Runtime  RuntimeConfig `mapstructure:"runtime"`
	Problem  ProblemConfig `mapstructure:"problem"`
}

type RuntimeConfig struct {
	Threads         int   `mapstructure:"threads"`
	MaxScratchBytes int64 `mapstructure:"max_scratch_bytes"`
}

// ProblemConfig describes the random problem used by bench and gradcheck.
type ProblemConfig struct {
	Batch       int     `mapstructure:"batch"`
	Channels    int     `mapstructure:"channels"`
	Height      int     `mapstructure:"height"`
	Width       int     `mapstructure:"width"`
	OutChannels int     `mapstructure:"out_channels"`
	Kernel      int     `mapstructure:"kernel"`
	Stride      int     `mapstructure:"stride"`
	Pad         int     `mapstructure:"pad"`
	Dilation    int     `mapstructure:"dilation"`
	Groups      int     `mapstructure:"groups"`
	Im2ColStep  int     `mapstructure:"im2col_step"`
	Bias        bool    `mapstructure:"bias"`
	Modulated   bool    `mapstructure:"modulated"`
	DType       string  `mapstructure:"dtype"`
	OffsetRange float64 `mapstructure:"offset_range"`
	Seed        int64   `mapstructure:"seed"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Runtime: RuntimeConfig{
			Threads: 0,
		},
		Problem: ProblemConfig{
			Batch:       4,
			Channels:    16,
			Height:      32,
			Width:       32,
			OutChannels: 16,
			Kernel:      3,
			Stride:      1,
			Pad:         1,
			Dilation:    1,
			Groups:      1,
			Im2ColStep:  dcn.DefaultIm2ColStep,
			Bias:        true,
			Modulated:   false,
			DType:       "float32",
			OffsetRange: 2,
			Seed:        1,
		},
	}
}

// flag name -> config key
var flagKeys = []struct{ flag, key string }{
	{"log-level", "log_level"},
	{"threads", "runtime.threads"},
	{"max-scratch-bytes", "runtime.max_scratch_bytes"},
	{"batch", "problem.batch"},
	{"channels", "problem.channels"},
	{"height", "problem.height"},
	{"width", "problem.width"},
	{"out-channels", "problem.out_channels"},
	{"kernel", "problem.kernel"},
	{"stride", "problem.stride"},
	{"pad", "problem.pad"},
	{"dilation", "problem.dilation"},
	{"groups", "problem.groups"},
	{"im2col-step", "problem.im2col_step"},
	{"bias", "problem.bias"},
	{"modulated", "problem.modulated"},
	{"dtype", "problem.dtype"},
	{"offset-range", "problem.offset_range"},
	{"seed", "problem.seed"},
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level: debug|info|warn|error")
	fs.Int("threads", defaults.Runtime.Threads, "Worker goroutines for the sampling kernels (0 = one per CPU)")
	fs.Int64("max-scratch-bytes", defaults.Runtime.MaxScratchBytes, "Scratch budget per call in bytes (0 = unlimited)")

	p := defaults.Problem
	fs.Int("batch", p.Batch, "Batch size N")
	fs.Int("channels", p.Channels, "Input channels")
	fs.Int("height", p.Height, "Input height")
	fs.Int("width", p.Width, "Input width")
	fs.Int("out-channels", p.OutChannels, "Output channels")
	fs.Int("kernel", p.Kernel, "Square kernel size")
	fs.Int("stride", p.Stride, "Stride")
	fs.Int("pad", p.Pad, "Zero padding")
	fs.Int("dilation", p.Dilation, "Dilation")
	fs.Int("groups", p.Groups, "Deformable groups")
	fs.Int("im2col-step", p.Im2ColStep, "Samples gathered per chunk")
	fs.Bool("bias", p.Bias, "Add a bias term")
	fs.Bool("modulated", p.Modulated, "Use the modulated variant")
	fs.String("dtype", p.DType, "Element type: float32|float64")
	fs.Float64("offset-range", p.OffsetRange, "Offsets are drawn from [-range, range)")
	fs.Int64("seed", p.Seed, "Random seed")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		for _, fk := range flagKeys {
			if f := opts.Cmd.Flags().Lookup(fk.flag); f != nil {
				if err := v.BindPFlag(fk.key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", fk.flag, err)
				}
			}
		}
	}

	v.SetEnvPrefix("DCN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("dcn")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("runtime.threads", c.Runtime.Threads)
	v.SetDefault("runtime.max_scratch_bytes", c.Runtime.MaxScratchBytes)
	v.SetDefault("problem.batch", c.Problem.Batch)
	v.SetDefault("problem.channels", c.Problem.Channels)
	v.SetDefault("problem.height", c.Problem.Height)
	v.SetDefault("problem.width", c.Problem.Width)
	v.SetDefault("problem.out_channels", c.Problem.OutChannels)
	v.SetDefault("problem.kernel", c.Problem.Kernel)
	v.SetDefault("problem.stride", c.Problem.Stride)
	v.SetDefault("problem.pad", c.Problem.Pad)
	v.SetDefault("problem.dilation", c.Problem.Dilation)
	v.SetDefault("problem.groups", c.Problem.Groups)
	v.SetDefault("problem.im2col_step", c.Problem.Im2ColStep)
	v.SetDefault("problem.bias", c.Problem.Bias)
	v.SetDefault("problem.modulated", c.Problem.Modulated)
	v.SetDefault("problem.dtype", c.Problem.DType)
	v.SetDefault("problem.offset_range", c.Problem.OffsetRange)
	v.SetDefault("problem.seed", c.Problem.Seed)
}

// Operator converts the loaded configuration into an operator configuration.
func (c Config) Operator() (dcn.Config, error) {
	p := c.Problem
	cfg := dcn.DefaultConfig(p.Kernel, p.Kernel)
	cfg.StrideH, cfg.StrideW = p.Stride, p.Stride
	cfg.PadH, cfg.PadW = p.Pad, p.Pad
	cfg.DilationH, cfg.DilationW = p.Dilation, p.Dilation
	cfg.DeformableGroups = p.Groups
	cfg.Im2ColStep = p.Im2ColStep
	cfg.WithBias = p.Bias
	cfg.MaxScratchBytes = c.Runtime.MaxScratchBytes
	cfg.Parallel = parallel.DefaultConfig().WithWorkers(c.Runtime.Threads)
	if c.Runtime.Threads == 1 {
		cfg.Parallel = parallel.Sequential()
	}
	if err := cfg.Validate(); err != nil {
		return dcn.Config{}, err
	}
	return cfg, nil
}

// Size returns the tensor sizes of the configured problem.
func (c Config) Size() dcn.ProblemSize {
	p := c.Problem
	return dcn.ProblemSize{
		Batch:       p.Batch,
		Channels:    p.Channels,
		Height:      p.Height,
		Width:       p.Width,
		OutChannels: p.OutChannels,
		Modulated:   p.Modulated,
	}
}

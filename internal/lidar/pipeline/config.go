package pipeline

import (
	"fmt"
	"runtime"

	"github.com/banshee-data/canopy.report/internal/config"
	"github.com/banshee-data/canopy.report/internal/lidar/l2kernel"
	"github.com/banshee-data/canopy.report/internal/lidar/l3modes"
	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
	"github.com/banshee-data/canopy.report/internal/lidar/l5identity"
)

// ConfigFromTuning converts a validated tuning file into a run Config. The
// worker count is derived from frac_cores and the host's hardware threads.
func ConfigFromTuning(tc *config.TuningConfig) (Config, error) {
	if err := tc.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid tuning config: %w", err)
	}
	variant, err := l3modes.ParseVariant(tc.GetVersion())
	if err != nil {
		return Config{}, err
	}
	strategy, err := l5identity.ParseStrategy(tc.GetIDStrategy())
	if err != nil {
		return Config{}, err
	}

	return Config{
		Tile: l4tiles.Params{
			Seek: l3modes.Params{
				Kernel: l2kernel.Params{
					CWInter: tc.GetCWInter(),
					H2CW:    tc.GetH2CW(),
					CLInter: tc.GetCLInter(),
					H2CL:    tc.GetH2CL(),
				},
				MaxIter:   tc.GetMaxIter(),
				Tolerance: tc.GetConvergenceTol(),
			},
			Variant:     variant,
			MinZ:        tc.GetMinZ(),
			CtrAccuracy: tc.GetCtrAccuracy(),
			BufferWidth: tc.GetBufferWidth(),
		},
		Strategy: strategy,
		Eps:      tc.GetEps(),
		Workers:  WorkerCount(tc.GetFracCores(), runtime.NumCPU()),
	}, nil
}

// DefaultConfig returns the run configuration for DefaultTuningConfig.
func DefaultConfig() Config {
	cfg, err := ConfigFromTuning(config.DefaultTuningConfig())
	if err != nil {
		panic(err)
	}
	return cfg
}

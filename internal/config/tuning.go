package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Default values returned by the Get* accessors when a field is unset.
const (
	defaultFracCores      = 0.5
	defaultVersion        = "classic"
	defaultCWInter        = 0.0
	defaultH2CW           = 0.3
	defaultCLInter        = 0.0
	defaultH2CL           = 0.4
	defaultMaxIter        = 20
	defaultBufferWidth    = 10.0
	defaultMinZ           = 2.0
	defaultCtrAccuracy    = 2.0
	defaultEps            = 1.0
	defaultIDStrategy     = "exact"
	defaultConvergenceTol = 0.01
)

var (
	validVersions   = []string{"classic", "voxel"}
	validStrategies = []string{"exact", "distance", "distance_kdtree"}
)

// TuningConfig represents the root configuration for a crown delineation run.
// Every field is optional; unset fields fall back to the defaults above.
type TuningConfig struct {
	// Worker pool
	FracCores *float64 `json:"frac_cores,omitempty"`

	// Mode seeking
	Version        *string  `json:"version,omitempty"` // "classic" or "voxel"
	CWInter        *float64 `json:"cw_inter,omitempty"`
	H2CW           *float64 `json:"h2cw,omitempty"`
	CLInter        *float64 `json:"cl_inter,omitempty"`
	H2CL           *float64 `json:"h2cl,omitempty"`
	MaxIter        *int     `json:"max_iter,omitempty"`
	ConvergenceTol *float64 `json:"convergence_tol,omitempty"` // metres

	// Tiles
	BufferWidth *float64 `json:"buffer_width,omitempty"` // metres, checked only
	MinZ        *float64 `json:"minz,omitempty"`         // metres above ground
	CtrAccuracy *float64 `json:"ctr_ac,omitempty"`

	// Identity resolution
	IDStrategy *string  `json:"id_strategy,omitempty"` // "exact", "distance" or "distance_kdtree"
	Eps        *float64 `json:"eps,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// default value.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		FracCores:      ptrFloat64(defaultFracCores),
		Version:        ptrString(defaultVersion),
		CWInter:        ptrFloat64(defaultCWInter),
		H2CW:           ptrFloat64(defaultH2CW),
		CLInter:        ptrFloat64(defaultCLInter),
		H2CL:           ptrFloat64(defaultH2CL),
		MaxIter:        ptrInt(defaultMaxIter),
		ConvergenceTol: ptrFloat64(defaultConvergenceTol),
		BufferWidth:    ptrFloat64(defaultBufferWidth),
		MinZ:           ptrFloat64(defaultMinZ),
		CtrAccuracy:    ptrFloat64(defaultCtrAccuracy),
		IDStrategy:     ptrString(defaultIDStrategy),
		Eps:            ptrFloat64(defaultEps),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/lidar/pipeline/
		"../../../../" + DefaultConfigPath, // from internal/lidar/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. The checks run
// on the effective values, so an unset field is checked at its default.
func (c *TuningConfig) Validate() error {
	if f := c.GetFracCores(); f <= 0 || f > 1 {
		return fmt.Errorf("frac_cores must be in (0, 1], got %f", f)
	}
	if v := c.GetVersion(); !oneOf(v, validVersions) {
		return fmt.Errorf("version must be one of %v, got %q", validVersions, v)
	}
	if s := c.GetIDStrategy(); !oneOf(s, validStrategies) {
		return fmt.Errorf("id_strategy must be one of %v, got %q", validStrategies, s)
	}
	if n := c.GetMaxIter(); n < 1 {
		return fmt.Errorf("max_iter must be positive, got %d", n)
	}
	if z := c.GetMinZ(); z <= 0 {
		return fmt.Errorf("minz must be positive, got %f", z)
	}
	if ac := c.GetCtrAccuracy(); ac <= 0 {
		return fmt.Errorf("ctr_ac must be positive, got %f", ac)
	}
	if eps := c.GetEps(); eps <= 0 {
		return fmt.Errorf("eps must be positive, got %f", eps)
	}
	if w := c.GetBufferWidth(); w < 0 {
		return fmt.Errorf("buffer_width must be non-negative, got %f", w)
	}
	if tol := c.GetConvergenceTol(); tol < 0 {
		return fmt.Errorf("convergence_tol must be non-negative, got %f", tol)
	}

	// The kernel must be positive at the lowest height it is ever sized for.
	minZ := c.GetMinZ()
	if r := c.GetCWInter() + c.GetH2CW()*minZ; r <= 0 {
		return fmt.Errorf("kernel radius must be positive at minz=%g, got %f (cw_inter + h2cw*minz)", minZ, r)
	}
	if h := c.GetCLInter() + c.GetH2CL()*minZ; h <= 0 {
		return fmt.Errorf("kernel height must be positive at minz=%g, got %f (cl_inter + h2cl*minz)", minZ, h)
	}

	return nil
}

func oneOf(v string, options []string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

// GetFracCores returns the frac_cores value or the default.
func (c *TuningConfig) GetFracCores() float64 {
	if c.FracCores == nil {
		return defaultFracCores
	}
	return *c.FracCores
}

// GetVersion returns the version value or the default.
func (c *TuningConfig) GetVersion() string {
	if c.Version == nil || *c.Version == "" {
		return defaultVersion
	}
	return *c.Version
}

// GetCWInter returns the cw_inter value or the default.
func (c *TuningConfig) GetCWInter() float64 {
	if c.CWInter == nil {
		return defaultCWInter
	}
	return *c.CWInter
}

// GetH2CW returns the h2cw value or the default.
func (c *TuningConfig) GetH2CW() float64 {
	if c.H2CW == nil {
		return defaultH2CW
	}
	return *c.H2CW
}

// GetCLInter returns the cl_inter value or the default.
func (c *TuningConfig) GetCLInter() float64 {
	if c.CLInter == nil {
		return defaultCLInter
	}
	return *c.CLInter
}

// GetH2CL returns the h2cl value or the default.
func (c *TuningConfig) GetH2CL() float64 {
	if c.H2CL == nil {
		return defaultH2CL
	}
	return *c.H2CL
}

// GetMaxIter returns the max_iter value or the default.
func (c *TuningConfig) GetMaxIter() int {
	if c.MaxIter == nil {
		return defaultMaxIter
	}
	return *c.MaxIter
}

// GetConvergenceTol returns the convergence_tol value or the default.
func (c *TuningConfig) GetConvergenceTol() float64 {
	if c.ConvergenceTol == nil {
		return defaultConvergenceTol
	}
	return *c.ConvergenceTol
}

// GetBufferWidth returns the buffer_width value or the default.
func (c *TuningConfig) GetBufferWidth() float64 {
	if c.BufferWidth == nil {
		return defaultBufferWidth
	}
	return *c.BufferWidth
}

// GetMinZ returns the minz value or the default.
func (c *TuningConfig) GetMinZ() float64 {
	if c.MinZ == nil {
		return defaultMinZ
	}
	return *c.MinZ
}

// GetCtrAccuracy returns the ctr_ac value or the default.
func (c *TuningConfig) GetCtrAccuracy() float64 {
	if c.CtrAccuracy == nil {
		return defaultCtrAccuracy
	}
	return *c.CtrAccuracy
}

// GetIDStrategy returns the id_strategy value or the default.
func (c *TuningConfig) GetIDStrategy() string {
	if c.IDStrategy == nil || *c.IDStrategy == "" {
		return defaultIDStrategy
	}
	return *c.IDStrategy
}

// GetEps returns the eps value or the default.
func (c *TuningConfig) GetEps() float64 {
	if c.Eps == nil {
		return defaultEps
	}
	return *c.Eps
}

package sqlite

import (
	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
	"github.com/banshee-data/canopy.report/internal/lidar/l5identity"
)

// KernelParamsExport is the JSON form of the crown allometry.
type KernelParamsExport struct {
	CWInter float64 `json:"cw_inter"`
	H2CW    float64 `json:"h2cw"`
	CLInter float64 `json:"cl_inter"`
	H2CL    float64 `json:"h2cl"`
}

// SeekParamsExport is the JSON form of the mode-seeking settings.
type SeekParamsExport struct {
	Variant   string  `json:"version"`
	MaxIter   int     `json:"max_iter"`
	Tolerance float64 `json:"convergence_tol"`
}

// TileParamsExport is the JSON form of the tile settings.
type TileParamsExport struct {
	MinZ        float64 `json:"minz"`
	CtrAccuracy float64 `json:"ctr_ac"`
	BufferWidth float64 `json:"buffer_width"`
}

// IdentityParamsExport is the JSON form of the identity settings.
type IdentityParamsExport struct {
	Strategy string  `json:"id_strategy"`
	Eps      float64 `json:"eps"`
}

// RunParams is the parameter set a run was produced with.
type RunParams struct {
	Kernel   KernelParamsExport   `json:"kernel"`
	Seek     SeekParamsExport     `json:"seek"`
	Tiles    TileParamsExport     `json:"tiles"`
	Identity IdentityParamsExport `json:"identity"`
}

// NewRunParams captures tile and identity settings for storage.
func NewRunParams(p l4tiles.Params, strategy l5identity.Strategy, eps float64) RunParams {
	k := p.Seek.Kernel
	return RunParams{
		Kernel: KernelParamsExport{CWInter: k.CWInter, H2CW: k.H2CW, CLInter: k.CLInter, H2CL: k.H2CL},
		Seek: SeekParamsExport{
			Variant:   string(p.Variant),
			MaxIter:   p.Seek.MaxIter,
			Tolerance: p.Seek.Tolerance,
		},
		Tiles: TileParamsExport{
			MinZ:        p.MinZ,
			CtrAccuracy: p.CtrAccuracy,
			BufferWidth: p.BufferWidth,
		},
		Identity: IdentityParamsExport{Strategy: string(strategy), Eps: eps},
	}
}

// Run is one persisted pipeline run.
type Run struct {
	RunID        string    `json:"run_id"`
	CreatedAt    int64     `json:"created_at"` // unix nanos
	Params       RunParams `json:"params"`
	Tiles        int       `json:"tiles"`
	Workers      int       `json:"workers"`
	InputPoints  int       `json:"input_points"`
	GroundPoints int       `json:"ground_points"`
	Detections   int       `json:"detections"`
	NonConverged int       `json:"non_converged"`
	Clusters     int       `json:"clusters"`
	ElapsedNanos int64     `json:"elapsed_ns"`
	Notes        string    `json:"notes,omitempty"`
}

package store

import (
	"gorm.io/gorm"
)

// Models are the tables of the store, in migration order.
var Models = []interface{}{
	&Run{},
	&StepRecord{},
	&WingForces{},
	&PolarPoint{},
}

// Run is one simulation or sweep.
type Run struct {
	gorm.Model
	Name       string `gorm:"size:127;index"`
	Mode       string `gorm:"size:31"`
	NrWings    int
	NrElements int
	Density    float64
	Steps      []StepRecord `gorm:"constraint:OnDelete:CASCADE"`
	Polar      []PolarPoint `gorm:"constraint:OnDelete:CASCADE"`
}

// StepRecord is the solver outcome of one time step.
type StepRecord struct {
	ID         uint `gorm:"primarykey"`
	RunID      uint `gorm:"index"`
	Step       int  `gorm:"index"`
	Time       float64
	Iterations int
	Residual   float64
	Converged  bool
	Wings      []WingForces `gorm:"foreignKey:StepID;constraint:OnDelete:CASCADE"`
}

// WingForces are the integrated forces and moments of one wing in one step, in the output frame
// of the model.
type WingForces struct {
	ID     uint `gorm:"primarykey"`
	StepID uint `gorm:"index"`
	Wing   int

	ForceX, ForceY, ForceZ                   float64
	CirculatoryX, CirculatoryY, CirculatoryZ float64
	DragX, DragY, DragZ                      float64
	MomentX, MomentY, MomentZ                float64
}

// PolarPoint is one angle of a sweep, with coefficients based on the total projected area.
type PolarPoint struct {
	ID         uint    `json:"-" gorm:"primarykey"`
	RunID      uint    `json:"-" gorm:"index"`
	Angle      float64 `json:"angle"`
	Lift       float64 `json:"lift"`
	Drag       float64 `json:"drag"`
	CL         float64 `json:"cl"`
	CD         float64 `json:"cd"`
	Iterations int     `json:"iterations"`
	Residual   float64 `json:"residual"`
	Converged  bool    `json:"converged"`
}

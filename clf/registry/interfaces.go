package registry

import (
	"time"

	"github.com/ZanzyTHEbar/textclf/clf/metrics"

	"github.com/google/uuid"
)

// ModelRecord points at one saved architecture/weights pair.
type ModelRecord struct {
	ID          uuid.UUID
	Name        string
	ArchPath    string
	WeightsPath string
	SavedAt     time.Time
}

// EvaluationRecord is one scored prediction run against a model.
type EvaluationRecord struct {
	ID          uuid.UUID
	ModelID     uuid.UUID
	Accuracy    float64
	Precision   float64
	Recall      float64
	FScore      float64
	Report      *metrics.Report
	EvaluatedAt time.Time
}

// Store is the set of registry operations the workflow depends on.
type Store interface {
	Close() error
	AddModel(name, archPath, weightsPath string) (*ModelRecord, error)
	GetModel(id uuid.UUID) (*ModelRecord, error)
	ListModels() ([]ModelRecord, error)
	DeleteModel(id uuid.UUID) error
	RecordEvaluation(modelID uuid.UUID, report *metrics.Report) (*EvaluationRecord, error)
	Evaluations(modelID uuid.UUID) ([]EvaluationRecord, error)
	BestModel() (*ModelRecord, *EvaluationRecord, error)
}

var (
	_ Store = (*Registry)(nil)
	_ Store = (*MockStore)(nil)
)

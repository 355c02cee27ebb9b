package registry

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/textclf/clf/metrics"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu          sync.Mutex
	models      map[uuid.UUID]*ModelRecord
	order       []uuid.UUID
	evaluations map[uuid.UUID][]EvaluationRecord
}

func NewMockStore() *MockStore {
	return &MockStore{
		models:      make(map[uuid.UUID]*ModelRecord),
		evaluations: make(map[uuid.UUID][]EvaluationRecord),
	}
}

func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) AddModel(name, archPath, weightsPath string) (*ModelRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := &ModelRecord{ID: uuid.New(), Name: name, ArchPath: archPath, WeightsPath: weightsPath, SavedAt: time.Now().UTC()}
	m.models[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	copied := *rec
	return &copied, nil
}

func (m *MockStore) GetModel(id uuid.UUID) (*ModelRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: model %s", ErrNotFound, id)
	}
	copied := *rec
	return &copied, nil
}

func (m *MockStore) ListModels() ([]ModelRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ModelRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.models[id])
	}
	return out, nil
}

func (m *MockStore) DeleteModel(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.models[id]; !ok {
		return fmt.Errorf("%w: model %s", ErrNotFound, id)
	}
	delete(m.models, id)
	delete(m.evaluations, id)
	m.order = slices.DeleteFunc(m.order, func(x uuid.UUID) bool { return x == id })
	return nil
}

func (m *MockStore) RecordEvaluation(modelID uuid.UUID, report *metrics.Report) (*EvaluationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.models[modelID]; !ok {
		return nil, fmt.Errorf("%w: model %s", ErrNotFound, modelID)
	}
	rec := EvaluationRecord{
		ID:          uuid.New(),
		ModelID:     modelID,
		Accuracy:    report.Accuracy,
		Precision:   report.Weighted.Precision,
		Recall:      report.Weighted.Recall,
		FScore:      report.Weighted.F1,
		Report:      report,
		EvaluatedAt: time.Now().UTC(),
	}
	m.evaluations[modelID] = append(m.evaluations[modelID], rec)
	return &rec, nil
}

func (m *MockStore) Evaluations(modelID uuid.UUID) ([]EvaluationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.evaluations[modelID]), nil
}

func (m *MockStore) BestModel() (*ModelRecord, *EvaluationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *EvaluationRecord
	for _, id := range m.order {
		for i := range m.evaluations[id] {
			e := &m.evaluations[id][i]
			if best == nil || e.FScore > best.FScore {
				best = e
			}
		}
	}
	if best == nil {
		return nil, nil, fmt.Errorf("%w: no evaluations", ErrNotFound)
	}
	model := *m.models[best.ModelID]
	eval := *best
	return &model, &eval, nil
}

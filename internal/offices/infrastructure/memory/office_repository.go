package memory

import (
	"context"
	"sort"
	"sync"

	offices "speedwatch/internal/offices/domain"
)

// OfficeRepository is an in-memory office store.
type OfficeRepository struct {
	mu   sync.RWMutex
	data map[string]offices.Office
}

// NewOfficeRepository constructs a repository.
func NewOfficeRepository() *OfficeRepository {
	return &OfficeRepository{data: make(map[string]offices.Office)}
}

// Get loads an office by id, nil when absent.
func (r *OfficeRepository) Get(ctx context.Context, id string) (*offices.Office, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	office, ok := r.data[id]
	if !ok {
		return nil, nil
	}
	return &office, nil
}

// List returns all offices ordered by id.
func (r *OfficeRepository) List(ctx context.Context) ([]*offices.Office, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*offices.Office, 0, len(r.data))
	for id := range r.data {
		office := r.data[id]
		out = append(out, &office)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save upserts an office.
func (r *OfficeRepository) Save(ctx context.Context, office *offices.Office) error {
	_ = ctx
	if office == nil {
		return offices.ErrNilOffice
	}
	if err := office.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.data[office.ID] = *office
	r.mu.Unlock()
	return nil
}

// Delete removes an office.
func (r *OfficeRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	delete(r.data, id)
	r.mu.Unlock()
	return nil
}

package offices

import (
	"context"
	"time"
)

// Office represents a physical office whose internet links are tested.
// ISP configuration arrives from legacy upstream systems as loosely
// structured JSON; GeneralISPs and SectionISPs hold the raw text and
// are only interpreted by the resolver.
type Office struct {
	ID       string
	Unit     string
	SubUnit  string
	Location string
	Section  string
	Timezone string

	// ISPName is the legacy single-ISP field, kept for offices that
	// predate structured configuration.
	ISPName string
	// GeneralISPs is the raw general configuration: a bare name, a
	// JSON array of names, or either of those JSON-encoded once more.
	GeneralISPs string
	// SectionISPs is the raw section map configuration: a JSON object
	// of section name to list of ISP entries, possibly double-encoded.
	SectionISPs string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks office invariants.
func (o Office) Validate() error {
	if o.ID == "" {
		return ErrEmptyOfficeID
	}
	if o.Unit == "" {
		return ErrEmptyUnit
	}
	return nil
}

// OfficeRepository manages office persistence.
type OfficeRepository interface {
	Get(ctx context.Context, id string) (*Office, error)
	List(ctx context.Context) ([]*Office, error)
	Save(ctx context.Context, office *Office) error
	Delete(ctx context.Context, id string) error
}

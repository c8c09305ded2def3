package cv

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is stamped into every CVData written by this service.
const SchemaVersion = 1

type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Summary  string `json:"summary"`
}

type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

type Experience struct {
	Company     string   `json:"company"`
	Position    string   `json:"position"`
	Location    string   `json:"location"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Description string   `json:"description"`
	Highlights  []string `json:"highlights"`
}

type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         *string  `json:"url,omitempty"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Highlights  []string `json:"highlights"`
}

type Certification struct {
	Name   string  `json:"name"`
	Issuer string  `json:"issuer"`
	Date   string  `json:"date"`
	URL    *string `json:"url,omitempty"`
}

// CVData is the document body. The repository stores it as an opaque JSON blob.
type CVData struct {
	SchemaVersion  int             `json:"schemaVersion"`
	PersonalInfo   PersonalInfo    `json:"personalInfo"`
	Education      []Education     `json:"education"`
	Experience     []Experience    `json:"experience"`
	Skills         []string        `json:"skills"`
	Projects       []Project       `json:"projects"`
	Certifications []Certification `json:"certifications"`
}

// EmptyCVData seeds a new CV form.
func EmptyCVData() CVData {
	return CVData{
		SchemaVersion:  SchemaVersion,
		Education:      []Education{},
		Experience:     []Experience{},
		Skills:         []string{},
		Projects:       []Project{},
		Certifications: []Certification{},
	}
}

type CV struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Body      CVData    `json:"cv_data"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title     *string
	Body      *CVData
	IsPrimary *bool
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Body == nil && p.IsPrimary == nil
}

// Apply merges the patch into c. It does not touch timestamps.
func (p Patch) Apply(c *CV) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Body != nil {
		c.Body = *p.Body
	}
	if p.IsPrimary != nil {
		c.IsPrimary = *p.IsPrimary
	}
}

// Repository persists CV documents. Every method is scoped to ownerID.
//
// Any write that leaves a row with IsPrimary set must demote every other row of the same owner
// atomically with that write.
type Repository interface {
	Save(ctx context.Context, c *CV) error
	// Update writes only the fields set in patch, bumps updated_at and returns the stored row.
	Update(ctx context.Context, id uuid.UUID, ownerID uuid.UUID, patch Patch) (*CV, error)
	Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*CV, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*CV, error)
}

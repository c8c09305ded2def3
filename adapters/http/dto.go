package http

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/internal/domain/user"
)

// Auth DTOs
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserDTO struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  *string   `json:"name,omitempty"`
	Role  user.Role `json:"role"`
}

type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	User        UserDTO `json:"user"`
}

// CV DTOs
type CreateCVRequest struct {
	Title     string     `json:"title" binding:"required"`
	Body      *cv.CVData `json:"cv_data"`
	IsPrimary bool       `json:"is_primary"`
}

type UpdateCVRequest struct {
	Title     *string    `json:"title"`
	Body      *cv.CVData `json:"cv_data"`
	IsPrimary *bool      `json:"is_primary"`
}

func (r UpdateCVRequest) ToPatch() cv.Patch {
	return cv.Patch{Title: r.Title, Body: r.Body, IsPrimary: r.IsPrimary}
}

type CVDTO struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Body      cv.CVData `json:"cv_data"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToCVDTO(c *cv.CV) CVDTO {
	return CVDTO{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Title:     c.Title,
		Body:      c.Body,
		IsPrimary: c.IsPrimary,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func ToCVDTOs(cvs []*cv.CV) []CVDTO {
	out := make([]CVDTO, len(cvs))
	for i, c := range cvs {
		out[i] = ToCVDTO(c)
	}
	return out
}

// CV file DTOs
type UploadCVFileResponse struct {
	ID      uuid.UUID `json:"id"`
	FileURL string    `json:"file_url"`
}

type CVFileDTO struct {
	ID         uuid.UUID     `json:"id"`
	Title      string        `json:"title"`
	FileURL    string        `json:"file_url"`
	FileType   string        `json:"file_type"`
	Status     cv.FileStatus `json:"status"`
	AIScore    *int          `json:"ai_score"`
	AIFeedback *cv.Feedback  `json:"ai_feedback"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func ToCVFileDTO(f *cv.File) CVFileDTO {
	return CVFileDTO{
		ID:         f.ID,
		Title:      f.Title,
		FileURL:    f.FileURL,
		FileType:   f.FileType,
		Status:     f.Status,
		AIScore:    f.AIScore,
		AIFeedback: f.AIFeedback,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

func ToCVFileDTOs(files []*cv.File) []CVFileDTO {
	out := make([]CVFileDTO, len(files))
	for i, f := range files {
		out[i] = ToCVFileDTO(f)
	}
	return out
}

// Display DTOs
type DisplayHeaderDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Summary  string `json:"summary,omitempty"`
}

type DisplayItemDTO struct {
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Period      string   `json:"period,omitempty"`
	Description string   `json:"description,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
	URL         string   `json:"url,omitempty"`
}

type DisplaySectionDTO struct {
	Key     string           `json:"key"`
	Heading string           `json:"heading"`
	Items   []DisplayItemDTO `json:"items"`
}

type CVDisplayDTO struct {
	ID        uuid.UUID           `json:"id"`
	Title     string              `json:"title"`
	IsPrimary bool                `json:"is_primary"`
	Created   string              `json:"created"`
	Header    DisplayHeaderDTO    `json:"header"`
	Skills    []string            `json:"skills"`
	Sections  []DisplaySectionDTO `json:"sections"`
}

const displayDateLayout = "Jan 2006"

var storedDateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01", "2006"}

// FormatDisplayDate renders a stored date as "Jan 2006". An empty value is an open-ended range and
// reads "Present"; anything unparseable is returned as written.
func FormatDisplayDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Present"
	}
	for _, layout := range storedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(displayDateLayout)
		}
	}
	return s
}

func displayPeriod(start, end string) string {
	if strings.TrimSpace(start) == "" && strings.TrimSpace(end) == "" {
		return ""
	}
	return FormatDisplayDate(start) + " - " + FormatDisplayDate(end)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// ToCVDisplayDTO groups a CV into display sections. Empty sections are left out.
func ToCVDisplayDTO(c *cv.CV) CVDisplayDTO {
	body := c.Body
	dto := CVDisplayDTO{
		ID:        c.ID,
		Title:     c.Title,
		IsPrimary: c.IsPrimary,
		Created:   c.CreatedAt.Format("Jan 2, 2006"),
		Header: DisplayHeaderDTO{
			Name:     body.PersonalInfo.Name,
			Email:    body.PersonalInfo.Email,
			Phone:    body.PersonalInfo.Phone,
			Location: body.PersonalInfo.Location,
			Summary:  body.PersonalInfo.Summary,
		},
		Skills:   append([]string{}, body.Skills...),
		Sections: []DisplaySectionDTO{},
	}

	if len(body.Experience) > 0 {
		items := make([]DisplayItemDTO, len(body.Experience))
		for i, e := range body.Experience {
			items[i] = DisplayItemDTO{
				Title:       e.Position,
				Subtitle:    joinNonEmpty(" • ", e.Company, e.Location),
				Period:      displayPeriod(e.StartDate, e.EndDate),
				Description: e.Description,
				Highlights:  e.Highlights,
			}
		}
		dto.Sections = append(dto.Sections, DisplaySectionDTO{Key: "experience", Heading: "Experience", Items: items})
	}

	if len(body.Education) > 0 {
		items := make([]DisplayItemDTO, len(body.Education))
		for i, e := range body.Education {
			items[i] = DisplayItemDTO{
				Title:       joinNonEmpty(" in ", e.Degree, e.Field),
				Subtitle:    e.Institution,
				Period:      displayPeriod(e.StartDate, e.EndDate),
				Description: e.Description,
			}
		}
		dto.Sections = append(dto.Sections, DisplaySectionDTO{Key: "education", Heading: "Education", Items: items})
	}

	if len(body.Projects) > 0 {
		items := make([]DisplayItemDTO, len(body.Projects))
		for i, p := range body.Projects {
			item := DisplayItemDTO{
				Title:       p.Name,
				Period:      displayPeriod(p.StartDate, p.EndDate),
				Description: p.Description,
				Highlights:  p.Highlights,
			}
			if p.URL != nil {
				item.URL = *p.URL
			}
			items[i] = item
		}
		dto.Sections = append(dto.Sections, DisplaySectionDTO{Key: "projects", Heading: "Projects", Items: items})
	}

	if len(body.Certifications) > 0 {
		items := make([]DisplayItemDTO, len(body.Certifications))
		for i, cert := range body.Certifications {
			item := DisplayItemDTO{Title: cert.Name, Subtitle: cert.Issuer}
			if strings.TrimSpace(cert.Date) != "" {
				item.Period = FormatDisplayDate(cert.Date)
			}
			if cert.URL != nil {
				item.URL = *cert.URL
			}
			items[i] = item
		}
		dto.Sections = append(dto.Sections, DisplaySectionDTO{Key: "certifications", Heading: "Certifications", Items: items})
	}

	return dto
}

package cv

import (
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"

	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/apperror"
)

var (
	tracer      = otel.Tracer("cv_usecase")
	titlePolicy = bluemonday.StrictPolicy()
)

func requireOwner(ownerID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return apperror.NotAuthenticated()
	}
	return nil
}

// sanitizeTitle drops markup but keeps literal characters such as '&'.
func sanitizeTitle(title string) string {
	return strings.TrimSpace(html.UnescapeString(titlePolicy.Sanitize(title)))
}

func stampVersion(body *cv.CVData) {
	if body.SchemaVersion == 0 {
		body.SchemaVersion = cv.SchemaVersion
	}
}

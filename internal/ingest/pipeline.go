package ingest

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/ridewell/benefit-api/internal/models"
)

// InviteStore is the external record store consumed by the pipeline. The
// store must enforce (or emulate) a uniqueness constraint on email and
// surface violations as models.ErrDuplicateEmail: the check-then-insert
// sequence here is an optimization, the constraint is the correctness
// mechanism under concurrent submissions.
type InviteStore interface {
	FindInviteByEmail(ctx context.Context, email string) (models.ProfileInvite, error)
	CreateInvite(ctx context.Context, invite models.ProfileInvite) (models.ProfileInvite, error)
}

// RowResult is the per-row outcome of a bulk submission.
type RowResult struct {
	Email   string                `json:"email"`
	Invited bool                  `json:"invited"`
	Status  string                `json:"status,omitempty"`
	Error   string                `json:"error,omitempty"`
	Body    *models.ProfileInvite `json:"body,omitempty"`
}

// Report aggregates the ordered per-row outcomes of one batch.
type Report struct {
	Created int         `json:"created"`
	Results []RowResult `json:"results"`
}

const (
	StatusCreated       = "created"
	StatusAlreadyExists = "already_exists"

	reasonInvalidEmail = "invalid_email"
	reasonLookupFailed = "lookup_failed"
	reasonCreateFailed = "create_failed"
)

// hireDateLayouts are tried in order when the value is not epoch millis.
var hireDateLayouts = []string{"2006-01-02", time.RFC3339, "02.01.2006"}

// Pipeline validates, deduplicates, and writes employee-invite rows on
// behalf of one tenant. Rows are independent: a failed row is reported
// and never aborts the batch.
type Pipeline struct {
	store  InviteStore
	logger zerolog.Logger
}

func NewPipeline(store InviteStore, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		logger: logger.With().Str("component", "ingest_pipeline").Logger(),
	}
}

// Run processes rows sequentially in file order, stamping every written
// invite with companyID. The caller has already been authenticated,
// authorized, and resolved to that company; nothing in the uploaded data
// can redirect a row to another tenant.
func (p *Pipeline) Run(ctx context.Context, companyID string, rows []Row) Report {
	results := make([]RowResult, 0, len(rows))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			p.logger.Warn().Err(err).Msg("batch interrupted, reporting processed rows")
			break
		}
		results = append(results, p.processRow(ctx, companyID, row))
	}

	return Report{Created: len(results), Results: results}
}

func (p *Pipeline) processRow(ctx context.Context, companyID string, row Row) RowResult {
	email := strings.ToLower(strings.TrimSpace(field(row, "email")))
	if !strings.Contains(email, "@") {
		return RowResult{Email: email, Error: reasonInvalidEmail}
	}

	_, err := p.store.FindInviteByEmail(ctx, email)
	switch {
	case err == nil:
		return RowResult{Email: email, Status: StatusAlreadyExists}
	case !errors.Is(err, models.ErrInviteNotFound):
		p.logger.Error().Err(err).Str("email", email).Msg("invite lookup failed")
		return RowResult{Email: email, Error: reasonLookupFailed}
	}

	invite := models.ProfileInvite{
		CompanyID:   companyID,
		Email:       email,
		FirstName:   optionalField(row, "firstName", "first_name"),
		LastName:    optionalField(row, "lastName", "last_name"),
		Description: optionalField(row, "description"),
		Department:  optionalField(row, "department"),
		HireDate:    parseHireDate(field(row, "hireDate", "hire_date")),
	}

	created, err := p.store.CreateInvite(ctx, invite)
	switch {
	case err == nil:
		return RowResult{Email: email, Invited: true, Status: StatusCreated, Body: &created}
	case errors.Is(err, models.ErrDuplicateEmail):
		// Lost the race to a concurrent writer; same outcome as the
		// pre-check finding the row.
		return RowResult{Email: email, Status: StatusAlreadyExists}
	default:
		p.logger.Error().Err(err).Str("email", email).Msg("invite create failed")
		return RowResult{Email: email, Error: reasonCreateFailed}
	}
}

// field returns the first non-blank value among the given header aliases.
func field(row Row, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(row[name]); v != "" {
			return v
		}
	}
	return ""
}

func optionalField(row Row, names ...string) *string {
	if v := field(row, names...); v != "" {
		return &v
	}
	return nil
}

// parseHireDate accepts epoch milliseconds first, then date-string
// layouts. Unparseable values are dropped rather than failing the row.
func parseHireDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	if millis, err := strconv.ParseInt(value, 10, 64); err == nil {
		t := time.UnixMilli(millis).UTC()
		return &t
	}
	for _, layout := range hireDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	"github.com/jecrcuniv/nodues-api/internal/models"
	"github.com/jecrcuniv/nodues-api/internal/repository"
	appErrors "github.com/jecrcuniv/nodues-api/pkg/errors"
)

type applicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id string) (*models.Application, error)
	GetByRegistrationNo(ctx context.Context, regNo string) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	UpdateAggregateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error
	ApplyReapplication(ctx context.Context, params repository.ReapplyParams) error
}

type statusStore interface {
	CreateBatch(ctx context.Context, applicationID string, departments []string) error
	ListByApplication(ctx context.Context, applicationID string) ([]models.DepartmentStatus, error)
	ListByApplications(ctx context.Context, applicationIDs []string) (map[string][]models.DepartmentStatus, error)
	ApplyDecision(ctx context.Context, input models.DecisionInput) error
	ResetRejected(ctx context.Context, applicationID string) ([]string, error)
}

type departmentStore interface {
	ListActive(ctx context.Context) ([]models.Department, error)
}

type reapplicationStore interface {
	Create(ctx context.Context, entry *models.Reapplication) error
	ListByApplication(ctx context.Context, applicationID string) ([]models.Reapplication, error)
}

type overviewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type certificateTrigger interface {
	Generate(ctx context.Context, applicationID string) (*dto.CertificateResponse, error)
}

type clearanceNotifier interface {
	NewApplication(ctx context.Context, app *models.Application) error
	ApplicationRejected(ctx context.Context, app *models.Application, department, comment string) error
	DepartmentReminder(ctx context.Context, app *models.Application, department, recipient string) error
}

// Upper bound on applications flagged per reminder run.
const reminderBatchSize = 200

type auditRecorder interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Fields a student may change when resubmitting a rejected application.
var reapplyEditableFields = map[string]bool{
	"contact_no":     true,
	"personal_email": true,
	"college_email":  true,
	"student_name":   true,
	"parent_name":    true,
}

// ClearanceService orchestrates the no-dues workflow from submission through
// completion.
type ClearanceService struct {
	apps         applicationStore
	statuses     statusStore
	departments  departmentStore
	reapps       reapplicationStore
	cache        overviewCache
	certificates certificateTrigger
	notifier     clearanceNotifier
	audit        auditRecorder
	metrics      *MetricsService
	logger       *zap.Logger

	maxReapplications int
	bulkLimit         int
	statusCacheTTL    time.Duration
}

// ClearanceServiceConfig groups the workflow tunables.
type ClearanceServiceConfig struct {
	MaxReapplications int
	BulkActionLimit   int
	StatusCacheTTL    time.Duration
}

// NewClearanceService constructs the service.
func NewClearanceService(
	apps applicationStore,
	statuses statusStore,
	departments departmentStore,
	reapps reapplicationStore,
	cache overviewCache,
	certificates certificateTrigger,
	notifier clearanceNotifier,
	audit auditRecorder,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ClearanceServiceConfig,
) *ClearanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxReapplications <= 0 {
		cfg.MaxReapplications = 5
	}
	if cfg.BulkActionLimit <= 0 {
		cfg.BulkActionLimit = 100
	}
	if cfg.StatusCacheTTL <= 0 {
		cfg.StatusCacheTTL = 30 * time.Second
	}
	return &ClearanceService{
		apps:              apps,
		statuses:          statuses,
		departments:       departments,
		reapps:            reapps,
		cache:             cache,
		certificates:      certificates,
		notifier:          notifier,
		audit:             audit,
		metrics:           metrics,
		logger:            logger,
		maxReapplications: cfg.MaxReapplications,
		bulkLimit:         cfg.BulkActionLimit,
		statusCacheTTL:    cfg.StatusCacheTTL,
	}
}

// Submit registers a new application and seeds one pending row per active
// department. A registration number with a live application cannot submit
// again; a rejected one must use the reapply flow instead.
func (s *ClearanceService) Submit(ctx context.Context, req dto.SubmitApplicationRequest) (*dto.SubmitApplicationResponse, error) {
	regNo := strings.ToUpper(strings.TrimSpace(req.RegistrationNo))

	if existing, err := s.apps.GetByRegistrationNo(ctx, regNo); err == nil {
		switch existing.Status {
		case models.ApplicationRejected:
			return nil, appErrors.Clone(appErrors.ErrConflict, "application was rejected, use the reapply flow")
		default:
			return nil, appErrors.Clone(appErrors.ErrConflict, "an application already exists for this registration number")
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.FromError(err)
	}

	departments, err := s.departments.ListActive(ctx)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if len(departments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInternal, "no active departments configured")
	}

	app := &models.Application{
		RegistrationNo: regNo,
		StudentName:    strings.TrimSpace(req.StudentName),
		ParentName:     strings.TrimSpace(req.ParentName),
		School:         strings.TrimSpace(req.School),
		Course:         strings.TrimSpace(req.Course),
		Branch:         strings.TrimSpace(req.Branch),
		AdmissionYear:  req.AdmissionYear,
		PassingYear:    req.PassingYear,
		ContactNo:      strings.TrimSpace(req.ContactNo),
		PersonalEmail:  req.PersonalEmail,
		CollegeEmail:   req.CollegeEmail,
		Status:         models.ApplicationPending,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, appErrors.FromError(err)
	}

	names := make([]string, 0, len(departments))
	for _, dept := range departments {
		names = append(names, dept.Name)
	}
	if err := s.statuses.CreateBatch(ctx, app.ID, names); err != nil {
		return nil, appErrors.FromError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordApplicationSubmitted()
	}
	if s.notifier != nil {
		if err := s.notifier.NewApplication(ctx, app); err != nil {
			s.logger.Warn("failed to queue submission notification",
				zap.String("application_id", app.ID), zap.Error(err))
		}
	}
	s.logger.Info("application submitted",
		zap.String("application_id", app.ID),
		zap.String("registration_no", app.RegistrationNo),
		zap.Int("departments", len(names)))

	return &dto.SubmitApplicationResponse{
		ApplicationID:  app.ID,
		RegistrationNo: app.RegistrationNo,
		Status:         app.Status,
		Departments:    names,
		SubmittedAt:    app.CreatedAt,
	}, nil
}

// StatusOverview returns the public view of an application by registration
// number, served from cache when fresh.
func (s *ClearanceService) StatusOverview(ctx context.Context, registrationNo string) (*dto.StatusOverviewResponse, error) {
	regNo := strings.ToUpper(strings.TrimSpace(registrationNo))
	cacheKey := repository.StatusOverviewKey(regNo)

	if s.cache != nil {
		var cached dto.StatusOverviewResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheHit()
			}
			return &cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheMiss()
		}
	}

	app, err := s.apps.GetByRegistrationNo(ctx, regNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no application found for this registration number")
		}
		return nil, appErrors.FromError(err)
	}

	overview, err := s.buildOverview(ctx, app)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, overview, s.statusCacheTTL); err != nil {
			s.logger.Warn("failed to cache status overview", zap.String("registration_no", regNo), zap.Error(err))
		}
	}
	return overview, nil
}

func (s *ClearanceService) buildOverview(ctx context.Context, app *models.Application) (*dto.StatusOverviewResponse, error) {
	statuses, err := s.statuses.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	views := make([]dto.DepartmentStatusView, 0, len(statuses))
	for _, status := range statuses {
		views = append(views, dto.DepartmentStatusView{
			DepartmentName: status.DepartmentName,
			State:          status.State,
			Comment:        status.Comment,
			ActedAt:        status.ActedAt,
		})
	}

	limit := app.MaxReapplications(s.maxReapplications)
	remaining := limit - app.ReapplicationCount
	if remaining < 0 {
		remaining = 0
	}

	return &dto.StatusOverviewResponse{
		ApplicationID:      app.ID,
		RegistrationNo:     app.RegistrationNo,
		StudentName:        app.StudentName,
		Status:             app.Status,
		Departments:        views,
		ReapplicationCount: app.ReapplicationCount,
		RemainingAttempts:  remaining,
		CanReapply:         app.Status == models.ApplicationRejected && remaining > 0,
		CertificateReady:   app.CertificateURL != nil,
		CertificateURL:     app.CertificateURL,
		CertificateTxID:    app.CertificateTxID,
		SubmittedAt:        app.CreatedAt,
		LastUpdatedAt:      app.UpdatedAt,
	}, nil
}

// PerformDepartmentAction applies one department's approve/reject decision
// and folds the result into the aggregate status. The department status
// write is first-wins; the loser gets a conflict. Completion triggers
// certificate generation.
func (s *ClearanceService) PerformDepartmentAction(ctx context.Context, applicationID string, req dto.DepartmentActionRequest, actor *models.JWTClaims) (*dto.ActionResponse, error) {
	departmentName, err := resolveActorDepartment(actor, "")
	if err != nil {
		return nil, err
	}
	return s.performAction(ctx, applicationID, departmentName, req, actor)
}

// PerformDepartmentActionAs is the same flow with an explicit department,
// used by admins acting on behalf of a department.
func (s *ClearanceService) PerformDepartmentActionAs(ctx context.Context, applicationID, departmentName string, req dto.DepartmentActionRequest, actor *models.JWTClaims) (*dto.ActionResponse, error) {
	resolved, err := resolveActorDepartment(actor, departmentName)
	if err != nil {
		return nil, err
	}
	return s.performAction(ctx, applicationID, resolved, req, actor)
}

func (s *ClearanceService) performAction(ctx context.Context, applicationID, departmentName string, req dto.DepartmentActionRequest, actor *models.JWTClaims) (*dto.ActionResponse, error) {
	approve := strings.EqualFold(req.Action, "approve")

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.FromError(err)
	}
	if app.Status == models.ApplicationCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "application is already completed")
	}

	err = s.statuses.ApplyDecision(ctx, models.DecisionInput{
		ApplicationID:  applicationID,
		DepartmentName: departmentName,
		Approve:        approve,
		Comment:        req.Comment,
		ActorID:        actor.UserID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyProcessed
		}
		return nil, appErrors.FromError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordDecision(departmentName, approve)
	}

	outcome, err := s.refreshAggregate(ctx, app, departmentName, req.Comment, approve)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor.UserID, auditActionFor(approve), applicationID, map[string]interface{}{
		"department": departmentName,
		"comment":    req.Comment,
	})

	state := models.DeptRejected
	if approve {
		state = models.DeptApproved
	}
	return &dto.ActionResponse{
		ApplicationID:        applicationID,
		DepartmentName:       departmentName,
		DepartmentState:      state,
		ApplicationStatus:    outcome.Status,
		CertificateTriggered: outcome.JustCompleted,
	}, nil
}

// refreshAggregate recomputes the application status after a decision,
// persists the transition, invalidates the cache and fires completion or
// rejection side effects.
func (s *ClearanceService) refreshAggregate(ctx context.Context, app *models.Application, departmentName, comment string, approved bool) (AggregateOutcome, error) {
	statuses, err := s.statuses.ListByApplication(ctx, app.ID)
	if err != nil {
		return AggregateOutcome{}, appErrors.FromError(err)
	}
	outcome, ok := aggregate(app.Status, statuses)
	if !ok {
		return AggregateOutcome{}, appErrors.Clone(appErrors.ErrInvalidState, "application has no department statuses")
	}

	if outcome.Status != app.Status {
		if err := s.apps.UpdateAggregateStatus(ctx, app.ID, app.Status, outcome.Status); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Another decision landed in between; its aggregation pass
				// owns the transition.
				s.logger.Debug("aggregate transition lost race", zap.String("application_id", app.ID))
				return outcome, nil
			}
			return AggregateOutcome{}, appErrors.FromError(err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, repository.StatusOverviewKey(app.RegistrationNo)); err != nil {
			s.logger.Warn("failed to invalidate status cache", zap.String("application_id", app.ID), zap.Error(err))
		}
	}

	if !approved && s.notifier != nil {
		if err := s.notifier.ApplicationRejected(ctx, app, departmentName, comment); err != nil {
			s.logger.Warn("failed to queue rejection notification",
				zap.String("application_id", app.ID), zap.Error(err))
		}
	}

	if outcome.JustCompleted && s.certificates != nil {
		if _, err := s.certificates.Generate(ctx, app.ID); err != nil {
			// Completion stands even when the render fails; the claim was
			// released and the backfill job will retry.
			s.logger.Error("certificate generation after completion failed",
				zap.String("application_id", app.ID), zap.Error(err))
		}
	}

	return outcome, nil
}

// PerformBulkDepartmentAction approves a batch of applications for one
// department. Rejections are deliberately excluded from bulk; each needs its
// own comment. Individual failures do not abort the batch.
func (s *ClearanceService) PerformBulkDepartmentAction(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims) (*dto.BulkActionResponse, error) {
	departmentName, err := resolveActorDepartment(actor, "")
	if err != nil {
		return nil, err
	}
	if len(req.ApplicationIDs) > s.bulkLimit {
		return nil, appErrors.Clone(appErrors.ErrValidation, "too many applications in one bulk action")
	}

	resp := &dto.BulkActionResponse{Requested: len(req.ApplicationIDs)}
	seen := make(map[string]bool, len(req.ApplicationIDs))
	for _, id := range req.ApplicationIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		_, err := s.performAction(ctx, id, departmentName, dto.DepartmentActionRequest{
			Action:  "approve",
			Comment: req.Comment,
		}, actor)
		if err != nil {
			resp.Failed++
			resp.Results = append(resp.Results, dto.BulkActionResult{ApplicationID: id, Error: appErrors.FromError(err).Message})
			continue
		}
		resp.Succeeded++
		resp.Results = append(resp.Results, dto.BulkActionResult{ApplicationID: id, OK: true})
	}

	s.recordAudit(ctx, actor.UserID, models.AuditBulkApprove, "", map[string]interface{}{
		"department": departmentName,
		"requested":  resp.Requested,
		"succeeded":  resp.Succeeded,
		"failed":     resp.Failed,
	})
	return resp, nil
}

// Reapply resubmits a rejected application. Only rejected department rows
// reset to pending; approvals survive. Each resubmission burns one attempt
// against the per-form limit and appends a history row.
func (s *ClearanceService) Reapply(ctx context.Context, req dto.ReapplyRequest) (*dto.ReapplyResponse, error) {
	regNo := strings.ToUpper(strings.TrimSpace(req.RegistrationNo))
	app, err := s.apps.GetByRegistrationNo(ctx, regNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no application found for this registration number")
		}
		return nil, appErrors.FromError(err)
	}
	if app.Status != models.ApplicationRejected {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only rejected applications can be resubmitted")
	}

	limit := app.MaxReapplications(s.maxReapplications)
	if app.ReapplicationCount >= limit {
		return nil, appErrors.ErrReapplyExhausted
	}

	edited, err := applyEditedFields(app, req)
	if err != nil {
		return nil, err
	}

	// Snapshot the rejected departments before resetting them.
	statuses, err := s.statuses.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	rejected := make([]string, 0, len(statuses))
	anyApproved := false
	for _, status := range statuses {
		switch status.State {
		case models.DeptRejected:
			rejected = append(rejected, status.DepartmentName)
		case models.DeptApproved:
			anyApproved = true
		}
	}

	newStatus := models.ApplicationPending
	if anyApproved {
		newStatus = models.ApplicationInProgress
	}

	err = s.apps.ApplyReapplication(ctx, repository.ReapplyParams{
		ID:            app.ID,
		ContactNo:     app.ContactNo,
		PersonalEmail: app.PersonalEmail,
		CollegeEmail:  app.CollegeEmail,
		StudentName:   app.StudentName,
		ParentName:    app.ParentName,
		NewStatus:     newStatus,
		ReapplyCount:  app.ReapplicationCount + 1,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "application changed while resubmitting, retry")
		}
		return nil, appErrors.FromError(err)
	}

	resetNames, err := s.statuses.ResetRejected(ctx, app.ID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	entry := &models.Reapplication{
		ApplicationID:       app.ID,
		ReapplicationNumber: app.ReapplicationCount + 1,
		PreviousStatus:      string(models.ApplicationRejected),
	}
	if req.StudentMessage != "" {
		entry.StudentMessage = &req.StudentMessage
	}
	if len(edited) > 0 {
		raw, _ := json.Marshal(edited)
		entry.EditedFields = raw
	}
	if len(rejected) > 0 {
		raw, _ := json.Marshal(rejected)
		entry.RejectedDepartments = raw
	}
	if err := s.reapps.Create(ctx, entry); err != nil {
		s.logger.Error("failed to record reapplication history",
			zap.String("application_id", app.ID), zap.Error(err))
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, repository.StatusOverviewKey(app.RegistrationNo)); err != nil {
			s.logger.Warn("failed to invalidate status cache", zap.String("application_id", app.ID), zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.RecordReapplication()
	}
	s.recordAudit(ctx, "", models.AuditReapply, app.ID, map[string]interface{}{
		"reapplication_number": app.ReapplicationCount + 1,
		"reset_departments":    resetNames,
	})
	s.logger.Info("application resubmitted",
		zap.String("application_id", app.ID),
		zap.Int("reapplication_number", app.ReapplicationCount+1),
		zap.Strings("reset_departments", resetNames))

	remaining := limit - (app.ReapplicationCount + 1)
	if remaining < 0 {
		remaining = 0
	}
	return &dto.ReapplyResponse{
		ApplicationID:       app.ID,
		Status:              newStatus,
		ReapplicationNumber: app.ReapplicationCount + 1,
		ResetDepartments:    resetNames,
		RemainingAttempts:   remaining,
	}, nil
}

// ListApplications returns the staff dashboard listing with per-department
// statuses attached.
func (s *ClearanceService) ListApplications(ctx context.Context, filter models.ApplicationFilter) (*dto.ApplicationListResponse, error) {
	apps, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	ids := make([]string, 0, len(apps))
	for _, app := range apps {
		ids = append(ids, app.ID)
	}
	grouped, err := s.statuses.ListByApplications(ctx, ids)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	items := make([]dto.ApplicationListItem, 0, len(apps))
	for _, app := range apps {
		item := dto.ApplicationListItem{Application: app}
		for _, status := range grouped[app.ID] {
			item.DepartmentStatuses = append(item.DepartmentStatuses, dto.DepartmentStatusView{
				DepartmentName: status.DepartmentName,
				State:          status.State,
				Comment:        status.Comment,
				ActedAt:        status.ActedAt,
			})
		}
		items = append(items, item)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &dto.ApplicationListResponse{
		Items: items,
		Pagination: models.Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalCount: total,
		},
	}, nil
}

// ReapplyHistory returns the resubmission trail for an application.
func (s *ClearanceService) ReapplyHistory(ctx context.Context, applicationID string) ([]dto.ReapplyHistoryEntry, error) {
	if _, err := s.apps.GetByID(ctx, applicationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.FromError(err)
	}
	entries, err := s.reapps.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	history := make([]dto.ReapplyHistoryEntry, 0, len(entries))
	for _, entry := range entries {
		history = append(history, dto.ReapplyHistoryEntry{
			ReapplicationNumber: entry.ReapplicationNumber,
			StudentMessage:      entry.StudentMessage,
			EditedFields:        entry.EditedFields,
			RejectedDepartments: entry.RejectedDepartments,
			PreviousStatus:      entry.PreviousStatus,
			CreatedAt:           entry.CreatedAt,
		})
	}
	return history, nil
}

// RemindDepartment queues a reminder notification for every application still
// waiting on the named department.
func (s *ClearanceService) RemindDepartment(ctx context.Context, departmentName string, actor *models.JWTClaims) (*dto.DepartmentReminderResponse, error) {
	name := strings.ToLower(strings.TrimSpace(departmentName))
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department name is required")
	}

	departments, err := s.departments.ListActive(ctx)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	recipient := ""
	found := false
	for _, dept := range departments {
		if dept.Name == name {
			found = true
			if dept.Email != nil {
				recipient = *dept.Email
			}
			break
		}
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown or inactive department")
	}

	pending := models.DeptPending
	apps, _, err := s.apps.List(ctx, models.ApplicationFilter{
		Department: name,
		DeptState:  &pending,
		PageSize:   reminderBatchSize,
	})
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	notified := 0
	if s.notifier != nil {
		for i := range apps {
			if err := s.notifier.DepartmentReminder(ctx, &apps[i], name, recipient); err != nil {
				s.logger.Warn("failed to queue department reminder",
					zap.String("application_id", apps[i].ID), zap.Error(err))
				continue
			}
			notified++
		}
	}

	actorID := ""
	if actor != nil {
		actorID = actor.UserID
	}
	s.recordAudit(ctx, actorID, models.AuditSendReminder, "", map[string]interface{}{
		"department": name,
		"notified":   notified,
	})

	return &dto.DepartmentReminderResponse{DepartmentName: name, Notified: notified}, nil
}

func (s *ClearanceService) recordAudit(ctx context.Context, userID, action, entityID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		EntityType: "application",
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if entityID != "" {
		entry.EntityID = &entityID
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err == nil {
			entry.Details = raw
		}
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

// resolveActorDepartment picks the department an actor operates as. Admins
// must name one explicitly; department accounts may only act for departments
// in their token scope.
func resolveActorDepartment(actor *models.JWTClaims, requested string) (string, error) {
	if actor == nil {
		return "", appErrors.ErrUnauthorized
	}
	requested = strings.ToLower(strings.TrimSpace(requested))

	if actor.Role == models.RoleAdmin {
		if requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "department is required for admin actions")
		}
		return requested, nil
	}

	if len(actor.DepartmentNames) == 0 {
		return "", appErrors.Clone(appErrors.ErrForbidden, "account has no department scope")
	}
	if requested == "" {
		if len(actor.DepartmentNames) == 1 {
			return actor.DepartmentNames[0], nil
		}
		return "", appErrors.Clone(appErrors.ErrValidation, "department is required when scoped to multiple departments")
	}
	for _, name := range actor.DepartmentNames {
		if strings.EqualFold(name, requested) {
			return name, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrForbidden, "not allowed to act for this department")
}

func auditActionFor(approve bool) string {
	if approve {
		return models.AuditApproveApplication
	}
	return models.AuditRejectApplication
}

// applyEditedFields copies allowed field edits onto the application and
// returns the changed set for the history row.
func applyEditedFields(app *models.Application, req dto.ReapplyRequest) (map[string]string, error) {
	edited := make(map[string]string)

	if contact := strings.TrimSpace(req.ContactNo); contact != "" && contact != app.ContactNo {
		app.ContactNo = contact
		edited["contact_no"] = contact
	}
	for field, value := range req.EditedFields {
		key := strings.ToLower(strings.TrimSpace(field))
		if !reapplyEditableFields[key] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "field cannot be edited on reapply: "+key)
		}
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		switch key {
		case "contact_no":
			app.ContactNo = trimmed
		case "personal_email":
			email := trimmed
			app.PersonalEmail = &email
		case "college_email":
			email := trimmed
			app.CollegeEmail = &email
		case "student_name":
			app.StudentName = trimmed
		case "parent_name":
			app.ParentName = trimmed
		}
		edited[key] = trimmed
	}
	return edited, nil
}

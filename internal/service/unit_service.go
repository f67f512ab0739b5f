package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/woco-project/woco-api/internal/models"
	appErrors "github.com/woco-project/woco-api/pkg/errors"
)

type unitRepository interface {
	List(ctx context.Context, filter models.UnitFilter) ([]models.AdministrativeUnit, int, error)
	FindByID(ctx context.Context, id string) (*models.AdministrativeUnit, error)
	ListChildren(ctx context.Context, parentID string) ([]models.AdministrativeUnit, error)
	Create(ctx context.Context, unit *models.AdministrativeUnit) error
	Update(ctx context.Context, unit *models.AdministrativeUnit) error
	CountChildren(ctx context.Context, id string) (int, error)
	CountAffiliations(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
	AppendNameHistory(ctx context.Context, entry *models.UnitNameHistory) error
	AppendHistory(ctx context.Context, entry *models.UnitHistory) error
	ListNameHistory(ctx context.Context, unitID string) ([]models.UnitNameHistory, error)
	ListHistory(ctx context.Context, unitID string) ([]models.UnitHistory, error)
}

// CreateUnitRequest captures fields for creating an administrative unit.
type CreateUnitRequest struct {
	ParentID     *string `json:"parent_id"`
	UnitName     string  `json:"unit_name" validate:"required"`
	Abbreviation string  `json:"abbreviation" validate:"required,max=10"`
	UnitType     string  `json:"unit_type" validate:"required,oneof=COUNTRY STATE PROVINCE TERRITORY PREFECTURE COUNTY"`
	IsActive     *bool   `json:"is_active"`
}

// UpdateUnitRequest modifies unit fields. Renames and reparenting both leave
// append-only history behind; see Update.
type UpdateUnitRequest struct {
	ParentID     *string `json:"parent_id"`
	UnitName     string  `json:"unit_name" validate:"required"`
	Abbreviation string  `json:"abbreviation" validate:"required,max=10"`
	UnitType     string  `json:"unit_type" validate:"required,oneof=COUNTRY STATE PROVINCE TERRITORY PREFECTURE COUNTY"`
	IsActive     *bool   `json:"is_active"`
	ChangeReason string  `json:"change_reason" validate:"omitempty,oneof=SPLIT MERGED RENAMED INDEPENDENCE ANNEXED REORGANIZED"`
	EffectiveOn  *time.Time `json:"effective_on"`
}

// UnitService handles the administrative-unit hierarchy: tree maintenance,
// cycle prevention, and append-only rename/structural history.
type UnitService struct {
	repo      unitRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUnitService creates a new unit service.
func NewUnitService(repo unitRepository, validate *validator.Validate, logger *zap.Logger) *UnitService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated administrative units.
func (s *UnitService) List(ctx context.Context, filter models.UnitFilter) ([]models.AdministrativeUnit, *models.Pagination, error) {
	units, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list units")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return units, pagination, nil
}

// Get returns a unit by identifier.
func (s *UnitService) Get(ctx context.Context, id string) (*models.AdministrativeUnit, error) {
	unit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "administrative unit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit")
	}
	return unit, nil
}

// Children returns a unit's direct children.
func (s *UnitService) Children(ctx context.Context, id string) ([]models.AdministrativeUnit, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	children, err := s.repo.ListChildren(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list children")
	}
	return children, nil
}

// Ancestors walks parent links to the root, nearest first. The unit itself
// is excluded. A visited set guards against pre-existing bad data looping
// the walk forever.
func (s *UnitService) Ancestors(ctx context.Context, id string) ([]models.AdministrativeUnit, error) {
	unit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ancestors := []models.AdministrativeUnit{}
	visited := map[string]bool{unit.ID: true}
	current := unit
	for current.ParentID != nil {
		if visited[*current.ParentID] {
			s.logger.Warn("ancestor walk hit a cycle", zap.String("unit_id", id))
			break
		}
		parent, err := s.repo.FindByID(ctx, *current.ParentID)
		if err != nil {
			if err == sql.ErrNoRows {
				break
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to walk ancestors")
		}
		ancestors = append(ancestors, *parent)
		visited[parent.ID] = true
		current = parent
	}
	return ancestors, nil
}

// Descendants returns the full subtree below the unit in breadth-first
// order, excluding the unit itself.
func (s *UnitService) Descendants(ctx context.Context, id string) ([]models.AdministrativeUnit, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	descendants := []models.AdministrativeUnit{}
	visited := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		children, err := s.repo.ListChildren(ctx, next)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to walk descendants")
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			descendants = append(descendants, child)
			queue = append(queue, child.ID)
		}
	}
	return descendants, nil
}

// NameHistory returns the unit's append-only rename records.
func (s *UnitService) NameHistory(ctx context.Context, id string) ([]models.UnitNameHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.repo.ListNameHistory(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list name history")
	}
	return history, nil
}

// History returns the unit's append-only structural snapshots.
func (s *UnitService) History(ctx context.Context, id string) ([]models.UnitHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unit history")
	}
	return history, nil
}

// Create adds a new administrative unit under an optional parent. The
// hierarchy level is derived from the parent, never trusted from input.
func (s *UnitService) Create(ctx context.Context, req CreateUnitRequest, actor string) (*models.AdministrativeUnit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unit payload")
	}

	level := 1
	if req.ParentID != nil {
		parent, err := s.repo.FindByID(ctx, *req.ParentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrValidation, "parent unit not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent unit")
		}
		level = parent.HierarchyLevel + 1
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	unit := &models.AdministrativeUnit{
		ParentID:       req.ParentID,
		UnitName:       strings.TrimSpace(req.UnitName),
		Abbreviation:   strings.ToUpper(strings.TrimSpace(req.Abbreviation)),
		UnitType:       models.UnitType(req.UnitType),
		HierarchyLevel: level,
		IsActive:       active,
	}
	unit.CreatedBy = actor
	unit.ModifiedBy = actor

	if err := s.repo.Create(ctx, unit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create unit")
	}
	return unit, nil
}

// Update modifies a unit. Reparenting is rejected when the new parent sits
// inside the unit's own subtree. A rename appends a name-history record and
// any structural change appends a full snapshot, both effective from the
// supplied date or now.
func (s *UnitService) Update(ctx context.Context, id string, req UpdateUnitRequest, actor string) (*models.AdministrativeUnit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unit payload")
	}

	unit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "administrative unit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit")
	}

	level := unit.HierarchyLevel
	reparented := !sameParent(unit.ParentID, req.ParentID)
	if reparented && req.ParentID != nil {
		if *req.ParentID == unit.ID {
			return nil, appErrors.Clone(appErrors.ErrHierarchyCycle, "unit cannot be its own parent")
		}
		parent, err := s.repo.FindByID(ctx, *req.ParentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrValidation, "parent unit not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent unit")
		}
		inSubtree, err := s.wouldCycle(ctx, unit.ID, parent)
		if err != nil {
			return nil, err
		}
		if inSubtree {
			return nil, appErrors.Clone(appErrors.ErrHierarchyCycle, "new parent is a descendant of the unit")
		}
		level = parent.HierarchyLevel + 1
	}
	if reparented && req.ParentID == nil {
		level = 1
	}

	newName := strings.TrimSpace(req.UnitName)
	newAbbr := strings.ToUpper(strings.TrimSpace(req.Abbreviation))
	renamed := newName != unit.UnitName || newAbbr != unit.Abbreviation
	structural := reparented || renamed ||
		models.UnitType(req.UnitType) != unit.UnitType ||
		(req.IsActive != nil && *req.IsActive != unit.IsActive)

	effective := time.Now().UTC()
	if req.EffectiveOn != nil {
		effective = req.EffectiveOn.UTC()
	}

	if renamed {
		entry := &models.UnitNameHistory{
			UnitID:         unit.ID,
			HistoricalName: unit.UnitName,
			HistoricalAbbr: unit.Abbreviation,
			EffectiveFrom:  unit.UpdatedAt,
			EffectiveTo:    &effective,
			CreatedBy:      actor,
		}
		if err := s.repo.AppendNameHistory(ctx, entry); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record name history")
		}
	}
	if structural {
		reason := models.ChangeReorganized
		if req.ChangeReason != "" {
			reason = models.ChangeReason(req.ChangeReason)
		} else if renamed && !reparented {
			reason = models.ChangeRenamed
		}
		snapshot := &models.UnitHistory{
			UnitID:         unit.ID,
			ParentID:       unit.ParentID,
			UnitName:       unit.UnitName,
			Abbreviation:   unit.Abbreviation,
			UnitType:       unit.UnitType,
			HierarchyLevel: unit.HierarchyLevel,
			IsActive:       unit.IsActive,
			EffectiveFrom:  unit.UpdatedAt,
			EffectiveTo:    &effective,
			ChangeReason:   reason,
			CreatedBy:      actor,
		}
		if err := s.repo.AppendHistory(ctx, snapshot); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record unit history")
		}
	}

	unit.ParentID = req.ParentID
	unit.UnitName = newName
	unit.Abbreviation = newAbbr
	unit.UnitType = models.UnitType(req.UnitType)
	unit.HierarchyLevel = level
	if req.IsActive != nil {
		unit.IsActive = *req.IsActive
	}
	unit.ModifiedBy = actor

	if err := s.repo.Update(ctx, unit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update unit")
	}
	return unit, nil
}

// Delete removes a unit with no children and no affiliations.
func (s *UnitService) Delete(ctx context.Context, id string) error {
	unit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "administrative unit not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit")
	}

	children, err := s.repo.CountChildren(ctx, unit.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check unit children")
	}
	if children > 0 {
		return appErrors.Clone(appErrors.ErrReferenceInUse, "unit has child units")
	}

	affiliations, err := s.repo.CountAffiliations(ctx, unit.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check unit affiliations")
	}
	if affiliations > 0 {
		return appErrors.Clone(appErrors.ErrReferenceInUse, "unit has location affiliations")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete unit")
	}
	s.logger.Info("administrative unit deleted", zap.String("unit_id", id))
	return nil
}

// wouldCycle walks up from the candidate parent; finding unitID on the way
// means the candidate sits inside the unit's subtree.
func (s *UnitService) wouldCycle(ctx context.Context, unitID string, parent *models.AdministrativeUnit) (bool, error) {
	visited := map[string]bool{}
	current := parent
	for current != nil {
		if current.ID == unitID {
			return true, nil
		}
		if visited[current.ID] {
			return true, nil
		}
		visited[current.ID] = true
		if current.ParentID == nil {
			return false, nil
		}
		next, err := s.repo.FindByID(ctx, *current.ParentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return false, nil
			}
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check hierarchy")
		}
		current = next
	}
	return false, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/olonts/salein-reminders/internal/domain"
	"gorm.io/gorm"
)

type ListParams struct {
	Status    *domain.Status
	InvoiceID *string
	Page      int
	PageSize  int
}

// ReminderRepository is the sole persistence boundary for reminders.
type ReminderRepository interface {
	Create(ctx context.Context, r *domain.Reminder) error
	CreateBatch(ctx context.Context, reminders []*domain.Reminder) error
	GetByID(ctx context.Context, id string) (*domain.Reminder, error)
	List(ctx context.Context, params ListParams) ([]domain.Reminder, int64, error)
	// ListDue returns reminders eligible for dispatch: pending, sendDate at or
	// before now, retryCount below maxRetries. No ordering guarantee.
	ListDue(ctx context.Context, now time.Time, maxRetries int, limit int) ([]domain.Reminder, error)
	// UpdateStatus transitions a reminder's status. Repeating a terminal
	// status is a no-op success; moving off a terminal status is ErrConflict.
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	// UpdateRetryCount bumps the retry counter on a pending reminder and
	// stamps the advisory next-retry timestamp.
	UpdateRetryCount(ctx context.Context, id string, retryCount int, nextRetryAt time.Time) error
}

type GormReminderRepo struct {
	db *gorm.DB
}

func NewGormReminderRepo(db *gorm.DB) *GormReminderRepo {
	return &GormReminderRepo{db: db}
}

// guard raises the configuration error before any query when the repo was
// built without a database handle.
func (r *GormReminderRepo) guard() error {
	if r == nil || r.db == nil {
		return domain.ErrConfiguration
	}
	return nil
}

func (r *GormReminderRepo) Create(ctx context.Context, reminder *domain.Reminder) error {
	if err := r.guard(); err != nil {
		return err
	}

	model := reminderModelFromDomain(reminder)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if reminder != nil {
		*reminder = *reminderModelToDomain(model)
	}
	return nil
}

func (r *GormReminderRepo) CreateBatch(ctx context.Context, reminders []*domain.Reminder) error {
	if err := r.guard(); err != nil {
		return err
	}

	models := make([]ReminderModel, 0, len(reminders))
	modelIndexes := make([]int, 0, len(reminders))
	for i, reminder := range reminders {
		model := reminderModelFromDomain(reminder)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	if len(models) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&models, 100).Error; err != nil {
		return err
	}

	for i := range models {
		idx := modelIndexes[i]
		if idx < len(reminders) && reminders[idx] != nil {
			*reminders[idx] = *reminderModelToDomain(&models[i])
		}
	}

	return nil
}

func (r *GormReminderRepo) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}

	var model ReminderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reminderModelToDomain(&model), nil
}

func (r *GormReminderRepo) List(ctx context.Context, params ListParams) ([]domain.Reminder, int64, error) {
	if err := r.guard(); err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&ReminderModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *params.InvoiceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []ReminderModel
	err := query.
		Order("send_date ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	reminders := make([]domain.Reminder, 0, len(models))
	for i := range models {
		reminders = append(reminders, *reminderModelToDomain(&models[i]))
	}

	return reminders, total, nil
}

func (r *GormReminderRepo) ListDue(ctx context.Context, now time.Time, maxRetries int, limit int) ([]domain.Reminder, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}

	var models []ReminderModel
	query := r.db.WithContext(ctx).
		Where("status = ? AND send_date <= ? AND retry_count < ?", domain.StatusPending, now, maxRetries)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	reminders := make([]domain.Reminder, 0, len(models))
	for i := range models {
		reminders = append(reminders, *reminderModelToDomain(&models[i]))
	}

	return reminders, nil
}

func (r *GormReminderRepo) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	if err := r.guard(); err != nil {
		return err
	}

	// Matching the current status makes repeated terminal updates no-ops;
	// matching pending allows the one legal transition.
	result := r.db.WithContext(ctx).
		Model(&ReminderModel{}).
		Where("id = ? AND status IN ?", id, []domain.Status{domain.StatusPending, status}).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

func (r *GormReminderRepo) UpdateRetryCount(ctx context.Context, id string, retryCount int, nextRetryAt time.Time) error {
	if err := r.guard(); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&ReminderModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"retry_count":   retryCount,
			"next_retry_at": nextRetryAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

// classifyMiss distinguishes a missing row from a terminal-state conflict
// after a zero-row update.
func (r *GormReminderRepo) classifyMiss(ctx context.Context, id string) error {
	var model ReminderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrConflict
}

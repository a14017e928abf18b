package repository

import (
	"context"
	"errors"

	"github.com/olonts/salein-reminders/internal/domain"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(ctx context.Context, i *domain.Invoice) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error
}

type GormInvoiceRepo struct {
	db *gorm.DB
}

func NewGormInvoiceRepo(db *gorm.DB) *GormInvoiceRepo {
	return &GormInvoiceRepo{db: db}
}

func (r *GormInvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	if r == nil || r.db == nil {
		return domain.ErrConfiguration
	}

	model := invoiceModelFromDomain(invoice)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if invoice != nil {
		*invoice = *invoiceModelToDomain(model)
	}
	return nil
}

func (r *GormInvoiceRepo) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, domain.ErrConfiguration
	}

	var model InvoiceModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return invoiceModelToDomain(&model), nil
}

func (r *GormInvoiceRepo) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error {
	if r == nil || r.db == nil {
		return domain.ErrConfiguration
	}

	result := r.db.WithContext(ctx).
		Model(&InvoiceModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

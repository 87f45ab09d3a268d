package repository

import (
	"context"
	"errors"

	"github.com/Rocket-Marketplace/payments-service/apperrors"
	"github.com/Rocket-Marketplace/payments-service/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) ([]models.Payment, error)
	FindByBuyerID(ctx context.Context, buyerID string) ([]models.Payment, error)
	Save(ctx context.Context, payment *models.Payment) error
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status models.PaymentStatus) (int64, error)
	SumAmount(ctx context.Context) (decimal.Decimal, error)
}

type gormPaymentRepo struct {
	db *gorm.DB
}

func NewGormPaymentRepo(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

func (r *gormPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return translateStoreError(err)
	}
	return nil
}

func (r *gormPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrPaymentNotFound, err)
		}
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) FindByOrderID(ctx context.Context, orderID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *gormPaymentRepo) FindByBuyerID(ctx context.Context, buyerID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

// Save persists the full current state of the payment and refreshes updated_at.
func (r *gormPaymentRepo) Save(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Save(payment).Error; err != nil {
		return translateStoreError(err)
	}
	return nil
}

func (r *gormPaymentRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).Count(&count).Error
	return count, err
}

func (r *gormPaymentRepo) CountByStatus(ctx context.Context, status models.PaymentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *gormPaymentRepo) SumAmount(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// translateStoreError maps a unique-constraint violation on the completed-order
// index to the store-level duplicate error; everything else passes through.
func translateStoreError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperrors.Wrap(apperrors.ErrDuplicateCompletedPayment, err)
	}
	return err
}

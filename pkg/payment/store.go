package payment

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/YathinChandra64/siri-taste-craft-sub000/models"
)

// Store is the persistence surface the lifecycle manager owns. FindByOrder
// returns the most recent record for the order; implementations return
// ErrPaymentNotFound (wrapped or direct) when nothing matches.
type Store interface {
	Create(p *models.Payment) error
	Save(p *models.Payment) error
	FindByID(id uint) (*models.Payment, error)
	FindByOrder(orderID uint) (*models.Payment, error)
	// ReferenceInUse reports whether ref backs another record (excluding
	// excludeID) that is pending_verification or verified. Rejected and
	// expired records never block reuse of their reference.
	ReferenceInUse(ref string, excludeID uint) (bool, error)
	ListByStatus(status Status, limit int) ([]models.Payment, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns the gorm-backed payment store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Create(p *models.Payment) error {
	return s.db.Create(p).Error
}

func (s *gormStore) Save(p *models.Payment) error {
	return s.db.Save(p).Error
}

func (s *gormStore) FindByID(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find payment %d: %w", id, err)
	}
	return &p, nil
}

func (s *gormStore) FindByOrder(orderID uint) (*models.Payment, error) {
	var p models.Payment
	err := s.db.Where("order_id = ?", orderID).Order("id desc").First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find payment for order %d: %w", orderID, err)
	}
	return &p, nil
}

func (s *gormStore) ReferenceInUse(ref string, excludeID uint) (bool, error) {
	var cnt int64
	err := s.db.Model(&models.Payment{}).
		Where("(utr_number = ? OR manual_reference = ?)", ref, ref).
		Where("status IN ?", []string{string(StatusPendingVerification), string(StatusVerified)}).
		Where("id <> ?", excludeID).
		Count(&cnt).Error
	if err != nil {
		return false, fmt.Errorf("reference lookup: %w", err)
	}
	return cnt > 0, nil
}

func (s *gormStore) ListByStatus(status Status, limit int) ([]models.Payment, error) {
	var out []models.Payment
	q := s.db.Where("status = ?", string(status)).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list %s payments: %w", status, err)
	}
	return out, nil
}

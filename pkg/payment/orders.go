package payment

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/YathinChandra64/siri-taste-craft-sub000/models"
)

type gormOrderStore struct {
	db *gorm.DB
}

// NewOrderStore returns the gorm-backed order collaborator.
func NewOrderStore(db *gorm.DB) OrderStore {
	return &gormOrderStore{db: db}
}

func (s *gormOrderStore) FindByID(id uint) (*models.Order, error) {
	var o models.Order
	if err := s.db.First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order %d: %w", id, err)
	}
	return &o, nil
}

func (s *gormOrderStore) MarkPaymentStatus(orderID uint, paymentStatus string) error {
	return s.db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("payment_status", paymentStatus).Error
}

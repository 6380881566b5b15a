package repository

import (
	"cafes/model"
	"context"
	"errors"
	"fmt"
	"gorm.io/gorm"
)

// ErrDuplicateName is returned by Insert when the name is already taken.
var ErrDuplicateName = errors.New("cafe name already exists")

type CafeRepository struct {
	db *gorm.DB
}

func NewCafeRepository(db *gorm.DB) *CafeRepository {
	return &CafeRepository{db: db}
}

// ListAll returns every cafe in insertion order.
func (r *CafeRepository) ListAll(ctx context.Context) ([]model.Cafe, error) {
	cafes := []model.Cafe{}
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&cafes).Error; err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}
	return cafes, nil
}

// Insert stores the cafe and fills in its ID.
func (r *CafeRepository) Insert(ctx context.Context, cafe *model.Cafe) error {
	if cafe.Name == "" || cafe.MapURL == "" || cafe.ImgURL == "" || cafe.Location == "" {
		return fmt.Errorf("insert cafe: %w", gorm.ErrInvalidData)
	}
	cafe.ID = 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Cafe{}).Where("name = ?", cafe.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateName
		}
		return tx.Create(cafe).Error
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDuplicateName), errors.Is(err, gorm.ErrDuplicatedKey):
		// The unique index catches a concurrent insert that slipped past the count.
		return ErrDuplicateName
	default:
		return fmt.Errorf("insert cafe: %w", err)
	}
}

// DeleteByName removes the first cafe with the given name. A missing name is
// not an error; deleted reports whether a row went away.
func (r *CafeRepository) DeleteByName(ctx context.Context, name string) (deleted bool, err error) {
	var cafe model.Cafe
	err = r.db.WithContext(ctx).Where("name = ?", name).Order("id ASC").First(&cafe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find cafe %q: %w", name, err)
	}

	res := r.db.WithContext(ctx).Delete(&model.Cafe{}, cafe.ID)
	if res.Error != nil {
		return false, fmt.Errorf("delete cafe %q: %w", name, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *CafeRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

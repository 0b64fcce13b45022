package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"childhood-friend/internal/model"
)

type PersonRepository struct {
	db *gorm.DB
}

func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

func (r *PersonRepository) Create(ctx context.Context, person *model.Person) error {
	if person.Status == "" {
		person.Status = model.PersonStatusActive
	}
	if err := r.db.WithContext(ctx).Create(person).Error; err != nil {
		return fmt.Errorf("create person failed: %w", err)
	}
	return nil
}

func (r *PersonRepository) GetByID(ctx context.Context, personID uint) (*model.Person, error) {
	var person model.Person
	if err := r.db.WithContext(ctx).Where("person_id = ?", personID).First(&person).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query person by id failed: %w", err)
	}
	return &person, nil
}

func (r *PersonRepository) FindByNameAndBirth(ctx context.Context, name, dateOfBirth string) (*model.Person, error) {
	var person model.Person
	err := r.db.WithContext(ctx).
		Where("name = ? AND date_of_birth = ?", name, dateOfBirth).
		Order("person_id ASC").
		First(&person).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query person by name and birth failed: %w", err)
	}
	return &person, nil
}

// UpdateFields applies only keys listed in model.PersonWritableColumns and
// reports how many columns were accepted.
func (r *PersonRepository) UpdateFields(ctx context.Context, personID uint, fields map[string]string) (int, error) {
	updates := make(map[string]interface{}, len(fields))
	for column, value := range fields {
		if _, ok := model.PersonWritableColumns[column]; !ok {
			continue
		}
		updates[column] = value
	}
	if len(updates) == 0 {
		return 0, nil
	}

	if err := r.db.WithContext(ctx).
		Model(&model.Person{}).
		Where("person_id = ?", personID).
		Updates(updates).Error; err != nil {
		return 0, fmt.Errorf("update person fields failed: %w", err)
	}
	return len(updates), nil
}

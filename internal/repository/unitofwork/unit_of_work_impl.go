package unitofwork

import (
	"context"
	"fmt"

	"blueprint-research-be/internal/repository/contract"
	"blueprint-research-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) JourneyRepository() contract.JourneyRepository {
	return implementation.NewJourneyRepository(u.getDB())
}

func (u *UnitOfWorkImpl) JourneyStepRepository() contract.JourneyStepRepository {
	return implementation.NewJourneyStepRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ProductRepository() contract.ProductRepository {
	return implementation.NewProductRepository(u.getDB())
}

func (u *UnitOfWorkImpl) AlternativesRepository() contract.AlternativesRepository {
	return implementation.NewAlternativesRepository(u.getDB())
}

func (u *UnitOfWorkImpl) LlmStateRepository() contract.LlmStateRepository {
	return implementation.NewLlmStateRepository(u.getDB())
}

func (u *UnitOfWorkImpl) UserChoiceRepository() contract.UserChoiceRepository {
	return implementation.NewUserChoiceRepository(u.getDB())
}

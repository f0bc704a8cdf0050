package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrProductNotFound is returned when a product is not found.
var ErrProductNotFound = errors.New("product not found")

// ErrDuplicateName is returned when a product name is already taken.
var ErrDuplicateName = errors.New("product name already exists")

const pgUniqueViolation = "23505"

// Page selects a window of the product list. The zero value selects everything.
type Page struct {
	Offset int
	Limit  int
}

type ProductsRepository struct {
	db *gorm.DB
}

func NewProductsRepository(db *gorm.DB) *ProductsRepository {
	return &ProductsRepository{
		db: db,
	}
}

func (r *ProductsRepository) Create(ctx context.Context, f ProductFields) (*Product, error) {
	product := Product{
		Name:        f.Name,
		Description: f.Description,
		Price:       f.Price,
		Qty:         f.Qty,
	}
	if err := r.db.WithContext(ctx).Create(&product).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return &product, nil
}

func (r *ProductsRepository) GetByID(ctx context.Context, id uint) (*Product, error) {
	var product Product
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err // Other DB error
	}
	return &product, nil
}

func (r *ProductsRepository) GetAll(ctx context.Context, page Page) ([]Product, error) {
	var products []Product

	query := r.db.WithContext(ctx).Model(&Product{}).Order("id")
	if page.Offset > 0 {
		query = query.Offset(page.Offset)
	}
	if page.Limit > 0 {
		query = query.Limit(page.Limit)
	}

	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Update overwrites every mutable column in a single UPDATE ... RETURNING.
func (r *ProductsRepository) Update(ctx context.Context, id uint, f ProductFields) (*Product, error) {
	product := Product{ID: id}
	res := r.db.WithContext(ctx).
		Model(&product).
		Clauses(clause.Returning{}).
		Updates(map[string]any{
			"name":        f.Name,
			"description": f.Description,
			"price":       f.Price,
			"qty":         f.Qty,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("update product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

// Delete removes the product and returns the row as it was before removal.
func (r *ProductsRepository) Delete(ctx context.Context, id uint) (*Product, error) {
	product := Product{ID: id}
	res := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Delete(&product)
	if res.Error != nil {
		return nil, fmt.Errorf("delete product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

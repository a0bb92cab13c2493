package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"biblioteca/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&BookModel{}, &CategoryModel{}, &ProductModel{}, &UserModel{}, &BackupModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateBook inserts a book; the database assigns the sequential id.
func (s *GormStore) CreateBook(b domain.Book) (domain.Book, error) {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	model := bookToModel(b)
	model.ID = 0
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Book{}, err
	}
	return bookFromModel(model), nil
}

// GetBook retrieves a book by id.
func (s *GormStore) GetBook(id int64) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns all books in insertion order.
func (s *GormStore) ListBooks() ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return booksFromModels(models), nil
}

// UpdateBook replaces every mutable field of the row identified by b.ID
// and advances updated_at. The caller supplies created_at unchanged.
func (s *GormStore) UpdateBook(b domain.Book) (domain.Book, bool, error) {
	var existing BookModel
	if err := s.db.First(&existing, "id = ?", b.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	b.UpdatedAt = time.Now().UTC()
	model := bookToModel(b)
	if err := s.db.Save(&model).Error; err != nil {
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// DeleteBook removes a book and returns the removed record.
func (s *GormStore) DeleteBook(id int64) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	if err := s.db.Delete(&BookModel{}, "id = ?", id).Error; err != nil {
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// SearchBooksByTitle matches a case-insensitive substring on title.
func (s *GormStore) SearchBooksByTitle(q string, limit int) ([]domain.Book, error) {
	return s.searchBooks("LOWER(title) LIKE ?", q, limit)
}

// SearchBooksByAuthor matches a case-insensitive substring on author.
func (s *GormStore) SearchBooksByAuthor(q string, limit int) ([]domain.Book, error) {
	return s.searchBooks("LOWER(author) LIKE ?", q, limit)
}

func (s *GormStore) searchBooks(cond, q string, limit int) ([]domain.Book, error) {
	var models []BookModel
	tx := s.db.Where(cond, containsPattern(q)).Order("id ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	return booksFromModels(models), nil
}

// CountBooks returns the number of books.
func (s *GormStore) CountBooks() (int, error) {
	var count int64
	if err := s.db.Model(&BookModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// CreateProduct inserts a product.
func (s *GormStore) CreateProduct(p domain.Product) (domain.Product, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	model := productToModel(p)
	model.ID = 0
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Product{}, err
	}
	return productFromModel(model), nil
}

// GetProduct retrieves a product by id.
func (s *GormStore) GetProduct(id int64) (domain.Product, bool, error) {
	var model ProductModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, false, nil
		}
		return domain.Product{}, false, err
	}
	return productFromModel(model), true, nil
}

// ListProducts returns a skip/limit window of products in insertion order.
func (s *GormStore) ListProducts(skip, limit int) ([]domain.Product, error) {
	var models []ProductModel
	tx := s.db.Order("id ASC")
	if skip > 0 {
		tx = tx.Offset(skip)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	return productsFromModels(models), nil
}

// UpdateProduct replaces the row identified by p.ID and advances updated_at.
func (s *GormStore) UpdateProduct(p domain.Product) (domain.Product, bool, error) {
	var existing ProductModel
	if err := s.db.First(&existing, "id = ?", p.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, false, nil
		}
		return domain.Product{}, false, err
	}
	p.UpdatedAt = time.Now().UTC()
	model := productToModel(p)
	if err := s.db.Save(&model).Error; err != nil {
		return domain.Product{}, false, err
	}
	return productFromModel(model), true, nil
}

// DeleteProduct removes a product and returns the removed record.
func (s *GormStore) DeleteProduct(id int64) (domain.Product, bool, error) {
	var model ProductModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, false, nil
		}
		return domain.Product{}, false, err
	}
	if err := s.db.Delete(&ProductModel{}, "id = ?", id).Error; err != nil {
		return domain.Product{}, false, err
	}
	return productFromModel(model), true, nil
}

// SearchProducts matches a case-insensitive substring on name or description.
func (s *GormStore) SearchProducts(q string) ([]domain.Product, error) {
	var models []ProductModel
	pattern := containsPattern(q)
	err := s.db.
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return productsFromModels(models), nil
}

// ProductStats aggregates count and price figures. An empty table yields
// all zeros instead of a NULL scan error.
func (s *GormStore) ProductStats() (domain.ProductStats, error) {
	var row struct {
		Total int64
		Avg   float64
		Max   float64
		Min   float64
	}
	err := s.db.Model(&ProductModel{}).
		Select("COUNT(*) AS total, COALESCE(AVG(price), 0) AS avg, COALESCE(MAX(price), 0) AS max, COALESCE(MIN(price), 0) AS min").
		Scan(&row).Error
	if err != nil {
		return domain.ProductStats{}, err
	}
	return domain.ProductStats{Total: int(row.Total), Avg: row.Avg, Max: row.Max, Min: row.Min}, nil
}

// CountProducts returns the number of products.
func (s *GormStore) CountProducts() (int, error) {
	var count int64
	if err := s.db.Model(&ProductModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// CreateCategory inserts a category.
func (s *GormStore) CreateCategory(c domain.Category) (domain.Category, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	model := categoryToModel(c)
	model.ID = 0
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Category{}, err
	}
	return categoryFromModel(model), nil
}

// GetCategory retrieves a category by id.
func (s *GormStore) GetCategory(id int64) (domain.Category, bool, error) {
	var model CategoryModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Category{}, false, nil
		}
		return domain.Category{}, false, err
	}
	return categoryFromModel(model), true, nil
}

// ListCategories returns all categories in insertion order.
func (s *GormStore) ListCategories() ([]domain.Category, error) {
	var models []CategoryModel
	if err := s.db.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Category, 0, len(models))
	for _, m := range models {
		res = append(res, categoryFromModel(m))
	}
	return res, nil
}

// ListProductsByCategory returns the products referencing a category.
func (s *GormStore) ListProductsByCategory(categoryID int64) ([]domain.Product, error) {
	var models []ProductModel
	if err := s.db.Where("category_id = ?", categoryID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return productsFromModels(models), nil
}

// CreateUser inserts a user.
func (s *GormStore) CreateUser(u domain.User) (domain.User, error) {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	model := userToModel(u)
	model.ID = 0
	if err := s.db.Create(&model).Error; err != nil {
		return domain.User{}, err
	}
	return userFromModel(model), nil
}

// ListUsers returns all users in insertion order.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// RecordBackup writes a backup audit row with the snapshot as jsonb.
func (s *GormStore) RecordBackup(r domain.BackupRecord) error {
	model := BackupModel{
		ID:        r.ID,
		Kind:      r.Kind,
		RecordID:  r.RecordID,
		Snapshot:  datatypes.JSON(r.Snapshot),
		CreatedAt: r.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	return s.db.Create(&model).Error
}

func containsPattern(q string) string {
	return "%" + strings.ToLower(q) + "%"
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Genre:           string(b.Genre),
		Pages:           b.Pages,
		PublicationYear: b.PublicationYear,
		Status:          string(b.Status),
		Rating:          b.Rating,
		Notes:           b.Notes,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:              m.ID,
		Title:           m.Title,
		Author:          m.Author,
		ISBN:            m.ISBN,
		Genre:           domain.BookGenre(m.Genre),
		Pages:           m.Pages,
		PublicationYear: m.PublicationYear,
		Status:          domain.BookStatus(m.Status),
		Rating:          m.Rating,
		Notes:           m.Notes,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func booksFromModels(models []BookModel) []domain.Book {
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res
}

func productToModel(p domain.Product) ProductModel {
	return ProductModel{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func productFromModel(m ProductModel) domain.Product {
	return domain.Product{
		ID:          m.ID,
		Name:        m.Name,
		Price:       m.Price,
		Quantity:    m.Quantity,
		Description: m.Description,
		CategoryID:  m.CategoryID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func productsFromModels(models []ProductModel) []domain.Product {
	res := make([]domain.Product, 0, len(models))
	for _, m := range models {
		res = append(res, productFromModel(m))
	}
	return res
}

func categoryToModel(c domain.Category) CategoryModel {
	return CategoryModel{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func categoryFromModel(m CategoryModel) domain.Category {
	return domain.Category{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Age:       u.Age,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:        m.ID,
		Username:  m.Username,
		Email:     m.Email,
		Age:       m.Age,
		Phone:     m.Phone,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

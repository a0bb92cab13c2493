package store

import "biblioteca/pkg/domain"

// Store defines persistence operations for books, products, categories,
// and users. Create assigns the next sequential id and both timestamps;
// ids are never reused after a delete. Update and Delete report a missing
// id through the boolean, never through the error.
type Store interface {
	// books
	CreateBook(domain.Book) (domain.Book, error)
	GetBook(id int64) (domain.Book, bool, error)
	ListBooks() ([]domain.Book, error)
	UpdateBook(domain.Book) (domain.Book, bool, error)
	DeleteBook(id int64) (domain.Book, bool, error)
	SearchBooksByTitle(q string, limit int) ([]domain.Book, error)
	SearchBooksByAuthor(q string, limit int) ([]domain.Book, error)
	CountBooks() (int, error)

	// products
	CreateProduct(domain.Product) (domain.Product, error)
	GetProduct(id int64) (domain.Product, bool, error)
	ListProducts(skip, limit int) ([]domain.Product, error)
	UpdateProduct(domain.Product) (domain.Product, bool, error)
	DeleteProduct(id int64) (domain.Product, bool, error)
	SearchProducts(q string) ([]domain.Product, error)
	ProductStats() (domain.ProductStats, error)
	CountProducts() (int, error)

	// categories
	CreateCategory(domain.Category) (domain.Category, error)
	GetCategory(id int64) (domain.Category, bool, error)
	ListCategories() ([]domain.Category, error)
	ListProductsByCategory(categoryID int64) ([]domain.Product, error)

	// users
	CreateUser(domain.User) (domain.User, error)
	ListUsers() ([]domain.User, error)

	// backups
	RecordBackup(domain.BackupRecord) error
}

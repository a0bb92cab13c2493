package app

import "biblioteca/pkg/domain"

// categoryLookup hands the validation engine its existence check without
// giving it the whole store.
func (a *App) categoryLookup() domain.CategoryLookup {
	return func(id int64) (bool, error) {
		_, ok, err := a.store.GetCategory(id)
		return ok, err
	}
}

// CreateProduct validates and stores a new product. A referenced
// category must exist before anything is written.
func (a *App) CreateProduct(in domain.ProductInput) (domain.Product, error) {
	product, err := domain.ValidateProductCreate(in, a.categoryLookup())
	if err != nil {
		return domain.Product{}, err
	}
	created, err := a.store.CreateProduct(product)
	if err != nil {
		return domain.Product{}, err
	}
	a.submitBackup("product", created.ID)
	return created, nil
}

// GetProduct retrieves a product by id.
func (a *App) GetProduct(id int64) (domain.Product, error) {
	product, ok, err := a.store.GetProduct(id)
	if err != nil {
		return domain.Product{}, err
	}
	if !ok {
		return domain.Product{}, ErrNotFound
	}
	return product, nil
}

// ListProducts returns a skip/limit window of products.
func (a *App) ListProducts(skip, limit int) ([]domain.Product, error) {
	return a.store.ListProducts(skip, limit)
}

// PatchProduct merges the present fields into the stored product. The
// category reference is re-checked only when the patch carries it.
func (a *App) PatchProduct(id int64, p domain.ProductPatch) (domain.Product, error) {
	existing, ok, err := a.store.GetProduct(id)
	if err != nil {
		return domain.Product{}, err
	}
	if !ok {
		return domain.Product{}, ErrNotFound
	}
	merged, err := domain.ApplyProductPatch(existing, p, a.categoryLookup())
	if err != nil {
		return domain.Product{}, err
	}
	updated, ok, err := a.store.UpdateProduct(merged)
	if err != nil {
		return domain.Product{}, err
	}
	if !ok {
		return domain.Product{}, ErrNotFound
	}
	return updated, nil
}

// DeleteProduct removes a product and returns the removed record.
func (a *App) DeleteProduct(id int64) (domain.Product, error) {
	removed, ok, err := a.store.DeleteProduct(id)
	if err != nil {
		return domain.Product{}, err
	}
	if !ok {
		return domain.Product{}, ErrNotFound
	}
	return removed, nil
}

// SearchProducts matches name or description, case-insensitively.
func (a *App) SearchProducts(q string) ([]domain.Product, error) {
	return a.store.SearchProducts(q)
}

// ProductStats aggregates the product collection; empty yields zeros.
func (a *App) ProductStats() (domain.ProductStats, error) {
	return a.store.ProductStats()
}

// CountProducts returns the number of stored products.
func (a *App) CountProducts() (int, error) {
	return a.store.CountProducts()
}

// CreateCategory validates and stores a new category.
func (a *App) CreateCategory(in domain.CategoryInput) (domain.Category, error) {
	category, err := domain.ValidateCategoryCreate(in)
	if err != nil {
		return domain.Category{}, err
	}
	created, err := a.store.CreateCategory(category)
	if err != nil {
		return domain.Category{}, err
	}
	a.submitBackup("category", created.ID)
	return created, nil
}

// ListCategories returns every category in insertion order.
func (a *App) ListCategories() ([]domain.Category, error) {
	return a.store.ListCategories()
}

// CategoryDetail returns a category together with its products. The
// relation is loaded with an explicit second query, never implicitly.
func (a *App) CategoryDetail(id int64) (domain.Category, []domain.Product, error) {
	category, ok, err := a.store.GetCategory(id)
	if err != nil {
		return domain.Category{}, nil, err
	}
	if !ok {
		return domain.Category{}, nil, ErrNotFound
	}
	products, err := a.store.ListProductsByCategory(id)
	if err != nil {
		return domain.Category{}, nil, err
	}
	return category, products, nil
}

// CreateUser validates and stores a new user. The stored username is the
// title-cased form produced by validation.
func (a *App) CreateUser(in domain.UserInput) (domain.User, error) {
	user, err := domain.ValidateUserCreate(in)
	if err != nil {
		return domain.User{}, err
	}
	return a.store.CreateUser(user)
}

// ListUsers returns every user in insertion order.
func (a *App) ListUsers() ([]domain.User, error) {
	return a.store.ListUsers()
}

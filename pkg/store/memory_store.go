package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"biblioteca/pkg/domain"
)

// MemoryStore keeps every collection in-process. Each entity kind has
// its own id counter that only moves forward, so a deleted id is never
// handed out again.
type MemoryStore struct {
	mu sync.RWMutex

	books      map[int64]domain.Book
	nextBook   int64
	products   map[int64]domain.Product
	nextProd   int64
	categories map[int64]domain.Category
	nextCat    int64
	users      map[int64]domain.User
	nextUser   int64
	backups    []domain.BackupRecord
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:      make(map[int64]domain.Book),
		products:   make(map[int64]domain.Product),
		categories: make(map[int64]domain.Category),
		users:      make(map[int64]domain.User),
	}
}

// CreateBook assigns the next id and both timestamps.
func (m *MemoryStore) CreateBook(b domain.Book) (domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextBook++
	now := time.Now().UTC()
	b.ID = m.nextBook
	b.CreatedAt = now
	b.UpdatedAt = now
	m.books[b.ID] = b
	return b, nil
}

// GetBook retrieves a book by id.
func (m *MemoryStore) GetBook(id int64) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

// ListBooks returns books in insertion order.
func (m *MemoryStore) ListBooks() ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedBooks(m.books), nil
}

// UpdateBook replaces the stored record and advances updated_at.
func (m *MemoryStore) UpdateBook(b domain.Book) (domain.Book, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[b.ID]; !ok {
		return domain.Book{}, false, nil
	}
	b.UpdatedAt = time.Now().UTC()
	m.books[b.ID] = b
	return b, true, nil
}

// DeleteBook removes and returns the record. The freed id stays retired.
func (m *MemoryStore) DeleteBook(id int64) (domain.Book, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, false, nil
	}
	delete(m.books, id)
	return b, true, nil
}

// SearchBooksByTitle matches a case-insensitive substring on title.
func (m *MemoryStore) SearchBooksByTitle(q string, limit int) ([]domain.Book, error) {
	return m.searchBooks(q, limit, func(b domain.Book) string { return b.Title })
}

// SearchBooksByAuthor matches a case-insensitive substring on author.
func (m *MemoryStore) SearchBooksByAuthor(q string, limit int) ([]domain.Book, error) {
	return m.searchBooks(q, limit, func(b domain.Book) string { return b.Author })
}

func (m *MemoryStore) searchBooks(q string, limit int, field func(domain.Book) string) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q = strings.ToLower(q)
	res := make([]domain.Book, 0)
	for _, b := range sortedBooks(m.books) {
		if !strings.Contains(strings.ToLower(field(b)), q) {
			continue
		}
		res = append(res, b)
		if limit > 0 && len(res) >= limit {
			break
		}
	}
	return res, nil
}

// CountBooks returns the number of books.
func (m *MemoryStore) CountBooks() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books), nil
}

// CreateProduct assigns the next id and both timestamps.
func (m *MemoryStore) CreateProduct(p domain.Product) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProd++
	now := time.Now().UTC()
	p.ID = m.nextProd
	p.CreatedAt = now
	p.UpdatedAt = now
	m.products[p.ID] = p
	return p, nil
}

// GetProduct retrieves a product by id.
func (m *MemoryStore) GetProduct(id int64) (domain.Product, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	return p, ok, nil
}

// ListProducts returns a skip/limit window in insertion order. A zero
// limit means no bound.
func (m *MemoryStore) ListProducts(skip, limit int) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := sortedProducts(m.products)
	if skip < 0 {
		skip = 0
	}
	if skip >= len(all) {
		return []domain.Product{}, nil
	}
	all = all[skip:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// UpdateProduct replaces the stored record and advances updated_at.
func (m *MemoryStore) UpdateProduct(p domain.Product) (domain.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return domain.Product{}, false, nil
	}
	p.UpdatedAt = time.Now().UTC()
	m.products[p.ID] = p
	return p, true, nil
}

// DeleteProduct removes and returns the record.
func (m *MemoryStore) DeleteProduct(id int64) (domain.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, false, nil
	}
	delete(m.products, id)
	return p, true, nil
}

// SearchProducts matches a case-insensitive substring on name or description.
func (m *MemoryStore) SearchProducts(q string) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q = strings.ToLower(q)
	res := make([]domain.Product, 0)
	for _, p := range sortedProducts(m.products) {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			res = append(res, p)
		}
	}
	return res, nil
}

// ProductStats aggregates count and price figures; empty means all zeros.
func (m *MemoryStore) ProductStats() (domain.ProductStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.products) == 0 {
		return domain.ProductStats{}, nil
	}
	stats := domain.ProductStats{Total: len(m.products)}
	first := true
	sum := 0.0
	for _, p := range m.products {
		sum += p.Price
		if first || p.Price > stats.Max {
			stats.Max = p.Price
		}
		if first || p.Price < stats.Min {
			stats.Min = p.Price
		}
		first = false
	}
	stats.Avg = sum / float64(stats.Total)
	return stats, nil
}

// CountProducts returns the number of products.
func (m *MemoryStore) CountProducts() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products), nil
}

// CreateCategory assigns the next id and both timestamps.
func (m *MemoryStore) CreateCategory(c domain.Category) (domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCat++
	now := time.Now().UTC()
	c.ID = m.nextCat
	c.CreatedAt = now
	c.UpdatedAt = now
	m.categories[c.ID] = c
	return c, nil
}

// GetCategory retrieves a category by id.
func (m *MemoryStore) GetCategory(id int64) (domain.Category, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	return c, ok, nil
}

// ListCategories returns categories in insertion order.
func (m *MemoryStore) ListCategories() ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.categories))
	for id := range m.categories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]domain.Category, 0, len(ids))
	for _, id := range ids {
		res = append(res, m.categories[id])
	}
	return res, nil
}

// ListProductsByCategory returns products referencing a category.
func (m *MemoryStore) ListProductsByCategory(categoryID int64) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Product, 0)
	for _, p := range sortedProducts(m.products) {
		if p.CategoryID != nil && *p.CategoryID == categoryID {
			res = append(res, p)
		}
	}
	return res, nil
}

// CreateUser assigns the next id and both timestamps.
func (m *MemoryStore) CreateUser(u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUser++
	now := time.Now().UTC()
	u.ID = m.nextUser
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = u
	return u, nil
}

// ListUsers returns users in insertion order.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		res = append(res, m.users[id])
	}
	return res, nil
}

// RecordBackup appends a backup audit entry.
func (m *MemoryStore) RecordBackup(r domain.BackupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.backups = append(m.backups, r)
	return nil
}

// Backups returns a copy of the recorded backup audit entries.
func (m *MemoryStore) Backups() []domain.BackupRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.BackupRecord, len(m.backups))
	copy(out, m.backups)
	return out
}

func sortedBooks(books map[int64]domain.Book) []domain.Book {
	ids := make([]int64, 0, len(books))
	for id := range books {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]domain.Book, 0, len(ids))
	for _, id := range ids {
		res = append(res, books[id])
	}
	return res
}

func sortedProducts(products map[int64]domain.Product) []domain.Product {
	ids := make([]int64, 0, len(products))
	for id := range products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		res = append(res, products[id])
	}
	return res
}

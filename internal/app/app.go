package app

import (
	"errors"

	"biblioteca/pkg/domain"
	"biblioteca/pkg/storage"
	"biblioteca/pkg/store"
)

// BackupSubmitter schedules a detached backup of a record. Submit must
// never block and its outcome must never influence the caller.
type BackupSubmitter interface {
	Submit(kind string, recordID int64)
}

// Config wires required dependencies for the core application.
type Config struct {
	Store   store.Store
	Backups BackupSubmitter
	Objects storage.ObjectStore
}

// App is the core application service: it runs payloads through the
// validation engine and persists the result through the record store.
type App struct {
	store   store.Store
	backups BackupSubmitter
	objects storage.ObjectStore
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	return &App{
		store:   cfg.Store,
		backups: cfg.Backups,
		objects: cfg.Objects,
	}, nil
}

// CreateBook validates and stores a new book, then schedules a detached
// backup. The backup never affects the returned record or error.
func (a *App) CreateBook(in domain.BookInput) (domain.Book, error) {
	book, err := domain.ValidateBookCreate(in)
	if err != nil {
		return domain.Book{}, err
	}
	created, err := a.store.CreateBook(book)
	if err != nil {
		return domain.Book{}, err
	}
	a.submitBackup("book", created.ID)
	return created, nil
}

// GetBook retrieves a book by id.
func (a *App) GetBook(id int64) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, ErrNotFound
	}
	return book, nil
}

// ListBooks returns every book in insertion order.
func (a *App) ListBooks() ([]domain.Book, error) {
	return a.store.ListBooks()
}

// ReplaceBook applies a full update: all creation rules run against the
// payload, id and created_at are preserved from the stored record.
func (a *App) ReplaceBook(id int64, in domain.BookInput) (domain.Book, error) {
	existing, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, ErrNotFound
	}
	replaced, err := domain.ValidateBookReplace(existing, in)
	if err != nil {
		return domain.Book{}, err
	}
	updated, ok, err := a.store.UpdateBook(replaced)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, ErrNotFound
	}
	return updated, nil
}

// PatchBook merges the present fields into the stored record. Validation
// runs before any write; an empty patch still advances updated_at.
func (a *App) PatchBook(id int64, p domain.BookPatch) (domain.Book, error) {
	existing, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, ErrNotFound
	}
	merged, err := domain.ApplyBookPatch(existing, p)
	if err != nil {
		return domain.Book{}, err
	}
	updated, ok, err := a.store.UpdateBook(merged)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, ErrNotFound
	}
	return updated, nil
}

// DeleteBook removes a book and returns the removed record. Deleting a
// missing id reports ErrNotFound, so repeating a delete is idempotent in
// effect.
func (a *App) DeleteBook(id int64) (domain.Book, error) {
	removed, ok, err := a.store.DeleteBook(id)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, ErrNotFound
	}
	return removed, nil
}

// SearchBooksByTitle returns up to limit books whose title contains the
// query, case-insensitively, in collection order.
func (a *App) SearchBooksByTitle(q string, limit int) ([]domain.Book, error) {
	return a.store.SearchBooksByTitle(q, limit)
}

// SearchBooksByAuthor is SearchBooksByTitle over the author field.
func (a *App) SearchBooksByAuthor(q string, limit int) ([]domain.Book, error) {
	return a.store.SearchBooksByAuthor(q, limit)
}

// BookMetadata returns the book together with external metadata. The
// lookup is a stub with fixed values until a provider is integrated.
func (a *App) BookMetadata(id int64) (domain.Book, domain.BookMetadata, error) {
	book, err := a.GetBook(id)
	if err != nil {
		return domain.Book{}, domain.BookMetadata{}, err
	}
	meta := domain.BookMetadata{
		GoodreadsRating: 4.2,
		AmazonPrice:     15.99,
		Availability:    "in_stock",
	}
	return book, meta, nil
}

func (a *App) submitBackup(kind string, recordID int64) {
	if a.backups == nil {
		return
	}
	go a.backups.Submit(kind, recordID)
}

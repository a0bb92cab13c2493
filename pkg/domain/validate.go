package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	// ErrInvalidFormat means a field failed its declared constraint.
	ErrInvalidFormat ErrorKind = "invalid_format"
	// ErrDanglingReference means a foreign key does not resolve.
	ErrDanglingReference ErrorKind = "dangling_reference"
)

// FieldError reports the first field that failed validation. Validation
// is fail-fast: fields are checked in declaration order and the first
// violation is returned, the payload is never partially applied.
type FieldError struct {
	Field   string
	Kind    ErrorKind
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *FieldError {
	return &FieldError{Field: field, Kind: ErrInvalidFormat, Message: message}
}

func dangling(field, message string) *FieldError {
	return &FieldError{Field: field, Kind: ErrDanglingReference, Message: message}
}

// CategoryLookup resolves whether a category id exists. The engine is
// handed this capability by the caller; it does not own the store.
type CategoryLookup func(id int64) (bool, error)

var (
	emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRx = regexp.MustCompile(`^\+?\d{7,15}$`)
	digitRx = regexp.MustCompile(`^\d+$`)
)

var bookGenres = map[BookGenre]bool{
	GenreFiction:    true,
	GenreNonFiction: true,
	GenreScience:    true,
	GenreBiography:  true,
	GenreHistory:    true,
	GenreTechnology: true,
	GenreOther:      true,
}

var bookStatuses = map[BookStatus]bool{
	StatusToRead:   true,
	StatusReading:  true,
	StatusFinished: true,
	StatusPaused:   true,
}

// NormalizeISBN strips hyphens and spaces from an ISBN.
func NormalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	return strings.ReplaceAll(isbn, " ", "")
}

func validISBN(isbn string) bool {
	return (len(isbn) == 10 || len(isbn) == 13) && digitRx.MatchString(isbn)
}

// ValidateBookCreate checks a creation payload and returns the record
// state to store. The ISBN is stored in its normalized digits-only form.
// Genre defaults to other and status to to_read when absent.
func ValidateBookCreate(in BookInput) (Book, error) {
	if n := len([]rune(in.Title)); n < 1 || n > 200 {
		return Book{}, invalid("title", "must be between 1 and 200 characters")
	}
	if n := len([]rune(in.Author)); n < 1 || n > 100 {
		return Book{}, invalid("author", "must be between 1 and 100 characters")
	}
	isbn := ""
	if in.ISBN != "" {
		isbn = NormalizeISBN(in.ISBN)
		if !validISBN(isbn) {
			return Book{}, invalid("isbn", "must have 10 or 13 digits")
		}
	}
	genre := in.Genre
	if genre == "" {
		genre = GenreOther
	}
	if !bookGenres[genre] {
		return Book{}, invalid("genre", "is not a valid genre")
	}
	if in.Pages != nil && (*in.Pages < 1 || *in.Pages > 10000) {
		return Book{}, invalid("pages", "must be between 1 and 10000")
	}
	if in.PublicationYear != nil {
		if year := *in.PublicationYear; year < 1000 || year > time.Now().Year() {
			return Book{}, invalid("publication_year", "must be between 1000 and the current year")
		}
	}
	status := in.Status
	if status == "" {
		status = StatusToRead
	}
	if !bookStatuses[status] {
		return Book{}, invalid("status", "is not a valid status")
	}
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return Book{}, invalid("rating", "must be between 1 and 5")
	}
	if len([]rune(in.Notes)) > 1000 {
		return Book{}, invalid("notes", "must not exceed 1000 characters")
	}
	return Book{
		Title:           in.Title,
		Author:          in.Author,
		ISBN:            isbn,
		Genre:           genre,
		Pages:           in.Pages,
		PublicationYear: in.PublicationYear,
		Status:          status,
		Rating:          in.Rating,
		Notes:           in.Notes,
	}, nil
}

// ValidateBookReplace treats the payload as a full replacement. Every
// field follows creation rules; id and created_at carry over from the
// existing record.
func ValidateBookReplace(existing Book, in BookInput) (Book, error) {
	book, err := ValidateBookCreate(in)
	if err != nil {
		return Book{}, err
	}
	book.ID = existing.ID
	book.CreatedAt = existing.CreatedAt
	return book, nil
}

// ApplyBookPatch merges the present fields of a patch into a copy of the
// existing record. Absent fields keep their prior values. Present fields
// are re-validated with the creation rules before anything is applied.
func ApplyBookPatch(existing Book, p BookPatch) (Book, error) {
	merged := existing
	if p.Title != nil {
		if n := len([]rune(*p.Title)); n < 1 || n > 200 {
			return Book{}, invalid("title", "must be between 1 and 200 characters")
		}
		merged.Title = *p.Title
	}
	if p.Author != nil {
		if n := len([]rune(*p.Author)); n < 1 || n > 100 {
			return Book{}, invalid("author", "must be between 1 and 100 characters")
		}
		merged.Author = *p.Author
	}
	if p.ISBN != nil {
		isbn := NormalizeISBN(*p.ISBN)
		if *p.ISBN != "" && !validISBN(isbn) {
			return Book{}, invalid("isbn", "must have 10 or 13 digits")
		}
		merged.ISBN = isbn
	}
	if p.Genre != nil {
		if !bookGenres[*p.Genre] {
			return Book{}, invalid("genre", "is not a valid genre")
		}
		merged.Genre = *p.Genre
	}
	if p.Pages != nil {
		if *p.Pages < 1 || *p.Pages > 10000 {
			return Book{}, invalid("pages", "must be between 1 and 10000")
		}
		merged.Pages = p.Pages
	}
	if p.PublicationYear != nil {
		if year := *p.PublicationYear; year < 1000 || year > time.Now().Year() {
			return Book{}, invalid("publication_year", "must be between 1000 and the current year")
		}
		merged.PublicationYear = p.PublicationYear
	}
	if p.Status != nil {
		if !bookStatuses[*p.Status] {
			return Book{}, invalid("status", "is not a valid status")
		}
		merged.Status = *p.Status
	}
	if p.Rating != nil {
		if *p.Rating < 1 || *p.Rating > 5 {
			return Book{}, invalid("rating", "must be between 1 and 5")
		}
		merged.Rating = p.Rating
	}
	if p.Notes != nil {
		if len([]rune(*p.Notes)) > 1000 {
			return Book{}, invalid("notes", "must not exceed 1000 characters")
		}
		merged.Notes = *p.Notes
	}
	return merged, nil
}

// ValidateProductCreate checks a product payload. When a category is
// referenced it must resolve through lookup before any write happens.
func ValidateProductCreate(in ProductInput, lookup CategoryLookup) (Product, error) {
	if n := len([]rune(in.Name)); n < 2 || n > 100 {
		return Product{}, invalid("name", "must be between 2 and 100 characters")
	}
	if in.Price <= 0 {
		return Product{}, invalid("price", "must be greater than zero")
	}
	if in.Quantity < 0 {
		return Product{}, invalid("quantity", "must be zero or greater")
	}
	if len([]rune(in.Description)) > 250 {
		return Product{}, invalid("description", "must not exceed 250 characters")
	}
	if in.CategoryID != nil {
		if err := checkCategory(*in.CategoryID, lookup); err != nil {
			return Product{}, err
		}
	}
	return Product{
		Name:        in.Name,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Description: in.Description,
		CategoryID:  in.CategoryID,
	}, nil
}

// ApplyProductPatch merges the present fields of a patch into a copy of
// the existing product. The category reference is re-checked only when
// the patch carries it.
func ApplyProductPatch(existing Product, p ProductPatch, lookup CategoryLookup) (Product, error) {
	merged := existing
	if p.Name != nil {
		if n := len([]rune(*p.Name)); n < 2 || n > 100 {
			return Product{}, invalid("name", "must be between 2 and 100 characters")
		}
		merged.Name = *p.Name
	}
	if p.Price != nil {
		if *p.Price <= 0 {
			return Product{}, invalid("price", "must be greater than zero")
		}
		merged.Price = *p.Price
	}
	if p.Quantity != nil {
		if *p.Quantity < 0 {
			return Product{}, invalid("quantity", "must be zero or greater")
		}
		merged.Quantity = *p.Quantity
	}
	if p.Description != nil {
		if len([]rune(*p.Description)) > 250 {
			return Product{}, invalid("description", "must not exceed 250 characters")
		}
		merged.Description = *p.Description
	}
	if p.CategoryID != nil {
		if err := checkCategory(*p.CategoryID, lookup); err != nil {
			return Product{}, err
		}
		merged.CategoryID = p.CategoryID
	}
	return merged, nil
}

func checkCategory(id int64, lookup CategoryLookup) error {
	if lookup == nil {
		return dangling("category_id", "category lookup is not available")
	}
	ok, err := lookup(id)
	if err != nil {
		return fmt.Errorf("resolve category %d: %w", id, err)
	}
	if !ok {
		return dangling("category_id", fmt.Sprintf("category %d does not exist", id))
	}
	return nil
}

// ValidateCategoryCreate checks a category payload.
func ValidateCategoryCreate(in CategoryInput) (Category, error) {
	if n := len([]rune(in.Name)); n < 1 || n > 100 {
		return Category{}, invalid("name", "must be between 1 and 100 characters")
	}
	if len([]rune(in.Description)) > 250 {
		return Category{}, invalid("description", "must not exceed 250 characters")
	}
	return Category{Name: in.Name, Description: in.Description}, nil
}

// ValidateUserCreate checks a user payload. The username is normalized
// to title case as part of validation, never rejected for casing.
func ValidateUserCreate(in UserInput) (User, error) {
	if n := len([]rune(in.Username)); n < 3 || n > 50 {
		return User{}, invalid("username", "must be between 3 and 50 characters")
	}
	if !emailRx.MatchString(in.Email) {
		return User{}, invalid("email", "must be a valid email address")
	}
	if in.Age != nil && (*in.Age < 0 || *in.Age > 120) {
		return User{}, invalid("age", "must be between 0 and 120")
	}
	if in.Phone != "" && !phoneRx.MatchString(in.Phone) {
		return User{}, invalid("phone", "must match an international phone format")
	}
	return User{
		Username: titleCase(in.Username),
		Email:    in.Email,
		Age:      in.Age,
		Phone:    in.Phone,
	}, nil
}

// titleCase upper-cases the first letter of each word and lower-cases
// the rest, preserving the original separators.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

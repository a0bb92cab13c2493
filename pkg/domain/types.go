package domain

import "time"

type BookStatus string

const (
	StatusToRead   BookStatus = "to_read"
	StatusReading  BookStatus = "reading"
	StatusFinished BookStatus = "finished"
	StatusPaused   BookStatus = "paused"
)

type BookGenre string

const (
	GenreFiction    BookGenre = "fiction"
	GenreNonFiction BookGenre = "non_fiction"
	GenreScience    BookGenre = "science"
	GenreBiography  BookGenre = "biography"
	GenreHistory    BookGenre = "history"
	GenreTechnology BookGenre = "technology"
	GenreOther      BookGenre = "other"
)

// Book is a record in the personal library.
type Book struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            string     `json:"isbn,omitempty"`
	Genre           BookGenre  `json:"genre"`
	Pages           *int       `json:"pages,omitempty"`
	PublicationYear *int       `json:"publication_year,omitempty"`
	Status          BookStatus `json:"status"`
	Rating          *int       `json:"rating,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Product is a catalog item, optionally linked to a category.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description,omitempty"`
	CategoryID  *int64    `json:"category_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category groups products.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is a registered account. Username is stored title-cased.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Age       *int      `json:"age,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductStats aggregates the product collection over price.
// All fields are zero when the collection is empty.
type ProductStats struct {
	Total int     `json:"total"`
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
}

// BookMetadata carries the enrichment returned by the external metadata
// lookup. Values are stubbed until a real provider is wired in.
type BookMetadata struct {
	GoodreadsRating float64 `json:"goodreads_rating"`
	AmazonPrice     float64 `json:"amazon_price"`
	Availability    string  `json:"availability"`
}

// BackupRecord is the audit entry written after a detached backup job
// archived a record snapshot.
type BackupRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	RecordID  int64     `json:"record_id"`
	Snapshot  []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// BookInput is the payload for creating or fully replacing a book.
type BookInput struct {
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            string     `json:"isbn"`
	Genre           BookGenre  `json:"genre"`
	Pages           *int       `json:"pages"`
	PublicationYear *int       `json:"publication_year"`
	Status          BookStatus `json:"status"`
	Rating          *int       `json:"rating"`
	Notes           string     `json:"notes"`
}

// BookPatch holds the fields a partial update may change. Every field is
// a pointer so "absent" and "set to zero value" stay distinguishable.
type BookPatch struct {
	Title           *string     `json:"title"`
	Author          *string     `json:"author"`
	ISBN            *string     `json:"isbn"`
	Genre           *BookGenre  `json:"genre"`
	Pages           *int        `json:"pages"`
	PublicationYear *int        `json:"publication_year"`
	Status          *BookStatus `json:"status"`
	Rating          *int        `json:"rating"`
	Notes           *string     `json:"notes"`
}

// ProductInput is the payload for creating a product.
type ProductInput struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description"`
	CategoryID  *int64  `json:"category_id"`
}

// ProductPatch holds the fields a partial product update may change.
type ProductPatch struct {
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	Description *string  `json:"description"`
	CategoryID  *int64   `json:"category_id"`
}

// CategoryInput is the payload for creating a category.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UserInput is the payload for creating a user.
type UserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Age      *int   `json:"age"`
	Phone    string `json:"phone"`
}

package models

// Book mirrors the backend book entity.
type Book struct {
	ID              int64  `json:"id" db:"id"`
	Title           string `json:"title" db:"title"`
	Author          string `json:"author" db:"author"`
	ISBN            string `json:"isbn" db:"isbn"`
	Category        string `json:"category" db:"category"`
	CopiesTotal     int64  `json:"copies_total" db:"copies_total"`
	CopiesAvailable int64  `json:"copies_available" db:"copies_available"`
	Description     string `json:"description,omitempty" db:"description"`
	CoverImage      string `json:"cover_image,omitempty" db:"cover_image"`
}

// BookInput is the payload for creating or updating a book.
// Nil fields are left untouched on update.
type BookInput struct {
	Title           *string `json:"title,omitempty"`
	Author          *string `json:"author,omitempty"`
	ISBN            *string `json:"isbn,omitempty"`
	Category        *string `json:"category,omitempty"`
	CopiesTotal     *int64  `json:"copies_total,omitempty"`
	CopiesAvailable *int64  `json:"copies_available,omitempty"`
	Description     *string `json:"description,omitempty"`
	CoverImage      *string `json:"cover_image,omitempty"`
}

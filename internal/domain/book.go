package domain

// Book представляет книгу каталога,
// соответствует таблице books в бд
type Book struct {
	ID            int64  `json:"id" db:"id"`
	Title         string `json:"title" db:"title"`
	Author        string `json:"author" db:"author"`
	ISBN          string `json:"isbn" db:"isbn"`
	PublishedYear int    `json:"published_year" db:"published_year"`
	Available     bool   `json:"available" db:"available"`
}

func (Book) TableName() string {
	return "books"
}

// BookInput — тело запроса на создание книги.
// Available указателем, чтобы отличить "не передано" от false.
type BookInput struct {
	Title         string `json:"title" validate:"required,nonul,max=255"`
	Author        string `json:"author" validate:"nonul,max=255"`
	ISBN          string `json:"isbn" validate:"nonul,max=32"`
	PublishedYear int    `json:"published_year" validate:"gt=0,lte=9999"`
	Available     *bool  `json:"available,omitempty"`
}

// BookFilter сужает выборку списка книг. Нулевое значение — без фильтра.
type BookFilter struct {
	Available *bool
	Author    string
}

// Match проверяет книгу на соответствие фильтру.
func (f BookFilter) Match(b Book) bool {
	if f.Available != nil && b.Available != *f.Available {
		return false
	}
	if f.Author != "" && b.Author != f.Author {
		return false
	}
	return true
}

package entity

// Book is a catalog entry. The catalog is read-only to the web app.
type Book struct {
	ID     int64
	Title  string
	Author string
}

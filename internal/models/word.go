package models

// Category groups words. Nome is the display name.
type Category struct {
	ID   int64  `json:"id"`
	Nome string `json:"nome"`
}

// Word is a secret word with its hint, as served by the word catalog.
type Word struct {
	ID          int64  `json:"id"`
	Palavra     string `json:"palavra"`
	Dica        string `json:"dica"`
	CategoriaID int64  `json:"categoriaId"`
}

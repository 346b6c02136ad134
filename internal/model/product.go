package model

// Category groups products in the catalogue.
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Product represents a food product in the catalogue.
type Product struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	CategoryID   int64  `json:"categoryId" db:"category_id"`
	CategoryName string `json:"category" db:"category_name"`
}

// ProductRequest creates a product.
type ProductRequest struct {
	Name       string `json:"name"`
	CategoryID int64  `json:"categoryId"`
}

// ProductUpdateRequest renames a product or moves it to another category.
type ProductUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	CategoryID *int64  `json:"categoryId,omitempty"`
}

// CategoryRequest creates or renames a category.
type CategoryRequest struct {
	Name string `json:"name"`
}

// CountResponse carries a row count.
type CountResponse struct {
	Count int `json:"count"`
}

package domain

// Product is a catalog entry.
type Product struct {
	ProductID   string   `json:"product_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	InStock     bool     `json:"in_stock"`
	Features    []string `json:"features"`
}

// PolicyDocument is a company policy or service information document.
type PolicyDocument struct {
	DocID    string   `json:"doc_id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

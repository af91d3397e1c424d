package httphandler

import "github.com/niksmo/storefront/internal/core/domain"

type (
	Product struct {
		ProductID      string       `json:"product_id"`
		Name           string       `json:"name"`
		Description    string       `json:"description"`
		Price          ProductPrice `json:"price"`
		Category       string       `json:"category"`
		AvailableStock int          `json:"available_stock"`
		Images         []string     `json:"images"`
	}

	ProductPrice struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	}

	Category struct {
		CategoryID string `json:"id"`
		Label      string `json:"label"`
	}

	ProductPage struct {
		Products   []Product `json:"products"`
		Total      int       `json:"total"`
		Page       int       `json:"page"`
		PageSize   int       `json:"page_size"`
		TotalPages int       `json:"total_pages"`
		HasPrev    bool      `json:"has_prev"`
		HasNext    bool      `json:"has_next"`
	}
)

type (
	CartLine struct {
		ProductID string       `json:"product_id"`
		Name      string       `json:"name"`
		Price     ProductPrice `json:"price"`
		Quantity  int          `json:"quantity"`
	}

	Cart struct {
		Lines []CartLine `json:"lines"`
		Count int        `json:"count"`
		Total float64    `json:"total"`
	}

	Snapshot struct {
		Cart  Cart        `json:"cart"`
		Page  ProductPage `json:"page"`
		Error string      `json:"error,omitempty"`
	}

	AddItemRequest struct {
		ProductID string `json:"product_id"`
	}
)

type LedgerEntry struct {
	ProductID string `json:"product_id"`
	Reserved  int    `json:"reserved"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (p Product) toDomain() domain.Product {
	return domain.Product{
		ProductID:   p.ProductID,
		Name:        p.Name,
		Description: p.Description,
		Price: domain.ProductPrice{
			Amount:   p.Price.Amount,
			Currency: p.Price.Currency,
		},
		Category:       p.Category,
		AvailableStock: p.AvailableStock,
		Images:         p.Images,
	}
}

func fromProduct(p domain.Product) Product {
	return Product{
		ProductID:      p.ProductID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          fromPrice(p.Price),
		Category:       p.Category,
		AvailableStock: p.AvailableStock,
		Images:         p.Images,
	}
}

func fromPrice(p domain.ProductPrice) ProductPrice {
	return ProductPrice{Amount: p.Amount, Currency: p.Currency}
}

func fromCategories(cs []domain.Category) []Category {
	out := make([]Category, len(cs))
	for i, c := range cs {
		out[i] = Category{CategoryID: c.CategoryID, Label: c.Label}
	}
	return out
}

func fromPage(p domain.ProductPage) ProductPage {
	ps := make([]Product, len(p.Products))
	for i := range p.Products {
		ps[i] = fromProduct(p.Products[i])
	}
	return ProductPage{
		Products:   ps,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		HasPrev:    p.HasPrev,
		HasNext:    p.HasNext,
	}
}

func fromCart(c domain.CartSummary) Cart {
	lines := make([]CartLine, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = CartLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     fromPrice(l.Price),
			Quantity:  l.Quantity,
		}
	}
	return Cart{Lines: lines, Count: c.Count, Total: c.Total}
}

func fromSnapshot(s domain.Snapshot) Snapshot {
	return Snapshot{Cart: fromCart(s.Cart), Page: fromPage(s.Page)}
}

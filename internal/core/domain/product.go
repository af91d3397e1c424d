package domain

// DefaultImage is shown for products loaded without image references.
const DefaultImage = "assets/images/default.jpg"

type (
	Product struct {
		ProductID      string
		Name           string
		Description    string
		Price          ProductPrice
		Category       string
		AvailableStock int
		Images         []string
	}

	ProductPrice struct {
		Amount   float64
		Currency string
	}

	Category struct {
		CategoryID string
		Label      string
	}
)

// Clone returns a copy that shares no slices with p.
func (p Product) Clone() Product {
	c := p
	if p.Images != nil {
		c.Images = make([]string, len(p.Images))
		copy(c.Images, p.Images)
	}
	return c
}

// WithDefaultImage returns p with the placeholder image
// when p has no image references.
func (p Product) WithDefaultImage(placeholder string) Product {
	if len(p.Images) != 0 {
		return p
	}
	if placeholder == "" {
		placeholder = DefaultImage
	}
	p.Images = []string{placeholder}
	return p
}

package domain

// DefaultPageSize is the admin table page size of the storefront.
const DefaultPageSize = 7

// FilterState holds the search, category and page parameters of a view.
//
// Changing the search term or the category starts over from the first page.
type FilterState struct {
	Search   string
	Category string
	Page     int
	PageSize int
}

func NewFilterState(pageSize int) FilterState {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return FilterState{Page: 1, PageSize: pageSize}
}

func (s FilterState) WithSearch(term string) FilterState {
	s.Search = term
	s.Page = 1
	return s
}

func (s FilterState) WithCategory(category string) FilterState {
	s.Category = category
	s.Page = 1
	return s
}

func (s FilterState) WithPage(page int) FilterState {
	s.Page = page
	return s
}

// Next moves to the following page if total items go beyond the current one.
func (s FilterState) Next(total int) FilterState {
	s = s.Normalize()
	if s.Page < TotalPages(total, s.PageSize) {
		s.Page++
	}
	return s
}

func (s FilterState) Prev() FilterState {
	s = s.Normalize()
	if s.Page > 1 {
		s.Page--
	}
	return s
}

// Normalize clamps page to 1 and page size to the default.
func (s FilterState) Normalize() FilterState {
	if s.Page < 1 {
		s.Page = 1
	}
	if s.PageSize < 1 {
		s.PageSize = DefaultPageSize
	}
	return s
}

// TotalPages is the number of pages total items fill, rounding up.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize < 1 {
		return 0
	}
	n := total / pageSize
	if total%pageSize != 0 {
		n++
	}
	return n
}

type ProductPage struct {
	Products   []Product
	Total      int
	Page       int
	PageSize   int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

package pagination

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination is the page/limit pair accepted by list endpoints.
type Pagination struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// PageInfo describes where a page sits in the full result set. Prev and Next
// are nil at the respective boundary.
type PageInfo struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
	Total int64 `json:"total"`
	Prev  *int  `json:"prev"`
	Next  *int  `json:"next"`
}

// Normalize applies defaults and clamps the limit.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Build computes the page info for total matching rows.
func Build(p Pagination, total int64) PageInfo {
	n := p.Normalize()
	pages := 0
	if total > 0 {
		pages = int((total + int64(n.Limit) - 1) / int64(n.Limit))
	}

	info := PageInfo{
		Page:  n.Page,
		Limit: n.Limit,
		Pages: pages,
		Total: total,
	}
	if n.Page > 1 {
		prev := n.Page - 1
		info.Prev = &prev
	}
	if n.Page < pages {
		next := n.Page + 1
		info.Next = &next
	}
	return info
}

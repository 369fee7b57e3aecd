package response

type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int64 `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
	HasMore    bool  `json:"has_more"`
	From       int   `json:"from"`
	To         int   `json:"to"`
}

// NewPagination describes page (1-based) of pageSize items out of total.
// From and To are 1-based item positions and are zero for an empty page.
func NewPagination(page, pageSize int, total int64) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	size := int64(pageSize)
	p := &Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: (total + size - 1) / size,
	}
	offset := int64(page-1) * size
	if offset < total {
		p.From = int(offset) + 1
		p.To = int(min(offset+size, total))
	}
	p.HasMore = int64(page) < p.TotalPages
	return p
}

// Offset is the number of items before the page.
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

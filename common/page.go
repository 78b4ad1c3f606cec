package common

// Ordering keys accepted by the list endpoints. Anything else falls back
// to OrderRecent.
const (
	OrderRecent    = "recent"
	OrderLikes     = "likes"
	OrderResponses = "responses"
	OrderComments  = "comments"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageQuery is bound from query parameters on every list endpoint.
// PageNum is zero-based.
type PageQuery struct {
	OrderBy  string `form:"orderBy"`
	PageSize int    `form:"pageSize"`
	PageNum  int    `form:"pageNum"`
}

// Normalize clamps the page window to sane bounds and resolves the
// ordering key, treating unknown keys as "recent".
func (p *PageQuery) Normalize() {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.PageNum < 0 {
		p.PageNum = 0
	}
	switch p.OrderBy {
	case OrderLikes, OrderResponses, OrderComments:
	default:
		p.OrderBy = OrderRecent
	}
}

func (p *PageQuery) Offset() int {
	return p.PageNum * p.PageSize
}

// Page wraps one slice of an ordered result set together with its metadata.
type Page struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	PageNum  int         `json:"page_num"`
	PageSize int         `json:"page_size"`
}

func NewPage(items interface{}, total int64, q PageQuery) Page {
	return Page{
		Items:    items,
		Total:    total,
		PageNum:  q.PageNum,
		PageSize: q.PageSize,
	}
}

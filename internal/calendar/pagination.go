package calendar

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Page описывает одну страницу элементов.
type Page[T any] struct {
	Items    []T
	Page     int // с 1
	PageSize int
	HasNext  bool
	HasPrev  bool
	Total    int
}

// Paginate возвращает срез items для указанной страницы и метаданные.
// Некорректные page/pageSize заменяются дефолтами, pageSize ограничен MaxPageSize.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}

	total := len(items)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	return Page[T]{
		Items:    items[start:end],
		Page:     page,
		PageSize: pageSize,
		HasNext:  end < total,
		HasPrev:  page > 1,
		Total:    total,
	}
}

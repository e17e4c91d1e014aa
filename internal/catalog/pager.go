package catalog

// PageMarker is one entry of the pager control: a page number or a gap.
type PageMarker struct {
	Number   int
	Current  bool
	Ellipsis bool
}

// Page describes one slice of the listing and the controls around it.
type Page struct {
	Number     int
	Size       int
	TotalItems int
	TotalPages int
	Markers    []PageMarker
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// PrevNumber returns the previous page number, clamped to 1.
func (p Page) PrevNumber() int {
	if p.Number <= 1 {
		return 1
	}
	return p.Number - 1
}

// NextNumber returns the next page number, clamped to the last page.
func (p Page) NextNumber() int {
	if p.Number >= p.TotalPages {
		return p.TotalPages
	}
	return p.Number + 1
}

// TotalPages returns the page count for total items at size per page. A
// size of zero or less means a single page. The result is never below 1.
func TotalPages(total, size int) int {
	if size <= 0 || total <= size {
		return 1
	}
	return (total + size - 1) / size
}

// ClampPage bounds page to [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate returns the requested page of items and its metadata.
func Paginate(items []Product, page, size int) ([]Product, Page) {
	total := len(items)
	pages := TotalPages(total, size)
	page = ClampPage(page, pages)

	meta := Page{
		Number:     page,
		Size:       size,
		TotalItems: total,
		TotalPages: pages,
		Markers:    PageMarkers(page, pages),
	}
	if size <= 0 {
		return items, meta
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return items[start:end], meta
}

// PageMarkers lists the first three and last two pages plus the neighbours of
// current, inserting an ellipsis where more than one page is skipped.
func PageMarkers(current, totalPages int) []PageMarker {
	if totalPages < 1 {
		totalPages = 1
	}
	current = ClampPage(current, totalPages)

	wanted := map[int]bool{}
	for _, n := range []int{1, 2, 3, totalPages - 1, totalPages, current - 1, current, current + 1} {
		if n >= 1 && n <= totalPages {
			wanted[n] = true
		}
	}

	markers := make([]PageMarker, 0, len(wanted)+2)
	prev := 0
	for n := 1; n <= totalPages; n++ {
		if !wanted[n] {
			continue
		}
		switch gap := n - prev - 1; {
		case gap == 1:
			markers = append(markers, PageMarker{Number: n - 1})
		case gap > 1:
			markers = append(markers, PageMarker{Ellipsis: true})
		}
		markers = append(markers, PageMarker{Number: n, Current: n == current})
		prev = n
	}
	return markers
}

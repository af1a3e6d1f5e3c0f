package bulletin

import "strconv"

// pageOf clamps a raw page query parameter against the item total.
// Non-numeric or sub-1 values resolve to the first page; values past the end
// resolve to the last page. A deterministic boundary page is always returned,
// never an error.
func pageOf(raw string, total, perPage int) (page, pages int) {
	pages = (total + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	return page, pages
}

package models

// PageSize is the number of cards the portal serves per results page. The
// offset query parameter moves in multiples of this.
const PageSize = 24

// SearchCursor is the pagination position for a results crawl. One cursor is
// created per page fetched and consumed immediately to compute the next one.
type SearchCursor struct {
	RequestURL string
	PageNumber int
}

// OffsetIndex is the value of the portal's offset parameter for this page.
// Page numbers are 1-based, offsets 0-based.
func (c SearchCursor) OffsetIndex() int {
	if c.PageNumber < 1 {
		return 0
	}
	return (c.PageNumber - 1) * PageSize
}

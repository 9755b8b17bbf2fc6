package view

import "slices"

// DefaultPageSize is used when a controller is built without WithPageSize
// and whenever a non-positive size reaches the pager.
const DefaultPageSize = 10

// PageState is the 1-based page index and the page size.
type PageState struct {
	Index int `json:"index" yaml:"index"`
	Size  int `json:"size" yaml:"size"`
}

// ViewResult is what a presentation layer renders: the visible page plus
// the metadata a pager widget needs.
type ViewResult struct {
	Page       []Record `json:"page" yaml:"page"`
	TotalCount int      `json:"totalCount" yaml:"total_count"`
	TotalPages int      `json:"totalPages" yaml:"total_pages"`
	PageIndex  int      `json:"pageIndex" yaml:"page_index"`
	PageSize   int      `json:"pageSize" yaml:"page_size"`
}

// HasNext reports whether a page follows the current one.
func (r ViewResult) HasNext() bool {
	return r.PageIndex < r.TotalPages
}

// HasPrev reports whether a page precedes the current one.
func (r ViewResult) HasPrev() bool {
	return r.PageIndex > 1
}

// TotalPages returns max(1, ceil(total/size)).
func TotalPages(total, size int) int {
	if size < 1 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampIndex moves index into [1, TotalPages(total, size)].
func ClampIndex(index, total, size int) int {
	if index < 1 {
		return 1
	}
	if last := TotalPages(total, size); index > last {
		return last
	}
	return index
}

// Paginate slices the page selected by state out of ordered records. An
// index past the last page selects the last page; an index below 1 selects
// the first. The returned page never aliases spare capacity of records.
func Paginate(records []Record, state PageState) ViewResult {
	size := state.Size
	if size < 1 {
		size = DefaultPageSize
	}
	total := len(records)
	index := ClampIndex(state.Index, total, size)

	start := (index - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return ViewResult{
		Page:       slices.Clip(records[start:end]),
		TotalCount: total,
		TotalPages: TotalPages(total, size),
		PageIndex:  index,
		PageSize:   size,
	}
}

package view

import (
	"slices"

	"github.com/go-logr/logr"
)

// ViewCriteria is the full mutable query state of one view.
type ViewCriteria struct {
	SearchText   string      `json:"searchText" yaml:"search_text"`
	SearchFields []string    `json:"searchFields,omitempty" yaml:"search_fields,omitempty"`
	Filter       FilterQuery `json:"filter" yaml:"filter"`
	Where        string      `json:"where,omitempty" yaml:"where,omitempty"`
	Sort         *SortSpec   `json:"sort,omitempty" yaml:"sort,omitempty"`
	Page         PageState   `json:"page" yaml:"page"`
}

func (c ViewCriteria) clone() ViewCriteria {
	out := c
	out.SearchFields = slices.Clone(c.SearchFields)
	out.Filter = c.Filter.clone()
	out.Sort = c.Sort.clone()
	return out
}

// Controller owns the criteria of a single view and turns a record
// collection into the visible page. Every criteria mutation except page
// navigation returns the view to page 1.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	criteria ViewCriteria
	trackBy  string
	where    *Where
	whereErr error
	log      logr.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithPageSize sets the initial page size. Values below 1 are ignored.
func WithPageSize(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.criteria.Page.Size = size
		}
	}
}

// WithSearchFields restricts free-text search to the named fields.
func WithSearchFields(fields ...string) Option {
	return func(c *Controller) {
		c.criteria.SearchFields = slices.Clone(fields)
	}
}

// WithTrackBy names the unique key field used to identify records in logs.
func WithTrackBy(field string) Option {
	return func(c *Controller) {
		c.trackBy = field
	}
}

// WithSort sets the initial sort.
func WithSort(spec *SortSpec) Option {
	return func(c *Controller) {
		c.criteria.Sort = spec.clone()
	}
}

// WithFilterQuery sets the initial structured filter.
func WithFilterQuery(q FilterQuery) Option {
	return func(c *Controller) {
		c.criteria.Filter = q.clone()
	}
}

// WithWhere sets the initial CEL where-clause. A compile error surfaces
// from the first Query call.
func WithWhere(expr string) Option {
	return func(c *Controller) {
		c.setWhere(expr)
	}
}

// WithLogger sets the logger used for recovered data conditions.
func WithLogger(lgr logr.Logger) Option {
	return func(c *Controller) {
		c.log = lgr
	}
}

// NewController returns a controller on page 1 with DefaultPageSize, no
// search, no filters and no sort, then applies opts.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		criteria: ViewCriteria{
			Filter: FilterQuery{Operation: OperationAnd},
			Page:   PageState{Index: 1, Size: DefaultPageSize},
		},
		log: logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Criteria returns a copy of the current criteria.
func (c *Controller) Criteria() ViewCriteria {
	return c.criteria.clone()
}

// TrackBy returns the configured key field.
func (c *Controller) TrackBy() string {
	return c.trackBy
}

// PageIndex returns the current 1-based page index. After a Query it is
// the clamped index of the page that was returned.
func (c *Controller) PageIndex() int {
	return c.criteria.Page.Index
}

// PageSize returns the current page size.
func (c *Controller) PageSize() int {
	return c.criteria.Page.Size
}

// SetSearchText replaces the free-text search and returns to page 1.
func (c *Controller) SetSearchText(text string) {
	c.criteria.SearchText = text
	c.resetPage()
}

// SetSearchFields replaces the searched fields (nil searches every field)
// and returns to page 1.
func (c *Controller) SetSearchFields(fields []string) {
	c.criteria.SearchFields = slices.Clone(fields)
	c.resetPage()
}

// SetFilterQuery replaces the structured filter and returns to page 1.
// The query is validated by Query, not here.
func (c *Controller) SetFilterQuery(q FilterQuery) {
	c.criteria.Filter = q.clone()
	c.resetPage()
}

// SetWhere replaces the CEL where-clause and returns to page 1. The
// compile error, if any, is returned here and again from every Query until
// the clause is replaced.
func (c *Controller) SetWhere(expr string) error {
	c.setWhere(expr)
	c.resetPage()
	return c.whereErr
}

// SetSort replaces the sort (nil keeps input order) and returns to page 1.
func (c *Controller) SetSort(spec *SortSpec) {
	c.criteria.Sort = spec.clone()
	c.resetPage()
}

// SetPageSize changes the page size and returns to page 1. Values below 1
// fall back to DefaultPageSize.
func (c *Controller) SetPageSize(size int) {
	if size < 1 {
		size = DefaultPageSize
	}
	c.criteria.Page.Size = size
	c.resetPage()
}

// SetPageIndex moves to page n without touching any other criteria. The
// index is clamped by the next Query.
func (c *Controller) SetPageIndex(n int) {
	if n < 1 {
		n = 1
	}
	c.criteria.Page.Index = n
}

// NextPage advances one page; Query clamps it at the last page.
func (c *Controller) NextPage() {
	c.SetPageIndex(c.criteria.Page.Index + 1)
}

// PrevPage goes back one page, stopping at page 1.
func (c *Controller) PrevPage() {
	c.SetPageIndex(c.criteria.Page.Index - 1)
}

func (c *Controller) resetPage() {
	c.criteria.Page.Index = 1
}

func (c *Controller) setWhere(expr string) {
	c.criteria.Where = expr
	c.where, c.whereErr = CompileWhere(expr)
}

// Query computes the visible page of records under the current criteria.
// The pipeline is: free-text search, structured filter, where-clause,
// stable sort, paginate. records is neither retained nor modified.
//
// Invalid criteria fail the whole call with a *ConfigurationError. A record
// whose searched fields cannot be stringified is excluded from search
// matches, while structured filters treat such a value as "". A record on
// which the where-clause fails to evaluate is excluded.
func (c *Controller) Query(records []Record) (ViewResult, error) {
	if err := c.criteria.Filter.Validate(); err != nil {
		return ViewResult{}, err
	}
	if err := c.criteria.Sort.Validate(); err != nil {
		return ViewResult{}, err
	}
	if c.whereErr != nil {
		return ViewResult{}, c.whereErr
	}

	matched := make([]Record, 0, len(records))
	for i, rec := range records {
		ok, err := matchSearch(rec, c.criteria.SearchText, c.criteria.SearchFields)
		if err != nil {
			c.log.V(1).Info("excluding record from search", "record", c.keyOf(rec, i), "error", err.Error())
			continue
		}
		if !ok || !evaluateFilter(rec, c.criteria.Filter) {
			continue
		}
		if c.where != nil {
			ok, err := c.where.Match(rec)
			if err != nil {
				c.log.V(1).Info("excluding record from where-clause", "record", c.keyOf(rec, i), "error", err.Error())
				continue
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, rec)
	}

	sortInPlace(matched, c.criteria.Sort)
	result := Paginate(matched, c.criteria.Page)
	c.criteria.Page.Index = result.PageIndex
	c.criteria.Page.Size = result.PageSize
	return result, nil
}

// keyOf identifies a record in log output: its TrackBy value when set,
// otherwise its position in the input.
func (c *Controller) keyOf(rec Record, position int) any {
	if c.trackBy != "" {
		if v, ok := rec[c.trackBy]; ok {
			return v
		}
	}
	return position
}

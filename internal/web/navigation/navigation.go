// Package navigation builds the navigation context (active section, page
// title, breadcrumbs) handed to every rendered template.
package navigation

// BreadcrumbItem is a single entry of the breadcrumb trail.
type BreadcrumbItem struct {
	Title  string
	URL    string
	Active bool
}

// Context carries the navigation state of one rendered page.
type Context struct {
	PageTitle     string
	ActiveSection string
	ActivePage    string
	Breadcrumbs   []BreadcrumbItem
}

// NewContext creates a navigation context for a page.
func NewContext(pageTitle, activeSection, activePage string) *Context {
	return &Context{
		PageTitle:     pageTitle,
		ActiveSection: activeSection,
		ActivePage:    activePage,
		Breadcrumbs:   []BreadcrumbItem{},
	}
}

// AddBreadcrumb appends a breadcrumb and returns the context for chaining.
func (c *Context) AddBreadcrumb(title, url string, active bool) *Context {
	c.Breadcrumbs = append(c.Breadcrumbs, BreadcrumbItem{
		Title:  title,
		URL:    url,
		Active: active,
	})

	return c
}

// IsActive reports whether both section and page match the active ones.
func (c *Context) IsActive(section, page string) bool {
	return c.ActiveSection == section && c.ActivePage == page
}

// IsSectionActive reports whether the section matches the active one.
func (c *Context) IsSectionActive(section string) bool {
	return c.ActiveSection == section
}

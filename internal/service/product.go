package service

import (
	"cmp"
	"slices"
	"strings"

	"apicourse/internal/model"
)

// ProductFilter narrows a catalog listing. Empty fields are ignored.
type ProductFilter struct {
	Name     string
	Category string
	MinPrice *float64
	MaxPrice *float64
	// Categories keeps products in any listed category.
	Categories []string
	// AnyTags keeps products carrying at least one tag.
	AnyTags []string
	// AllTags keeps products carrying every tag.
	AllTags     []string
	ExcludeTags []string
	Statuses    []model.ProductStatus
}

// PageInfo describes one page of a page/size listing.
type PageInfo struct {
	Page        int  `json:"page"`
	Size        int  `json:"size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// Paginate slices items for a 1-based page.
func Paginate[T any](items []T, page, size int) ([]T, PageInfo) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	total := len(items)
	pages := (total + size - 1) / size
	start := min((page-1)*size, total)
	end := min(start+size, total)
	return items[start:end], PageInfo{
		Page:        page,
		Size:        size,
		TotalItems:  total,
		TotalPages:  pages,
		HasNext:     page < pages,
		HasPrevious: page > 1,
	}
}

// ProductCatalog is a fixed, read-only product list.
type ProductCatalog struct {
	products []model.Product
}

// PremiumPrice is the threshold above which a product is premium.
const PremiumPrice = 500

// SalePrice is the threshold below which a product counts as on sale.
const SalePrice = 100

func NewProductCatalog() *ProductCatalog {
	return &ProductCatalog{products: []model.Product{
		{ID: 1, Name: "Laptop", Price: 999.99, Category: "electronics", Tags: []string{"computer", "work"}, Status: model.ProductActive},
		{ID: 2, Name: "Coffee Mug", Price: 15.99, Category: "home", Tags: []string{"kitchen", "ceramic"}, Status: model.ProductActive},
		{ID: 3, Name: "Running Shoes", Price: 89.99, Category: "sports", Tags: []string{"footwear", "running"}, Status: model.ProductInactive},
		{ID: 4, Name: "Smartphone", Price: 699.99, Category: "electronics", Tags: []string{"mobile", "communication"}, Status: model.ProductActive},
		{ID: 5, Name: "Backpack", Price: 49.99, Category: "travel", Tags: []string{"bag", "travel"}, Status: model.ProductPending},
	}}
}

// All returns a copy of every product in id order.
func (c *ProductCatalog) All() []model.Product {
	return slices.Clone(c.products)
}

func (c *ProductCatalog) ByID(id int64) []model.Product {
	out := make([]model.Product, 0, 1)
	for _, p := range c.products {
		if p.ID == id {
			out = append(out, p)
		}
	}
	return out
}

func (c *ProductCatalog) Filter(f ProductFilter) []model.Product {
	name := strings.ToLower(f.Name)
	out := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		switch {
		case name != "" && !strings.Contains(strings.ToLower(p.Name), name):
		case f.Category != "" && p.Category != f.Category:
		case f.MinPrice != nil && p.Price < *f.MinPrice:
		case f.MaxPrice != nil && p.Price > *f.MaxPrice:
		case len(f.Categories) > 0 && !slices.Contains(f.Categories, p.Category):
		case len(f.AnyTags) > 0 && !hasAny(p.Tags, f.AnyTags):
		case len(f.AllTags) > 0 && !hasAll(p.Tags, f.AllTags):
		case len(f.ExcludeTags) > 0 && hasAny(p.Tags, f.ExcludeTags):
		case len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status):
		default:
			out = append(out, p)
		}
	}
	return out
}

// Special applies the toggle filters. Inactive products are hidden unless includeInactive is set.
func (c *ProductCatalog) Special(onSale, includeInactive, premiumOnly bool) []model.Product {
	out := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		if onSale && p.Price >= SalePrice {
			continue
		}
		if !includeInactive && p.Status == model.ProductInactive {
			continue
		}
		if premiumOnly && p.Price <= PremiumPrice {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortProducts orders ps in place by id, name or price. Unknown fields sort by id.
func SortProducts(ps []model.Product, by string, desc bool) {
	slices.SortStableFunc(ps, func(a, b model.Product) int {
		var r int
		switch by {
		case "name":
			r = cmp.Compare(a.Name, b.Name)
		case "price":
			r = cmp.Compare(a.Price, b.Price)
		default:
			r = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -r
		}
		return r
	})
}

func hasAny(have, want []string) bool {
	return slices.ContainsFunc(want, func(t string) bool { return slices.Contains(have, t) })
}

func hasAll(have, want []string) bool {
	for _, t := range want {
		if !slices.Contains(have, t) {
			return false
		}
	}
	return true
}

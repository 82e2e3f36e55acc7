package handler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/apperr"
	"apicourse/internal/model"
	"apicourse/internal/service"
	"apicourse/internal/validate"
)

var priceRangeRe = regexp.MustCompile(`^\d+(-\d+)?$`)

type skipLimitQuery struct {
	Skip  int `query:"skip" validate:"gte=0"`
	Limit int `query:"limit" validate:"gte=0"`
}

type productSearchQuery struct {
	Q        *string  `query:"q"`
	Category *string  `query:"category"`
	MinPrice *float64 `query:"min_price"`
	MaxPrice *float64 `query:"max_price"`
}

type paginatedQuery struct {
	Page   int    `query:"page" validate:"gte=1"`
	Size   int    `query:"size" validate:"gte=1,lte=100"`
	SortBy string `query:"sort_by" validate:"oneof=id name price"`
	Order  string `query:"order" validate:"oneof=asc desc"`
}

type specialQuery struct {
	OnSale          bool `query:"on_sale"`
	IncludeInactive bool `query:"include_inactive"`
	PremiumOnly     bool `query:"premium_only"`
}

type salesQuery struct {
	StartDate   string `query:"start_date" validate:"omitempty,isodate"`
	EndDate     string `query:"end_date" validate:"omitempty,isodate"`
	Granularity string `query:"granularity" validate:"oneof=hour day week month"`
}

type advancedSearchQuery struct {
	Query      string `query:"query" validate:"required"`
	PriceRange string `query:"price_range"`
}

type complexFilterQuery struct {
	Name       string   `query:"name" validate:"omitempty,min=2"`
	Category   string   `query:"category"`
	MinPrice   *float64 `query:"min_price" validate:"omitempty,gte=0"`
	MaxPrice   *float64 `query:"max_price" validate:"omitempty,gte=0"`
	SortBy     string   `query:"sort_by" validate:"oneof=id name price"`
	SortOrder  string   `query:"sort_order" validate:"oneof=asc desc"`
	Page       int      `query:"page" validate:"gte=1"`
	PageSize   int      `query:"page_size" validate:"gte=1,lte=50"`
	ActiveOnly bool     `query:"active_only"`
}

// ProductRoutes exposes the read-only catalog through query parameter driven listings.
type ProductRoutes struct {
	catalog *service.ProductCatalog
}

func NewProductRoutes(catalog *service.ProductCatalog) *ProductRoutes {
	return &ProductRoutes{catalog: catalog}
}

func registerQueries(r fiber.Router, _ *Deps) error {
	h := NewProductRoutes(service.NewProductCatalog())
	r.Get("/items", h.Items)
	r.Get("/search", h.Search)
	r.Get("/products/paginated", h.Paginated)
	r.Get("/products/filter", h.Filter)
	r.Get("/products/special", h.Special)
	r.Get("/products/search-advanced", h.AdvancedSearch)
	r.Get("/products/complex-filter", h.ComplexFilter)
	r.Get("/analytics/sales", SalesAnalytics)
	return nil
}

func (h *ProductRoutes) Items(c *fiber.Ctx) error {
	q := skipLimitQuery{Limit: 10}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	all := h.catalog.All()
	start := min(q.Skip, len(all))
	end := min(start+q.Limit, len(all))
	items := all[start:end]
	return c.JSON(fiber.Map{
		"items": items,
		"pagination": fiber.Map{
			"skip":     q.Skip,
			"limit":    q.Limit,
			"total":    len(all),
			"returned": len(items),
		},
	})
}

func (h *ProductRoutes) Search(c *fiber.Ctx) error {
	var q productSearchQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	f := service.ProductFilter{MinPrice: q.MinPrice, MaxPrice: q.MaxPrice}
	applied := make([]string, 0, 4)
	if q.Q != nil {
		f.Name = *q.Q
		applied = append(applied, fmt.Sprintf("name contains '%s'", *q.Q))
	}
	if q.Category != nil {
		f.Category = *q.Category
		applied = append(applied, fmt.Sprintf("category = '%s'", *q.Category))
	}
	if q.MinPrice != nil {
		applied = append(applied, fmt.Sprintf("price >= %g", *q.MinPrice))
	}
	if q.MaxPrice != nil {
		applied = append(applied, fmt.Sprintf("price <= %g", *q.MaxPrice))
	}
	results := h.catalog.Filter(f)
	return c.JSON(fiber.Map{
		"results":         results,
		"count":           len(results),
		"filters_applied": applied,
		"query_parameters": fiber.Map{
			"q":         q.Q,
			"category":  q.Category,
			"min_price": q.MinPrice,
			"max_price": q.MaxPrice,
		},
	})
}

func (h *ProductRoutes) Paginated(c *fiber.Ctx) error {
	q := paginatedQuery{Page: 1, Size: 10, SortBy: "id", Order: "asc"}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	products := h.catalog.All()
	service.SortProducts(products, q.SortBy, q.Order == "desc")
	page, info := service.Paginate(products, q.Page, q.Size)
	return c.JSON(fiber.Map{
		"products":   page,
		"pagination": info,
		"sorting":    fiber.Map{"sort_by": q.SortBy, "order": q.Order},
	})
}

// Filter accepts repeated tags, categories and statuses parameters. Statuses default to active.
func (h *ProductRoutes) Filter(c *fiber.Ctx) error {
	tags := queryMulti(c, "tags")
	categories := queryMulti(c, "categories")
	statuses := queryMulti(c, "statuses")
	if len(statuses) == 0 {
		statuses = []string{string(model.ProductActive)}
	}
	if err := validate.Var("statuses", statuses, "dive,oneof=active inactive pending"); err != nil {
		return fail(c, err)
	}
	want := make([]model.ProductStatus, 0, len(statuses))
	for _, s := range statuses {
		want = append(want, model.ProductStatus(s))
	}
	products := h.catalog.Filter(service.ProductFilter{
		Categories: categories,
		AnyTags:    tags,
		Statuses:   want,
	})
	return c.JSON(fiber.Map{
		"products": products,
		"count":    len(products),
		"filters": fiber.Map{
			"tags":       tags,
			"categories": categories,
			"statuses":   statuses,
		},
	})
}

func (h *ProductRoutes) Special(c *fiber.Ctx) error {
	var q specialQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	products := h.catalog.Special(q.OnSale, q.IncludeInactive, q.PremiumOnly)
	return c.JSON(fiber.Map{
		"products": products,
		"count":    len(products),
		"filters": fiber.Map{
			"on_sale":          q.OnSale,
			"include_inactive": q.IncludeInactive,
			"premium_only":     q.PremiumOnly,
		},
	})
}

// AdvancedSearch matches a numeric query against ids and anything else against names.
func (h *ProductRoutes) AdvancedSearch(c *fiber.Ctx) error {
	var q advancedSearchQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	if q.PriceRange != "" && !priceRangeRe.MatchString(q.PriceRange) {
		return fail(c, apperr.Validation(apperr.Detail{
			Field: "price_range", Message: "must be N or N-M", Code: "pattern", Value: q.PriceRange,
		}))
	}

	var (
		results    []model.Product
		searchType string
		query      any
	)
	if id, err := strconv.ParseInt(q.Query, 10, 64); err == nil {
		results, searchType, query = h.catalog.ByID(id), "ID", id
	} else {
		results, searchType, query = h.catalog.Filter(service.ProductFilter{Name: q.Query}), "name", q.Query
	}

	var priceFilter any
	if q.PriceRange != "" {
		lo, hi, ranged := strings.Cut(q.PriceRange, "-")
		minPrice, _ := strconv.ParseFloat(lo, 64)
		kept := results[:0:0]
		if ranged {
			maxPrice, _ := strconv.ParseFloat(hi, 64)
			for _, p := range results {
				if p.Price >= minPrice && p.Price <= maxPrice {
					kept = append(kept, p)
				}
			}
			priceFilter = fmt.Sprintf("%g-%g", minPrice, maxPrice)
		} else {
			for _, p := range results {
				if p.Price >= minPrice {
					kept = append(kept, p)
				}
			}
			priceFilter = fmt.Sprintf(">=%g", minPrice)
		}
		results = kept
	}
	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
		"search_info": fiber.Map{
			"query":        query,
			"search_type":  searchType,
			"price_filter": priceFilter,
		},
	})
}

func (h *ProductRoutes) ComplexFilter(c *fiber.Ctx) error {
	q := complexFilterQuery{SortBy: "id", SortOrder: "asc", Page: 1, PageSize: 10, ActiveOnly: true}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return fail(c, apperr.BadRequest("INVALID_PRICE_RANGE", "min_price cannot be greater than max_price"))
	}
	f := service.ProductFilter{
		Name:        q.Name,
		Category:    q.Category,
		MinPrice:    q.MinPrice,
		MaxPrice:    q.MaxPrice,
		AllTags:     queryMulti(c, "tags"),
		ExcludeTags: queryMulti(c, "exclude_tags"),
	}
	applied := make([]string, 0)
	if f.Name != "" {
		applied = append(applied, fmt.Sprintf("name contains '%s'", f.Name))
	}
	if f.Category != "" {
		applied = append(applied, fmt.Sprintf("category = '%s'", f.Category))
	}
	if f.MinPrice != nil {
		applied = append(applied, fmt.Sprintf("price >= %g", *f.MinPrice))
	}
	if f.MaxPrice != nil {
		applied = append(applied, fmt.Sprintf("price <= %g", *f.MaxPrice))
	}
	if len(f.AllTags) > 0 {
		applied = append(applied, "includes tags: "+strings.Join(f.AllTags, ", "))
	}
	if len(f.ExcludeTags) > 0 {
		applied = append(applied, "excludes tags: "+strings.Join(f.ExcludeTags, ", "))
	}
	if q.ActiveOnly {
		f.Statuses = []model.ProductStatus{model.ProductActive}
		applied = append(applied, "status = active")
	}

	products := h.catalog.Filter(f)
	service.SortProducts(products, q.SortBy, q.SortOrder == "desc")
	page, info := service.Paginate(products, q.Page, q.PageSize)
	return c.JSON(fiber.Map{
		"products": page,
		"metadata": fiber.Map{
			"total_items":     info.TotalItems,
			"page":            info.Page,
			"page_size":       info.Size,
			"total_pages":     info.TotalPages,
			"applied_filters": applied,
			"sorting":         fiber.Map{"field": q.SortBy, "order": q.SortOrder},
		},
	})
}

// SalesAnalytics returns fixed figures for a validated date window.
func SalesAnalytics(c *fiber.Ctx) error {
	q := salesQuery{Granularity: "day"}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	if q.StartDate != "" && q.EndDate != "" {
		start, _ := time.Parse(time.DateOnly, q.StartDate)
		end, _ := time.Parse(time.DateOnly, q.EndDate)
		if start.After(end) {
			return fail(c, apperr.BadRequest("INVALID_DATE_RANGE", "start_date must be before or equal to end_date"))
		}
	}
	return c.JSON(fiber.Map{
		"period": fiber.Map{
			"start_date":  nilIfEmpty(q.StartDate),
			"end_date":    nilIfEmpty(q.EndDate),
			"granularity": q.Granularity,
		},
		"metrics": fiber.Map{
			"total_sales":         15420.50,
			"orders_count":        147,
			"average_order_value": 104.90,
		},
		"note": "mock data",
	})
}

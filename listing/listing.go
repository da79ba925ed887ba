// Package listing implements restaurant search, filtering, sorting and
// pagination.
package listing

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"quickbite-api/apperr"
	"quickbite-api/models"

	"gorm.io/gorm"
)

type Sort string

const (
	SortNewest Sort = "newest"
	SortRating Sort = "rating"
	SortName   Sort = "name"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

type Query struct {
	Search    string
	Cuisine   string
	MinRating *float64
	Sort      Sort
	Page      int
	Limit     int
}

type Result struct {
	Restaurants []models.Restaurant `json:"restaurants"`
	Page        int                 `json:"page"`
	Pages       int                 `json:"pages"`
	Total       int64               `json:"total"`
}

// ParseQuery reads search, cuisine, minRating, sortBy, page and limit.
// limit is capped at maxLimit.
func ParseQuery(values url.Values, maxLimit int) (Query, error) {
	q := Query{
		Search:  strings.TrimSpace(values.Get("search")),
		Cuisine: strings.TrimSpace(values.Get("cuisine")),
		Sort:    parseSort(values.Get("sortBy")),
		Page:    DefaultPage,
		Limit:   DefaultLimit,
	}

	if raw := values.Get("minRating"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(r) {
			return Query{}, apperr.Validation("minRating must be a number")
		}
		q.MinRating = &r
	}

	var err error
	if q.Page, err = parsePositive(values.Get("page"), "page", DefaultPage); err != nil {
		return Query{}, err
	}
	if q.Limit, err = parsePositive(values.Get("limit"), "limit", DefaultLimit); err != nil {
		return Query{}, err
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Page > math.MaxInt/q.Limit {
		return Query{}, apperr.Validation("page is out of range")
	}
	return q, nil
}

func parseSort(s string) Sort {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case SortRating:
		return SortRating
	case SortName:
		return SortName
	default:
		return SortNewest
	}
}

func parsePositive(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	if n < 1 {
		return def, nil
	}
	return n, nil
}

// Key is a stable representation of the query, used as a cache key suffix.
func (q Query) Key() string {
	rating := "-"
	if q.MinRating != nil {
		rating = strconv.FormatFloat(*q.MinRating, 'f', -1, 64)
	}
	return fmt.Sprintf("s=%s|c=%s|r=%s|o=%s|p=%d|l=%d",
		strings.ToLower(q.Search), strings.ToLower(q.Cuisine), rating, q.Sort, q.Page, q.Limit)
}

// likeEscaper quotes LIKE wildcards for use with ESCAPE '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func contains(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// Scope applies the filters without ordering or pagination.
func (q Query) Scope(db *gorm.DB) *gorm.DB {
	if q.Search != "" {
		db = db.Where("LOWER(name) LIKE ? ESCAPE '!'", contains(q.Search))
	}
	if q.Cuisine != "" {
		db = db.Where("LOWER(cuisine) LIKE ? ESCAPE '!'", contains(q.Cuisine))
	}
	if q.MinRating != nil {
		db = db.Where("rating >= ?", *q.MinRating)
	}
	return db
}

func (q Query) orderBy() string {
	switch q.Sort {
	case SortRating:
		return "rating DESC, created_at DESC"
	case SortName:
		return "name ASC, id ASC"
	default:
		return "created_at DESC, id ASC"
	}
}

func (q Query) offset() int {
	return (q.Page - 1) * q.Limit
}

func Run(ctx context.Context, db *gorm.DB, q Query) (*Result, error) {
	base := db.WithContext(ctx).Model(&models.Restaurant{}).Scopes(q.Scope)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, apperr.Internal(err, "failed to count restaurants")
	}

	restaurants := []models.Restaurant{}
	if err := base.Session(&gorm.Session{}).
		Order(q.orderBy()).
		Offset(q.offset()).
		Limit(q.Limit).
		Find(&restaurants).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list restaurants")
	}

	return &Result{
		Restaurants: restaurants,
		Page:        q.Page,
		Pages:       int(math.Ceil(float64(total) / float64(q.Limit))),
		Total:       total,
	}, nil
}

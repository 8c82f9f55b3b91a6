// Package query builds Mongo read operations out of raw list-endpoint
// query strings: filtering, sorting, searching, field selection and
// pagination, composed in a fixed order.
package query

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPage  = 1
	DefaultLimit = 5
)

// reserved params drive the query shape and are never treated as filters.
var reserved = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
	"search": {},
}

// operatorToken matches comparison tokens as whole words only, so a
// value like "gateway" is never rewritten.
var operatorToken = regexp.MustCompile(`\b(get|gt|let|lt)\b`)

var operators = map[string]string{
	"get": "$gte",
	"gt":  "$gt",
	"let": "$lte",
	"lt":  "$lt",
}

// bracketKey matches "price[get]" style comparison parameters.
var bracketKey = regexp.MustCompile(`^(\w+)\[(\w+)\]$`)

// Pagination is the descriptor returned alongside every list page.
// Pages is the integer division count/limit; Next and Prev are omitted
// when there is no further or no previous page.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
	Pages       int `json:"pages"`
	Next        int `json:"next,omitempty"`
	Prev        int `json:"prev,omitempty"`
}

// Features accumulates a filter and find options from the raw query
// parameters. Stages must run in the order Paginate, Search, Filter,
// Sort, SelectFields; Compose does that.
type Features struct {
	params     url.Values
	filter     bson.M
	opts       *options.FindOptions
	pagination Pagination
}

func New(params url.Values, base bson.M) *Features {
	f := &Features{
		params: params,
		filter: bson.M{},
		opts:   options.Find(),
	}
	for key, value := range base {
		f.filter[key] = value
	}
	return f
}

// Paginate computes skip/limit from page and limit and fills the
// pagination descriptor. total must be the caller's pre-computed
// CountDocuments result for the same base filter.
func (f *Features) Paginate(total int64) *Features {
	page := positiveIntParam(f.params, "page", DefaultPage)
	limit := positiveIntParam(f.params, "limit", DefaultLimit)
	skip := (page - 1) * limit

	f.pagination = Pagination{
		CurrentPage: page,
		Limit:       limit,
		Pages:       int(total) / limit,
	}
	if int64(page*limit) < total {
		f.pagination.Next = page + 1
	}
	if skip > 0 {
		f.pagination.Prev = page - 1
	}

	f.opts.SetSkip(int64(skip)).SetLimit(int64(limit))
	return f
}

// Search adds a case-insensitive substring match over the entity's text
// fields, ORed together. Defaults to title and description.
func (f *Features) Search(fields ...string) *Features {
	term := strings.TrimSpace(lastValue(f.params, "search"))
	if term == "" {
		return f
	}
	if len(fields) == 0 {
		fields = []string{"title", "description"}
	}

	or := make([]bson.M, 0, len(fields))
	for _, field := range fields {
		or = append(or, bson.M{field: bson.M{"$regex": term, "$options": "i"}})
	}
	f.filter["$or"] = or
	return f
}

// Filter turns every non-reserved parameter into an equality or
// comparison condition. Comparison operators arrive either as bracket
// keys ("price[get]=100") or as tokens inside the serialized filter;
// both are rewritten to Mongo operators with a whole-word match.
func (f *Features) Filter() *Features {
	plain := map[string]any{}
	for key := range f.params {
		if _, ok := reserved[key]; ok {
			continue
		}
		value := coerce(lastValue(f.params, key))
		if m := bracketKey.FindStringSubmatch(key); m != nil {
			nested, _ := plain[m[1]].(map[string]any)
			if nested == nil {
				nested = map[string]any{}
			}
			nested[m[2]] = value
			plain[m[1]] = nested
			continue
		}
		plain[key] = value
	}
	if len(plain) == 0 {
		return f
	}

	raw, err := json.Marshal(plain)
	if err != nil {
		return f
	}
	rewritten := operatorToken.ReplaceAllStringFunc(string(raw), func(tok string) string {
		return operators[tok]
	})

	parsed := bson.M{}
	if err := json.Unmarshal([]byte(rewritten), &parsed); err != nil {
		return f
	}
	for key, value := range parsed {
		f.filter[key] = value
	}
	return f
}

// Sort orders by the comma-separated sort parameter, "-" prefix meaning
// descending. Without a sort parameter, newest first.
func (f *Features) Sort() *Features {
	raw := strings.TrimSpace(lastValue(f.params, "sort"))
	if raw == "" {
		f.opts.SetSort(bson.D{{Key: "createdAt", Value: -1}})
		return f
	}

	sort := bson.D{}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		direction := 1
		if strings.HasPrefix(field, "-") {
			direction = -1
			field = strings.TrimPrefix(field, "-")
		}
		sort = append(sort, bson.E{Key: field, Value: direction})
	}
	if len(sort) > 0 {
		f.opts.SetSort(sort)
	}
	return f
}

// SelectFields restricts the projection to the comma-separated fields
// parameter; by default only the internal revision field is excluded.
func (f *Features) SelectFields() *Features {
	raw := strings.TrimSpace(lastValue(f.params, "fields"))
	if raw == "" {
		f.opts.SetProjection(bson.M{"version": 0})
		return f
	}

	projection := bson.M{}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		projection[field] = 1
	}
	if len(projection) > 0 {
		f.opts.SetProjection(projection)
	}
	return f
}

// Compose runs all stages in their required order and returns the final
// filter, find options and pagination descriptor.
func (f *Features) Compose(total int64, searchFields ...string) (bson.M, *options.FindOptions, Pagination) {
	f.Paginate(total).Search(searchFields...).Filter().Sort().SelectFields()
	return f.filter, f.opts, f.pagination
}

// lastValue mirrors the parameter-pollution policy of picking the last
// occurrence of a repeated parameter.
func lastValue(params url.Values, key string) string {
	values := params[key]
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

func positiveIntParam(params url.Values, key string, fallback int) int {
	raw := strings.TrimSpace(lastValue(params, key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

// coerce casts numeric and boolean looking values so comparisons match
// the numeric fields they target; query strings carry everything as text.
func coerce(value string) any {
	if number, err := strconv.ParseFloat(value, 64); err == nil {
		return number
	}
	if value == "true" || value == "false" {
		return value == "true"
	}
	return value
}

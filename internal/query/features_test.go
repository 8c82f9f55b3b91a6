package query

import (
	"net/url"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestPaginationMath(t *testing.T) {
	params := url.Values{}
	params.Set("page", "3")
	params.Set("limit", "5")

	f := New(params, nil).Paginate(23)

	if got := *f.opts.Skip; got != 10 {
		t.Fatalf("expected skip=10, got %d", got)
	}
	if got := *f.opts.Limit; got != 5 {
		t.Fatalf("expected limit=5, got %d", got)
	}
	if f.pagination.Pages != 4 {
		t.Fatalf("expected pages=4, got %d", f.pagination.Pages)
	}
	if f.pagination.Next != 4 {
		t.Fatalf("expected next=4, got %d", f.pagination.Next)
	}
	if f.pagination.Prev != 2 {
		t.Fatalf("expected prev=2, got %d", f.pagination.Prev)
	}
}

func TestPaginationDefaultsAndEdges(t *testing.T) {
	f := New(url.Values{}, nil).Paginate(3)

	if f.pagination.CurrentPage != DefaultPage || f.pagination.Limit != DefaultLimit {
		t.Fatalf("expected defaults page=1 limit=5, got %+v", f.pagination)
	}
	if f.pagination.Prev != 0 {
		t.Fatalf("expected no prev on first page, got %d", f.pagination.Prev)
	}
	if f.pagination.Next != 0 {
		t.Fatalf("expected no next when page covers all documents, got %d", f.pagination.Next)
	}
}

func TestPaginationLastPageHasNoNext(t *testing.T) {
	params := url.Values{}
	params.Set("page", "5")
	params.Set("limit", "5")

	f := New(params, nil).Paginate(23)

	if f.pagination.Next != 0 {
		t.Fatalf("expected no next on last page, got %d", f.pagination.Next)
	}
	if f.pagination.Prev != 4 {
		t.Fatalf("expected prev=4, got %d", f.pagination.Prev)
	}
}

func TestFilterRewritesComparisonOperators(t *testing.T) {
	params := url.Values{}
	params.Set("price[get]", "100")
	params.Set("sold[lt]", "20")
	params.Set("ratingsAverage[let]", "4.5")

	f := New(params, nil).Filter()

	price, ok := f.filter["price"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested price filter, got %#v", f.filter["price"])
	}
	if got := price["$gte"]; got != float64(100) {
		t.Fatalf("expected price $gte 100, got %#v", got)
	}

	sold := f.filter["sold"].(map[string]any)
	if got := sold["$lt"]; got != float64(20) {
		t.Fatalf("expected sold $lt 20, got %#v", got)
	}

	rating := f.filter["ratingsAverage"].(map[string]any)
	if got := rating["$lte"]; got != 4.5 {
		t.Fatalf("expected ratingsAverage $lte 4.5, got %#v", got)
	}
}

func TestFilterDoesNotRewriteSubstrings(t *testing.T) {
	params := url.Values{}
	params.Set("title", "gateway")
	params.Set("brand", "flight")

	f := New(params, nil).Filter()

	if got := f.filter["title"]; got != "gateway" {
		t.Fatalf("expected title untouched, got %#v", got)
	}
	if got := f.filter["brand"]; got != "flight" {
		t.Fatalf("expected brand untouched, got %#v", got)
	}
}

func TestFilterSkipsReservedParamsAndKeepsBase(t *testing.T) {
	params := url.Values{}
	params.Set("page", "2")
	params.Set("sort", "price")
	params.Set("limit", "10")
	params.Set("fields", "title")
	params.Set("search", "shirt")
	params.Set("color", "red")

	f := New(params, bson.M{"product": "abc"}).Filter()

	if len(f.filter) != 2 {
		t.Fatalf("expected only base filter plus color, got %#v", f.filter)
	}
	if f.filter["product"] != "abc" || f.filter["color"] != "red" {
		t.Fatalf("unexpected filter %#v", f.filter)
	}
}

func TestFilterPicksLastRepeatedParam(t *testing.T) {
	params := url.Values{}
	params.Add("color", "red")
	params.Add("color", "blue")

	f := New(params, nil).Filter()

	if got := f.filter["color"]; got != "blue" {
		t.Fatalf("expected last value to win, got %#v", got)
	}
}

func TestSortParsing(t *testing.T) {
	params := url.Values{}
	params.Set("sort", "price,-sold")

	f := New(params, nil).Sort()

	sort, ok := f.opts.Sort.(bson.D)
	if !ok {
		t.Fatalf("expected bson.D sort, got %#v", f.opts.Sort)
	}
	if len(sort) != 2 || sort[0].Key != "price" || sort[0].Value != 1 || sort[1].Key != "sold" || sort[1].Value != -1 {
		t.Fatalf("unexpected sort %#v", sort)
	}
}

func TestSortDefaultsToNewestFirst(t *testing.T) {
	f := New(url.Values{}, nil).Sort()

	sort := f.opts.Sort.(bson.D)
	if len(sort) != 1 || sort[0].Key != "createdAt" || sort[0].Value != -1 {
		t.Fatalf("expected createdAt desc default, got %#v", sort)
	}
}

func TestSelectFields(t *testing.T) {
	params := url.Values{}
	params.Set("fields", "title, price")

	f := New(params, nil).SelectFields()

	projection := f.opts.Projection.(bson.M)
	if projection["title"] != 1 || projection["price"] != 1 || len(projection) != 2 {
		t.Fatalf("unexpected projection %#v", projection)
	}
}

func TestSelectFieldsDefaultHidesRevision(t *testing.T) {
	f := New(url.Values{}, nil).SelectFields()

	projection := f.opts.Projection.(bson.M)
	if projection["version"] != 0 || len(projection) != 1 {
		t.Fatalf("expected only version excluded, got %#v", projection)
	}
}

func TestSearchBuildsCaseInsensitiveOr(t *testing.T) {
	params := url.Values{}
	params.Set("search", "shirt")

	f := New(params, nil).Search()

	or, ok := f.filter["$or"].([]bson.M)
	if !ok || len(or) != 2 {
		t.Fatalf("expected two $or branches, got %#v", f.filter["$or"])
	}
	title := or[0]["title"].(bson.M)
	if title["$regex"] != "shirt" || title["$options"] != "i" {
		t.Fatalf("unexpected title branch %#v", title)
	}
	if _, ok := or[1]["description"]; !ok {
		t.Fatalf("expected description branch, got %#v", or[1])
	}
}

func TestSearchCustomFields(t *testing.T) {
	params := url.Values{}
	params.Set("search", "ref-1")

	f := New(params, nil).Search("reference")

	or := f.filter["$or"].([]bson.M)
	if len(or) != 1 {
		t.Fatalf("expected one branch, got %#v", or)
	}
	if _, ok := or[0]["reference"]; !ok {
		t.Fatalf("expected reference branch, got %#v", or[0])
	}
}

func TestComposeRunsAllStages(t *testing.T) {
	params := url.Values{}
	params.Set("page", "2")
	params.Set("limit", "3")
	params.Set("search", "wool")
	params.Set("price[gt]", "10")
	params.Set("sort", "-price")
	params.Set("fields", "title,price")

	filter, opts, pagination := New(params, bson.M{"brand": "b1"}).Compose(10)

	if pagination.CurrentPage != 2 || pagination.Pages != 3 || pagination.Next != 3 || pagination.Prev != 1 {
		t.Fatalf("unexpected pagination %+v", pagination)
	}
	if *opts.Skip != 3 || *opts.Limit != 3 {
		t.Fatalf("unexpected skip/limit %d/%d", *opts.Skip, *opts.Limit)
	}
	if filter["brand"] != "b1" {
		t.Fatalf("base filter lost: %#v", filter)
	}
	if _, ok := filter["$or"]; !ok {
		t.Fatalf("search missing: %#v", filter)
	}
	price := filter["price"].(map[string]any)
	if price["$gt"] != float64(10) {
		t.Fatalf("comparison missing: %#v", price)
	}
}

package crud

import (
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storeapi/internal/apperrors"
	"storeapi/internal/models"
	"storeapi/internal/query"
)

func TestToDocumentStampsTimestampsAndDropsEmptyID(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	doc, err := ToDocument(models.Brand{Name: "Acme"}, now)
	if err != nil {
		t.Fatalf("ToDocument returned error: %v", err)
	}

	if _, ok := doc["_id"]; ok {
		t.Fatalf("expected zero _id to be dropped, got %#v", doc["_id"])
	}
	if doc["createdAt"] != now || doc["updatedAt"] != now {
		t.Fatalf("expected timestamps stamped, got %#v", doc)
	}
	if doc["name"] != "Acme" {
		t.Fatalf("expected name preserved, got %#v", doc["name"])
	}
}

func TestToDocumentKeepsExistingID(t *testing.T) {
	id := primitive.NewObjectID()
	doc, err := ToDocument(models.Brand{ID: id, Name: "Acme"}, time.Now())
	if err != nil {
		t.Fatalf("ToDocument returned error: %v", err)
	}
	if doc["_id"] != id {
		t.Fatalf("expected _id kept, got %#v", doc["_id"])
	}
}

func TestComposeListShortCircuitsOnEmptyCollection(t *testing.T) {
	params := url.Values{}
	params.Set("page", "2")
	params.Set("search", "shirt")

	filter, opts, pagination, ok := composeList(params, bson.M{"user": "u1"}, 0)
	if ok {
		t.Fatal("expected zero count to short-circuit the list")
	}
	if filter != nil || opts != nil {
		t.Fatalf("expected no query composed, got filter=%#v opts=%#v", filter, opts)
	}
	if pagination != (query.Pagination{}) {
		t.Fatalf("expected empty pagination, got %+v", pagination)
	}
}

func TestComposeListBuildsQueryWhenDocumentsExist(t *testing.T) {
	params := url.Values{}
	params.Set("limit", "5")
	params.Set("page", "2")

	filter, opts, pagination, ok := composeList(params, bson.M{"user": "u1"}, 23)
	if !ok {
		t.Fatal("expected a composed query for a non-empty collection")
	}
	if filter["user"] != "u1" {
		t.Fatalf("base filter lost: %#v", filter)
	}
	if *opts.Skip != 5 || *opts.Limit != 5 {
		t.Fatalf("unexpected skip/limit %d/%d", *opts.Skip, *opts.Limit)
	}
	if pagination.CurrentPage != 2 || pagination.Pages != 4 {
		t.Fatalf("unexpected pagination %+v", pagination)
	}
}

func TestIDFilterRejectsMalformedID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: "not-an-objectid"}}

	h := New[models.Brand](nil)
	if _, err := h.idFilter(c); err == nil {
		t.Fatal("expected error for malformed id")
	} else if apperrors.From(err).Code != 400 {
		t.Fatalf("expected 400, got %d", apperrors.From(err).Code)
	}
}

func TestIDFilterBuildsIDMatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := primitive.NewObjectID()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: id.Hex()}}

	h := New[models.Brand](nil)
	filter, err := h.idFilter(c)
	if err != nil {
		t.Fatalf("idFilter returned error: %v", err)
	}
	if filter["_id"] != id {
		t.Fatalf("expected _id filter, got %#v", filter)
	}
}

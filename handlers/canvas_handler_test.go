package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkFlowAPI/internal/store"
	"linkFlowAPI/internal/types/item"
	"linkFlowAPI/internal/types/profile"
	"linkFlowAPI/middleware"
	"linkFlowAPI/services"
)

type fakeResolver struct {
	email string
}

func (r fakeResolver) Resolve(_ context.Context, _ string) (*services.Identity, error) {
	return &services.Identity{Email: r.email, FirstName: "Test", LastName: "User"}, nil
}

type canvasFixture struct {
	store         *store.MemoryStore
	canvasService *services.CanvasService
	handler       *CanvasHandler
}

func newCanvasFixture(t *testing.T) *canvasFixture {
	t.Helper()

	ms := store.NewMemoryStore()
	userService := services.NewUserService(ms, fakeResolver{email: "test@example.com"})
	canvasService := services.NewCanvasService(ms)

	_, err := userService.ClaimUsername(context.Background(), "user_test", "testuser")
	require.NoError(t, err)

	return &canvasFixture{
		store:         ms,
		canvasService: canvasService,
		handler:       NewCanvasHandler(canvasService, userService),
	}
}

// authedRequest simulates a request that passed the auth middleware.
func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, "user_test")
	return req.WithContext(ctx)
}

type mutationResponse struct {
	Item    item.Item `json:"item"`
	Version int64     `json:"version"`
}

func TestAddTextItem(t *testing.T) {
	f := newCanvasFixture(t)

	body := []byte(`{"content":"hi","font":"Arial","color":"#fff","backgroundColor":"#000","fontSize":16}`)
	rr := httptest.NewRecorder()
	f.handler.AddTextItem(rr, authedRequest(http.MethodPost, "/api/v1/canvas/items/text", body))

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp mutationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, item.ItemTypeText, resp.Item.Type)
	assert.Equal(t, item.Size{Width: 200, Height: 32}, resp.Item.Size)
	assert.Equal(t, item.Position{X: 20, Y: 20}, resp.Item.Position)
	assert.Equal(t, int64(1), resp.Version)

	items, _, err := f.canvasService.Load(context.Background(), "testuser")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "hi", items[0].Content)
}

func TestAddTextItem_EmptyContent(t *testing.T) {
	f := newCanvasFixture(t)

	rr := httptest.NewRecorder()
	f.handler.AddTextItem(rr, authedRequest(http.MethodPost, "/api/v1/canvas/items/text", []byte(`{"content":""}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	items, _, err := f.canvasService.Load(context.Background(), "testuser")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAddTextItem_GradientBackground(t *testing.T) {
	f := newCanvasFixture(t)

	body := []byte(`{"content":"hi","gradientStart":"#A78BFA","gradientEnd":"#8B5CF6","fontSize":16}`)
	rr := httptest.NewRecorder()
	f.handler.AddTextItem(rr, authedRequest(http.MethodPost, "/api/v1/canvas/items/text", body))

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp mutationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "linear-gradient(to right, #A78BFA, #8B5CF6)", resp.Item.BackgroundColor)
}

func TestAddLinkItem_RequiresMetadata(t *testing.T) {
	f := newCanvasFixture(t)

	// No metadata resolved: add-link stays unavailable.
	rr := httptest.NewRecorder()
	f.handler.AddLinkItem(rr, authedRequest(http.MethodPost, "/api/v1/canvas/items/link", []byte(`{"url":"https://example.com"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	items, _, err := f.canvasService.Load(context.Background(), "testuser")
	require.NoError(t, err)
	assert.Empty(t, items)

	// With metadata the link commits.
	body := []byte(`{"url":"https://example.com","backgroundColor":"#fff","metadata":{"title":"Example","description":"d","image":"https://example.com/og.png"}}`)
	rr = httptest.NewRecorder()
	f.handler.AddLinkItem(rr, authedRequest(http.MethodPost, "/api/v1/canvas/items/link", body))
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp mutationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, item.Size{Width: 320, Height: 180}, resp.Item.Size)
	require.NotNil(t, resp.Item.Metadata)
	assert.Equal(t, "Example", resp.Item.Metadata.Title)
}

func TestMoveItem(t *testing.T) {
	f := newCanvasFixture(t)

	it, err := item.NewTextItem("hi", "Arial", "#fff", "#000", 16)
	require.NoError(t, err)
	added, _, err := f.canvasService.AppendItem(context.Background(), "testuser", it, services.NoBaseVersion)
	require.NoError(t, err)

	persistsBefore := f.store.UpdateCalls

	req := authedRequest(http.MethodPut, "/api/v1/canvas/items/"+added.ID+"/position", []byte(`{"x":100,"y":150}`))
	req = mux.SetURLVars(req, map[string]string{"itemID": added.ID})
	rr := httptest.NewRecorder()
	f.handler.MoveItem(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, f.store.UpdateCalls-persistsBefore)

	items, _, err := f.canvasService.Load(context.Background(), "testuser")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.Position{X: 100, Y: 150}, items[0].Position)
}

func TestResizeItem_UnknownID(t *testing.T) {
	f := newCanvasFixture(t)

	req := authedRequest(http.MethodPut, "/api/v1/canvas/items/ghost/size", []byte(`{"deltaWidth":10,"deltaHeight":10}`))
	req = mux.SetURLVars(req, map[string]string{"itemID": "ghost"})
	rr := httptest.NewRecorder()
	f.handler.ResizeItem(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteItem_StaleIDIsNoOp(t *testing.T) {
	f := newCanvasFixture(t)

	it, err := item.NewTextItem("hi", "", "", "", 16)
	require.NoError(t, err)
	added, _, err := f.canvasService.AppendItem(context.Background(), "testuser", it, services.NoBaseVersion)
	require.NoError(t, err)

	deleteOnce := func() int {
		req := authedRequest(http.MethodDelete, "/api/v1/canvas/items/"+added.ID, nil)
		req = mux.SetURLVars(req, map[string]string{"itemID": added.ID})
		rr := httptest.NewRecorder()
		f.handler.DeleteItem(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, deleteOnce())
	assert.Equal(t, http.StatusOK, deleteOnce())

	items, _, err := f.canvasService.Load(context.Background(), "testuser")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMutation_StaleVersionConflict(t *testing.T) {
	f := newCanvasFixture(t)

	it, err := item.NewTextItem("hi", "", "", "", 16)
	require.NoError(t, err)
	added, version, err := f.canvasService.AppendItem(context.Background(), "testuser", it, services.NoBaseVersion)
	require.NoError(t, err)

	// Another session already moved the item.
	_, _, err = f.canvasService.MoveItem(context.Background(), "testuser", added.ID, 5, 5, services.NoBaseVersion)
	require.NoError(t, err)

	body, err := json.Marshal(profile.MoveItemRequest{X: 999, Y: 999, BaseVersion: &version})
	require.NoError(t, err)

	req := authedRequest(http.MethodPut, "/api/v1/canvas/items/"+added.ID+"/position", body)
	req = mux.SetURLVars(req, map[string]string{"itemID": added.ID})
	rr := httptest.NewRecorder()
	f.handler.MoveItem(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestGetCanvas_Unauthenticated(t *testing.T) {
	f := newCanvasFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/canvas", nil)
	rr := httptest.NewRecorder()
	f.handler.GetCanvas(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetCanvas(t *testing.T) {
	f := newCanvasFixture(t)

	rr := httptest.NewRecorder()
	f.handler.GetCanvas(rr, authedRequest(http.MethodGet, "/api/v1/canvas", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp profile.CanvasResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
	assert.Equal(t, int64(0), resp.Version)
}

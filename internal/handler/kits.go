package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"openkits-api/internal/item"
	"openkits-api/internal/model"
	"openkits-api/internal/service"
	"openkits-api/pkg/apierror"
	"openkits-api/pkg/response"
	"openkits-api/pkg/uid"

	"github.com/go-chi/chi/v5"
)

// KitHandler handles kit-related HTTP requests.
type KitHandler struct {
	kitService *service.KitService
}

// NewKitHandler creates a new kit handler.
func NewKitHandler(kitService *service.KitService) *KitHandler {
	return &KitHandler{
		kitService: kitService,
	}
}

// kitView is the wire representation of a kit, with the item payload decoded.
type kitView struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Icon              string       `json:"icon"`
	Price             float64      `json:"price"`
	RequirePermission bool         `json:"require_permission"`
	Permission        string       `json:"permission"`
	Cooldown          int64        `json:"cooldown"`
	IsOneTime         bool         `json:"one_time"`
	Enable            bool         `json:"enable"`
	Items             []item.Stack `json:"items"`
	DroppedItems      int          `json:"dropped_items,omitempty"`
}

func toKitView(kit *model.Kit) kitView {
	items, dropped := kit.ItemList()
	if items == nil {
		items = []item.Stack{}
	}
	return kitView{
		ID:                kit.ID,
		Name:              kit.Name,
		Icon:              kit.Icon,
		Price:             kit.Price,
		RequirePermission: kit.RequirePermission,
		Permission:        kit.Permission,
		Cooldown:          kit.Cooldown,
		IsOneTime:         kit.IsOneTime,
		Enable:            kit.Enable,
		Items:             items,
		DroppedItems:      dropped,
	}
}

// createKitRequest is the body of POST /api/v1/kits.
type createKitRequest struct {
	Name              string       `json:"name"`
	Icon              string       `json:"icon"`
	Price             float64      `json:"price"`
	RequirePermission bool         `json:"require_permission"`
	Permission        string       `json:"permission"`
	Cooldown          int64        `json:"cooldown"`
	IsOneTime         bool         `json:"one_time"`
	Enable            bool         `json:"enable"`
	Items             []item.Stack `json:"items"`
}

// CreateKit handles POST /api/v1/kits
func (h *KitHandler) CreateKit(w http.ResponseWriter, r *http.Request) {
	var req createKitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	if req.Name == "" {
		response.Error(w, apierror.ValidationError("validation failed",
			apierror.FieldError{Field: "name", Message: "name is required"}))
		return
	}

	id := h.kitService.CreateKit(r.Context(), req.Name, req.Icon, req.Price,
		req.RequirePermission, req.Permission, req.Cooldown, req.IsOneTime, req.Enable, req.Items)
	if id == 0 {
		response.Error(w, apierror.ServiceUnavailable("kit system temporarily unavailable"))
		return
	}

	response.Created(w, map[string]interface{}{"id": id})
}

// ListKits handles GET /api/v1/kits
func (h *KitHandler) ListKits(w http.ResponseWriter, r *http.Request) {
	kits := h.kitService.ListKits(r.Context())

	views := make([]kitView, 0, len(kits))
	for i := range kits {
		views = append(views, toKitView(&kits[i]))
	}
	response.OK(w, views)
}

// FindKitByName handles GET /api/v1/kits/find?name=
func (h *KitHandler) FindKitByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		response.Error(w, apierror.BadRequest("name query parameter is required"))
		return
	}

	kit := h.kitService.FindKitByName(r.Context(), name)
	if kit == nil {
		response.Error(w, apierror.NotFound("kit not found"))
		return
	}

	response.OK(w, toKitView(kit))
}

// GetKit handles GET /api/v1/kits/{kit_id}
func (h *KitHandler) GetKit(w http.ResponseWriter, r *http.Request) {
	id, ok := kitID(w, r)
	if !ok {
		return
	}

	kit := h.kitService.FindKit(r.Context(), id)
	if kit == nil {
		response.Error(w, apierror.NotFound("kit not found"))
		return
	}

	response.OK(w, toKitView(kit))
}

// DeleteKit handles DELETE /api/v1/kits/{kit_id}
func (h *KitHandler) DeleteKit(w http.ResponseWriter, r *http.Request) {
	id, ok := kitID(w, r)
	if !ok {
		return
	}

	if !h.kitService.RemoveKit(r.Context(), id) {
		response.Error(w, apierror.ServiceUnavailable("kit system temporarily unavailable"))
		return
	}

	response.NoContent(w)
}

// updateKitRequest carries the updatable kit fields; only the field matching
// the route is read.
type updateKitRequest struct {
	Name              *string       `json:"name"`
	Icon              *string       `json:"icon"`
	Price             *float64      `json:"price"`
	RequirePermission *bool         `json:"require_permission"`
	Permission        *string       `json:"permission"`
	Cooldown          *int64        `json:"cooldown"`
	IsOneTime         *bool         `json:"one_time"`
	Enable            *bool         `json:"enable"`
	Items             *[]item.Stack `json:"items"`
}

func decodeUpdate(w http.ResponseWriter, r *http.Request) (*updateKitRequest, bool) {
	var req updateKitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return nil, false
	}
	defer r.Body.Close()
	return &req, true
}

func (h *KitHandler) finishUpdate(w http.ResponseWriter, ok bool) {
	if !ok {
		response.Error(w, apierror.ServiceUnavailable("kit system temporarily unavailable"))
		return
	}
	response.OK(w, map[string]interface{}{"updated": true})
}

// UpdateKitName handles PATCH /api/v1/kits/{kit_id}/name
func (h *KitHandler) UpdateKitName(w http.ResponseWriter, r *http.Request) {
	id, ok := kitID(w, r)
	if !ok {
		return
	}
	req, ok := decodeUpdate(w, r)
	if !ok {
		return
	}
	if req.Name == nil || *req.Name == "" {
		response.Error(w, apierror.BadRequest("name is required"))
		return
	}
	h.finishUpdate(w, h.kitService.UpdateKitName(r.Context(), id, *req.Name))
}

// UpdateKitPermission handles PATCH /api/v1/kits/{kit_id}/permission
func (h *KitHandler) UpdateKitPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := kitID(w, r)
	if !ok {
		return
	}
	req, ok := decodeUpdate(w, r)
	if !ok {
		return
	}
	if req.RequirePermission == nil || req.Permission == nil {
		response.Error(w, apierror.BadRequest("require_permission and permission are required"))
		return
	}
	h.finishUpdate(w, h.kitService.UpdateKitPermission(r.Context(), id, *req.RequirePermission, *req.Permission))
}

// UpdateKitItems handles PATCH /api/v1/kits/{kit_id}/items
func (h *KitHandler) UpdateKitItems(w http.ResponseWriter, r *http.Request) {
	id, ok := kitID(w, r)
	if !ok {
		return
	}
	req, ok := decodeUpdate(w, r)
	if !ok {
		return
	}
	if req.Items == nil {
		response.Error(w, apierror.BadRequest("items is required"))
		return
	}
	h.finishUpdate(w, h.kitService.UpdateKitItems(r.Context(), id, *req.Items))
}

// UpdateKitPrice handles PATCH /api/v1/kits/{kit_id}/price
func (h *KitHandler) UpdateKitPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := kitID(w, r)
	if !ok {
		return
	}
	req, ok := decodeUpdate(w, r)
	if !ok {
		return
	}
	if req.Price == nil {
		response.Error(w, apierror.BadRequest("price is required"))
		return
	}
	h.finishUpdate(w, h.kitService.UpdateKitPrice(r.Context(), id, *req.Price))
}

// UpdateKitCooldown handles PATCH /api/v1/kits/{kit_id}/cooldown
func (h *KitHandler) UpdateKitCooldown(w http.ResponseWriter, r *http.Request) {
	id, ok := kitID(w, r)
	if !ok {
		return
	}
	req, ok := decodeUpdate(w, r)
	if !ok {
		return
	}
	if req.Cooldown == nil {
		response.Error(w, apierror.BadRequest("cooldown is required"))
		return
	}
	h.finishUpdate(w, h.kitService.UpdateKitCooldown(r.Context(), id, *req.Cooldown))
}

// UpdateKitEnabled handles PATCH /api/v1/kits/{kit_id}/enable
func (h *KitHandler) UpdateKitEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := kitID(w, r)
	if !ok {
		return
	}
	req, ok := decodeUpdate(w, r)
	if !ok {
		return
	}
	if req.Enable == nil {
		response.Error(w, apierror.BadRequest("enable is required"))
		return
	}
	h.finishUpdate(w, h.kitService.UpdateKitEnabled(r.Context(), id, *req.Enable))
}

// UpdateKitIcon handles PATCH /api/v1/kits/{kit_id}/icon
func (h *KitHandler) UpdateKitIcon(w http.ResponseWriter, r *http.Request) {
	id, ok := kitID(w, r)
	if !ok {
		return
	}
	req, ok := decodeUpdate(w, r)
	if !ok {
		return
	}
	if req.Icon == nil {
		response.Error(w, apierror.BadRequest("icon is required"))
		return
	}
	h.finishUpdate(w, h.kitService.UpdateKitIcon(r.Context(), id, *req.Icon))
}

// UpdateKitOneTime handles PATCH /api/v1/kits/{kit_id}/one-time
func (h *KitHandler) UpdateKitOneTime(w http.ResponseWriter, r *http.Request) {
	id, ok := kitID(w, r)
	if !ok {
		return
	}
	req, ok := decodeUpdate(w, r)
	if !ok {
		return
	}
	if req.IsOneTime == nil {
		response.Error(w, apierror.BadRequest("one_time is required"))
		return
	}
	h.finishUpdate(w, h.kitService.UpdateKitOneTime(r.Context(), id, *req.IsOneTime))
}

// claimRequest is the body of POST /api/v1/kits/{kit_id}/claim.
type claimRequest struct {
	PlayerID      string   `json:"player_id"`
	HasPermission bool     `json:"has_permission"`
	Balance       float64  `json:"balance"`
	Permissions   []string `json:"permissions"`
}

// itemCollector gathers delivered stacks for the response body.
type itemCollector struct {
	items []item.Stack
}

func (c *itemCollector) Receive(stack item.Stack) error {
	c.items = append(c.items, stack)
	return nil
}

// ClaimKit handles POST /api/v1/kits/{kit_id}/claim
func (h *KitHandler) ClaimKit(w http.ResponseWriter, r *http.Request) {
	id, ok := kitID(w, r)
	if !ok {
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	playerID, err := uid.Parse(req.PlayerID)
	if err != nil {
		response.Error(w, apierror.BadRequest("player_id must be a valid UUID"))
		return
	}

	kit := h.kitService.FindKit(r.Context(), id)
	if kit == nil {
		response.Error(w, apierror.NotFound("kit not found"))
		return
	}

	hasPermission := func(node string) bool {
		if req.HasPermission {
			return true
		}
		for _, p := range req.Permissions {
			if p == node {
				return true
			}
		}
		return false
	}

	collector := &itemCollector{}
	decision := h.kitService.ClaimKit(r.Context(), kit, playerID, hasPermission, req.Balance, collector)

	if decision != service.ClaimAllowed {
		response.Error(w, apierror.Forbidden(string(decision)))
		return
	}

	items := collector.items
	if items == nil {
		items = []item.Stack{}
	}
	response.OK(w, map[string]interface{}{
		"claimed": true,
		"kit_id":  kit.ID,
		"items":   items,
	})
}

// kitID parses the kit_id route parameter.
func kitID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "kit_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, apierror.BadRequest("kit_id must be a positive integer"))
		return 0, false
	}
	return id, true
}

package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"openkits-api/internal/model"
	"openkits-api/internal/service"
	"openkits-api/pkg/apierror"
	"openkits-api/pkg/response"
	"openkits-api/pkg/uid"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CooldownHandler handles cooldown ledger HTTP requests.
type CooldownHandler struct {
	kitService *service.KitService
}

// NewCooldownHandler creates a new cooldown handler.
func NewCooldownHandler(kitService *service.KitService) *CooldownHandler {
	return &CooldownHandler{
		kitService: kitService,
	}
}

// cooldownView is the wire representation of a cooldown row.
type cooldownView struct {
	PlayerID string    `json:"player_id"`
	KitID    int64     `json:"kit_id"`
	End      time.Time `json:"end"`
	Active   bool      `json:"active"`
}

func toCooldownView(c *model.KitCooldown) cooldownView {
	return cooldownView{
		PlayerID: c.PlayerID.String(),
		KitID:    c.KitID,
		End:      c.End,
		Active:   c.ActiveAt(time.Now()),
	}
}

// ListCooldowns handles GET /api/v1/players/{player_id}/cooldowns
func (h *CooldownHandler) ListCooldowns(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerID(w, r)
	if !ok {
		return
	}

	cooldowns := h.kitService.ListCooldowns(r.Context(), playerID)

	views := make([]cooldownView, 0, len(cooldowns))
	for i := range cooldowns {
		views = append(views, toCooldownView(&cooldowns[i]))
	}
	response.OK(w, views)
}

// GetCooldown handles GET /api/v1/players/{player_id}/cooldowns/{kit_id}
func (h *CooldownHandler) GetCooldown(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerID(w, r)
	if !ok {
		return
	}
	kitID, ok := kitID(w, r)
	if !ok {
		return
	}

	cooldown := h.kitService.FindCooldown(r.Context(), playerID, kitID)
	if cooldown == nil {
		response.Error(w, apierror.NotFound("cooldown not found"))
		return
	}

	response.OK(w, toCooldownView(cooldown))
}

// setCooldownRequest is the body of POST and PUT cooldown endpoints.
type setCooldownRequest struct {
	KitID int64     `json:"kit_id"`
	End   time.Time `json:"end"`
}

// AddCooldown handles POST /api/v1/players/{player_id}/cooldowns
func (h *CooldownHandler) AddCooldown(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerID(w, r)
	if !ok {
		return
	}

	var req setCooldownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	if req.KitID <= 0 {
		response.Error(w, apierror.BadRequest("kit_id must be a positive integer"))
		return
	}
	if req.End.IsZero() {
		response.Error(w, apierror.BadRequest("end is required"))
		return
	}

	if !h.kitService.AddCooldown(r.Context(), playerID, req.KitID, req.End) {
		response.Error(w, apierror.ServiceUnavailable("kit system temporarily unavailable"))
		return
	}

	response.Created(w, map[string]interface{}{"recorded": true})
}

// UpdateCooldown handles PUT /api/v1/players/{player_id}/cooldowns/{kit_id}
func (h *CooldownHandler) UpdateCooldown(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerID(w, r)
	if !ok {
		return
	}
	kitID, ok := kitID(w, r)
	if !ok {
		return
	}

	var req setCooldownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	if req.End.IsZero() {
		response.Error(w, apierror.BadRequest("end is required"))
		return
	}

	if !h.kitService.UpdateCooldown(r.Context(), playerID, kitID, req.End) {
		response.Error(w, apierror.ServiceUnavailable("kit system temporarily unavailable"))
		return
	}

	response.OK(w, map[string]interface{}{"updated": true})
}

// DeleteCooldown handles DELETE /api/v1/players/{player_id}/cooldowns/{kit_id}
func (h *CooldownHandler) DeleteCooldown(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerID(w, r)
	if !ok {
		return
	}
	kitID, ok := kitID(w, r)
	if !ok {
		return
	}

	if !h.kitService.RemoveCooldown(r.Context(), playerID, kitID) {
		response.Error(w, apierror.ServiceUnavailable("kit system temporarily unavailable"))
		return
	}

	response.NoContent(w)
}

// DeleteCooldowns handles DELETE /api/v1/players/{player_id}/cooldowns
func (h *CooldownHandler) DeleteCooldowns(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerID(w, r)
	if !ok {
		return
	}

	if !h.kitService.RemoveCooldownsForPlayer(r.Context(), playerID) {
		response.Error(w, apierror.ServiceUnavailable("kit system temporarily unavailable"))
		return
	}

	response.NoContent(w)
}

// DeleteKitCooldowns handles DELETE /api/v1/kits/{kit_id}/cooldowns
func (h *CooldownHandler) DeleteKitCooldowns(w http.ResponseWriter, r *http.Request) {
	kitID, ok := kitID(w, r)
	if !ok {
		return
	}

	if !h.kitService.RemoveCooldownsForKit(r.Context(), kitID) {
		response.Error(w, apierror.ServiceUnavailable("kit system temporarily unavailable"))
		return
	}

	response.NoContent(w)
}

// playerID parses the player_id route parameter.
func playerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "player_id")
	id, err := uid.Parse(raw)
	if err != nil {
		response.Error(w, apierror.BadRequest("player_id must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

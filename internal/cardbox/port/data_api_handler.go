package port

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cardbox-io/cardbox/internal/cardbox/app"
	"github.com/cardbox-io/cardbox/internal/domain"
)

// DataAPIHandler serves the data-api endpoint: the row-scoped gateway
// plus profile and PIN operations, all dispatched on an action string in
// the request body.
type DataAPIHandler struct {
	data   *app.DataService
	logger *slog.Logger
}

// NewDataAPIHandler creates the handler for the data-api endpoint.
func NewDataAPIHandler(data *app.DataService, logger *slog.Logger) *DataAPIHandler {
	return &DataAPIHandler{data: data, logger: logger}
}

type dataAPIRequest struct {
	Action       string         `json:"action"`
	Table        string         `json:"table"`
	SessionToken string         `json:"sessionToken"`
	ID           string         `json:"id"`
	Data         map[string]any `json:"data"`
	SortBy       string         `json:"sortBy"`
}

type successBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (h *DataAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	var req dataAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, h.logger, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	ctx := r.Context()

	// Token failures take precedence over everything else, including an
	// unknown action.
	if _, err := h.data.Authenticate(ctx, req.SessionToken); err != nil {
		writeError(w, h.logger, err)
		return
	}

	switch req.Action {
	case "list":
		items, err := h.data.ListItems(ctx, req.SessionToken, req.Table, req.SortBy)
		h.respond(w, items, err)

	case "get":
		item, err := h.data.GetItem(ctx, req.SessionToken, req.Table, req.ID)
		h.respond(w, item, err)

	case "create":
		item, err := h.data.CreateItem(ctx, req.SessionToken, req.Table, req.Data)
		h.respond(w, item, err)

	case "update":
		item, err := h.data.UpdateItem(ctx, req.SessionToken, req.Table, req.ID, req.Data)
		h.respond(w, item, err)

	case "delete":
		err := h.data.DeleteItem(ctx, req.SessionToken, req.Table, req.ID)
		h.respond(w, successBody{Success: true}, err)

	case "getProfile":
		profile, err := h.data.GetProfile(ctx, req.SessionToken)
		h.respond(w, profile, err)

	case "updateProfile":
		fullName, _ := req.Data["full_name"].(string)
		email, _ := req.Data["email"].(string)
		profile, err := h.data.UpdateProfile(ctx, req.SessionToken, fullName, email)
		h.respond(w, profile, err)

	case "setPin":
		pin, _ := req.Data["pin"].(string)
		err := h.data.SetPin(ctx, req.SessionToken, pin)
		h.respond(w, successBody{Success: true}, err)

	case "verifyPin":
		pin, _ := req.Data["pin"].(string)
		valid, err := h.data.VerifyPin(ctx, req.SessionToken, pin)
		if errors.Is(err, domain.ErrNoPinSet) {
			// A missing PIN is a business outcome, not a request failure.
			writeJSON(w, h.logger, http.StatusOK, successBody{Success: false, Error: "No PIN set"})
			return
		}
		h.respond(w, successBody{Success: valid}, err)

	case "clearPin":
		err := h.data.ClearPin(ctx, req.SessionToken)
		h.respond(w, successBody{Success: true}, err)

	default:
		writeError(w, h.logger, domain.ErrInvalidAction)
	}
}

func (h *DataAPIHandler) respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if items, ok := body.([]app.Item); ok && items == nil {
		body = []app.Item{} // empty listings encode as [], not null
	}
	writeJSON(w, h.logger, http.StatusOK, body)
}

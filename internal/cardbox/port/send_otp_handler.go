package port

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cardbox-io/cardbox/internal/cardbox/app"
	"github.com/cardbox-io/cardbox/internal/domain"
)

// Actions accepted by the send-otp endpoint. An absent action issues a
// fresh login code.
const (
	actionVerify          = "verify"
	actionRequestPinReset = "requestPinReset"
	actionVerifyPinReset  = "verifyPinReset"
)

// SendOTPHandler serves the send-otp endpoint: OTP issuance and
// verification for both login and PIN reset.
type SendOTPHandler struct {
	auth   *app.AuthService
	logger *slog.Logger
}

// NewSendOTPHandler creates the handler for the send-otp endpoint.
func NewSendOTPHandler(auth *app.AuthService, logger *slog.Logger) *SendOTPHandler {
	return &SendOTPHandler{auth: auth, logger: logger}
}

type sendOTPRequest struct {
	Phone   string `json:"phone"`
	Action  string `json:"action"`
	UserOTP string `json:"userOtp"`
}

type sendOTPResponse struct {
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	Message      string    `json:"message,omitempty"`
	User         *userView `json:"user,omitempty"`
	SessionToken string    `json:"sessionToken,omitempty"`
}

// userView is the client-facing user shape returned on login. The PIN
// digest is deliberately absent.
type userView struct {
	ID        string `json:"id"`
	Phone     string `json:"phone"`
	FullName  string `json:"full_name,omitempty"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (h *SendOTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, h.logger, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	if req.Phone == "" {
		writeJSON(w, h.logger, http.StatusBadRequest, errorBody{Error: "Missing phone"})
		return
	}

	ctx := r.Context()

	switch req.Action {
	case "":
		if err := h.auth.IssueOTP(ctx, req.Phone); err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, sendOTPResponse{Success: true})

	case actionVerify:
		result, err := h.auth.VerifyLogin(ctx, req.Phone, req.UserOTP)
		if err != nil {
			h.writeAuthOutcome(w, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, sendOTPResponse{
			Success:      true,
			User:         viewOf(result.User),
			SessionToken: result.SessionToken,
		})

	case actionRequestPinReset:
		if err := h.auth.RequestPinReset(ctx, req.Phone); err != nil {
			h.writeAuthOutcome(w, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, sendOTPResponse{
			Success: true,
			Message: "Reset code sent",
		})

	case actionVerifyPinReset:
		if err := h.auth.VerifyPinReset(ctx, req.Phone, req.UserOTP); err != nil {
			h.writeAuthOutcome(w, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, sendOTPResponse{
			Success: true,
			Message: "PIN cleared",
		})

	default:
		writeError(w, h.logger, domain.ErrInvalidAction)
	}
}

// writeAuthOutcome renders verification failures. Business outcomes (bad
// code, unknown user) are 200 envelopes with success=false — the request
// itself worked, the credential did not. Everything else goes through the
// standard error mapping.
func (h *SendOTPHandler) writeAuthOutcome(w http.ResponseWriter, err error) {
	if msg, ok := softFailureMessage(err); ok {
		writeJSON(w, h.logger, http.StatusOK, sendOTPResponse{Success: false, Error: msg})
		return
	}
	writeError(w, h.logger, err)
}

func softFailureMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrNoOTPFound):
		return "No OTP found", true
	case errors.Is(err, domain.ErrOTPExpired):
		return "OTP expired", true
	case errors.Is(err, domain.ErrInvalidOTP):
		return "Invalid OTP", true
	case errors.Is(err, domain.ErrNotFound):
		return "User not found", true
	}
	return "", false
}

func viewOf(user app.UserRecord) *userView {
	return &userView{
		ID:        user.UserID,
		Phone:     user.Phone,
		FullName:  user.FullName,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

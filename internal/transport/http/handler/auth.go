package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

// magicLinker is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type magicLinker interface {
	RequestLink(ctx context.Context, in usecase.RequestLinkInput) (string, error)
	ConsumeLink(ctx context.Context, raw string, profile *domain.Profile) (*usecase.ConsumeResult, error)
}

type sessionManager interface {
	IssueSession(ctx context.Context, user *domain.User, device domain.DeviceMeta) (*usecase.Session, error)
	IssueAccessToken(user *domain.User) (string, error)
	RotateRefreshToken(ctx context.Context, raw string) (string, *domain.User, error)
	Revoke(ctx context.Context, raw string) error
}

type cartMerger interface {
	Merge(ctx context.Context, userID string, mode domain.MergeMode, items []domain.MergeItem) (*usecase.MergeResult, error)
}

type AuthHandler struct {
	links    magicLinker
	sessions sessionManager
	carts    cartMerger
	logger   *slog.Logger
}

func NewAuthHandler(links magicLinker, sessions sessionManager, carts cartMerger, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		links:    links,
		sessions: sessions,
		carts:    carts,
		logger:   logger.With("component", "auth_handler"),
	}
}

type magicLinkRequest struct {
	Email        string          `json:"email"        binding:"required,email"`
	FlowContext  json.RawMessage `json:"flowContext"`
	CartSnapshot json.RawMessage `json:"cartSnapshot"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// POST /auth/magic/request
// Always returns 200 so callers cannot tell known, unknown and throttled
// addresses apart.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req magicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	_, err := h.links.RequestLink(c.Request.Context(), usecase.RequestLinkInput{
		Email:        req.Email,
		FlowContext:  rawOrNil(req.FlowContext),
		CartSnapshot: rawOrNil(req.CartSnapshot),
		ClientIP:     c.ClientIP(),
	})
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "request magic link", "error", err)
	}

	c.JSON(http.StatusOK, okResponse{OK: true})
}

type profileRequest struct {
	Name  string `json:"name"  binding:"required,max=200"`
	Phone string `json:"phone" binding:"required,max=32"`
}

type mergeItemRequest struct {
	VariantID string `json:"variantId" binding:"required"`
	Qty       int    `json:"qty"       binding:"min=1"`
}

type mergeCartRequest struct {
	Mode  string             `json:"mode"  binding:"required"`
	Items []mergeItemRequest `json:"items" binding:"dive"`
}

func (r *mergeCartRequest) items() []domain.MergeItem {
	out := make([]domain.MergeItem, len(r.Items))
	for i, it := range r.Items {
		out[i] = domain.MergeItem{VariantID: it.VariantID, Qty: it.Qty}
	}
	return out
}

type consumeRequest struct {
	Token     string            `json:"token" binding:"required"`
	Profile   *profileRequest   `json:"profile"`
	MergeCart *mergeCartRequest `json:"mergeCart"`
}

type consumeResponse struct {
	AccessToken   string             `json:"accessToken"`
	RefreshToken  string             `json:"refreshToken"`
	User          userView           `json:"user"`
	FlowContext   json.RawMessage    `json:"flowContext,omitempty"`
	Cart          *cartView          `json:"cart,omitempty"`
	MergeWarnings []mergeWarningView `json:"mergeWarnings,omitempty"`
}

type profileRequiredResponse struct {
	Error       errorBody       `json:"error"`
	FlowContext json.RawMessage `json:"flowContext"`
}

// POST /auth/magic/consume
func (h *AuthHandler) ConsumeMagicLink(c *gin.Context) {
	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	// Checked before consuming so a bad mode does not burn the token.
	var mode domain.MergeMode
	if req.MergeCart != nil {
		m, err := domain.ParseMergeMode(req.MergeCart.Mode)
		if err != nil {
			respondError(c, http.StatusBadRequest, codeInvalidMergeMode, "Invalid merge mode", nil)
			return
		}
		mode = m
	}

	var profile *domain.Profile
	if req.Profile != nil {
		profile = &domain.Profile{Name: req.Profile.Name, Phone: req.Profile.Phone}
	}

	ctx := c.Request.Context()
	res, err := h.links.ConsumeLink(ctx, req.Token, profile)
	if err != nil {
		var pr *domain.ProfileRequiredError
		switch {
		case errors.As(err, &pr):
			c.AbortWithStatusJSON(http.StatusConflict, profileRequiredResponse{
				Error: errorBody{
					Code:    codeProfileRequired,
					Message: "Please complete profile to finish signup",
					Details: map[string]any{"requiredFields": domain.ProfileFields},
				},
				FlowContext: pr.FlowContext,
			})
		case errors.Is(err, domain.ErrTokenInvalid):
			respondError(c, http.StatusBadRequest, codeInvalidToken, errTokenInvalid, nil)
		default:
			respondDomainError(c, h.logger, "consume magic link", err)
		}
		return
	}

	if !res.User.IsActive {
		respondError(c, http.StatusForbidden, codeUserDisabled, errUserDisabled, nil)
		return
	}

	session, err := h.sessions.IssueSession(ctx, res.User, deviceMeta(c))
	if err != nil {
		respondDomainError(c, h.logger, "issue session", err)
		return
	}

	resp := consumeResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         newUserView(res.User),
		FlowContext:  res.FlowContext,
	}

	if req.MergeCart != nil {
		// The session is already issued; a failed merge leaves the cart as it was.
		merged, err := h.carts.Merge(ctx, res.User.ID, mode, req.MergeCart.items())
		if err != nil {
			h.logger.ErrorContext(ctx, "merge cart on sign-in", "user_id", res.User.ID, "error", err)
		} else {
			cv := newCartView(merged.Cart)
			resp.Cart = &cv
			resp.MergeWarnings = newMergeWarnings(merged.Warnings)
		}
	}

	c.JSON(http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	newRaw, user, err := h.sessions.RotateRefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenInvalid):
			respondError(c, http.StatusUnauthorized, codeInvalidToken, errTokenInvalid, nil)
		default:
			respondDomainError(c, h.logger, "rotate refresh token", err)
		}
		return
	}

	access, err := h.sessions.IssueAccessToken(user)
	if err != nil {
		respondDomainError(c, h.logger, "issue access token", err)
		return
	}

	c.JSON(http.StatusOK, refreshResponse{AccessToken: access, RefreshToken: newRaw})
}

// POST /auth/logout
// Idempotent: unknown or already revoked tokens still return 200.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	if err := h.sessions.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		respondDomainError(c, h.logger, "revoke refresh token", err)
		return
	}

	c.JSON(http.StatusOK, okResponse{OK: true})
}

func deviceMeta(c *gin.Context) domain.DeviceMeta {
	return domain.DeviceMeta{UserAgent: c.Request.UserAgent(), IP: c.ClientIP()}
}

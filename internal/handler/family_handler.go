package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"icesos/familyhub/internal/model"
	"icesos/familyhub/internal/service"
	"icesos/familyhub/pkg/response"
)

type FamilyHandler struct {
	familyService service.FamilyService
}

func NewFamilyHandler(familyService service.FamilyService) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

// ManageRequest is the action-dispatched body of the invite-management
// endpoint. Fields beyond action are required per action, not globally.
type ManageRequest struct {
	Action       string `json:"action" binding:"required"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
	BillingType  string `json:"billing_type"`
	Token        string `json:"token"`
	InviteID     string `json:"invite_id"`
}

// Manage dispatches create / accept / revoke / resend.
func (h *FamilyHandler) Manage(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	var req ManageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	switch req.Action {
	case "create":
		h.create(c, userID, req)
	case "accept":
		h.accept(c, userID, req)
	case "revoke":
		h.revoke(c, userID, req)
	case "resend":
		h.resend(c, userID, req)
	default:
		response.BadRequest(c, "unknown action: "+req.Action)
	}
}

func (h *FamilyHandler) create(c *gin.Context, userID uuid.UUID, req ManageRequest) {
	result, err := h.familyService.CreateInvite(c.Request.Context(), userID, service.CreateInviteInput{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Relationship: req.Relationship,
		BillingType:  model.BillingType(req.BillingType),
	})
	if err != nil {
		writeFamilyError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *FamilyHandler) accept(c *gin.Context, userID uuid.UUID, req ManageRequest) {
	result, err := h.familyService.AcceptInvite(c.Request.Context(), userID, req.Token)
	if err != nil {
		writeFamilyError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *FamilyHandler) revoke(c *gin.Context, userID uuid.UUID, req ManageRequest) {
	inviteID, err := uuid.Parse(req.InviteID)
	if err != nil {
		response.BadRequest(c, "invalid invite_id")
		return
	}
	if err := h.familyService.RevokeInvite(c.Request.Context(), userID, inviteID); err != nil {
		writeFamilyError(c, err)
		return
	}
	response.Success(c, gin.H{"revoked": true})
}

func (h *FamilyHandler) resend(c *gin.Context, userID uuid.UUID, req ManageRequest) {
	inviteID, err := uuid.Parse(req.InviteID)
	if err != nil {
		response.BadRequest(c, "invalid invite_id")
		return
	}
	result, err := h.familyService.ResendInvite(c.Request.Context(), userID, inviteID)
	if err != nil {
		writeFamilyError(c, err)
		return
	}
	response.Success(c, result)
}

// ListInvites returns the caller's pending invites, newest first.
func (h *FamilyHandler) ListInvites(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	invites, err := h.familyService.ListInvites(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "failed to list invites")
		return
	}
	response.Success(c, invites)
}

// ListMembers returns the memberships of the caller's group.
func (h *FamilyHandler) ListMembers(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	members, err := h.familyService.ListMembers(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "failed to list members")
		return
	}
	response.Success(c, members)
}

// writeFamilyError maps workflow errors onto the HTTP status taxonomy:
// 400 validation, 404 missing/expired, 409 conflict, 429 throttle, 500 storage.
func writeFamilyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFieldRequired),
		errors.Is(err, service.ErrInvalidBillingType):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrInviteInvalid),
		errors.Is(err, service.ErrInviteNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrContactLimitReached),
		errors.Is(err, service.ErrMembershipExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrResendThrottled):
		response.TooManyRequests(c, err.Error())
	default:
		response.InternalError(c, "internal error")
	}
}

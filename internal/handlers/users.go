package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"webrecorder/api/internal/middleware"
)

const maxDescriptionBytes = 64 << 10

func (h HandlerSet) TempUserInfo(c *gin.Context) {
	info, err := h.accounts.GetTempUserInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err, errorMessageBody)
		return
	}
	c.JSON(http.StatusOK, newTempUserResponse(info))
}

type userInfoResponse struct {
	User userResponse `json:"user"`
}

func (h HandlerSet) UserInfo(c *gin.Context) {
	includeColls := true
	if raw, ok := c.GetQuery("include_colls"); ok {
		includeColls = parseFlag(raw)
	}

	info, err := h.accounts.GetUserInfo(c.Request.Context(), middleware.SessionFrom(c.Request.Context()), c.Param("name"), includeColls)
	if err != nil {
		abortWithError(c, err, errorMessageBody)
		return
	}
	c.JSON(http.StatusOK, userInfoResponse{User: newUserResponse(info)})
}

// UpdateDescription takes the new description as the raw request body.
func (h HandlerSet) UpdateDescription(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDescriptionBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorMessageResponse{ErrorMessage: "unreadable body"})
		return
	}
	if len(body) > maxDescriptionBytes {
		c.JSON(http.StatusRequestEntityTooLarge, errorMessageResponse{ErrorMessage: "description too long"})
		return
	}

	err = h.accounts.UpdateDescription(c.Request.Context(), middleware.SessionFrom(c.Request.Context()), c.Param("name"), string(body))
	if err != nil {
		abortWithError(c, err, errorMessageBody)
		return
	}
	c.JSON(http.StatusOK, emptyResponse{})
}

type deleteUserResponse struct {
	DeletedUser string `json:"deleted_user"`
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	current := middleware.SessionFrom(c.Request.Context())

	deleted, err := h.accounts.DeleteUser(c.Request.Context(), current, c.Param("name"))
	if err != nil {
		abortWithError(c, err, errorMessageBody)
		return
	}

	if current != nil && current.Username == deleted {
		h.clearSessionCookie(c)
	}
	c.JSON(http.StatusOK, deleteUserResponse{DeletedUser: deleted})
}

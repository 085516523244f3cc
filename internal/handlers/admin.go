package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"webrecorder/api/internal/middleware"
)

type userListResponse struct {
	Users []userResponse `json:"users"`
}

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	perPage := 50
	page := 1

	if v, err := strconv.Atoi(c.Query("perPage")); err == nil && v > 0 && v <= 200 {
		perPage = v
	}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 1 {
		page = v
	}

	users, err := h.accounts.ListUsers(c.Request.Context(), middleware.SessionFrom(c.Request.Context()), page, perPage)
	if err != nil {
		abortWithError(c, err, errorMessageBody)
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, user := range users {
		items = append(items, newUserResponse(user))
	}
	c.JSON(http.StatusOK, userListResponse{Users: items})
}

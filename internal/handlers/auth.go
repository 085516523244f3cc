package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"webrecorder/api/internal/middleware"
	"webrecorder/api/internal/service"
)

type loginRequest struct {
	Username   string   `json:"username" form:"username"`
	Password   string   `json:"password" form:"password"`
	RememberMe formFlag `json:"remember_me" form:"remember_me"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), service.LoginInput{
		Username:   req.Username,
		Password:   req.Password,
		RememberMe: bool(req.RememberMe),
		Current:    middleware.SessionFrom(c.Request.Context()),
	})
	if err != nil {
		abortWithError(c, err, errorBody)
		return
	}

	h.setSessionCookie(c, result)
	c.JSON(http.StatusOK, newAuthInfoResponse(result.Info))
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), middleware.SessionFrom(c.Request.Context())); err != nil {
		abortWithError(c, err, errorBody)
		return
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, messageResponse{Message: "Logged Out"})
}

func (h HandlerSet) LoadAuth(c *gin.Context) {
	result, err := h.accounts.LoadAuth(c.Request.Context(), middleware.SessionFrom(c.Request.Context()))
	if err != nil {
		abortWithError(c, err, errorBody)
		return
	}

	h.setSessionCookie(c, result)
	c.JSON(http.StatusOK, newAuthInfoResponse(result.Info))
}

type updatePasswordRequest struct {
	CurrPass string `json:"currPass" form:"currPass"`
	NewPass  string `json:"newPass" form:"newPass"`
	NewPass2 string `json:"newPass2" form:"newPass2"`
}

func (h HandlerSet) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorMessageResponse{ErrorMessage: err.Error()})
		return
	}

	err := h.accounts.UpdatePassword(c.Request.Context(), middleware.SessionFrom(c.Request.Context()), req.CurrPass, req.NewPass, req.NewPass2)
	if err != nil {
		abortWithError(c, err, errorMessageBody)
		return
	}

	c.JSON(http.StatusOK, emptyResponse{})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"webrecorder/api/internal/middleware"
	"webrecorder/api/internal/service"
)

type registerRequest struct {
	Email           string `json:"email" form:"email"`
	Username        string `json:"username" form:"username"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmpassword" form:"confirmpassword"`
}

type registerResponse struct {
	Success string `json:"success"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, validationBody(err.Error()))
		return
	}

	result, err := h.accounts.RegisterRequest(c.Request.Context(), service.RegisterInput{
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		abortWithError(c, err, validationBody)
		return
	}

	h.setCookie(c, h.cfg.Accounts.ValidationCookie, result.Code, int(h.cfg.Accounts.PendingTTL.Seconds()))
	c.JSON(http.StatusOK, registerResponse{Success: result.Message})
}

type validateRequest struct {
	Reg string `json:"reg" form:"reg"`
}

type validateResponse struct {
	Registered    string `json:"registered"`
	FirstCollName string `json:"first_coll_name"`
}

func (h HandlerSet) ValidateRegistration(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	cookieCode, _ := c.Cookie(h.cfg.Accounts.ValidationCookie)

	result, err := h.accounts.ConfirmRegistration(c.Request.Context(), req.Reg, cookieCode, middleware.SessionFrom(c.Request.Context()))
	if err != nil {
		abortWithError(c, err, errorBody)
		return
	}

	h.setCookie(c, h.cfg.Accounts.ValidationCookie, "", -1)
	h.setSessionCookie(c, result.Auth)
	c.JSON(http.StatusOK, validateResponse{
		Registered:    result.Username,
		FirstCollName: result.FirstCollName,
	})
}

type usernameCheckResponse struct {
	Available bool `json:"available"`
}

func (h HandlerSet) UsernameCheck(c *gin.Context) {
	available, err := h.accounts.CheckUsernameAvailable(c.Request.Context(), c.Query("username"))
	if err != nil {
		abortWithError(c, err, errorBody)
		return
	}
	c.JSON(http.StatusOK, usernameCheckResponse{Available: available})
}

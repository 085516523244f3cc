package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"webrecorder/api/internal/apperr"
	"webrecorder/api/internal/models"
	"webrecorder/api/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

type errorMessageResponse struct {
	ErrorMessage string `json:"error_message"`
}

type validationErrors struct {
	Validation string `json:"validation"`
}

type validationErrorResponse struct {
	Errors validationErrors `json:"errors"`
}

type emptyResponse struct{}

type authInfoResponse struct {
	Username  string  `json:"username"`
	Role      *string `json:"role"`
	Anon      bool    `json:"anon"`
	CollCount int     `json:"coll_count"`
}

type collectionResponse struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	Desc      string    `json:"desc"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type userResponse struct {
	Username         string                  `json:"username"`
	Name             string                  `json:"name"`
	Email            string                  `json:"email"`
	Role             string                  `json:"role"`
	Desc             string                  `json:"desc"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	LastLogin        *time.Time              `json:"last_login"`
	MaxSize          int64                   `json:"max_size"`
	Size             int64                   `json:"size"`
	SpaceUtilization models.SpaceUtilization `json:"space_utilization"`
	Collections      []collectionResponse    `json:"collections,omitempty"`
}

// Timespan is the recorded duration in seconds. It stays 0 since no
// collection content is ingested here.
type tempUserResponse struct {
	ID               string                  `json:"id"`
	Username         string                  `json:"username"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	TTL              int64                   `json:"ttl"`
	MaxSize          int64                   `json:"max_size"`
	Size             int64                   `json:"size"`
	Timespan         int64                   `json:"timespan"`
	SpaceUtilization models.SpaceUtilization `json:"space_utilization"`
}

func newAuthInfoResponse(info service.SessionInfo) authInfoResponse {
	resp := authInfoResponse{
		Username:  info.Username,
		Anon:      info.Anon,
		CollCount: info.CollCount,
	}
	if !info.Anon && info.Role != "" {
		role := string(info.Role)
		resp.Role = &role
	}
	return resp
}

func newUserResponse(info service.UserInfo) userResponse {
	account := info.Account
	resp := userResponse{
		Username:         account.Username,
		Email:            account.Email,
		Role:             string(account.Role),
		Desc:             account.Desc,
		CreatedAt:        account.CreatedAt,
		UpdatedAt:        account.UpdatedAt,
		MaxSize:          account.MaxSize,
		Size:             account.UsedSize,
		SpaceUtilization: info.Space,
	}
	if !account.LastLogin.IsZero() {
		lastLogin := account.LastLogin
		resp.LastLogin = &lastLogin
	}
	if info.Collections != nil {
		resp.Collections = make([]collectionResponse, 0, len(info.Collections))
		for _, coll := range info.Collections {
			resp.Collections = append(resp.Collections, collectionResponse{
				ID:        coll.ID,
				Owner:     coll.Owner,
				Title:     coll.Title,
				Desc:      coll.Desc,
				Size:      coll.Size,
				CreatedAt: coll.CreatedAt,
			})
		}
	}
	return resp
}

func newTempUserResponse(info service.UserInfo) tempUserResponse {
	account := info.Account
	return tempUserResponse{
		ID:               account.Username,
		Username:         account.Username,
		CreatedAt:        account.CreatedAt,
		UpdatedAt:        account.UpdatedAt,
		TTL:              int64(account.TTL / time.Second),
		MaxSize:          account.MaxSize,
		Size:             account.UsedSize,
		SpaceUtilization: info.Space,
	}
}

func statusFor(code string) int {
	switch code {
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// abortWithError renders coded errors through body and everything else as
// a logged 500.
func abortWithError(c *gin.Context, err error, body func(msg string) any) {
	code := apperr.Code(err)
	if code == "" {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal_server_error"})
		return
	}
	c.AbortWithStatusJSON(statusFor(code), body(apperr.Message(err)))
}

func errorBody(msg string) any {
	return errorResponse{Error: msg}
}

func errorMessageBody(msg string) any {
	return errorMessageResponse{ErrorMessage: msg}
}

func validationBody(msg string) any {
	return validationErrorResponse{Errors: validationErrors{Validation: msg}}
}

// formFlag accepts the checkbox spellings browsers and clients send.
type formFlag bool

func parseFlag(s string) bool {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), `"`)) {
	case "1", "on", "true", "yes":
		return true
	default:
		return false
	}
}

func (f *formFlag) UnmarshalParam(param string) error {
	*f = formFlag(parseFlag(param))
	return nil
}

func (f *formFlag) UnmarshalJSON(data []byte) error {
	*f = formFlag(parseFlag(string(data)))
	return nil
}

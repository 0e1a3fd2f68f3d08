package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/api/middleware"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
)

type AuthConfig struct {
	Admin     models.Admin
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration
}

type AuthHandler struct {
	cfg AuthConfig
	log *logrus.Logger
}

func NewAuthHandler(cfg AuthConfig, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, log: log}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	const op = "AuthHandler.Login"

	var req loginRequest
	if !bindJSON(c, op, &req) {
		return
	}

	nameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.Admin.Username)) == 1
	passOK := h.cfg.Admin.PasswordHash != "" && utils.CheckPassword(h.cfg.Admin.PasswordHash, req.Password) == nil
	if !nameOK || !passOK {
		h.log.WithField("ip", c.ClientIP()).Warn("admin login failed")
		writeError(c, utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil))
		return
	}

	tok, exp, err := middleware.IssueToken(h.cfg.JWTSecret, h.cfg.JWTIssuer, h.cfg.Admin.Username, models.RoleAdmin, h.cfg.TokenTTL)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to issue token", err))
		return
	}
	c.JSON(http.StatusOK, loginResponse{AccessToken: tok, ExpiresAt: exp})
}

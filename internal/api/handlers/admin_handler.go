package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/extract"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/utils"
)

// AdminHandler serves the recruiter side: invitations and results.
type AdminHandler struct {
	invitations services.InvitationService
	sessions    services.SessionService
	evaluations services.EvaluationService
}

func NewAdminHandler(inv services.InvitationService, sessions services.SessionService, evals services.EvaluationService) *AdminHandler {
	return &AdminHandler{invitations: inv, sessions: sessions, evaluations: evals}
}

type invitationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	Link    string `json:"link"`
}

// CreateInvitation takes multipart fields file, jd, email and optional num_questions.
func (h *AdminHandler) CreateInvitation(c *gin.Context) {
	const op = "AdminHandler.CreateInvitation"

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "No file uploaded", err))
		return
	}
	if fh.Size > extract.MaxFileSize {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "resume file exceeds 10 MB", nil))
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "failed to read upload", err))
		return
	}

	n := 0
	if v := c.PostForm("num_questions"); v != "" {
		if n, err = strconv.Atoi(v); err != nil || n <= 0 || n > 20 {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "num_questions must be between 1 and 20", nil))
			return
		}
	}

	inv, err := h.invitations.Issue(c.Request.Context(), services.IssueInput{
		FileName:       fh.Filename,
		Data:           data,
		JobDescription: c.PostForm("jd"),
		Email:          c.PostForm("email"),
		NumQuestions:   n,
	})
	if err != nil {
		// the session exists; hand the link back so the admin can retry delivery
		if inv != nil && utils.IsCode(err, utils.CodeUnavailable) {
			c.JSON(http.StatusAccepted, invitationResponse{
				Success: false,
				Message: utils.Message(err, "Failed to send email"),
				Token:   inv.Token,
				Link:    inv.Link,
			})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, invitationResponse{
		Success: true,
		Message: "Invite sent successfully.",
		Token:   inv.Token,
		Link:    inv.Link,
	})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, extract.MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > extract.MaxFileSize {
		return nil, errors.New("upload exceeds limit")
	}
	return data, nil
}

type notificationRequest struct {
	Email string `json:"email"`
	Link  string `json:"link"`
}

func (h *AdminHandler) SendNotification(c *gin.Context) {
	const op = "AdminHandler.SendNotification"

	var req notificationRequest
	if !bindJSON(c, op, &req) {
		return
	}
	if err := h.invitations.Notify(c.Request.Context(), req.Email, req.Link); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) Resend(c *gin.Context) {
	inv, err := h.invitations.Resend(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invitationResponse{Success: true, Message: "Invite sent successfully.", Token: inv.Token, Link: inv.Link})
}

func (h *AdminHandler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("token")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) Analysis(c *gin.Context) {
	out, err := h.evaluations.AnalyzeFit(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": out, "hasJD": true})
}

func (h *AdminHandler) Evaluation(c *gin.Context) {
	rec, err := h.evaluations.Latest(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

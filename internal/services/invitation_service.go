package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/extract"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/notify"
	"github.com/yoockh/yoointerview/internal/repositories"
	"github.com/yoockh/yoointerview/internal/storage"
	"github.com/yoockh/yoointerview/internal/utils"
)

type IssueInput struct {
	FileName       string
	Data           []byte
	JobDescription string
	Email          string
	NumQuestions   int // 0 uses the configured default
}

type Invitation struct {
	Token   string          `json:"token"`
	Link    string          `json:"link"`
	Session *models.Session `json:"-"`
}

type InvitationService interface {
	Issue(ctx context.Context, in IssueInput) (*Invitation, error)
	Resend(ctx context.Context, token string) (*Invitation, error)
	Notify(ctx context.Context, email, link string) error
}

type InvitationDeps struct {
	Sessions    SessionService
	Extractor   *extract.Extractor
	Notifier    notify.Notifier
	Uploader    storage.Uploader                // optional
	ResumeFiles repositories.ResumeFileRepository // optional
	Link        func(token string) string
	Questions   int
}

type invitationService struct {
	d   InvitationDeps
	log *logrus.Logger
}

func NewInvitationService(d InvitationDeps, log *logrus.Logger) InvitationService {
	if d.Questions <= 0 {
		d.Questions = models.DefaultNumQuestions
	}
	return &invitationService{d: d, log: log}
}

func (s *invitationService) Issue(ctx context.Context, in IssueInput) (*Invitation, error) {
	const op = "InvitationService.Issue"

	email := strings.TrimSpace(in.Email)
	if !notify.ValidAddress(email) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "a valid email address is required", nil)
	}

	text, err := s.d.Extractor.Extract(in.FileName, in.Data)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, uploadMessage(err), err)
	}

	ref := &models.ResumeRef{
		FileName: in.FileName,
		MimeType: extract.MimeType(in.FileName),
		Size:     int64(len(in.Data)),
	}
	n := in.NumQuestions
	if n <= 0 {
		n = s.d.Questions
	}

	sess, err := s.d.Sessions.Create(ctx, CreateSessionInput{
		ResumeText:     text,
		JobDescription: strings.TrimSpace(in.JobDescription),
		Email:          email,
		NumQuestions:   n,
		ResumeFile:     ref,
	})
	if err != nil {
		return nil, err
	}
	l := s.log.WithField("token", sess.Token)

	s.archive(ctx, l, sess, in.Data, len(text))

	inv := &Invitation{Token: sess.Token, Link: s.d.Link(sess.Token), Session: sess}
	if err := s.d.Notifier.Send(ctx, email, inv.Link); err != nil {
		l.WithError(err).Error("invitation delivery failed")
		return inv, utils.E(utils.CodeUnavailable, op, "session created but the invitation email could not be sent", err)
	}

	l.WithField("chars", len(text)).Info("invitation issued")
	return inv, nil
}

// archive stores the original upload and its metadata. Both are optional and
// failures never block the invitation.
func (s *invitationService) archive(ctx context.Context, l *logrus.Entry, sess *models.Session, data []byte, chars int) {
	ref := sess.ResumeFile
	var objectName string
	if s.d.Uploader != nil {
		name := storage.ResumeObjectName(sess.Token, ref.FileName, sess.CreatedAt)
		if _, err := s.d.Uploader.Upload(ctx, name, ref.MimeType, bytes.NewReader(data)); err != nil {
			l.WithError(err).Warn("resume archive failed")
		} else {
			objectName = name
		}
	}

	if s.d.ResumeFiles != nil {
		row := &models.ResumeFile{
			ID:         uuid.NewString(),
			Token:      sess.Token,
			FileName:   ref.FileName,
			ObjectName: objectName,
			FileSize:   ref.Size,
			MimeType:   ref.MimeType,
			TextChars:  chars,
			UploadAt:   time.Now().UTC(),
		}
		if err := s.d.ResumeFiles.Insert(ctx, row); err != nil {
			l.WithError(err).Warn("resume metadata insert failed")
		}
	}
}

func (s *invitationService) Resend(ctx context.Context, token string) (*Invitation, error) {
	const op = "InvitationService.Resend"

	sess, err := s.d.Sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess.Email == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session has no email address", nil)
	}

	inv := &Invitation{Token: sess.Token, Link: s.d.Link(sess.Token), Session: sess}
	if err := s.d.Notifier.Send(ctx, sess.Email, inv.Link); err != nil {
		return inv, utils.E(utils.CodeUnavailable, op, "Email failed", err)
	}
	return inv, nil
}

// Notify sends an arbitrary link, used to retry a failed delivery.
func (s *invitationService) Notify(ctx context.Context, email, link string) error {
	const op = "InvitationService.Notify"

	if strings.TrimSpace(email) == "" || strings.TrimSpace(link) == "" {
		return utils.E(utils.CodeInvalidArgument, op, "Missing fields", nil)
	}
	if !notify.ValidAddress(email) {
		return utils.E(utils.CodeInvalidArgument, op, "a valid email address is required", nil)
	}
	if err := s.d.Notifier.Send(ctx, strings.TrimSpace(email), strings.TrimSpace(link)); err != nil {
		return utils.E(utils.CodeUnavailable, op, "Email failed", err)
	}
	return nil
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, extract.ErrUnsupportedType):
		return "only .pdf, .docx and .txt resumes are accepted"
	case errors.Is(err, extract.ErrEmptyFile):
		return "resume file is empty"
	case errors.Is(err, extract.ErrTooLarge):
		return "resume file exceeds 10 MB"
	default:
		return "no readable text found in the resume"
	}
}

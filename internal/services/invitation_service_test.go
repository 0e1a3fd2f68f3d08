package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/yoointerview/internal/extract"
	"github.com/yoockh/yoointerview/internal/utils"
)

type invitationFixture struct {
	svc      InvitationService
	sessions SessionService
	notifier *fakeNotifier
	uploader *fakeUploader
	files    *fakeResumeFiles
}

func newInvitationFixture() *invitationFixture {
	sessions, _ := newSessionService(newMapCache())
	f := &invitationFixture{
		sessions: sessions,
		notifier: &fakeNotifier{},
		uploader: &fakeUploader{},
		files:    &fakeResumeFiles{},
	}
	f.svc = NewInvitationService(InvitationDeps{
		Sessions:    sessions,
		Extractor:   extract.New(nullLogger()),
		Notifier:    f.notifier,
		Uploader:    f.uploader,
		ResumeFiles: f.files,
		Link:        func(tk string) string { return "https://hire.test/interview/" + tk },
		Questions:   4,
	}, nullLogger())
	return f
}

func TestIssueInvitation(t *testing.T) {
	f := newInvitationFixture()
	ctx := context.Background()

	inv, err := f.svc.Issue(ctx, IssueInput{
		FileName:       "jane.txt",
		Data:           []byte("Jane Doe\nGo, Kubernetes, Postgres"),
		JobDescription: "  Platform engineer  ",
		Email:          "jane@example.com",
	})
	require.NoError(t, err)

	assert.True(t, utils.ValidSessionToken(inv.Token))
	assert.Equal(t, "https://hire.test/interview/"+inv.Token, inv.Link)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, sentMail{"jane@example.com", inv.Link}, f.notifier.sent[0])

	sess, err := f.sessions.Get(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo, Kubernetes, Postgres", sess.ResumeText)
	assert.Equal(t, "Platform engineer", sess.JobDescription)
	assert.Equal(t, 4, sess.NumQuestions)
	assert.Equal(t, "text/plain", sess.ResumeFile.MimeType)

	require.Len(t, f.uploader.names, 1)
	assert.True(t, strings.HasSuffix(f.uploader.names[0], inv.Token+"/jane.txt"))
	require.Len(t, f.files.rows, 1)
	assert.Equal(t, f.uploader.names[0], f.files.rows[0].ObjectName)
}

func TestIssueRejectsBadInput(t *testing.T) {
	f := newInvitationFixture()
	ctx := context.Background()

	_, err := f.svc.Issue(ctx, IssueInput{FileName: "cv.txt", Data: []byte("cv text"), Email: "nope"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = f.svc.Issue(ctx, IssueInput{FileName: "cv.exe", Data: []byte("MZ"), Email: "a@b.co"})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	assert.Contains(t, utils.Message(err, ""), ".pdf")

	assert.Empty(t, f.notifier.sent)
}

func TestIssueNotificationFailureKeepsSession(t *testing.T) {
	f := newInvitationFixture()
	f.notifier.err = errors.New("smtp down")
	ctx := context.Background()

	inv, err := f.svc.Issue(ctx, IssueInput{FileName: "cv.txt", Data: []byte("Go developer"), Email: "a@b.co"})
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
	require.NotNil(t, inv)

	_, err = f.sessions.Get(ctx, inv.Token)
	assert.NoError(t, err)

	f.notifier.err = nil
	again, err := f.svc.Resend(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, inv.Link, again.Link)
	assert.Len(t, f.notifier.sent, 1)
}

func TestIssueArchiveFailureIsIgnored(t *testing.T) {
	f := newInvitationFixture()
	f.uploader.err = errors.New("bucket gone")

	_, err := f.svc.Issue(context.Background(), IssueInput{FileName: "cv.txt", Data: []byte("Go developer"), Email: "a@b.co"})
	require.NoError(t, err)
	require.Len(t, f.files.rows, 1)
	assert.Empty(t, f.files.rows[0].ObjectName)
}

func TestNotify(t *testing.T) {
	f := newInvitationFixture()
	ctx := context.Background()

	err := f.svc.Notify(ctx, "", "https://x")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	assert.Equal(t, "Missing fields", utils.Message(err, ""))

	require.NoError(t, f.svc.Notify(ctx, "a@b.co", "https://x/1"))
	assert.Equal(t, []sentMail{{"a@b.co", "https://x/1"}}, f.notifier.sent)

	f.notifier.err = errors.New("down")
	err = f.svc.Notify(ctx, "a@b.co", "https://x/1")
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}

func TestResendUnknownSession(t *testing.T) {
	f := newInvitationFixture()
	_, err := f.svc.Resend(context.Background(), "ffffffffffffffffffffffffffffffff")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

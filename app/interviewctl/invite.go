package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/utils"
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Create a session from a résumé and email the interview link",
	RunE:  runInvite,
}

func init() {
	inviteCmd.Flags().String("resume", "", "résumé file (.pdf, .docx or .txt)")
	inviteCmd.Flags().String("jd", "", "job description text file")
	inviteCmd.Flags().String("email", "", "candidate email address")
	inviteCmd.Flags().Int("questions", 0, "number of questions (default from config)")
	_ = inviteCmd.MarkFlagRequired("resume")
}

func runInvite(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	resume, _ := cmd.Flags().GetString("resume")
	jdFile, _ := cmd.Flags().GetString("jd")
	email, _ := cmd.Flags().GetString("email")
	n, _ := cmd.Flags().GetInt("questions")

	data, err := os.ReadFile(resume)
	if err != nil {
		return fmt.Errorf("read résumé: %w", err)
	}
	var jd string
	if jdFile != "" {
		b, err := os.ReadFile(jdFile)
		if err != nil {
			return fmt.Errorf("read job description: %w", err)
		}
		jd = string(b)
	}
	if email == "" {
		prompt := promptui.Prompt{Label: "Candidate email"}
		if email, err = prompt.Run(); err != nil {
			return err
		}
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	inv, err := a.Invitations.Issue(ctx, services.IssueInput{
		FileName:       filepath.Base(resume),
		Data:           data,
		JobDescription: jd,
		Email:          email,
		NumQuestions:   n,
	})
	if err != nil {
		if inv == nil {
			return err
		}
		a.Log.WithField("token", inv.Token).Warn(utils.Message(err, "email failed"))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "token: %s\nlink:  %s\n", inv.Token, inv.Link)
	return nil
}

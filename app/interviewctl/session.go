package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/yoockh/yoointerview/internal/models"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect interview sessions",
}

var sessionGetCmd = &cobra.Command{
	Use:   "get TOKEN",
	Short: "Print a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.Sessions.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), struct {
			models.SessionView
			Status    models.SessionStatus `json:"status"`
			ExpiresAt string               `json:"expiresAt"`
		}{
			SessionView: sess.View(),
			Status:      sess.Status,
			ExpiresAt:   sess.ExpiresAt.UTC().Format(time.RFC3339),
		})
	},
}

func init() {
	sessionCmd.AddCommand(sessionGetCmd)
}

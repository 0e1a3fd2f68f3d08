package main

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/yoockh/yoointerview/internal/utils"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	RunE: func(cmd *cobra.Command, _ []string) error {
		prompt := promptui.Prompt{
			Label: "Admin password",
			Mask:  '*',
			Validate: func(s string) error {
				if len(s) < 8 {
					return errors.New("at least 8 characters")
				}
				return nil
			},
		}
		pw, err := prompt.Run()
		if err != nil {
			return err
		}
		hash, err := utils.HashPassword(pw)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/jarvishq/jarvis-server/internal/config"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/dbschema"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored data for one user",
	Long: `Deletes the user row and every expense, category, limit rule and
conversation turn attached to it. Conversation contexts held in Redis or
memory expire on their own TTL.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().String("identity", "", "Channel identity of the user, e.g. tg:12345")
	resetCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	_ = resetCmd.MarkFlagRequired("identity")
}

func runReset(cmd *cobra.Command, args []string) error {
	identity, _ := cmd.Flags().GetString("identity")
	confirmed, _ := cmd.Flags().GetBool("yes")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	var schemaUser dbschema.User
	if err := db.Where("identity = ?", identity).First(&schemaUser).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("no user found for identity %q", identity)
		}
		return fmt.Errorf("find user: %w", err)
	}

	if !confirmed {
		fmt.Printf("This deletes ALL data for %q (user #%d). Re-run with --yes to confirm.\n", identity, schemaUser.ID)
		return nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, del := range []error{
			tx.Where("user_id = ?", schemaUser.ID).Delete(&dbschema.Expense{}).Error,
			tx.Where("user_id = ?", schemaUser.ID).Delete(&dbschema.LimitRule{}).Error,
			tx.Where("user_id = ?", schemaUser.ID).Delete(&dbschema.Category{}).Error,
			tx.Where("user_id = ?", schemaUser.ID).Delete(&dbschema.ConvoTurn{}).Error,
			tx.Delete(&schemaUser).Error,
		} {
			if del != nil {
				return del
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete user data: %w", err)
	}

	fmt.Printf("✓ Removed all data for %q\n", identity)
	return nil
}

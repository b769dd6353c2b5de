package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/frahmantamala/policy-register/internal/audit"
	auditPostgres "github.com/frahmantamala/policy-register/internal/audit/postgres"
	"github.com/frahmantamala/policy-register/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect the persisted document lifecycle events`,
}

var listEventsCmd = &cobra.Command{
	Use:   "list",
	Short: "Print recent audit events",
	Long:  `Print recent document lifecycle events as JSON lines, newest first`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			return err
		}

		service := audit.NewService(auditPostgres.NewAuditRepository(gormDB), logger.Service("audit"))
		evts, err := service.List(cmd.Context(), audit.Query{
			EntityID:  eventEntityID,
			EventType: eventType,
			Limit:     eventLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		for _, e := range evts {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	},
}

var (
	eventEntityID string
	eventType     string
	eventLimit    int
)

func init() {
	listEventsCmd.Flags().StringVar(&eventEntityID, "entity", "", "Only events of this document id")
	listEventsCmd.Flags().StringVar(&eventType, "type", "", "Only events of this type, e.g. document.created")
	listEventsCmd.Flags().IntVar(&eventLimit, "limit", audit.DefaultLimit, "Maximum number of events")

	eventCmd.AddCommand(listEventsCmd)

	rootCmd.AddCommand(eventCmd)
}

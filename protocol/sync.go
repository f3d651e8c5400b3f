package protocol

import (
	"fmt"

	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/pkg/statestore"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// syncCmd runs an incremental sync of every selected stream of the catalog
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Olake sync command",
	Long:  `Sync command reads the selected streams from the source, writes them to the destination and checkpoints the state`,
	Example: `
// Base command:
olake sync --config path/to/config --destination path/to/destination/config --catalog path/to/catalog

// With State:
olake sync --config path/to/config --destination path/to/destination/config --catalog path/to/catalog --state /path/to/state
`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if configPath == notSet {
			return fmt.Errorf("--config not passed")
		} else if destinationConfigPath == notSet {
			return fmt.Errorf("--destination not passed")
		}

		if err := utils.UnmarshalFile(configPath, connector.GetConfigRef(), true); err != nil {
			return err
		}

		destinationConfig = &destination.WriterConfig{}
		if err := utils.UnmarshalFile(destinationConfigPath, destinationConfig, true); err != nil {
			return err
		}
		if err := utils.Validate(destinationConfig); err != nil {
			return fmt.Errorf("invalid destination config: %s", err)
		}

		var err error
		catalog, err = loadCatalog()
		return err
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, err := statestore.New(ctx, viper.GetString(constants.StateStoreURL), viper.GetString(constants.StatePath))
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := store.Close(ctx); closeErr != nil {
				logger.Errorf("failed to close state store: %s", closeErr)
			}
		}()

		state, err := store.Load(ctx)
		if err != nil {
			return err
		}
		connector.SetupState(state)

		if err := connector.Setup(ctx); err != nil {
			return fmt.Errorf("failed to setup the connection: %s", err)
		}
		defer func() {
			if closeErr := connector.Close(ctx); closeErr != nil {
				logger.Errorf("failed to close connection: %s", closeErr)
			}
		}()

		writer, err := destination.NewWriter(ctx, destinationConfig)
		if err != nil {
			return err
		}
		emitter := destination.NewEmitter(writer, store)

		summary, syncErr := connector.Sync(ctx, catalog, emitter)
		if summary != nil {
			summary.Log()
		}
		return utils.ErrExecSequential(
			func() error { return syncErr },
			utils.ErrExecFormat("failed to close destination: %s", func() error { return emitter.Close(ctx) }),
		)
	},
}

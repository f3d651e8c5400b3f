package protocol

import (
	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/datazip-inc/olake-mongo/pkg/statestore"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// clearCmd drops the bookmarks of the selected streams so their next sync is a fresh load under a new version
var clearCmd = &cobra.Command{
	Use:   "clear-state",
	Short: "Olake clear command to reset the state of selected streams",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		catalog, err = loadCatalog()
		return err
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		streams := catalog.SelectedStreams()
		if len(streams) == 0 {
			logger.Infof("No streams selected for clearing")
			return nil
		}

		store, err := statestore.New(ctx, viper.GetString(constants.StateStoreURL), viper.GetString(constants.StatePath))
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		state, err := store.Load(ctx)
		if err != nil {
			return err
		}
		connector.SetupState(state)
		newState := connector.ClearState(streams)
		if err := store.Save(ctx, newState); err != nil {
			return err
		}
		logger.Infof("State for selected streams cleared successfully.")
		logger.LogState(newState)
		return nil
	},
}

package protocol

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/drivers/abstract"
	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const notSet = "not-set"

var (
	configPath            string
	destinationConfigPath string
	destinationType       string
	statePath             string
	streamsPath           string
	stateStoreURL         string
	logLevel              string
	noSave                bool
	encryptionKey         string
	catalog               *types.Catalog
	destinationConfig     *destination.WriterConfig

	commands  = []*cobra.Command{}
	connector *abstract.AbstractDriver
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "olake",
	Short: "root command",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// set global variables
		viper.SetDefault(constants.ConfigFolder, os.TempDir())
		viper.SetDefault(constants.StatePath, filepath.Join(os.TempDir(), "state.json"))
		viper.SetDefault(constants.StreamsPath, filepath.Join(os.TempDir(), "streams.json"))
		if !noSave {
			configFolder := utils.Ternary(configPath == notSet, filepath.Dir(destinationConfigPath), filepath.Dir(configPath)).(string)
			streamsPathEnv := utils.Ternary(streamsPath == "", filepath.Join(configFolder, "streams.json"), streamsPath).(string)
			statePathEnv := utils.Ternary(statePath == "", filepath.Join(configFolder, "state.json"), statePath).(string)
			viper.Set(constants.ConfigFolder, configFolder)
			viper.Set(constants.StatePath, statePathEnv)
			viper.Set(constants.StreamsPath, streamsPathEnv)
		} else {
			viper.Set(constants.NoSave, true)
			viper.Set(constants.StatePath, statePath)
		}

		if encryptionKey != "" {
			viper.Set(constants.EncryptionKey, encryptionKey)
		}
		if stateStoreURL != "" {
			viper.Set(constants.StateStoreURL, stateStoreURL)
		}
		if logLevel != "" {
			viper.Set(constants.LogLevel, logLevel)
		}

		// logger uses CONFIG_FOLDER
		logger.Init()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}

		if ok := utils.IsValidSubcommand(commands, args[0]); !ok {
			return fmt.Errorf("'%s' is an invalid command. Use 'olake --help' to display usage guide", args[0])
		}

		return nil
	},
}

func CreateRootCommand(_ bool, driver abstract.DriverInterface) *cobra.Command {
	RootCmd.AddCommand(commands...)
	connector = abstract.NewAbstractDriver(driver)

	return RootCmd
}

// loadCatalog reads and validates the --catalog file
func loadCatalog() (*types.Catalog, error) {
	if streamsPath == "" {
		return nil, fmt.Errorf("--catalog not passed")
	}
	loaded := &types.Catalog{}
	if err := utils.UnmarshalFile(streamsPath, loaded, false); err != nil {
		return nil, err
	}
	if err := utils.Validate(loaded); err != nil {
		return nil, fmt.Errorf("invalid catalog: %s", err)
	}
	return loaded, nil
}

func init() {
	viper.AutomaticEnv()

	commands = append(commands, specCmd, checkCmd, syncCmd, clearCmd)
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "", notSet, "(Required) Config for connector")
	RootCmd.PersistentFlags().StringVarP(&destinationConfigPath, "destination", "", notSet, "(Required) Destination config for connector")
	RootCmd.PersistentFlags().StringVarP(&destinationType, "destination-type", "", notSet, "Destination type for spec")
	RootCmd.PersistentFlags().StringVarP(&streamsPath, "catalog", "", "", "Path to the catalog file for the connector")
	RootCmd.PersistentFlags().StringVarP(&streamsPath, "streams", "", "", "Path to the catalog file for the connector")
	RootCmd.PersistentFlags().StringVarP(&statePath, "state", "", "", "(Optional) State file; with --state-store-url it names the state row")
	RootCmd.PersistentFlags().StringVarP(&stateStoreURL, "state-store-url", "", "", "(Optional) postgres:// url of a database keeping the state instead of a file")
	RootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "", "(Optional) debug, info, warn or error")
	RootCmd.PersistentFlags().BoolVarP(&noSave, "no-save", "", false, "(Optional) Flag to skip logging artifacts in file")
	RootCmd.PersistentFlags().StringVarP(&encryptionKey, "encryption-key", "", "", "(Optional) Decryption key. Provide the ARN of a KMS key or a passphrase used for local encryption.")
	// Disable Cobra CLI's built-in usage and error handling
	RootCmd.SilenceUsage = true
	RootCmd.SilenceErrors = true
}

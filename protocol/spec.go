package protocol

import (
	"fmt"

	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// specCmd prints the JSON schema of the source config, or of a destination with --destination-type
var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "spec command",
	RunE: func(_ *cobra.Command, _ []string) error {
		var spec any
		if destinationType != notSet {
			newfunc, found := destination.RegisteredWriters[destination.DestinationType(destinationType)]
			if !found {
				return fmt.Errorf("invalid destination type has been passed [%s]", destinationType)
			}
			spec = newfunc().Spec()
		} else {
			spec = connector.Spec()
		}

		schema, err := generateSchema(spec)
		if err != nil {
			return err
		}
		logger.LogSpec(schema)
		return nil
	},
}

func generateSchema(spec any) (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := map[string]any{}
	if err := utils.Unmarshal(reflector.Reflect(spec), &schema); err != nil {
		return nil, fmt.Errorf("failed to generate spec: %s", err)
	}
	return schema, nil
}

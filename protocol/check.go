/*
 * Copyright 2025 Olake By Datazip
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package protocol

import (
	"context"
	"fmt"

	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "check command",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if destinationConfigPath == notSet && configPath == notSet {
			return fmt.Errorf("no connector config or destination config provided")
		}

		// check for destination config
		if destinationConfigPath != notSet {
			destinationConfig = &destination.WriterConfig{}
			if err := utils.UnmarshalFile(destinationConfigPath, destinationConfig, true); err != nil {
				return err
			}
		}

		// check for source config
		if configPath != notSet {
			return utils.UnmarshalFile(configPath, connector.GetConfigRef(), true)
		}

		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		checks := []func(ctx context.Context) error{}
		if destinationConfigPath != notSet {
			checks = append(checks, func(ctx context.Context) error {
				writer, err := destination.NewWriter(ctx, destinationConfig)
				if err != nil {
					return err
				}
				return writer.Close(ctx)
			})
		}
		if configPath != notSet {
			checks = append(checks, func(ctx context.Context) error {
				if err := connector.Setup(ctx); err != nil {
					return err
				}
				return connector.Close(ctx)
			})
		}

		logger.LogConnectionStatus(utils.ErrExec(cmd.Context(), checks...))
	},
}

package olake

import (
	"os"

	"github.com/datazip-inc/olake-mongo/drivers/abstract"
	protocol "github.com/datazip-inc/olake-mongo/protocol"
	"github.com/datazip-inc/olake-mongo/utils/logger"
	"github.com/datazip-inc/olake-mongo/utils/safego"
	_ "github.com/datazip-inc/olake-mongo/writers/local"   // registering local jsonl writer
	_ "github.com/datazip-inc/olake-mongo/writers/parquet" // registering local parquet writer
	_ "github.com/datazip-inc/olake-mongo/writers/s3"      // registering s3 writer
	_ "github.com/datazip-inc/olake-mongo/writers/stdout"  // registering stdout writer
)

func RegisterDriver(driver abstract.DriverInterface) {
	defer safego.Recovery(true)

	// Execute the root command
	err := protocol.CreateRootCommand(true, driver).Execute()
	if err != nil {
		logger.Fatal(err)
	}

	os.Exit(0)
}

package main

import (
	olake "github.com/datazip-inc/olake-mongo"
	driver "github.com/datazip-inc/olake-mongo/drivers/mongodb/internal"
)

func main() {
	olake.RegisterDriver(driver.NewMongo())
}

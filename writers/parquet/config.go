package parquet

import (
	"github.com/datazip-inc/olake-mongo/utils"
)

type Config struct {
	Path string `json:"local_path" validate:"required"` // Local file path
	// Rows buffered per row group before it is written out
	RowGroupSize int `json:"row_group_size,omitempty" validate:"gte=0"`
}

func (c *Config) Validate() error {
	if c.RowGroupSize == 0 {
		c.RowGroupSize = 10_000
	}
	return utils.Validate(c)
}

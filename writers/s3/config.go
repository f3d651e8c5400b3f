package s3

import "github.com/datazip-inc/olake-mongo/utils"

type Config struct {
	Bucket    string `json:"s3_bucket" validate:"required"`
	Region    string `json:"s3_region" validate:"required"`
	Prefix    string `json:"s3_path,omitempty"`
	AccessKey string `json:"s3_access_key,omitempty"`
	SecretKey string `json:"s3_secret_key,omitempty"`
	// custom endpoint for S3 compatible stores such as MinIO
	Endpoint  string `json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	PathStyle bool   `json:"s3_path_style,omitempty"`
}

func (c *Config) Validate() error {
	return utils.Validate(c)
}

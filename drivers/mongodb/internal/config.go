package driver

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/datazip-inc/olake-mongo/constants"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/datazip-inc/olake-mongo/utils/logger"
)

type Config struct {
	Hosts          []string `json:"hosts" validate:"required,min=1" jsonschema:"title=Hosts,description=List of MongoDB hosts (with port),example=host1:27017"`
	AuthDB         string   `json:"authdb,omitempty" jsonschema:"title=Auth DB,description=Authentication database,default=admin"`
	Username       string   `json:"username,omitempty" jsonschema:"title=Username"`
	Password       string   `json:"password,omitempty" jsonschema:"title=Password,format=password"`
	ReplicaSet     string   `json:"replica_set,omitempty" jsonschema:"title=Replica Set,description=MongoDB replica set name"`
	ReadPreference string   `json:"read_preference,omitempty" jsonschema:"title=Read Preference,description=Read preference; defaults to secondaryPreferred with a replica set"`
	Srv            bool     `json:"srv,omitempty" jsonschema:"title=Use SRV,description=Whether to use DNS SRV"`
	SSL            bool     `json:"ssl,omitempty" jsonschema:"title=Use TLS"`
	// reach the hosts through a bastion
	SSHConfig *utils.SSHConfig `json:"ssh_config,omitempty" jsonschema:"title=SSH Tunnel"`

	// rows between two state snapshots
	UpdateBookmarkPeriod int `json:"update_bookmark_period,omitempty" validate:"gte=0" jsonschema:"title=Update Bookmark Period,description=Number of records between two state checkpoints,default=1000"`
	BatchSize            int `json:"batch_size,omitempty" validate:"gte=0" jsonschema:"title=Batch Size,description=Cursor batch size,default=5000"`

	IncludeSchemasInDestinationStreamName bool `json:"include_schemas_in_destination_stream_name,omitempty" jsonschema:"title=Prefix Stream With Database,description=Name destination streams <database>_<stream>"`
}

func (c *Config) URI() string {
	connectionPrefix := "mongodb"
	authDB := utils.Ternary(c.AuthDB == "", "admin", c.AuthDB).(string)
	options := fmt.Sprintf("?authSource=%s", url.QueryEscape(authDB))
	if c.Srv {
		connectionPrefix = "mongodb+srv"
	}

	readPreference := c.ReadPreference
	if c.ReplicaSet != "" {
		options = fmt.Sprintf("%s&replicaSet=%s", options, url.QueryEscape(c.ReplicaSet))
		if readPreference == "" {
			readPreference = "secondaryPreferred"
		}
	}
	if readPreference != "" {
		options = fmt.Sprintf("%s&readPreference=%s", options, url.QueryEscape(readPreference))
	}
	if c.SSL {
		options += "&tls=true"
	}

	auth := ""
	if c.Username != "" {
		user := url.QueryEscape(c.Username)
		auth = utils.Ternary(c.Password != "", user+":"+url.QueryEscape(c.Password)+"@", user+"@").(string)
	}

	return fmt.Sprintf(
		"%s://%s%s/%s",
		connectionPrefix, auth, strings.Join(c.Hosts, ","), options,
	)
}

func (c *Config) Validate() error {
	if err := utils.Validate(c); err != nil {
		return err
	}
	if c.SSHConfig != nil {
		if err := c.SSHConfig.Validate(); err != nil {
			return fmt.Errorf("invalid ssh_config: %s", err)
		}
	}
	if c.UpdateBookmarkPeriod == 0 {
		logger.Debugf("setting update_bookmark_period to default[%d]", constants.DefaultUpdateBookmarkPeriod)
		c.UpdateBookmarkPeriod = constants.DefaultUpdateBookmarkPeriod
	}
	if c.BatchSize == 0 {
		c.BatchSize = constants.DefaultBatchSize
	}
	return nil
}

package stdout

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/datazip-inc/olake-mongo/destination"
	"github.com/datazip-inc/olake-mongo/types"
	"github.com/datazip-inc/olake-mongo/utils"
	"github.com/goccy/go-json"
)

type Config struct {
	// skip ACTIVATE_VERSION messages for consumers that do not understand them
	SkipActivateVersion bool `json:"skip_activate_version,omitempty"`
	// write STATE messages into the stream as well
	EmitState *bool `json:"emit_state,omitempty"`
}

func (c *Config) Validate() error {
	return utils.Validate(c)
}

// Stdout writes every message as one JSON line
type Stdout struct {
	config *Config
	out    *bufio.Writer
	mu     sync.Mutex
}

func New(out io.Writer) *Stdout {
	return &Stdout{config: &Config{}, out: bufio.NewWriter(out)}
}

func (s *Stdout) GetConfigRef() destination.Config {
	s.config = &Config{}
	return s.config
}

func (s *Stdout) Spec() any {
	return Config{}
}

func (s *Stdout) Type() string {
	return string(destination.Stdout)
}

func (s *Stdout) Check(_ context.Context) error {
	return nil
}

func (s *Stdout) Write(_ context.Context, message *types.Message) error {
	switch message.Type {
	case types.ActivateVersionMessage:
		if s.config.SkipActivateVersion {
			return nil
		}
	case types.StateMessage:
		if s.config.EmitState != nil && !*s.config.EmitState {
			return nil
		}
	}

	line, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %s", message.Type, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

func (s *Stdout) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Flush()
}

func (s *Stdout) Close(ctx context.Context) error {
	return s.Flush(ctx)
}

func init() {
	destination.Register(destination.Stdout, func() destination.Writer {
		return New(os.Stdout)
	})
}

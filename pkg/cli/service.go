package cli

import (
	"io"
	"net/http"
	"os"

	"github.com/jh125486/batchreview/pkg/client"
)

// Service holds global dependencies that can be injected into commands.
// It separates runtime dependencies from configuration (args).
type Service struct {
	Client *http.Client
	Stdin  io.Reader
	Stdout io.Writer
}

// NewService creates a new Service with default implementations.
func NewService() *Service {
	return &Service{
		Client: client.NewHTTPClient(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
}

package hubservice

import (
	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/repository"
)

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Registry repository.RegistryRepository
	Samples  repository.SampleRepository

	// cache is optional; nil means every resolution hits the registry
	cache repository.ResolutionCache
}

// New creates a new HubService instance
func New(registry repository.RegistryRepository, samples repository.SampleRepository, cache repository.ResolutionCache) *HubService {
	return &HubService{
		Registry: registry,
		Samples:  samples,
		cache:    cache,
	}
}

// Validate checks if all required repositories are initialized
func (s *HubService) Validate() error {
	if s.Registry == nil {
		return ErrMissingRepository("registry")
	}
	if s.Samples == nil {
		return ErrMissingRepository("samples")
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}

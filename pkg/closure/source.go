package closure

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/manifest"
	"github.com/agentspaces/asp/pkg/ref"
	"github.com/agentspaces/asp/pkg/registry"
	"github.com/agentspaces/asp/pkg/resolver"
)

// Source resolves a selector and reads the resulting manifest. It is the
// seam between the closure walker and the registry/resolver/manifest
// packages, so tests can substitute a fake.
type Source interface {
	Resolve(id string, sel ref.Selector) (resolver.ResolvedSelector, error)
	ReadManifest(id string, resolved resolver.ResolvedSelector) (*manifest.SpaceManifest, error)
}

// RegistrySource is the production Source, backed by a git registry adapter
// plus a resolver, with dev-selector manifests read live from
// registryPath/spaces/<id> on fs.
type RegistrySource struct {
	Registry     *registry.Adapter
	Resolver     *resolver.Resolver
	Fs           afero.Fs
	RegistryPath string
}

// NewRegistrySource builds a RegistrySource.
func NewRegistrySource(reg *registry.Adapter, res *resolver.Resolver, fs afero.Fs, registryPath string) *RegistrySource {
	return &RegistrySource{Registry: reg, Resolver: res, Fs: fs, RegistryPath: registryPath}
}

func (s *RegistrySource) Resolve(id string, sel ref.Selector) (resolver.ResolvedSelector, error) {
	return s.Resolver.Resolve(id, sel)
}

func (s *RegistrySource) ReadManifest(id string, resolved resolver.ResolvedSelector) (*manifest.SpaceManifest, error) {
	if resolved.Kind == resolver.KindDev {
		path := filepath.Join(s.RegistryPath, "spaces", id, "space.toml")
		return manifest.ReadSpaceManifest(s.Fs, path)
	}

	data, err := s.Registry.ReadBlobAt(resolved.Commit, "spaces/"+id+"/space.toml")
	if err != nil {
		return nil, err
	}
	return manifest.DecodeSpaceManifest("spaces/"+id+"/space.toml@"+resolved.Commit, data)
}

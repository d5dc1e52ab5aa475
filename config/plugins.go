package config

import "github.com/huap-project/huap-core/plugin"

// pluginRegistryDocument is the on-disk shape of the plugin registry
// file (spec.md §6): `plugins: [{id, type, impl, enabled, settings}]`.
type pluginRegistryDocument struct {
	Plugins []plugin.Descriptor `json:"plugins" yaml:"plugins"`
}

// LoadPluginRegistry decodes a plugin registry file from path (JSON or
// YAML by extension) into a ready-to-resolve plugin.Registry.
func LoadPluginRegistry(path string) (*plugin.Registry, error) {
	var doc pluginRegistryDocument
	if err := decodeDocument(path, &doc); err != nil {
		return nil, err
	}
	return plugin.NewRegistry(doc.Plugins), nil
}

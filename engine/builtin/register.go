package builtin

import "github.com/weaveflow/weaveflow/engine/module"

// Register installs every reference module's manifest and factory into reg.
// Called once at process bootstrap before module discovery runs, so a
// workflow's context_modules can reference these names without needing a
// manifest.yaml on disk.
func Register(reg *module.Registry) error {
	if err := reg.RegisterManifest(EchoManifest()); err != nil {
		return err
	}
	reg.RegisterFactory(EchoClass, func(config map[string]any) (module.Module, error) { return NewEcho(config) })

	if err := reg.RegisterManifest(APIManifest()); err != nil {
		return err
	}
	reg.RegisterFactory(APIClass, func(config map[string]any) (module.Module, error) { return NewAPI(config) })

	if err := reg.RegisterManifest(CommandManifest()); err != nil {
		return err
	}
	reg.RegisterFactory(CommandClass, func(config map[string]any) (module.Module, error) { return NewCommand(config) })

	return nil
}

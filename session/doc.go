// Package session builds native session options: execution providers are
// attached in order and custom operator domains are registered against them.
//
//	b, err := session.NewBuilder(api)
//	if err != nil {
//		return err
//	}
//	defer b.Close()
//
//	_, err = b.WithExecutionProviders(ep.NewCUDA().WithDeviceID(0))
//
// A provider that cannot run on the current platform is skipped silently.
// A provider that fails to register is logged and skipped, unless the builder
// was configured with WithErrorOnProviderFailure(true).
package session

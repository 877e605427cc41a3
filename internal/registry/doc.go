// Package registry provides the plugin "glue" between manifests and code.
//
// The tree walker only depends on the Registry interface: a plugin name goes
// in, an executable Plugin comes out. How names are resolved is up to the
// implementation. Static is the in-process implementation used by the
// application: it maps the names declared under a manifest's
// `initialize.plugins` section to plugins built by compiled-in factories.
//
// After construction a registry can be validated so that the parameter
// metadata each plugin advertises is well formed before any tree is walked.
package registry

// Package features gates optional listing behavior behind named flags.
// Overrides set at startup win over config file values, which win over the
// compiled-in defaults.
package features

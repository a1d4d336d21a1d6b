// Package config loads and watches the monitor configuration file (YAML).
//
// Sections:
//   - server     port, read/write timeouts, CORS origins
//   - storage    backend (sqlite|postgres) and DSN
//   - auth       jwt_secret_env, the variable holding the bearer token secret
//   - engine     seed for distance jitter (0 seeds from the clock)
//   - classifier endpoint and timeout of the external condition model
//   - publisher  Kafka brokers and topic for assessment events
//   - log        level (debug|info|warn|error)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, current, onChange) reloads the file on change via fsnotify
// and reports changes to the settings a running server applies.
package config

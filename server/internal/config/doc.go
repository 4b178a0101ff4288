// Package config loads the server-side configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - GRPCPort           port for the gRPC receiver (default 50051)
//   - HTTPPort           port for the REST API and WebSocket hub (default 8080)
//   - Auth.Mode          "apikey" or "none"
//   - Auth.KeyEnv        environment variable holding the expected API key
//   - Auth.Header        gRPC metadata/HTTP header name (default "x-api-key")
//   - Storage.Backend    "memory" or "sqlite" (Storage.Path names the database)
//   - DataFile.Path      data.js file rewritten after every append
//   - DataFile.Watch     reload the store when DataFile.Path changes on disk
//   - History.MaxItems   newest entries kept per suite (0 keeps all)
//   - Alerts.Threshold   regression ratio that fires an alert (default "200%")
//   - Alerts.Cooldown    minimum time between re-fires of one bench (default 15m)
//
// Load(path) applies defaults before unmarshalling, then validates. Watch
// reloads the file on change.
package config

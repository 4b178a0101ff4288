// Package config loads the benchctl configuration.
//
// Sources, lowest precedence first:
//   - built-in defaults (suite "Benchmark", data file dev/bench/data.js,
//     alert threshold 200%, 5 push attempts, 10s push timeout)
//   - benchctl.yaml (the `collector:` section), when present
//   - BENCHCTL_* environment variables, optionally loaded from .env
//   - command-line flags
//
// Secrets are never stored in the file: auth sections name the environment
// variable (key_env, token_env, password_env) that holds the value.
package config

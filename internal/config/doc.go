// Package config handles configuration loading for mce-gateway.
//
// # Overview
//
// Configuration comes from a YAML file, environment variables, or both.
// Environment variables in ${VAR_NAME} format are expanded inside the YAML
// before parsing, and the well-known MCE_* variables plus PORT override
// file values so the gateway can run with no file at all.
//
// # Example
//
//	server:
//	  http_addr: ":3000"
//	  shutdown_timeout: 10s
//
//	mce:
//	  subdomain: ${MCE_SUBDOMAIN}
//	  client_id: ${MCE_CLIENT_ID}
//	  client_secret: ${MCE_CLIENT_SECRET}
//	  default_mid: ${MCE_DEFAULT_MID}
//
//	database:
//	  path: data/audit.db
//
//	auth:
//	  jwt_secret: ${JWT_SECRET}
//	  require_auth: false
//
//	logging:
//	  level: info
//	  format: text
//
// Missing credentials do not fail validation; credential-free deployments
// keep the documentation and validation tools working and only the proxy
// tools error at call time.
package config

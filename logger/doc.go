// Package logger provides structured logging for API clients using zerolog.
//
// Adapters, middleware and token providers take a *Logger and tag it with
// their component name. Without one they fall back to the global logger.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("httpclient")
//	log.Debug("request sent", logger.Fields(logger.FieldStatus, 200))
package logger

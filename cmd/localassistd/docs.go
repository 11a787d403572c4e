package main

// General API documentation for swaggo. Regenerate with `swag init -g cmd/localassistd/docs.go`.
//
// @title           localassist API
// @version         1.0
// @description     HTTP API for the local assistant inference core: model catalog, lifecycle, chat and tool execution.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

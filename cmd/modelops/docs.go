package main

// General API documentation for swaggo. Run `swag init -g cmd/modelops/docs.go`
// to regenerate ./docs.
//
// @title           modelops admin API
// @version         1.0
// @description     Admin API for the model registry, export and serving pipeline.
//
// @contact.name   modelops maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

package main

// General API documentation for swaggo. Generate with `swag init -g cmd/solverd/docs.go` and build with -tags swagger.
//
// @title           solverd API
// @version         1.0
// @description     Admin API for CAPTCHA solver projects, encrypted bundles and shared model sessions.
//
// @contact.name   solverd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

// Package httpserver exposes the poll and ranking modules over HTTP.
//
// @title Cinetrack Community API
// @version 1.0
// @description Poll voting and ranking endpoints.
// @BasePath /
package httpserver
